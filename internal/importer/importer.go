package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"marketplace-api/internal/domain"
)

type ProductWriter interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and creates products for one seller.
//
// Expected headers: name, description, price, discount, category, stock,
// image, is_popular, is_new. Rows with an empty name but an image continue
// the previous product and append to its gallery.
type CSVImporter struct {
	reader   *csv.Reader
	repo     ProductWriter
	sellerID string
}

func NewCSVImporter(r io.Reader, repo ProductWriter, sellerID string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		repo:     repo,
		sellerID: sellerID,
	}
}

type csvRow struct {
	line    int
	product domain.Product
}

// Run parses CSV rows and creates one product per named row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return 0, errors.New("read headers: missing name column")
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		name := pick(record, index, "name")
		image := pick(record, index, "image")
		if name == "" {
			if current != nil && image != "" {
				current.product.Images = append(current.product.Images, image)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		current, err = parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		current.product.SellerID = i.sellerID
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	p := row.product
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("row %d (%s): %w", row.line, p.Name, err)
	}
	if _, err := i.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product %q: %w", p.Name, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	p := domain.Product{
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    domain.Category(strings.ToLower(pick(record, index, "category"))),
		IsActive:    true,
	}

	var err error
	if p.Price, err = parseInt64(pick(record, index, "price")); err != nil {
		return nil, fmt.Errorf("row %d: price: %w", line, err)
	}
	discount, err := parseInt64(pick(record, index, "discount"))
	if err != nil {
		return nil, fmt.Errorf("row %d: discount: %w", line, err)
	}
	p.Discount = int(discount)
	stock, err := parseInt64(pick(record, index, "stock"))
	if err != nil {
		return nil, fmt.Errorf("row %d: stock: %w", line, err)
	}
	p.Stock = int(stock)
	p.IsPopular = parseBool(pick(record, index, "is_popular"))
	p.IsNew = parseBool(pick(record, index, "is_new"))

	if image := pick(record, index, "image"); image != "" {
		p.Image = image
		p.Images = []string{image}
	}
	return &csvRow{line: line, product: p}, nil
}

func parseInt64(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
