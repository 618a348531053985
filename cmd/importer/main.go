package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"marketplace-api/internal/config"
	"marketplace-api/internal/db"
	"marketplace-api/internal/domain"
	"marketplace-api/internal/importer"
	"marketplace-api/internal/repository/product"
	"marketplace-api/internal/repository/user"

	"github.com/joho/godotenv"
)

func main() {
	var (
		filePath string
		seller   string
	)
	flag.StringVar(&filePath, "file", "", "Path to product CSV file")
	flag.StringVar(&seller, "seller", "", "Login of the seller who will own the products")
	flag.Parse()

	if filePath == "" || seller == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	owner, err := user.NewPostgres(pool, nil).GetByLogin(ctx, seller)
	if err != nil {
		log.Fatalf("find seller %q: %v", seller, err)
	}
	if !owner.Role.Valid() || owner.Role == domain.RoleBuyer {
		log.Fatalf("user %q is a %s and cannot own products", seller, owner.Role)
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, nil), owner.ID)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed after %d products: %v", count, err)
	}

	fmt.Printf("Imported %d products for seller %s in %s\n", count, seller, time.Since(start).Truncate(time.Millisecond))
}
