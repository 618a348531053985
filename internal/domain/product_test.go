package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalPrice(t *testing.T) {
	cases := []struct {
		name     string
		price    int64
		discount int
		want     int64
	}{
		{"no discount", 1000, 0, 1000},
		{"ten percent", 1000, 10, 900},
		{"rounds down below half", 999, 15, 849},
		{"rounds half away from zero", 1005, 50, 503},
		{"rounds up above half", 1001, 25, 751},
		{"full discount", 1234, 100, 0},
		{"free product", 0, 50, 0},
		{"seed phone", 79990, 10, 71991},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FinalPrice(tc.price, tc.discount))
		})
	}
}

func TestProductRepriceFollowsInputs(t *testing.T) {
	p := Product{Price: 1000, Discount: 10}
	p.Reprice()
	assert.Equal(t, int64(900), p.FinalPrice)

	p.Discount = 0
	p.Reprice()
	assert.Equal(t, int64(1000), p.FinalPrice)

	p.Price = 2000
	p.Discount = 25
	p.Reprice()
	assert.Equal(t, int64(1500), p.FinalPrice)
}

func TestProductValidate(t *testing.T) {
	valid := func() Product {
		return Product{Name: "Mug", Description: "Ceramic", Price: 100, Category: CategoryHome, Stock: 1}
	}

	p := valid()
	require.NoError(t, p.Validate())

	cases := map[string]func(p *Product){
		"name":        func(p *Product) { p.Name = "  " },
		"description": func(p *Product) { p.Description = "" },
		"price":       func(p *Product) { p.Price = -1 },
		"discount":    func(p *Product) { p.Discount = 101 },
		"category":    func(p *Product) { p.Category = "weapons" },
		"stock":       func(p *Product) { p.Stock = -5 },
		"rating":      func(p *Product) { p.Rating = 5.5 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			p := valid()
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestBuildCartExcludesInactiveAndMissing(t *testing.T) {
	products := map[string]*Product{
		"p1": {ID: "p1", Price: 1000, Discount: 10, IsActive: true},
		"p2": {ID: "p2", Price: 500, IsActive: false},
	}
	entries := []CartEntry{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "gone", Quantity: 2},
	}

	cart := BuildCart("u1", entries, products)

	require.Len(t, cart.Lines, 3)
	assert.Equal(t, int64(2700), cart.TotalPrice)
	assert.True(t, cart.Lines[0].Purchasable)
	assert.Equal(t, int64(2700), cart.Lines[0].LineTotal)
	assert.False(t, cart.Lines[1].Purchasable)
	assert.NotNil(t, cart.Lines[1].Product)
	assert.False(t, cart.Lines[2].Purchasable)
	assert.Nil(t, cart.Lines[2].Product)
}

func TestStockErrorMessage(t *testing.T) {
	err := error(&StockError{ProductID: "p1", Name: "Phone", Requested: 10, Available: 5})
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, "insufficient stock for Phone: requested 10, available 5", err.Error())
}
