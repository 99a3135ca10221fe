package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a read-only catalog collaborator: the checkout core snapshots
// prices from it but never mutates it.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Price         decimal.Decimal `json:"price"`
	Discount      int             `json:"discount"`
	MainImageURL  string          `json:"main_image_url,omitempty"`
	Sizes         []string        `json:"sizes,omitempty"`
	Colors        []string        `json:"colors,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PriceQuote is the catalog answer snapshotted into cart lines.
type PriceQuote struct {
	Price           decimal.Decimal
	DiscountedPrice decimal.Decimal
	Stock           int
}

// Quote applies the percentage discount to the list price.
func (p Product) Quote() PriceQuote {
	discounted := p.Price
	if p.Discount > 0 && p.Discount < 100 {
		factor := decimal.NewFromInt(int64(100 - p.Discount)).Div(decimal.NewFromInt(100))
		discounted = p.Price.Mul(factor).Round(2)
	}
	return PriceQuote{Price: p.Price, DiscountedPrice: discounted, Stock: p.StockQuantity}
}
