package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of minor-unit digits prices are kept at.
const PriceScale = 2

// Product is the catalog view the engines need. The catalog itself is
// maintained elsewhere; this service only reads it.
type Product struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"supplier_id"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"base_price"`
	IsActive   bool            `json:"is_active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RoundPrice normalises a price to PriceScale digits.
func RoundPrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(PriceScale)
}
