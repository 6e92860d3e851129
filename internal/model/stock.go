package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one cleaned catalog entry.
type Stock struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// RawStockEntry is a scraped table row before AI cleaning. Price is kept as
// the raw cell text ("15.50 KES", "1,234.00" etc).
type RawStockEntry struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// CatalogSnapshot is the cleaned price list together with the scrape time.
type CatalogSnapshot struct {
	Stocks    []Stock   `json:"stocks"`
	Timestamp time.Time `json:"timestamp"`
}
