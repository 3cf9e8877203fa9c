package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPriceRow is one trading day of OHLCV data as returned by the provider
type DailyPriceRow struct {
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   int64           `json:"volume"`
	AdjClose decimal.Decimal `json:"adj_close"`
}

// DailyPrice represents a persisted daily_price record
type DailyPrice struct {
	ID              int             `json:"id"`
	DataVendorID    int             `json:"data_vendor_id"`
	SymbolID        int             `json:"symbol_id"`
	PriceDate       time.Time       `json:"price_date"`
	CreatedDate     time.Time       `json:"created_date"`
	LastUpdatedDate time.Time       `json:"last_updated_date"`
	Open            decimal.Decimal `json:"open_price"`
	High            decimal.Decimal `json:"high_price"`
	Low             decimal.Decimal `json:"low_price"`
	Close           decimal.Decimal `json:"close_price"`
	Volume          int64           `json:"volume"`
	AdjClose        decimal.Decimal `json:"adj_close_price"`
}
