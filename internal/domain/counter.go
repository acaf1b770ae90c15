package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt series names.
const (
	SeriesSale     = "sale"
	SeriesReserve  = "reserve"
	SeriesRepair   = "repair"
	SeriesDelivery = "delivery"
)

// Counter backs one receipt series. Value is only changed by compare-and-swap.
type Counter struct {
	Series string `json:"series" db:"series"`
	Prefix string `json:"prefix" db:"prefix"`
	Value  int64  `json:"value" db:"value"`
}

// Settings is the single global versioned record carrying the exchange
// rate and the loyalty economy parameters.
type Settings struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	PointsPaused bool            `json:"points_paused" db:"points_paused"`
	PointValue   decimal.Decimal `json:"point_value" db:"point_value"`
	EarnRate     decimal.Decimal `json:"earn_rate" db:"earn_rate"`
	Version      int64           `json:"version" db:"version"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
