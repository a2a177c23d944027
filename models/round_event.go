package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundEvent journals every round lifecycle, price or supply change.
type RoundEvent struct {
	ID         uint64          `json:"id" gorm:"primaryKey"`
	Action     string          `json:"action"`
	RoundIndex int             `json:"round_index"`
	State      string          `json:"state"`
	ShortPrice decimal.Decimal `json:"short_price"`
	LongPrice  decimal.Decimal `json:"long_price"`
	Sold       decimal.Decimal `json:"sold"`
	Supply     decimal.Decimal `json:"supply"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (RoundEvent) TableName() string {
	return "round_events"
}
