package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
)

// Purchase is one journal row per settled purchase, enough with the
// other journals to rebuild ledger state from history.
type Purchase struct {
	ID        uint64          `json:"id" gorm:"primaryKey"`
	UUID      uuid.UUID       `json:"uuid"`
	Payer     string          `json:"payer"`
	Asset     null.String     `json:"asset"` // null for the native coin
	Referrer  null.String     `json:"referrer"`
	Amount    decimal.Decimal `json:"amount"`
	Funds     decimal.Decimal `json:"funds"`
	Tier      string          `json:"tier"`
	SoldUnits decimal.Decimal `json:"sold_units" gorm:"column:sold_units"`
	Round     int             `json:"round"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}
