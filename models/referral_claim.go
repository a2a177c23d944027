package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReferralClaim struct {
	ID        uint64          `json:"id" gorm:"primaryKey"`
	Referrer  string          `json:"referrer"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func (ReferralClaim) TableName() string {
	return "referral_claims"
}
