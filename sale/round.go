package sale

import (
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/types"
)

// Round is one time-boxed allocation of sale supply at two fixed tier
// prices. Rounds form an append-only sequence and never reopen; sold
// never exceeds supply.
type Round struct {
	State      types.RoundState
	ShortPrice decimal.Decimal
	LongPrice  decimal.Decimal
	Sold       decimal.Decimal
	Supply     decimal.Decimal
}

func (r *Round) PriceFor(tier types.Tier) decimal.Decimal {
	if tier == types.TierShort {
		return r.ShortPrice
	}

	return r.LongPrice
}

func (r *Round) Remaining() decimal.Decimal {
	return r.Supply.Sub(r.Sold)
}

func (r *Round) IsStarted() bool {
	return r.State != types.RoundNone
}

func (r *Round) IsOpened() bool {
	return r.State == types.RoundOpened
}

func (r *Round) IsClosed() bool {
	return r.State == types.RoundClosed
}

type RoundJSON struct {
	Index      int             `json:"index"`
	State      string          `json:"state"`
	ShortPrice decimal.Decimal `json:"short_price"`
	LongPrice  decimal.Decimal `json:"long_price"`
	Sold       decimal.Decimal `json:"sold"`
	Supply     decimal.Decimal `json:"supply"`
}

func (r *Round) ToJSON(index int) *RoundJSON {
	return &RoundJSON{
		Index:      index,
		State:      r.State,
		ShortPrice: r.ShortPrice,
		LongPrice:  r.LongPrice,
		Sold:       r.Sold,
		Supply:     r.Supply,
	}
}
