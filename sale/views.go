package sale

import (
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/types"
)

// Read accessors. Each takes the lock so a reader never observes a
// half-applied settlement.

func (l *SaleLedger) Address() types.Address {
	return l.addr
}

func (l *SaleLedger) State() types.CampaignState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

func (l *SaleLedger) Treasury() types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.treasury
}

// Limits returns (min, authLimit, max) in funding units.
func (l *SaleLedger) Limits() (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.min, l.authLimit, l.max
}

func (l *SaleLedger) MinFunding() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.min
}

func (l *SaleLedger) IsAuthorized(user types.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.authorized[user]
}

// Funding is the user's cumulative normalized funds, monotonically
// non-decreasing over the campaign.
func (l *SaleLedger) Funding(user types.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.funding[user]
}

func (l *SaleLedger) BalanceOf(user types.Address, round int) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[user][round]
}

func (l *SaleLedger) TotalSold() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalSold
}

func (l *SaleLedger) RoundCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.rounds)
}

func (l *SaleLedger) Round(index int) (*RoundJSON, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	round, err := l.round(index)
	if err != nil {
		return nil, err
	}

	return round.ToJSON(index), nil
}

func (l *SaleLedger) Rounds() []*RoundJSON {
	l.mu.Lock()
	defer l.mu.Unlock()

	rounds := make([]*RoundJSON, 0, len(l.rounds))
	for i, round := range l.rounds {
		rounds = append(rounds, round.ToJSON(i))
	}

	return rounds
}

// CurrentRound is the index of the open round, -1 when none is open.
func (l *SaleLedger) CurrentRound() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.current
}

// CurrentPrice is the tier price of the open round, zero when no round
// is open.
func (l *SaleLedger) CurrentPrice(tier types.Tier) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current < 0 {
		return decimal.Zero
	}

	return l.rounds[l.current].PriceFor(tier)
}

// Headroom is what the user can still commit under their applicable
// cap, floored at zero.
func (l *SaleLedger) Headroom(user types.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.authLimit
	if l.authorized[user] {
		limit = l.max
	}

	return floorZero(limit.Sub(l.funding[user]))
}

// AuthHeadroom is headroom under the authorized-tier cap, used by
// privileged buy-for calls regardless of the user's own flag.
func (l *SaleLedger) AuthHeadroom(user types.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return floorZero(l.max.Sub(l.funding[user]))
}

func (l *SaleLedger) RefBalance(referrer types.Address, asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.refs.balance(referrer, asset)
}

func (l *SaleLedger) DefaultRates() RefRates {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.defaultRates
}

func (l *SaleLedger) SaleSymbol() string {
	return l.saleAsset.Symbol()
}

func (l *SaleLedger) SaleDecimals() int32 {
	return l.saleAsset.Decimals()
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d
}
