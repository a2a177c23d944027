package sale

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceOracle is the read-only surface of an external price feed.
// LatestPrice returns the raw price in the feed's own decimals together
// with the time of its last update.
type PriceOracle interface {
	Decimals() int32
	LatestPrice() (decimal.Decimal, time.Time, error)
}

// OracleAdapter normalizes a feed's price to funding decimals and
// enforces a maximum age on the last update.
type OracleAdapter struct {
	feed PriceOracle
	now  func() time.Time
}

func NewOracleAdapter(feed PriceOracle) *OracleAdapter {
	return &OracleAdapter{feed: feed, now: time.Now}
}

// NormalizedPrice returns the latest feed price rescaled to 18 decimals,
// rejecting it when the last update is older than maxAge.
func (a *OracleAdapter) NormalizedPrice(maxAge time.Duration) (decimal.Decimal, error) {
	price, updated_at, err := a.feed.LatestPrice()
	if err != nil {
		return decimal.Zero, fmt.Errorf("sale.oracle.fetch: %w", err)
	}

	if a.now().Sub(updated_at) > maxAge {
		return decimal.Zero, ErrOracleStale
	}

	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive oracle price %s", ErrInvalidParameter, price)
	}

	return Normalize(price, a.feed.Decimals(), FundingDecimals), nil
}
