package sale

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/config"
)

// OraclePriceKey is where the price feed job caches the latest native
// asset quote.
const OraclePriceKey = "launchpad:oracle:native_price"

// CachedPrice is the Redis representation of one oracle observation.
type CachedPrice struct {
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CachedPriceFeed reads the oracle quote the cron job keeps in Redis.
// The cached price is a whole-coin quote, so the feed reports zero
// decimals and the adapter rescales it to funding units.
type CachedPriceFeed struct {
	cache *config.CacheService
	key   string
}

func NewCachedPriceFeed(cache *config.CacheService, key string) *CachedPriceFeed {
	if key == "" {
		key = OraclePriceKey
	}

	return &CachedPriceFeed{cache: cache, key: key}
}

func (f *CachedPriceFeed) Decimals() int32 {
	return 0
}

func (f *CachedPriceFeed) LatestPrice() (decimal.Decimal, time.Time, error) {
	var cached CachedPrice
	if err := f.cache.GetKey(f.key, &cached); err != nil {
		return decimal.Zero, time.Time{}, err
	}

	return cached.Price, cached.UpdatedAt, nil
}
