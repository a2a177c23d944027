package sale

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/types"
)

// RefRates is a pair of per-mille fee rates: the first tier accrues in
// the payment asset, the second in sale-asset units.
type RefRates struct {
	First  uint32 `json:"first"`
	Second uint32 `json:"second"`
}

// MaxRefRate caps each rate at 100% (per-mille).
const MaxRefRate uint32 = 1000

// ReferralRecord is one registered referrer. Custom rates are floors:
// rate resolution takes the per-field maximum of the record and the
// current defaults.
type ReferralRecord struct {
	Enabled bool
	Rates   RefRates
}

// referralBook holds the referral registry, the sticky user->referrer
// bindings and the claimable per-asset balances. Balances live in a
// treemap per referrer so views and claims iterate assets in order.
type referralBook struct {
	records  map[types.Address]*ReferralRecord
	bound    map[types.Address]types.Address
	balances map[types.Address]*treemap.Map
}

func newReferralBook() *referralBook {
	return &referralBook{
		records:  make(map[types.Address]*ReferralRecord),
		bound:    make(map[types.Address]types.Address),
		balances: make(map[types.Address]*treemap.Map),
	}
}

func (b *referralBook) record(referrer types.Address) *ReferralRecord {
	return b.records[referrer]
}

func (b *referralBook) register(referrer types.Address, rates RefRates) {
	b.records[referrer] = &ReferralRecord{Enabled: true, Rates: rates}
}

// resolve returns the referrer a purchase should credit: the sticky
// bound referrer while it stays enabled, otherwise the supplied one if
// registered and enabled, otherwise the null address. A disabled bound
// referrer cannot be displaced by supplying a fresh one.
func (b *referralBook) resolve(user, supplied types.Address) types.Address {
	if bound, ok := b.bound[user]; ok {
		if record := b.records[bound]; record != nil && record.Enabled {
			return bound
		}

		return types.ZeroAddress
	}

	if record := b.records[supplied]; record != nil && record.Enabled {
		return supplied
	}

	return types.ZeroAddress
}

// bind makes user->referrer sticky on the first purchase that names an
// enabled referrer. Later bindings are ignored.
func (b *referralBook) bind(user, referrer types.Address) {
	if _, ok := b.bound[user]; !ok {
		b.bound[user] = referrer
	}
}

func (b *referralBook) balance(referrer types.Address, asset string) decimal.Decimal {
	book, ok := b.balances[referrer]
	if !ok {
		return decimal.Zero
	}

	if v, found := book.Get(asset); found {
		return v.(decimal.Decimal)
	}

	return decimal.Zero
}

func (b *referralBook) accrue(referrer types.Address, asset string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}

	book, ok := b.balances[referrer]
	if !ok {
		book = treemap.NewWith(utils.StringComparator)
		b.balances[referrer] = book
	}

	book.Put(asset, b.balance(referrer, asset).Add(amount))
}

// take zeroes and returns the claimable balance for one asset.
func (b *referralBook) take(referrer types.Address, asset string) decimal.Decimal {
	amount := b.balance(referrer, asset)
	if amount.IsPositive() {
		b.balances[referrer].Put(asset, decimal.Zero)
	}

	return amount
}
