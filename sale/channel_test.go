package sale

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsmartex/launchpad/assets"
	"github.com/zsmartex/launchpad/types"
)

var (
	nativeAcct = types.Address("channel.native")
	stableAcct = types.Address("channel.stable")
	relayer    = types.Address("relayer")
)

// usdt scales whole stable units to 6-decimal base units.
func usdt(value string) decimal.Decimal {
	return d(value).Shift(6)
}

// coins scales whole native coins to 18-decimal base units.
func coins(value string) decimal.Decimal {
	return d(value).Shift(18)
}

// staticFeed is an 8-decimal oracle under test control.
type staticFeed struct {
	price   decimal.Decimal
	updated time.Time
	err     error
}

func (f *staticFeed) Decimals() int32 {
	return 8
}

func (f *staticFeed) LatestPrice() (decimal.Decimal, time.Time, error) {
	return f.price, f.updated, f.err
}

type saleFixture struct {
	bank   *assets.Bank
	ledger *SaleLedger
	native *NativeChannel
	stable *StableChannel
	feed   *staticFeed
}

// newSaleFixture wires a full campaign: both channels granted operator,
// relayer on-ramped, treasury set, limits 25/7500/100000 funding units,
// default rates 100/50 per-mille, one round at 0.35/0.30 with 10M
// supply, opened. The feed quotes 2000 funding units per native coin.
func newSaleFixture(t *testing.T) *saleFixture {
	bank := assets.NewBank()
	bank.Register("LPT", 8)
	bank.Register("USDT", 6)

	ledger, err := NewSaleLedger(ledgerAcct, admin, bank.Handle("LPT", ledgerAcct), nil)
	require.NoError(t, err)

	feed := &staticFeed{price: d("2000").Shift(8), updated: time.Now()}

	native, err := NewNativeChannel(nativeAcct, admin, ledger, bank.Vault(), NewOracleAdapter(feed), nil)
	require.NoError(t, err)

	stable, err := NewStableChannel(stableAcct, admin, ledger, bank.Handle("USDT", stableAcct), nil)
	require.NoError(t, err)

	require.NoError(t, ledger.Grant(admin, types.RoleOperator, nativeAcct))
	require.NoError(t, ledger.Grant(admin, types.RoleOperator, stableAcct))
	require.NoError(t, ledger.Grant(admin, types.RoleOperator, operator))
	require.NoError(t, native.GrantOnRamp(admin, relayer))
	require.NoError(t, stable.GrantOnRamp(admin, relayer))

	require.NoError(t, ledger.SetTreasury(admin, treasury))
	require.NoError(t, ledger.SetMax(admin, fund("100000")))
	require.NoError(t, ledger.SetAuthLimit(admin, fund("7500")))
	require.NoError(t, ledger.SetMin(admin, fund("25")))
	require.NoError(t, ledger.SetDefaultRefRates(admin, 100, 50))

	require.NoError(t, ledger.AddRound(admin, fund("0.35"), fund("0.30"), tokens("10000000")))
	require.NoError(t, ledger.Open(admin))
	require.NoError(t, ledger.OpenRound(admin, 0))

	bank.Mint("USDT", alice, usdt("1000000"))
	bank.Mint("USDT", relayer, usdt("1000000"))
	bank.Mint(assets.NativeSymbol, alice, coins("100"))

	return &saleFixture{bank: bank, ledger: ledger, native: native, stable: stable, feed: feed}
}

func TestStableBuy(t *testing.T) {
	f := newSaleFixture(t)

	event, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	require.NoError(t, err)

	// 25 funding units at 0.30 buys 83.33333333 tokens, truncated.
	assert.True(t, fund("25").Equal(event.Funds))
	assert.True(t, d("8333333333").Equal(event.SoldUnits))
	assert.Equal(t, types.TierLong, event.Tier)
	assert.Equal(t, 0, event.Round)
	assert.Equal(t, "USDT", event.Asset.String)
	assert.False(t, event.Referrer.Valid)

	assert.True(t, fund("25").Equal(f.ledger.Funding(alice)))
	assert.True(t, d("8333333333").Equal(f.ledger.BalanceOf(alice, 0)))
	assert.True(t, d("8333333333").Equal(f.ledger.TotalSold()))
	assert.True(t, fund("7475").Equal(f.ledger.Headroom(alice)))
	assert.True(t, usdt("25").Equal(f.stable.Total("USDT")))

	// No referrer: the full payment lands in the treasury.
	assert.True(t, usdt("25").Equal(f.stable.Asset().BalanceOf(treasury)))

	// A second purchase accumulates.
	_, err = f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	require.NoError(t, err)
	assert.True(t, fund("50").Equal(f.ledger.Funding(alice)))
	assert.True(t, d("16666666666").Equal(f.ledger.BalanceOf(alice, 0)))
	assert.True(t, fund("7450").Equal(f.ledger.Headroom(alice)))
}

func TestStableBuyAboveHeadroom(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("7500.1"))
	assert.ErrorIs(t, err, ErrAboveMaximum)

	// Rejected before any transfer or ledger write.
	assert.True(t, f.ledger.Funding(alice).IsZero())
	assert.True(t, f.ledger.TotalSold().IsZero())
	assert.True(t, usdt("1000000").Equal(f.stable.Asset().BalanceOf(alice)))
	assert.True(t, f.stable.Asset().BalanceOf(treasury).IsZero())

	// Exactly the cap passes.
	_, err = f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("7500"))
	require.NoError(t, err)
	assert.True(t, f.ledger.Headroom(alice).IsZero())
}

func TestStableBuyBelowMinimum(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("24.999999"))
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.True(t, f.ledger.Funding(alice).IsZero())
}

func TestStableBuyValidation(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = f.stable.Buy(alice, types.TierLong, alice, usdt("25"))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// Insufficient payer funds surface as a failed transfer, nothing
	// committed.
	_, err = f.stable.Buy(bob, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.True(t, f.ledger.Funding(bob).IsZero())
}

func TestStableBuyWithReferrer(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.SetupReferral(operator, referrerR, 100, 50))

	event, err := f.stable.Buy(alice, types.TierLong, referrerR, usdt("25"))
	require.NoError(t, err)
	assert.Equal(t, string(referrerR), event.Referrer.String)

	// First tier: 25 * 100/1000 in the payment asset, held in ledger
	// custody. Second tier: 25 * 50/1000 funding units at 0.30, in sale
	// units.
	assert.True(t, usdt("2.5").Equal(f.ledger.RefBalance(referrerR, "USDT")))
	assert.True(t, d("416666666").Equal(f.ledger.RefBalance(referrerR, "LPT")))
	assert.True(t, usdt("22.5").Equal(f.stable.Asset().BalanceOf(treasury)))
	assert.True(t, usdt("2.5").Equal(f.stable.Asset().BalanceOf(ledgerAcct)))

	// Claiming pays exactly the accrued balances and zeroes them.
	f.bank.Mint("LPT", ledgerAcct, d("416666666"))

	usdtHandle := f.bank.Handle("USDT", ledgerAcct)
	lptHandle := f.bank.Handle("LPT", ledgerAcct)
	require.NoError(t, f.ledger.ClaimRef(referrerR, []Fungible{usdtHandle, lptHandle}))

	assert.True(t, usdt("2.5").Equal(usdtHandle.BalanceOf(referrerR)))
	assert.True(t, d("416666666").Equal(lptHandle.BalanceOf(referrerR)))
	assert.True(t, f.ledger.RefBalance(referrerR, "USDT").IsZero())
	assert.True(t, f.ledger.RefBalance(referrerR, "LPT").IsZero())
}

func TestStableBuyBindsReferrerAcrossPurchases(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.SetupReferral(operator, referrerR, 100, 50))
	require.NoError(t, f.ledger.SetupReferral(operator, referrerS, 100, 50))

	_, err := f.stable.Buy(alice, types.TierLong, referrerR, usdt("25"))
	require.NoError(t, err)

	// The second purchase names S but still credits the bound R.
	event, err := f.stable.Buy(alice, types.TierLong, referrerS, usdt("25"))
	require.NoError(t, err)
	assert.Equal(t, string(referrerR), event.Referrer.String)

	assert.True(t, usdt("5").Equal(f.ledger.RefBalance(referrerR, "USDT")))
	assert.True(t, f.ledger.RefBalance(referrerS, "USDT").IsZero())
}

func TestNativeBuy(t *testing.T) {
	f := newSaleFixture(t)

	// 0.0125 coin at 2000 funding units each is exactly the 25 minimum.
	event, err := f.native.Buy(alice, types.TierLong, types.ZeroAddress, coins("0.0125"))
	require.NoError(t, err)

	assert.True(t, fund("25").Equal(event.Funds))
	assert.True(t, d("8333333333").Equal(event.SoldUnits))
	assert.False(t, event.Asset.Valid)

	vault := f.bank.Vault()
	assert.True(t, coins("0.0125").Equal(vault.BalanceOf(treasury)))
	assert.True(t, vault.BalanceOf(nativeAcct).IsZero())
	assert.True(t, coins("0.0125").Equal(f.native.Total(NativeAssetKey)))
	assert.True(t, fund("25").Equal(f.ledger.Funding(alice)))
}

func TestNativeBuyWithReferrer(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.SetupReferral(operator, referrerR, 100, 50))

	_, err := f.native.Buy(alice, types.TierLong, referrerR, coins("0.0125"))
	require.NoError(t, err)

	// First tier accrues in the native bucket and the coins sit in
	// ledger custody.
	vault := f.bank.Vault()
	assert.True(t, coins("0.00125").Equal(f.ledger.RefBalance(referrerR, NativeAssetKey)))
	assert.True(t, coins("0.00125").Equal(vault.BalanceOf(ledgerAcct)))
	assert.True(t, coins("0.01125").Equal(vault.BalanceOf(treasury)))
	assert.True(t, d("416666666").Equal(f.ledger.RefBalance(referrerR, "LPT")))

	// The native bucket is claimable through a handle over the native
	// symbol, paying out of ledger custody.
	nativeHandle := f.bank.Handle(assets.NativeSymbol, ledgerAcct)
	require.NoError(t, f.ledger.ClaimRef(referrerR, []Fungible{nativeHandle}))

	assert.True(t, coins("0.00125").Equal(vault.BalanceOf(referrerR)))
	assert.True(t, vault.BalanceOf(ledgerAcct).IsZero())
	assert.True(t, f.ledger.RefBalance(referrerR, NativeAssetKey).IsZero())
}

func TestBuyAtFullFirstTierRate(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.SetupReferral(operator, referrerR, 1000, 0))

	// The whole payment is the first-tier fee: nothing is owed to the
	// treasury and the purchase still settles.
	_, err := f.stable.Buy(alice, types.TierLong, referrerR, usdt("25"))
	require.NoError(t, err)

	assert.True(t, f.stable.Asset().BalanceOf(treasury).IsZero())
	assert.True(t, usdt("25").Equal(f.stable.Asset().BalanceOf(ledgerAcct)))
	assert.True(t, usdt("25").Equal(f.ledger.RefBalance(referrerR, "USDT")))
	assert.True(t, fund("25").Equal(f.ledger.Funding(alice)))

	_, err = f.native.Buy(alice, types.TierLong, referrerR, coins("0.0125"))
	require.NoError(t, err)

	vault := f.bank.Vault()
	assert.True(t, vault.BalanceOf(treasury).IsZero())
	assert.True(t, coins("0.0125").Equal(vault.BalanceOf(ledgerAcct)))
	assert.True(t, coins("0.0125").Equal(f.ledger.RefBalance(referrerR, NativeAssetKey)))
}

func TestNativeBuyStaleOracle(t *testing.T) {
	f := newSaleFixture(t)

	f.feed.updated = time.Now().Add(-2 * time.Hour)

	_, err := f.native.Buy(alice, types.TierLong, types.ZeroAddress, coins("0.0125"))
	assert.ErrorIs(t, err, ErrOracleStale)

	// No state change anywhere.
	assert.True(t, f.ledger.Funding(alice).IsZero())
	assert.True(t, f.ledger.TotalSold().IsZero())
	assert.True(t, coins("100").Equal(f.bank.Vault().BalanceOf(alice)))
	assert.True(t, f.native.Total(NativeAssetKey).IsZero())
}

func TestSetPriceStalenessThreshold(t *testing.T) {
	f := newSaleFixture(t)

	assert.ErrorIs(t, f.native.SetPriceStalenessThreshold(alice, time.Minute), ErrUnauthorized)
	assert.ErrorIs(t, f.native.SetPriceStalenessThreshold(admin, 0), ErrInvalidParameter)

	require.NoError(t, f.native.SetPriceStalenessThreshold(admin, time.Minute))
	assert.Equal(t, time.Minute, f.native.StalenessThreshold())

	f.feed.updated = time.Now().Add(-5 * time.Minute)
	_, err := f.native.Buy(alice, types.TierLong, types.ZeroAddress, coins("0.0125"))
	assert.ErrorIs(t, err, ErrOracleStale)
}

func TestBuyForRequiresOnRamp(t *testing.T) {
	f := newSaleFixture(t)

	f.bank.Mint("USDT", bob, usdt("100"))

	_, err := f.stable.BuyFor(alice, bob, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The relayer pays, bob receives the allocation.
	event, err := f.stable.BuyFor(relayer, bob, types.TierLong, types.ZeroAddress, usdt("25"))
	require.NoError(t, err)
	assert.Equal(t, bob, event.Payer)
	assert.True(t, fund("25").Equal(f.ledger.Funding(bob)))
}

func TestBuyForUsesAuthorizedCap(t *testing.T) {
	f := newSaleFixture(t)

	// bob is not flagged: a plain buy past the default cap is rejected.
	f.bank.Mint("USDT", bob, usdt("100000"))
	_, err := f.stable.Buy(bob, types.TierLong, types.ZeroAddress, usdt("8000"))
	assert.ErrorIs(t, err, ErrAboveMaximum)

	// The on-ramp path measures against the authorized-tier cap.
	_, err = f.stable.BuyFor(relayer, bob, types.TierLong, types.ZeroAddress, usdt("8000"))
	require.NoError(t, err)
	assert.True(t, fund("8000").Equal(f.ledger.Funding(bob)))

	_, err = f.stable.BuyFor(relayer, bob, types.TierLong, types.ZeroAddress, usdt("93000"))
	assert.ErrorIs(t, err, ErrAboveMaximum)
}

func TestBuyWhilePaused(t *testing.T) {
	f := newSaleFixture(t)

	assert.ErrorIs(t, f.stable.Pause(alice), ErrUnauthorized)
	require.NoError(t, f.stable.Pause(admin))
	assert.True(t, f.stable.IsPaused())

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrPaused)

	// The other channel is unaffected.
	_, err = f.native.Buy(alice, types.TierLong, types.ZeroAddress, coins("0.0125"))
	require.NoError(t, err)

	require.NoError(t, f.stable.Unpause(admin))
	_, err = f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	require.NoError(t, err)
}

func TestBuyRequiresOperatorGrant(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.Revoke(admin, types.RoleOperator, stableAcct))

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBuyRequiresOpenRound(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.CloseRound(admin, 0))

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, f.ledger.Close(admin))
	_, err = f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBuyRequiresTreasury(t *testing.T) {
	bank := assets.NewBank()
	bank.Register("LPT", 8)
	bank.Register("USDT", 6)

	ledger, err := NewSaleLedger(ledgerAcct, admin, bank.Handle("LPT", ledgerAcct), nil)
	require.NoError(t, err)

	stable, err := NewStableChannel(stableAcct, admin, ledger, bank.Handle("USDT", stableAcct), nil)
	require.NoError(t, err)

	require.NoError(t, ledger.Grant(admin, types.RoleOperator, stableAcct))
	require.NoError(t, ledger.AddRound(admin, fund("0.35"), fund("0.30"), tokens("1000")))
	require.NoError(t, ledger.Open(admin))
	require.NoError(t, ledger.OpenRound(admin, 0))
	bank.Mint("USDT", alice, usdt("100"))

	_, err = stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBuyExceedingRoundCapacity(t *testing.T) {
	f := newSaleFixture(t)

	// A second round with almost nothing left.
	require.NoError(t, f.ledger.AddRound(admin, fund("0.35"), fund("0.30"), tokens("100")))
	require.NoError(t, f.ledger.OpenRound(admin, 1))

	// 100 funding units at 0.30 would buy 333.33 tokens, over the 100
	// supply.
	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("100"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.True(t, f.ledger.Funding(alice).IsZero())

	_, err = f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("30"))
	require.NoError(t, err)
	assert.True(t, d("10000000000").Equal(f.ledger.BalanceOf(alice, 1)))
}

func TestShortTierPrice(t *testing.T) {
	f := newSaleFixture(t)

	event, err := f.stable.Buy(alice, types.TierShort, types.ZeroAddress, usdt("35"))
	require.NoError(t, err)

	// 35 funding units at 0.35 buys exactly 100 tokens.
	assert.True(t, tokens("100").Equal(event.SoldUnits))
}

func TestChannelRecovery(t *testing.T) {
	f := newSaleFixture(t)

	f.bank.Mint("USDT", stableAcct, usdt("7"))
	usdtHandle := f.bank.Handle("USDT", stableAcct)

	assert.ErrorIs(t, f.stable.RecoverAsset(alice, usdtHandle), ErrUnauthorized)

	require.NoError(t, f.stable.RecoverAsset(admin, usdtHandle))
	assert.True(t, usdt("7").Equal(usdtHandle.BalanceOf(admin)))

	f.bank.Mint(assets.NativeSymbol, nativeAcct, coins("1"))
	require.NoError(t, f.native.RecoverNative(admin))
	assert.True(t, coins("1").Equal(f.bank.Vault().BalanceOf(admin)))
}

func TestPurchaseRejectedDuringSettlement(t *testing.T) {
	f := newSaleFixture(t)

	require.NoError(t, f.ledger.enterSettlement())
	defer f.ledger.exitSettlement()

	_, err := f.stable.Buy(alice, types.TierLong, types.ZeroAddress, usdt("25"))
	assert.ErrorIs(t, err, ErrReentrancy)
}
