package sale

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/types"
)

// DefaultStalenessThreshold bounds the age of the oracle's last update
// before native purchases are rejected.
const DefaultStalenessThreshold = 1 * time.Hour

// NativeChannel sells against the native coin, priced through the
// oracle. The payment is pulled from the payer into the channel's own
// account, then split between the treasury and ledger custody.
type NativeChannel struct {
	saleChannel

	vault      Vault
	oracle     *OracleAdapter
	staleAfter time.Duration
}

func NewNativeChannel(addr, admin types.Address, ledger *SaleLedger, vault Vault, oracle *OracleAdapter, bus EventBus) (*NativeChannel, error) {
	core, err := newSaleChannel("native", addr, admin, ledger, bus)
	if err != nil {
		return nil, err
	}

	if vault == nil || oracle == nil {
		return nil, fmt.Errorf("%w: nil vault or oracle", ErrInvalidParameter)
	}

	return &NativeChannel{
		saleChannel: core,
		vault:       vault,
		oracle:      oracle,
		staleAfter:  DefaultStalenessThreshold,
	}, nil
}

// SetPriceStalenessThreshold tightens or relaxes the maximum accepted
// oracle age.
func (c *NativeChannel) SetPriceStalenessThreshold(caller types.Address, threshold time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}

	if threshold <= 0 {
		return fmt.Errorf("%w: non-positive staleness threshold", ErrInvalidParameter)
	}

	c.staleAfter = threshold
	publish(c.bus, SubjectChannel, &ChannelEvent{Channel: c.name, Action: "staleness_updated", CreatedAt: c.now()})

	return nil
}

func (c *NativeChannel) StalenessThreshold() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.staleAfter
}

// Buy purchases at the given tier, the caller paying amount of the
// native coin.
func (c *NativeChannel) Buy(caller types.Address, tier types.Tier, referrer types.Address, amount decimal.Decimal) (*PurchaseEvent, error) {
	return c.purchase(caller, caller, tier, referrer, amount, false, c)
}

// BuyFor lets an on-ramp relayer pay for another user. The payer's
// headroom is measured against the authorized-tier cap.
func (c *NativeChannel) BuyFor(caller, payer types.Address, tier types.Tier, referrer types.Address, amount decimal.Decimal) (*PurchaseEvent, error) {
	return c.purchase(caller, payer, tier, referrer, amount, true, c)
}

func (c *NativeChannel) RecoverAsset(caller types.Address, asset Fungible) error {
	return c.recoverAsset(caller, asset)
}

func (c *NativeChannel) RecoverNative(caller types.Address) error {
	return c.recoverNative(caller, c.vault)
}

func (c *NativeChannel) assetKey() string {
	return NativeAssetKey
}

func (c *NativeChannel) assetLabel() null.String {
	return null.String{}
}

// convert prices the native payment through the oracle, re-checking
// feed freshness on every purchase.
func (c *NativeChannel) convert(amount decimal.Decimal) (decimal.Decimal, error) {
	c.mu.Lock()
	staleAfter := c.staleAfter
	c.mu.Unlock()

	price, err := c.oracle.NormalizedPrice(staleAfter)
	if err != nil {
		return decimal.Zero, err
	}

	return mulDiv(amount, price, decimal.New(1, FundingDecimals)), nil
}

func (c *NativeChannel) move(payer, treasury, custody types.Address, net, fee decimal.Decimal) error {
	if err := c.vault.Transfer(payer, c.addr, net.Add(fee)); err != nil {
		return fmt.Errorf("%w: pull payment: %v", ErrTransferFailed, err)
	}

	// net is zero when the first-tier rate is the full 1000 per-mille.
	if net.IsPositive() {
		if err := c.vault.Transfer(c.addr, treasury, net); err != nil {
			return fmt.Errorf("%w: forward to treasury: %v", ErrTransferFailed, err)
		}
	}

	if fee.IsPositive() {
		if err := c.vault.Transfer(c.addr, custody, fee); err != nil {
			return fmt.Errorf("%w: forward referral fee: %v", ErrTransferFailed, err)
		}
	}

	return nil
}
