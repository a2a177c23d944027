package sale

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/types"
)

// StableChannel sells against a designated stable asset at a fixed
// decimal scaling, no oracle. Payments are pulled straight from the
// payer to their destinations.
type StableChannel struct {
	saleChannel

	asset Fungible
}

func NewStableChannel(addr, admin types.Address, ledger *SaleLedger, asset Fungible, bus EventBus) (*StableChannel, error) {
	core, err := newSaleChannel("stable", addr, admin, ledger, bus)
	if err != nil {
		return nil, err
	}

	if asset == nil {
		return nil, fmt.Errorf("%w: nil stable asset", ErrInvalidParameter)
	}

	return &StableChannel{saleChannel: core, asset: asset}, nil
}

func (c *StableChannel) Asset() Fungible {
	return c.asset
}

func (c *StableChannel) Buy(caller types.Address, tier types.Tier, referrer types.Address, amount decimal.Decimal) (*PurchaseEvent, error) {
	return c.purchase(caller, caller, tier, referrer, amount, false, c)
}

func (c *StableChannel) BuyFor(caller, payer types.Address, tier types.Tier, referrer types.Address, amount decimal.Decimal) (*PurchaseEvent, error) {
	return c.purchase(caller, payer, tier, referrer, amount, true, c)
}

func (c *StableChannel) RecoverAsset(caller types.Address, asset Fungible) error {
	return c.recoverAsset(caller, asset)
}

func (c *StableChannel) RecoverNative(caller types.Address, vault Vault) error {
	return c.recoverNative(caller, vault)
}

func (c *StableChannel) assetKey() string {
	return c.asset.Symbol()
}

func (c *StableChannel) assetLabel() null.String {
	return null.StringFrom(c.asset.Symbol())
}

// convert is pure decimal rescaling: the stable asset is pegged to the
// funding unit.
func (c *StableChannel) convert(amount decimal.Decimal) (decimal.Decimal, error) {
	return Normalize(amount, c.asset.Decimals(), FundingDecimals), nil
}

func (c *StableChannel) move(payer, treasury, custody types.Address, net, fee decimal.Decimal) error {
	// net is zero when the first-tier rate is the full 1000 per-mille.
	if net.IsPositive() {
		if err := c.asset.TransferFrom(payer, treasury, net); err != nil {
			return fmt.Errorf("%w: pull to treasury: %v", ErrTransferFailed, err)
		}
	}

	if fee.IsPositive() {
		if err := c.asset.TransferFrom(payer, custody, fee); err != nil {
			return fmt.Errorf("%w: pull referral fee: %v", ErrTransferFailed, err)
		}
	}

	return nil
}
