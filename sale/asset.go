package sale

import (
	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/types"
)

// Fungible is the narrow surface the ledger and channels need from a
// token. A handle is bound to its holder: Transfer spends from the
// account the handle was constructed for. Amounts are integral
// base-unit quantities in the asset's native decimals.
type Fungible interface {
	Symbol() string
	Decimals() int32
	BalanceOf(owner types.Address) decimal.Decimal
	Transfer(to types.Address, amount decimal.Decimal) error
	TransferFrom(from, to types.Address, amount decimal.Decimal) error
}

// Vault moves the native coin between accounts. It stands in for value
// arriving attached to a call: a channel pulls the payment from the
// payer into its own account, then distributes it.
type Vault interface {
	BalanceOf(owner types.Address) decimal.Decimal
	Transfer(from, to types.Address, amount decimal.Decimal) error
}

// NativeAssetKey is the referral-balance bucket for native-coin fees.
const NativeAssetKey = "native"
