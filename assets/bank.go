package assets

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zsmartex/launchpad/types"
)

var ErrInsufficientBalance = errors.New("assets.insufficient_balance")

// Bank is the in-process account book behind every fungible asset and
// the native coin. Each sale component talks to it through a Handle
// bound to that component's own account.
type Bank struct {
	mu       sync.Mutex
	decimals map[string]int32
	accounts map[string]map[types.Address]decimal.Decimal
}

// NativeSymbol is the bank-internal bucket for the native coin.
const NativeSymbol = "native"

func NewBank() *Bank {
	b := &Bank{
		decimals: make(map[string]int32),
		accounts: make(map[string]map[types.Address]decimal.Decimal),
	}
	b.Register(NativeSymbol, 18)

	return b
}

func (b *Bank) Register(symbol string, decimals int32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[symbol]; !ok {
		b.decimals[symbol] = decimals
		b.accounts[symbol] = make(map[types.Address]decimal.Decimal)
	}
}

func (b *Bank) Mint(symbol string, to types.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts[symbol][to] = b.accounts[symbol][to].Add(amount)
}

func (b *Bank) balance(symbol string, owner types.Address) decimal.Decimal {
	return b.accounts[symbol][owner]
}

func (b *Bank) transfer(symbol string, from, to types.Address, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !amount.IsPositive() {
		return errors.New("assets.non_positive_amount")
	}

	if b.accounts[symbol][from].LessThan(amount) {
		return ErrInsufficientBalance
	}

	b.accounts[symbol][from] = b.accounts[symbol][from].Sub(amount)
	b.accounts[symbol][to] = b.accounts[symbol][to].Add(amount)

	return nil
}

// Handle binds an asset to the account transfers spend from.
func (b *Bank) Handle(symbol string, owner types.Address) *Handle {
	return &Handle{bank: b, symbol: symbol, owner: owner}
}

// Vault exposes the native-coin accounts.
func (b *Bank) Vault() *Vault {
	return &Vault{bank: b}
}

type Handle struct {
	bank   *Bank
	symbol string
	owner  types.Address
}

func (h *Handle) Symbol() string {
	return h.symbol
}

func (h *Handle) Decimals() int32 {
	h.bank.mu.Lock()
	defer h.bank.mu.Unlock()

	return h.bank.decimals[h.symbol]
}

func (h *Handle) BalanceOf(owner types.Address) decimal.Decimal {
	h.bank.mu.Lock()
	defer h.bank.mu.Unlock()

	return h.bank.balance(h.symbol, owner)
}

func (h *Handle) Transfer(to types.Address, amount decimal.Decimal) error {
	return h.bank.transfer(h.symbol, h.owner, to, amount)
}

func (h *Handle) TransferFrom(from, to types.Address, amount decimal.Decimal) error {
	return h.bank.transfer(h.symbol, from, to, amount)
}

type Vault struct {
	bank *Bank
}

func (v *Vault) BalanceOf(owner types.Address) decimal.Decimal {
	v.bank.mu.Lock()
	defer v.bank.mu.Unlock()

	return v.bank.balance(NativeSymbol, owner)
}

func (v *Vault) Transfer(from, to types.Address, amount decimal.Decimal) error {
	return v.bank.transfer(NativeSymbol, from, to, amount)
}
