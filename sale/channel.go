package sale

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/types"
)

// strategy is the per-channel part of the purchase algorithm: how the
// payment converts to funding units and how the coins physically move.
type strategy interface {
	// assetKey names the referral-balance bucket the first-tier fee
	// accrues in.
	assetKey() string
	// assetLabel is the purchase-record asset field, null for native.
	assetLabel() null.String
	// convert normalizes a payment to 18-decimal funding units.
	convert(amount decimal.Decimal) (decimal.Decimal, error)
	// move forwards net to the treasury and fee into ledger custody.
	move(payer, treasury, custody types.Address, net, fee decimal.Decimal) error
}

// saleChannel carries everything the two channels share: the ledger
// dependency, the on-ramp capability set, the pause switch and the
// running per-asset totals. The concrete channels embed it and supply
// a strategy.
type saleChannel struct {
	name   string
	addr   types.Address
	ledger *SaleLedger
	bus    EventBus
	now    func() time.Time

	mu     sync.Mutex
	guard  reentryGuard
	admins map[types.Address]bool
	onramp map[types.Address]bool
	paused bool
	totals map[string]decimal.Decimal
}

func newSaleChannel(name string, addr, admin types.Address, ledger *SaleLedger, bus EventBus) (saleChannel, error) {
	if addr.IsZero() || admin.IsZero() {
		return saleChannel{}, fmt.Errorf("%w: null channel or admin address", ErrInvalidParameter)
	}

	if ledger == nil {
		return saleChannel{}, fmt.Errorf("%w: nil ledger", ErrInvalidParameter)
	}

	return saleChannel{
		name:   name,
		addr:   addr,
		ledger: ledger,
		bus:    bus,
		now:    time.Now,
		admins: map[types.Address]bool{admin: true},
		onramp: make(map[types.Address]bool),
		totals: make(map[string]decimal.Decimal),
	}, nil
}

func (c *saleChannel) Address() types.Address {
	return c.addr
}

func (c *saleChannel) requireAdmin(caller types.Address) error {
	if !c.admins[caller] {
		return fmt.Errorf("%w: %s is not a channel admin", ErrUnauthorized, caller)
	}

	return nil
}

// GrantOnRamp lets a relayer address pay for users through BuyFor.
func (c *saleChannel) GrantOnRamp(caller, relayer types.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}

	if relayer.IsZero() {
		return fmt.Errorf("%w: null relayer", ErrInvalidParameter)
	}

	c.onramp[relayer] = true
	publish(c.bus, SubjectRole, &RoleEvent{
		Component: c.name,
		Action:    "granted",
		Role:      types.RoleOnRamp,
		Holder:    relayer,
		CreatedAt: c.now(),
	})

	return nil
}

func (c *saleChannel) RevokeOnRamp(caller, relayer types.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}

	delete(c.onramp, relayer)
	publish(c.bus, SubjectRole, &RoleEvent{
		Component: c.name,
		Action:    "revoked",
		Role:      types.RoleOnRamp,
		Holder:    relayer,
		CreatedAt: c.now(),
	})

	return nil
}

// Pause halts Buy and BuyFor. Nothing else is affected.
func (c *saleChannel) Pause(caller types.Address) error {
	return c.setPaused(caller, true)
}

func (c *saleChannel) Unpause(caller types.Address) error {
	return c.setPaused(caller, false)
}

func (c *saleChannel) setPaused(caller types.Address, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireAdmin(caller); err != nil {
		return err
	}

	c.paused = paused

	action := "unpaused"
	if paused {
		action = "paused"
	}
	publish(c.bus, SubjectChannel, &ChannelEvent{Channel: c.name, Action: action, CreatedAt: c.now()})

	return nil
}

func (c *saleChannel) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.paused
}

// Total is the gross amount received so far in the given asset bucket.
func (c *saleChannel) Total(asset string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totals[asset]
}

// purchase runs the shared admission/settlement algorithm. forCall
// marks a privileged buy-for, which uses the authorized-tier cap
// regardless of the payer's own flag. The whole operation holds the
// ledger's settlement guard: accounting is written before any further
// external call can start, and a reentrant purchase is rejected.
func (c *saleChannel) purchase(
	caller, payer types.Address,
	tier types.Tier,
	referrer types.Address,
	amount decimal.Decimal,
	forCall bool,
	s strategy,
) (*PurchaseEvent, error) {
	if err := c.ledger.enterSettlement(); err != nil {
		return nil, err
	}
	defer c.ledger.exitSettlement()

	c.mu.Lock()
	paused := c.paused
	allowed := !forCall || c.onramp[caller]
	c.mu.Unlock()

	if paused {
		return nil, ErrPaused
	}

	if !allowed {
		return nil, fmt.Errorf("%w: %s lacks the on-ramp capability", ErrUnauthorized, caller)
	}

	if payer.IsZero() {
		return nil, fmt.Errorf("%w: null payer", ErrInvalidParameter)
	}

	if payer == referrer {
		return nil, fmt.Errorf("%w: payer cannot refer itself", ErrInvalidParameter)
	}

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive payment", ErrInvalidParameter)
	}

	treasury := c.ledger.Treasury()
	if treasury.IsZero() {
		return nil, fmt.Errorf("%w: treasury not configured", ErrInvalidState)
	}

	if !c.ledger.HasRole(types.RoleOperator, c.addr) {
		return nil, fmt.Errorf("%w: channel %s lacks the operator capability", ErrUnauthorized, c.name)
	}

	if c.ledger.State() != types.CampaignOpened {
		return nil, fmt.Errorf("%w: campaign is %s", ErrInvalidState, c.ledger.State())
	}

	roundIndex := c.ledger.CurrentRound()
	if roundIndex < 0 {
		return nil, fmt.Errorf("%w: no open round", ErrInvalidState)
	}

	price := c.ledger.CurrentPrice(tier)
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: no %s price for round %d", ErrInvalidState, tier, roundIndex)
	}

	funds, err := s.convert(amount)
	if err != nil {
		return nil, err
	}

	soldUnits := mulDiv(funds, decimal.New(1, c.ledger.SaleDecimals()), price)
	if !soldUnits.IsPositive() {
		return nil, fmt.Errorf("%w: payment too small for one sale unit", ErrInvalidParameter)
	}

	round, err := c.ledger.Round(roundIndex)
	if err != nil {
		return nil, err
	}

	if round.Supply.Sub(round.Sold).LessThan(soldUnits) {
		return nil, fmt.Errorf("%w: %s units left in round %d", ErrCapacityExceeded, round.Supply.Sub(round.Sold), roundIndex)
	}

	min, _, _ := c.ledger.Limits()
	if funds.LessThan(min) {
		return nil, fmt.Errorf("%w: %s below minimum %s", ErrBelowMinimum, funds, min)
	}

	headroom := c.ledger.Headroom(payer)
	if forCall {
		headroom = c.ledger.AuthHeadroom(payer)
	}

	if funds.GreaterThan(headroom) {
		return nil, fmt.Errorf("%w: %s exceeds headroom %s", ErrAboveMaximum, funds, headroom)
	}

	resolved := c.ledger.GetReferrer(payer, referrer)

	firstFee := decimal.Zero
	secondFee := decimal.Zero
	if !resolved.IsZero() {
		rates := c.ledger.Rates(resolved)
		firstFee = perMille(amount, rates.First)
		secondFee = mulDiv(perMille(funds, rates.Second), decimal.New(1, c.ledger.SaleDecimals()), price)
	}

	if err := s.move(payer, treasury, c.ledger.Address(), amount.Sub(firstFee), firstFee); err != nil {
		return nil, err
	}

	if err := c.ledger.Commit(c.addr, payer, s.assetKey(), funds, soldUnits, resolved, firstFee, secondFee); err != nil {
		// Funds already moved; this only fires when ledger state shifted
		// underneath a misconfigured deployment.
		config.Logger.Errorf("[launchpad.%s] commit after transfer failed: %v", c.name, err)
		return nil, err
	}

	c.mu.Lock()
	c.totals[s.assetKey()] = c.totals[s.assetKey()].Add(amount)
	c.mu.Unlock()

	event := &PurchaseEvent{
		UUID:      uuid.New(),
		Payer:     payer,
		Asset:     s.assetLabel(),
		Referrer:  nullAddress(resolved),
		Amount:    amount,
		Funds:     funds,
		Tier:      tier,
		SoldUnits: soldUnits,
		Round:     roundIndex,
		CreatedAt: c.now(),
	}
	publish(c.bus, SubjectPurchase, event)

	return event, nil
}

func nullAddress(addr types.Address) null.String {
	if addr.IsZero() {
		return null.String{}
	}

	return null.StringFrom(string(addr))
}

// recoverAsset sweeps the channel's whole balance of an asset to the
// admin. The channel tracks no liabilities beyond in-flight transfers,
// so the sweep is unconditionally safe.
func (c *saleChannel) recoverAsset(caller types.Address, asset Fungible) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.exit()

	c.mu.Lock()
	err := c.requireAdmin(caller)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	amount := asset.BalanceOf(c.addr)
	if !amount.IsPositive() {
		return nil
	}

	if err := asset.Transfer(caller, amount); err != nil {
		return fmt.Errorf("%w: recover %s %s: %v", ErrTransferFailed, amount, asset.Symbol(), err)
	}

	publish(c.bus, SubjectRecovery, &RecoveryEvent{
		Component: c.name,
		Asset:     null.StringFrom(asset.Symbol()),
		To:        caller,
		Amount:    amount,
		CreatedAt: c.now(),
	})

	return nil
}

func (c *saleChannel) recoverNative(caller types.Address, vault Vault) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.exit()

	c.mu.Lock()
	err := c.requireAdmin(caller)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	amount := vault.BalanceOf(c.addr)
	if !amount.IsPositive() {
		return nil
	}

	if err := vault.Transfer(c.addr, caller, amount); err != nil {
		return fmt.Errorf("%w: recover %s native: %v", ErrTransferFailed, amount, err)
	}

	publish(c.bus, SubjectRecovery, &RecoveryEvent{
		Component: c.name,
		Asset:     null.String{},
		To:        caller,
		Amount:    amount,
		CreatedAt: c.now(),
	})

	return nil
}
