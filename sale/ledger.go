package sale

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/types"
)

// reentryGuard rejects a second entry while a transfer-performing
// operation is still running.
type reentryGuard struct {
	mu      sync.Mutex
	entered bool
}

func (g *reentryGuard) enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.entered {
		return ErrReentrancy
	}

	g.entered = true
	return nil
}

func (g *reentryGuard) exit() {
	g.mu.Lock()
	g.entered = false
	g.mu.Unlock()
}

// SaleLedger owns all persistent sale state: campaign and round
// lifecycle, cumulative per-user funding, per-(user,round) balances,
// admission flags and limits, the referral book and the treasury.
// It is the single writer of that state; the channels reach it only
// through Commit and the privileged entry points, every one of which
// checks the caller against the capability table and runs as one
// indivisible unit.
type SaleLedger struct {
	mu    sync.Mutex
	guard reentryGuard

	addr      types.Address
	saleAsset Fungible
	bus       EventBus
	now       func() time.Time

	roles map[types.Role]map[types.Address]bool

	state   types.CampaignState
	rounds  []*Round
	current int

	totalSold  decimal.Decimal
	funding    map[types.Address]decimal.Decimal
	balances   map[types.Address]map[int]decimal.Decimal
	authorized map[types.Address]bool

	min       decimal.Decimal
	authLimit decimal.Decimal
	max       decimal.Decimal

	treasury     types.Address
	defaultRates RefRates
	refs         *referralBook
}

// NewSaleLedger builds an empty ledger. addr is the ledger's own
// custody account (first-tier referral fees accumulate there until
// claimed); admin receives the administrator capability.
func NewSaleLedger(addr, admin types.Address, saleAsset Fungible, bus EventBus) (*SaleLedger, error) {
	if addr.IsZero() || admin.IsZero() {
		return nil, fmt.Errorf("%w: null ledger or admin address", ErrInvalidParameter)
	}

	if saleAsset == nil {
		return nil, fmt.Errorf("%w: nil sale asset", ErrInvalidParameter)
	}

	l := &SaleLedger{
		addr:       addr,
		saleAsset:  saleAsset,
		bus:        bus,
		now:        time.Now,
		roles:      make(map[types.Role]map[types.Address]bool),
		state:      types.CampaignNone,
		current:    -1,
		funding:    make(map[types.Address]decimal.Decimal),
		balances:   make(map[types.Address]map[int]decimal.Decimal),
		authorized: make(map[types.Address]bool),
		refs:       newReferralBook(),
	}

	for _, role := range []types.Role{types.RoleAdmin, types.RoleOperator} {
		l.roles[role] = make(map[types.Address]bool)
	}
	l.roles[types.RoleAdmin][admin] = true

	return l, nil
}

// enterSettlement takes the single settlement guard shared by every
// transfer-performing operation against the ledger: purchases on either
// channel, referral claims and recovery sweeps. A second entry while
// one is running is rejected, not queued.
func (l *SaleLedger) enterSettlement() error {
	return l.guard.enter()
}

func (l *SaleLedger) exitSettlement() {
	l.guard.exit()
}

func (l *SaleLedger) hasRole(role types.Role, holder types.Address) bool {
	return l.roles[role][holder]
}

// HasRole reports whether holder carries the capability.
func (l *SaleLedger) HasRole(role types.Role, holder types.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.hasRole(role, holder)
}

func (l *SaleLedger) requireRole(role types.Role, caller types.Address) error {
	if !l.hasRole(role, caller) {
		return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, caller, role)
	}

	return nil
}

// Grant gives holder the role. Role grants are themselves privileged:
// there is no ambient trust, a channel must be granted operator before
// any purchase can settle.
func (l *SaleLedger) Grant(caller types.Address, role types.Role, holder types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if holder.IsZero() {
		return fmt.Errorf("%w: null holder", ErrInvalidParameter)
	}

	if _, ok := l.roles[role]; !ok {
		return fmt.Errorf("%w: unknown role %s", ErrInvalidParameter, role)
	}

	l.roles[role][holder] = true
	publish(l.bus, SubjectRole, &RoleEvent{
		Component: "ledger",
		Action:    "granted",
		Role:      role,
		Holder:    holder,
		CreatedAt: l.now(),
	})

	return nil
}

func (l *SaleLedger) Revoke(caller types.Address, role types.Role, holder types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if _, ok := l.roles[role]; !ok {
		return fmt.Errorf("%w: unknown role %s", ErrInvalidParameter, role)
	}

	delete(l.roles[role], holder)
	publish(l.bus, SubjectRole, &RoleEvent{
		Component: "ledger",
		Action:    "revoked",
		Role:      role,
		Holder:    holder,
		CreatedAt: l.now(),
	})

	return nil
}

// Open starts the campaign, once.
func (l *SaleLedger) Open(caller types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if l.state != types.CampaignNone {
		return fmt.Errorf("%w: campaign already %s", ErrInvalidState, l.state)
	}

	l.state = types.CampaignOpened
	publish(l.bus, SubjectCampaign, &CampaignEvent{State: l.state, CreatedAt: l.now()})

	return nil
}

// Close ends the campaign, once. Closed is terminal.
func (l *SaleLedger) Close(caller types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if l.state != types.CampaignOpened {
		return fmt.Errorf("%w: campaign is %s", ErrInvalidState, l.state)
	}

	if l.current >= 0 {
		l.closeRound(l.current)
	}

	l.state = types.CampaignClosed
	publish(l.bus, SubjectCampaign, &CampaignEvent{State: l.state, CreatedAt: l.now()})

	return nil
}

// AddRound appends a round to the sequence. Rejected once the campaign
// is closed.
func (l *SaleLedger) AddRound(caller types.Address, shortPrice, longPrice, supply decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if l.state == types.CampaignClosed {
		return fmt.Errorf("%w: campaign closed", ErrInvalidState)
	}

	if !shortPrice.IsPositive() || !longPrice.IsPositive() || !supply.IsPositive() {
		return fmt.Errorf("%w: non-positive round price or supply", ErrInvalidParameter)
	}

	round := &Round{
		State:      types.RoundNone,
		ShortPrice: shortPrice,
		LongPrice:  longPrice,
		Supply:     supply,
	}
	l.rounds = append(l.rounds, round)

	l.publishRound("added", len(l.rounds)-1, round)
	return nil
}

// UpdateRoundPrice changes the prices of a round that has not started.
func (l *SaleLedger) UpdateRoundPrice(caller types.Address, index int, shortPrice, longPrice decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	round, err := l.round(index)
	if err != nil {
		return err
	}

	if round.IsStarted() {
		return fmt.Errorf("%w: round %d already started", ErrInvalidState, index)
	}

	if !shortPrice.IsPositive() || !longPrice.IsPositive() {
		return fmt.Errorf("%w: non-positive round price", ErrInvalidParameter)
	}

	round.ShortPrice = shortPrice
	round.LongPrice = longPrice

	l.publishRound("price_updated", index, round)
	return nil
}

// UpdateRoundSupply changes the supply of a round that has not closed.
// The new supply can never undercut what is already sold.
func (l *SaleLedger) UpdateRoundSupply(caller types.Address, index int, supply decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	round, err := l.round(index)
	if err != nil {
		return err
	}

	if round.IsClosed() {
		return fmt.Errorf("%w: round %d closed", ErrInvalidState, index)
	}

	if supply.LessThan(round.Sold) {
		return fmt.Errorf("%w: supply %s below sold %s", ErrInvalidParameter, supply, round.Sold)
	}

	round.Supply = supply

	l.publishRound("supply_updated", index, round)
	return nil
}

// OpenRound makes round index the current one, closing any currently
// open round first. A round opens once and never reopens.
func (l *SaleLedger) OpenRound(caller types.Address, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if l.state != types.CampaignOpened {
		return fmt.Errorf("%w: campaign is %s", ErrInvalidState, l.state)
	}

	round, err := l.round(index)
	if err != nil {
		return err
	}

	if round.IsStarted() {
		return fmt.Errorf("%w: round %d already %s", ErrInvalidState, index, round.State)
	}

	if l.current >= 0 {
		l.closeRound(l.current)
	}

	round.State = types.RoundOpened
	l.current = index

	l.publishRound("opened", index, round)
	return nil
}

// CloseRound closes the currently open round.
func (l *SaleLedger) CloseRound(caller types.Address, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	round, err := l.round(index)
	if err != nil {
		return err
	}

	if !round.IsOpened() {
		return fmt.Errorf("%w: round %d is %s", ErrInvalidState, index, round.State)
	}

	l.closeRound(index)
	return nil
}

func (l *SaleLedger) closeRound(index int) {
	round := l.rounds[index]
	round.State = types.RoundClosed

	if l.current == index {
		l.current = -1
	}

	l.publishRound("closed", index, round)
}

func (l *SaleLedger) round(index int) (*Round, error) {
	if index < 0 || index >= len(l.rounds) {
		return nil, fmt.Errorf("%w: round %d not defined", ErrInvalidParameter, index)
	}

	return l.rounds[index], nil
}

func (l *SaleLedger) publishRound(action string, index int, round *Round) {
	publish(l.bus, SubjectRound, &RoundEvent{
		Action:     action,
		Index:      index,
		State:      round.State,
		ShortPrice: round.ShortPrice,
		LongPrice:  round.LongPrice,
		Sold:       round.Sold,
		Supply:     round.Supply,
		CreatedAt:  l.now(),
	})
}

// SetAuth flags a user for the elevated spend cap.
func (l *SaleLedger) SetAuth(caller, user types.Address, authorized bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	return l.setAuth(user, authorized)
}

// SetAuthBatch flags several users at once; the two slices pair up by
// index and must have the same length.
func (l *SaleLedger) SetAuthBatch(caller types.Address, users []types.Address, authorized []bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if len(users) != len(authorized) {
		return fmt.Errorf("%w: mismatched batch lengths %d and %d", ErrInvalidParameter, len(users), len(authorized))
	}

	for _, user := range users {
		if user.IsZero() {
			return fmt.Errorf("%w: null user", ErrInvalidParameter)
		}
	}

	for i, user := range users {
		if err := l.setAuth(user, authorized[i]); err != nil {
			return err
		}
	}

	return nil
}

func (l *SaleLedger) setAuth(user types.Address, authorized bool) error {
	if user.IsZero() {
		return fmt.Errorf("%w: null user", ErrInvalidParameter)
	}

	l.authorized[user] = authorized
	publish(l.bus, SubjectAuth, &AuthEvent{User: user, Authorized: authorized, CreatedAt: l.now()})

	return nil
}

// SetMin updates the global minimum purchase. Min <= AuthLimit <= Max
// holds after every successful update of any of the three.
func (l *SaleLedger) SetMin(caller types.Address, min decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	return l.setLimits(min, l.authLimit, l.max)
}

func (l *SaleLedger) SetAuthLimit(caller types.Address, authLimit decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	return l.setLimits(l.min, authLimit, l.max)
}

func (l *SaleLedger) SetMax(caller types.Address, max decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	return l.setLimits(l.min, l.authLimit, max)
}

func (l *SaleLedger) setLimits(min, authLimit, max decimal.Decimal) error {
	if min.IsNegative() || authLimit.LessThan(min) || max.LessThan(authLimit) {
		return fmt.Errorf("%w: limits must satisfy min <= auth_limit <= max", ErrInvalidParameter)
	}

	l.min = min
	l.authLimit = authLimit
	l.max = max

	publish(l.bus, SubjectLimits, &LimitsEvent{Min: min, AuthLimit: authLimit, Max: max, CreatedAt: l.now()})
	return nil
}

// SetTreasury points net proceeds at a new destination.
func (l *SaleLedger) SetTreasury(caller, treasury types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if treasury.IsZero() {
		return fmt.Errorf("%w: null treasury", ErrInvalidParameter)
	}

	l.treasury = treasury
	publish(l.bus, SubjectTreasury, &TreasuryEvent{Treasury: treasury, CreatedAt: l.now()})

	return nil
}

// SetDefaultRefRates updates the rates newly registered referrers get.
func (l *SaleLedger) SetDefaultRefRates(caller types.Address, first, second uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	if first > MaxRefRate || second > MaxRefRate {
		return fmt.Errorf("%w: referral rate above %d per-mille", ErrInvalidParameter, MaxRefRate)
	}

	l.defaultRates = RefRates{First: first, Second: second}
	publish(l.bus, SubjectReferral, &ReferralEvent{
		Action:     "defaults",
		FirstRate:  first,
		SecondRate: second,
		CreatedAt:  l.now(),
	})

	return nil
}

// SetupReferral registers a referrer with custom rates, enabled.
// Rejected once the campaign is closed.
func (l *SaleLedger) SetupReferral(caller, referrer types.Address, first, second uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleOperator, caller); err != nil {
		return err
	}

	if l.state == types.CampaignClosed {
		return fmt.Errorf("%w: campaign closed", ErrInvalidState)
	}

	if referrer.IsZero() {
		return fmt.Errorf("%w: null referrer", ErrInvalidParameter)
	}

	if first > MaxRefRate || second > MaxRefRate {
		return fmt.Errorf("%w: referral rate above %d per-mille", ErrInvalidParameter, MaxRefRate)
	}

	l.refs.register(referrer, RefRates{First: first, Second: second})
	publish(l.bus, SubjectReferral, &ReferralEvent{
		Action:     "setup",
		Referrer:   referrer,
		FirstRate:  first,
		SecondRate: second,
		CreatedAt:  l.now(),
	})

	return nil
}

// EnableReferral re-enables a registered referrer.
func (l *SaleLedger) EnableReferral(caller, referrer types.Address) error {
	return l.toggleReferral(caller, referrer, true)
}

// DisableReferral stops a referrer from accruing and claiming. The
// record and its balances survive and can be re-enabled.
func (l *SaleLedger) DisableReferral(caller, referrer types.Address) error {
	return l.toggleReferral(caller, referrer, false)
}

func (l *SaleLedger) toggleReferral(caller, referrer types.Address, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleAdmin, caller); err != nil {
		return err
	}

	record := l.refs.record(referrer)
	if record == nil {
		return fmt.Errorf("%w: referrer %s not registered", ErrInvalidParameter, referrer)
	}

	record.Enabled = enabled

	action := "disabled"
	if enabled {
		action = "enabled"
	}
	publish(l.bus, SubjectReferral, &ReferralEvent{Action: action, Referrer: referrer, CreatedAt: l.now()})

	return nil
}

// Commit is the settlement entry point, restricted to the channels.
// It does no admission validation (the channels own that) but it is the
// single writer of ledger balances and runs as one indivisible unit:
// either every mutation below lands or none does.
func (l *SaleLedger) Commit(
	caller, user types.Address,
	asset string,
	funds, soldUnits decimal.Decimal,
	referrer types.Address,
	firstTierFee, secondTierFee decimal.Decimal,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRole(types.RoleOperator, caller); err != nil {
		return err
	}

	if user.IsZero() {
		return fmt.Errorf("%w: null user", ErrInvalidParameter)
	}

	if !funds.IsPositive() || !soldUnits.IsPositive() {
		return fmt.Errorf("%w: non-positive funds or units", ErrInvalidParameter)
	}

	if l.current < 0 {
		return fmt.Errorf("%w: no open round", ErrInvalidState)
	}

	round := l.rounds[l.current]
	if round.Remaining().LessThan(soldUnits) {
		return fmt.Errorf("%w: %s units left in round %d", ErrCapacityExceeded, round.Remaining(), l.current)
	}

	l.funding[user] = l.funding[user].Add(funds)
	l.totalSold = l.totalSold.Add(soldUnits)
	round.Sold = round.Sold.Add(soldUnits)

	if _, ok := l.balances[user]; !ok {
		l.balances[user] = make(map[int]decimal.Decimal)
	}
	l.balances[user][l.current] = l.balances[user][l.current].Add(soldUnits)

	if !referrer.IsZero() {
		if l.refs.record(referrer) == nil {
			l.refs.register(referrer, l.defaultRates)
		}

		l.refs.accrue(referrer, asset, firstTierFee)
		l.refs.accrue(referrer, l.saleAsset.Symbol(), secondTierFee)

		if _, bound := l.refs.bound[user]; !bound {
			l.refs.bind(user, referrer)
			publish(l.bus, SubjectReferral, &ReferralEvent{
				Action:    "bound",
				Referrer:  referrer,
				User:      null.StringFrom(string(user)),
				CreatedAt: l.now(),
			})
		}
	}

	return nil
}

// GetReferrer resolves which referrer a purchase by user should credit.
func (l *SaleLedger) GetReferrer(user, supplied types.Address) types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.refs.resolve(user, supplied)
}

// Rates resolves the effective rates for a referrer: the per-field
// maximum of its custom record and the current defaults, so later
// default raises still benefit a pre-registered referrer while default
// cuts never undercut a custom rate.
func (l *SaleLedger) Rates(referrer types.Address) RefRates {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.refs.record(referrer)
	if record == nil {
		return l.defaultRates
	}

	rates := record.Rates
	if l.defaultRates.First > rates.First {
		rates.First = l.defaultRates.First
	}
	if l.defaultRates.Second > rates.Second {
		rates.Second = l.defaultRates.Second
	}

	return rates
}

// ClaimRef pays the caller's accrued balances for the supplied assets
// out of ledger custody. Balances are zeroed before the transfer so a
// reentrant claim finds nothing; zero balances are skipped silently.
func (l *SaleLedger) ClaimRef(caller types.Address, assets []Fungible) error {
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()

	l.mu.Lock()
	record := l.refs.record(caller)
	if record == nil || !record.Enabled {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s is not an enabled referrer", ErrUnauthorized, caller)
	}
	l.mu.Unlock()

	for _, asset := range assets {
		symbol := asset.Symbol()

		l.mu.Lock()
		amount := l.refs.take(caller, symbol)
		l.mu.Unlock()

		if !amount.IsPositive() {
			continue
		}

		if err := asset.Transfer(caller, amount); err != nil {
			l.mu.Lock()
			l.refs.accrue(caller, symbol, amount)
			l.mu.Unlock()

			return fmt.Errorf("%w: claim %s %s: %v", ErrTransferFailed, amount, symbol, err)
		}

		publish(l.bus, SubjectClaim, &ClaimEvent{
			Referrer:  caller,
			Asset:     symbol,
			Amount:    amount,
			CreatedAt: l.now(),
		})
	}

	return nil
}

// RecoverAsset sweeps the ledger's whole balance of an asset to the
// admin. Nothing distinguishes stray coins from unclaimed referral
// liabilities here, so a sweep can strand pending claims; operators
// drain claims before using it.
func (l *SaleLedger) RecoverAsset(caller types.Address, asset Fungible) error {
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()

	l.mu.Lock()
	err := l.requireRole(types.RoleAdmin, caller)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	amount := asset.BalanceOf(l.addr)
	if !amount.IsPositive() {
		return nil
	}

	if err := asset.Transfer(caller, amount); err != nil {
		return fmt.Errorf("%w: recover %s %s: %v", ErrTransferFailed, amount, asset.Symbol(), err)
	}

	publish(l.bus, SubjectRecovery, &RecoveryEvent{
		Component: "ledger",
		Asset:     null.StringFrom(asset.Symbol()),
		To:        caller,
		Amount:    amount,
		CreatedAt: l.now(),
	})

	return nil
}

// RecoverNative sweeps the ledger's native-coin balance to the admin.
func (l *SaleLedger) RecoverNative(caller types.Address, vault Vault) error {
	if err := l.guard.enter(); err != nil {
		return err
	}
	defer l.guard.exit()

	l.mu.Lock()
	err := l.requireRole(types.RoleAdmin, caller)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	amount := vault.BalanceOf(l.addr)
	if !amount.IsPositive() {
		return nil
	}

	if err := vault.Transfer(l.addr, caller, amount); err != nil {
		return fmt.Errorf("%w: recover %s native: %v", ErrTransferFailed, amount, err)
	}

	publish(l.bus, SubjectRecovery, &RecoveryEvent{
		Component: "ledger",
		Asset:     null.String{},
		To:        caller,
		Amount:    amount,
		CreatedAt: l.now(),
	})

	return nil
}
