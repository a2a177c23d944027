package sale

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/config"
	"github.com/zsmartex/launchpad/types"
)

// EventBus carries every state-change record out of the ledger and the
// channels. *nats.Conn satisfies it directly.
type EventBus interface {
	Publish(subject string, data []byte) error
}

// Subjects, one per record kind. Together the records are sufficient to
// reconstruct ledger state from history.
const (
	SubjectCampaign = "launchpad.campaign"
	SubjectRound    = "launchpad.round"
	SubjectLimits   = "launchpad.limits"
	SubjectAuth     = "launchpad.auth"
	SubjectTreasury = "launchpad.treasury"
	SubjectReferral = "launchpad.referral"
	SubjectPurchase = "launchpad.purchase"
	SubjectClaim    = "launchpad.claim"
	SubjectRecovery = "launchpad.recovery"
	SubjectChannel  = "launchpad.channel"
	SubjectRole     = "launchpad.role"
)

type CampaignEvent struct {
	State     types.CampaignState `json:"state"`
	CreatedAt time.Time           `json:"created_at"`
}

type RoundEvent struct {
	Action     string           `json:"action"` // added, price_updated, supply_updated, opened, closed
	Index      int              `json:"index"`
	State      types.RoundState `json:"state"`
	ShortPrice decimal.Decimal  `json:"short_price"`
	LongPrice  decimal.Decimal  `json:"long_price"`
	Sold       decimal.Decimal  `json:"sold"`
	Supply     decimal.Decimal  `json:"supply"`
	CreatedAt  time.Time        `json:"created_at"`
}

type LimitsEvent struct {
	Min       decimal.Decimal `json:"min"`
	AuthLimit decimal.Decimal `json:"auth_limit"`
	Max       decimal.Decimal `json:"max"`
	CreatedAt time.Time       `json:"created_at"`
}

type AuthEvent struct {
	User       types.Address `json:"user"`
	Authorized bool          `json:"authorized"`
	CreatedAt  time.Time     `json:"created_at"`
}

type TreasuryEvent struct {
	Treasury  types.Address `json:"treasury"`
	CreatedAt time.Time     `json:"created_at"`
}

type ReferralEvent struct {
	Action     string        `json:"action"` // defaults, setup, enabled, disabled, bound
	Referrer   types.Address `json:"referrer,omitempty"`
	User       null.String   `json:"user,omitempty"`
	FirstRate  uint32        `json:"first_rate"`
	SecondRate uint32        `json:"second_rate"`
	CreatedAt  time.Time     `json:"created_at"`
}

type PurchaseEvent struct {
	UUID      uuid.UUID       `json:"uuid"`
	Payer     types.Address   `json:"payer"`
	Asset     null.String     `json:"asset"` // null for the native coin
	Referrer  null.String     `json:"referrer"`
	Amount    decimal.Decimal `json:"amount"`
	Funds     decimal.Decimal `json:"funds"`
	Tier      types.Tier      `json:"tier"`
	SoldUnits decimal.Decimal `json:"sold_units"`
	Round     int             `json:"round"`
	CreatedAt time.Time       `json:"created_at"`
}

type ClaimEvent struct {
	Referrer  types.Address   `json:"referrer"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type RecoveryEvent struct {
	Component string          `json:"component"`
	Asset     null.String     `json:"asset"`
	To        types.Address   `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// RoleEvent journals capability grants and revocations on the ledger
// and the channels' on-ramp sets.
type RoleEvent struct {
	Component string        `json:"component"` // ledger or a channel name
	Action    string        `json:"action"`    // granted, revoked
	Role      types.Role    `json:"role"`
	Holder    types.Address `json:"holder"`
	CreatedAt time.Time     `json:"created_at"`
}

type ChannelEvent struct {
	Channel   string    `json:"channel"`
	Action    string    `json:"action"` // paused, unpaused, staleness_updated
	CreatedAt time.Time `json:"created_at"`
}

// publish marshals and fires an event record. Delivery is best effort:
// the ledger is the source of truth and a dropped record only degrades
// the journal, so failures are logged, not propagated.
func publish(bus EventBus, subject string, event interface{}) {
	if bus == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		config.Logger.Errorf("[launchpad.events] marshal %s: %v", subject, err)
		return
	}

	if err := bus.Publish(subject, payload); err != nil {
		config.Logger.Errorf("[launchpad.events] publish %s: %v", subject, err)
	}
}
