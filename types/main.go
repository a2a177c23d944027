package types

// Address identifies an account. The empty string is the null address.
type Address string

const ZeroAddress Address = ""

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Role is a capability checked at the top of every mutating operation.
type Role = string

var (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleOnRamp   Role = "onramp"
)

// CampaignState gates round opening and purchases. Transitions are
// monotonic: none -> opened -> closed, never back.
type CampaignState = string

var (
	CampaignNone   CampaignState = "none"
	CampaignOpened CampaignState = "opened"
	CampaignClosed CampaignState = "closed"
)

type RoundState = string

var (
	RoundNone   RoundState = "none"
	RoundOpened RoundState = "opened"
	RoundClosed RoundState = "closed"
)

// Tier selects one of the two prices of the current round.
type Tier = string

var (
	TierShort Tier = "short"
	TierLong  Tier = "long"
)
