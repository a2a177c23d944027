package models

import (
	"github.com/volatiletech/null"

	"github.com/zsmartex/launchpad/types"
)

// Member is the authenticated API identity, built from verified JWT
// claims. The UID doubles as the member's on-ledger address.
type Member struct {
	UID         string      `json:"uid"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Level       int32       `json:"level"`
	State       string      `json:"state"`
	ReferralUID null.String `json:"referral_uid"`
}

func (m *Member) Address() types.Address {
	return types.Address(m.UID)
}

// Referrer is the referrer candidate carried by the member's token,
// used when a purchase does not name one explicitly.
func (m *Member) Referrer() types.Address {
	if !m.ReferralUID.Valid {
		return types.ZeroAddress
	}

	return types.Address(m.ReferralUID.String)
}
