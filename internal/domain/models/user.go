package models

import (
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// User is the account record the authentication flows operate on. The wider
// application owns profile and climbing data; this model carries only what
// login, token issuance and password reset need.
type User struct {
	// ID is the stable account identifier used as the token subject.
	ID string `gorm:"column:id;primaryKey" json:"id"`

	// Email is the login identifier.
	Email string `gorm:"column:email;uniqueIndex;not null" json:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`

	// Tier determines the scopes granted to issued tokens.
	Tier constants.Tier `gorm:"column:tier;not null" json:"tier"`

	// DeactivatedAt marks a soft-deactivated account. A successful login
	// reactivates the account on the default tier.
	DeactivatedAt *time.Time `gorm:"column:deactivated_at" json:"deactivated_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName sets the storage table for GORM
func (User) TableName() string {
	return "users"
}

// IsDeactivated reports whether the account is soft-deactivated
func (u *User) IsDeactivated() bool {
	return u.DeactivatedAt != nil
}

// Reactivate clears the deactivation mark and places the account on the
// default tier. Previous paid standing is not restored automatically; the
// billing system upgrades the tier again once a subscription is confirmed.
func (u *User) Reactivate(now time.Time) {
	u.DeactivatedAt = nil
	u.Tier = constants.DefaultTier
	u.UpdatedAt = now.UTC()
}

// Scopes returns the permission scopes granted by the account's tier.
// Tiers are cumulative: every account holds the base scope, paid tiers add
// theirs on top.
func (u *User) Scopes() []string {
	return ScopesForTier(u.Tier)
}

// ScopesForTier maps an account tier to its token scopes
func ScopesForTier(tier constants.Tier) []string {
	switch tier {
	case constants.TierAdmin:
		return []string{string(constants.ScopeUser), string(constants.ScopePro), string(constants.ScopeAdmin)}
	case constants.TierPro:
		return []string{string(constants.ScopeUser), string(constants.ScopePro)}
	default:
		return []string{string(constants.ScopeUser)}
	}
}
