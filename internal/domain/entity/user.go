package entity

import (
	"time"
)

type Role string

const (
	RoleShop     Role = "SHOP"
	RoleSupplier Role = "SUPPLIER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleShop, RoleSupplier, RoleAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountPending   AccountStatus = "PENDING"
	AccountSuspended AccountStatus = "SUSPENDED"
)

// UserProfile is the marketplace account behind an authenticated user id.
// ProfileID is the shop id for shops and the supplier id for suppliers;
// negotiations and intents reference profiles, never raw user ids.
type UserProfile struct {
	UserID        string        `json:"user_id"`
	Email         string        `json:"email"`
	DisplayName   string        `json:"display_name"`
	Role          Role          `json:"role"`
	ProfileID     string        `json:"profile_id,omitempty"`
	AccountStatus AccountStatus `json:"account_status"`
	EmailVerified bool          `json:"email_verified"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Identity is the caller of every engine operation.
type Identity struct {
	UserID        string
	Role          Role
	ProfileID     string
	AccountStatus AccountStatus
	EmailVerified bool
}

func (p *UserProfile) Identity() Identity {
	return Identity{
		UserID:        p.UserID,
		Role:          p.Role,
		ProfileID:     p.ProfileID,
		AccountStatus: p.AccountStatus,
		EmailVerified: p.EmailVerified,
	}
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ChannelKey is the key live push connections are registered under:
// the profile for shops and suppliers, the user for admins.
func (i Identity) ChannelKey() string {
	switch i.Role {
	case RoleShop, RoleSupplier:
		return i.ProfileID
	case RoleAdmin:
		return i.UserID
	}
	return i.UserID
}

// TokenClaims is what a verified bearer token tells us about the caller.
type TokenClaims struct {
	UserID        string
	EmailVerified bool
}
