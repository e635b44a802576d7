package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityChannelKey(t *testing.T) {
	shop := Identity{UserID: "u1", Role: RoleShop, ProfileID: "shop-1"}
	supplier := Identity{UserID: "u2", Role: RoleSupplier, ProfileID: "sup-1"}
	admin := Identity{UserID: "u3", Role: RoleAdmin}

	assert.Equal(t, "shop-1", shop.ChannelKey())
	assert.Equal(t, "sup-1", supplier.ChannelKey())
	assert.Equal(t, "u3", admin.ChannelKey())
	assert.True(t, admin.IsAdmin())
	assert.False(t, shop.IsAdmin())
}

func TestUserProfileIdentity(t *testing.T) {
	profile := &UserProfile{
		UserID:        "u1",
		Role:          RoleShop,
		ProfileID:     "shop-1",
		AccountStatus: AccountActive,
		EmailVerified: true,
	}

	assert.Equal(t, Identity{
		UserID:        "u1",
		Role:          RoleShop,
		ProfileID:     "shop-1",
		AccountStatus: AccountActive,
		EmailVerified: true,
	}, profile.Identity())
}
