package usecase

import (
	"go.opentelemetry.io/otel"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/pkg/errors"
)

var tracer = otel.Tracer("b2bmarket/usecase")

// Side is the capacity in which a caller touches an entity.
type Side int

const (
	SideNone Side = iota
	SideShop
	SideSupplier
	SideAdmin
)

func (s Side) IsParticipant() bool {
	return s == SideShop || s == SideSupplier
}

// Role is the message sender role for the side.
func (s Side) Role() entity.Role {
	switch s {
	case SideShop:
		return entity.RoleShop
	case SideSupplier:
		return entity.RoleSupplier
	case SideAdmin:
		return entity.RoleAdmin
	case SideNone:
		return ""
	}
	return ""
}

// resolveSide matches the caller's profile against the entity's shop and
// supplier. Raw user ids never grant access.
func resolveSide(identity entity.Identity, shopID, supplierID string) Side {
	switch identity.Role {
	case entity.RoleShop:
		if identity.ProfileID != "" && identity.ProfileID == shopID {
			return SideShop
		}
	case entity.RoleSupplier:
		if identity.ProfileID != "" && identity.ProfileID == supplierID {
			return SideSupplier
		}
	case entity.RoleAdmin:
		return SideAdmin
	}
	return SideNone
}

// checkAccount rejects callers the identity gate marks as unusable.
func checkAccount(identity entity.Identity) error {
	if identity.UserID == "" || !identity.Role.Valid() {
		return errors.Unauthorized("Authentication required", nil)
	}
	if identity.AccountStatus != entity.AccountActive {
		return errors.AccountInactive(string(identity.AccountStatus))
	}
	if identity.Role != entity.RoleAdmin && identity.ProfileID == "" {
		return errors.Forbidden("No marketplace profile is linked to this account", nil)
	}
	return nil
}

func requireVerifiedEmail(identity entity.Identity) error {
	if !identity.EmailVerified {
		return errors.Forbidden("Email address must be verified", nil)
	}
	return nil
}

// listScope returns the column a caller's listing is keyed on. Only shops
// and suppliers have a listing.
func listScope(identity entity.Identity) (entity.Role, error) {
	switch identity.Role {
	case entity.RoleShop, entity.RoleSupplier:
		return identity.Role, nil
	case entity.RoleAdmin:
		return "", errors.Forbidden("Listing is only available to shops and suppliers", nil)
	}
	return "", errors.Forbidden("Listing is only available to shops and suppliers", nil)
}

func recipients(shopID, supplierID string) []string {
	return []string{shopID, supplierID}
}
