// Package authz derives authorization decisions from the session identity:
// role predicates, navigation guards and role-gated rendering.
package authz

import (
	"slices"

	"storefront-state/internal/domain"
)

// HasAnyRole reports whether identity holds one of the allowed roles.
// A nil identity never passes.
func HasAnyRole(identity *domain.Identity, allowed ...domain.Role) bool {
	if identity == nil {
		return false
	}
	return slices.Contains(allowed, identity.Role)
}

// Home paths per role
const (
	AdminHome  = "/admin/dashboard"
	SellerHome = "/seller/dashboard"
	BuyerHome  = "/products"
)

// HomePath returns the landing page for identity, or loginPath when
// identity is nil.
func HomePath(identity *domain.Identity, loginPath string) string {
	if identity == nil {
		return loginPath
	}
	switch identity.Role {
	case domain.RoleAdmin:
		return AdminHome
	case domain.RoleSeller:
		return SellerHome
	default:
		return BuyerHome
	}
}
