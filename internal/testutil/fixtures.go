package testutil

import (
	"fmt"
	"sync/atomic"

	"storefront-state/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NewTestIdentity creates a buyer identity with sensible defaults.
// Pass options to override specific fields.
func NewTestIdentity(opts ...func(*domain.Identity)) domain.Identity {
	id := nextID("user")
	identity := domain.Identity{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: id,
		Role:        domain.RoleBuyer,
	}
	for _, opt := range opts {
		opt(&identity)
	}
	return identity
}

// WithRole sets the identity role
func WithRole(role domain.Role) func(*domain.Identity) {
	return func(i *domain.Identity) {
		i.Role = role
	}
}

// WithEmail sets the identity email
func WithEmail(email string) func(*domain.Identity) {
	return func(i *domain.Identity) {
		i.Email = email
	}
}

// NewLoginResult builds a provider result for identity with a ttl in seconds
func NewLoginResult(identity domain.Identity, expiresIn int64) *domain.LoginResult {
	return &domain.LoginResult{
		Token:     nextID("token"),
		User:      identity,
		ExpiresIn: expiresIn,
	}
}

// NewTestProduct creates a product snapshot with sensible defaults
func NewTestProduct(opts ...func(*domain.ProductSnapshot)) domain.ProductSnapshot {
	id := nextID("product")
	p := domain.ProductSnapshot{
		ID:          id,
		Name:        "Product " + id,
		Description: "Test product",
		Price:       10,
		Stock:       100,
		Category:    "Accessories",
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithPrice sets the product price
func WithPrice(price float64) func(*domain.ProductSnapshot) {
	return func(p *domain.ProductSnapshot) {
		p.Price = price
	}
}

// WithProductID sets the product id
func WithProductID(id string) func(*domain.ProductSnapshot) {
	return func(p *domain.ProductSnapshot) {
		p.ID = id
	}
}
