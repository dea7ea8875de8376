// Package storage is the persistent key/value layer the stores write through.
// Values are opaque strings (JSON documents in practice) grouped under an
// application-private scope.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"storefront-state/internal/domain"
)

// Keys used by the session and cart stores
const (
	KeyAuthData     = "auth_data"
	KeyShoppingCart = "shopping_cart"
)

// ErrCorruptValue is returned by GetJSON when a stored value does not decode
var ErrCorruptValue = errors.New("stored value is corrupt")

// Store is a synchronous string key/value store. Implementations wrap I/O
// failures in domain.ErrPersistenceUnavailable.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// GetJSON decodes the value stored under key into dst
func GetJSON[T any](s Store, key string, dst *T) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptValue, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domain.ErrPersistenceUnavailable, op, key, err)
}
