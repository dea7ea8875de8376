// Package testutil provides shared test utilities, fakes, and fixtures
// for the storefront state engine.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront-state/internal/domain"
	"storefront-state/internal/storage"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrInjected           = errors.New("injected failure")
)

// FailingStore wraps a MemoryStore and fails selected operations on demand
type FailingStore struct {
	*storage.MemoryStore

	mu         sync.Mutex
	failGet    bool
	failSet    bool
	failRemove bool
	sets       int
	removes    int
}

// NewFailingStore creates a store that behaves like a MemoryStore until told to fail
func NewFailingStore() *FailingStore {
	return &FailingStore{MemoryStore: storage.NewMemoryStore()}
}

// FailGet toggles read failures
func (s *FailingStore) FailGet(fail bool) {
	s.mu.Lock()
	s.failGet = fail
	s.mu.Unlock()
}

// FailSet toggles write failures
func (s *FailingStore) FailSet(fail bool) {
	s.mu.Lock()
	s.failSet = fail
	s.mu.Unlock()
}

// FailRemove toggles remove failures
func (s *FailingStore) FailRemove(fail bool) {
	s.mu.Lock()
	s.failRemove = fail
	s.mu.Unlock()
}

// Writes returns how many Set calls succeeded
func (s *FailingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// Removes returns how many Remove calls succeeded
func (s *FailingStore) Removes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removes
}

func (s *FailingStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", false, fmt.Errorf("%w: read %s: %w", domain.ErrPersistenceUnavailable, key, ErrInjected)
	}
	return s.MemoryStore.Get(key)
}

func (s *FailingStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistenceUnavailable, key, ErrInjected)
	}
	s.sets++
	return s.MemoryStore.Set(key, value)
}

func (s *FailingStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrPersistenceUnavailable, key, ErrInjected)
	}
	s.removes++
	return s.MemoryStore.Remove(key)
}

// MockProvider implements session.Provider for testing
type MockProvider struct {
	mu sync.Mutex

	// Function override - set this to customize behavior
	LoginFunc func(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)

	// Result returned when LoginFunc is nil
	Result *domain.LoginResult
	Calls  []domain.Credentials
}

func (m *MockProvider) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, creds)
	fn, result := m.LoginFunc, m.Result
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, creds)
	}
	if result == nil {
		return nil, ErrMockNotImplemented
	}
	r := *result
	return &r, nil
}

// CallCount returns the number of Login calls
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// RecordingNavigator captures navigation requests
type RecordingNavigator struct {
	mu    sync.Mutex
	Paths []string
}

func (n *RecordingNavigator) Navigate(path string) {
	n.mu.Lock()
	n.Paths = append(n.Paths, path)
	n.mu.Unlock()
}

// Last returns the most recent path, or "" if none
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Paths) == 0 {
		return ""
	}
	return n.Paths[len(n.Paths)-1]
}
