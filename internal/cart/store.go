// Package cart implements the persisted shopping cart aggregate.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"storefront-state/internal/domain"
	"storefront-state/internal/notify"
	"storefront-state/internal/observability"
	"storefront-state/internal/storage"

	"github.com/google/uuid"
)

// Store owns the cart lines. Every mutation is persisted before observers
// see it; a mutation that cannot be persisted is not applied.
type Store struct {
	kv     storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	lines  []domain.CartLine
	stream *notify.Stream[[]domain.CartLine]
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for cart events
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time stamped on checkout receipts
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store rehydrated from kv. A corrupt persisted cart is
// discarded and the store starts empty.
func NewStore(kv storage.Store, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.lines = s.load()
	s.stream = notify.New(domain.CloneLines(s.lines), notify.WithCopy(domain.CloneLines))
	observability.CartItemCount.Set(float64(count(s.lines)))
	return s
}

func (s *Store) load() []domain.CartLine {
	var stored []domain.CartLine
	found, err := storage.GetJSON(s.kv, storage.KeyShoppingCart, &stored)
	switch {
	case errors.Is(err, storage.ErrCorruptValue):
		s.logger.Warn("discarding corrupt cart", slog.String("error", err.Error()))
		if err := s.kv.Remove(storage.KeyShoppingCart); err != nil {
			observability.StorageErrorsTotal.WithLabelValues("cart_remove").Inc()
		}
		return []domain.CartLine{}
	case err != nil:
		observability.StorageErrorsTotal.WithLabelValues("cart_read").Inc()
		s.logger.Error("failed to load cart", slog.String("error", err.Error()))
		return []domain.CartLine{}
	case !found:
		return []domain.CartLine{}
	}

	// Merge duplicates and drop non-positive lines written by older clients
	lines := make([]domain.CartLine, 0, len(stored))
	for _, line := range stored {
		if line.Quantity <= 0 {
			continue
		}
		if i := indexOf(lines, line.Product.ID); i >= 0 {
			lines[i].Quantity += line.Quantity
			continue
		}
		lines = append(lines, line)
	}
	s.logger.Debug("cart rehydrated", slog.Int("lines", len(lines)))
	return lines
}

func indexOf(lines []domain.CartLine, productID string) int {
	for i, line := range lines {
		if line.Product.ID == productID {
			return i
		}
	}
	return -1
}

func count(lines []domain.CartLine) int {
	n := 0
	for _, line := range lines {
		n += line.Quantity
	}
	return n
}

func subtotal(lines []domain.CartLine) float64 {
	total := 0.0
	for _, line := range lines {
		total += line.LineTotal()
	}
	return total
}

// Items returns a snapshot of the cart lines in insertion order
func (s *Store) Items() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.lines)
}

// ItemCount is the sum of line quantities
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return count(s.lines)
}

// Subtotal is the sum of quantity times snapshot price
func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.lines)
}

// Summary returns the checkout totals for the current lines
func (s *Store) Summary() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.lines)
}

// commitLocked persists next and, on success, makes it the cart state and
// queues it for observers. Callers hold s.mu and Flush after unlocking.
func (s *Store) commitLocked(op string, next []domain.CartLine) error {
	var err error
	if len(next) == 0 && op == "clear" {
		err = s.kv.Remove(storage.KeyShoppingCart)
	} else {
		err = storage.SetJSON(s.kv, storage.KeyShoppingCart, next)
	}
	if err != nil {
		observability.StorageErrorsTotal.WithLabelValues("cart_" + op).Inc()
		s.logger.Error("failed to persist cart", slog.String("operation", op), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.lines = next
	s.stream.Publish(domain.CloneLines(next))
	observability.CartMutationsTotal.WithLabelValues(op).Inc()
	observability.CartItemCount.Set(float64(count(next)))
	return nil
}

func (s *Store) mutate(op string, fn func(lines []domain.CartLine) ([]domain.CartLine, bool)) error {
	s.mu.Lock()
	next, changed := fn(domain.CloneLines(s.lines))
	if !changed {
		s.mu.Unlock()
		return nil
	}
	err := s.commitLocked(op, next)
	s.mu.Unlock()
	s.stream.Flush()
	return err
}

// AddItem adds quantity units of product, merging into an existing line for
// the same product ID. The product is stored by value.
func (s *Store) AddItem(product domain.ProductSnapshot, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	err := s.mutate("add", func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		if i := indexOf(lines, product.ID); i >= 0 {
			lines[i].Quantity += quantity
			return lines, true
		}
		return append(lines, domain.CartLine{Product: product, Quantity: quantity}), true
	})
	if err == nil {
		s.logger.Debug("cart item added", slog.String("product_id", product.ID), slog.Int("quantity", quantity))
	}
	return err
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line; an unknown product ID is ignored.
func (s *Store) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(productID)
	}
	return s.mutate("update", func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 || lines[i].Quantity == quantity {
			return lines, false
		}
		lines[i].Quantity = quantity
		return lines, true
	})
}

// RemoveItem drops the line for productID if present
func (s *Store) RemoveItem(productID string) error {
	return s.mutate("remove", func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines, false
		}
		return append(lines[:i], lines[i+1:]...), true
	})
}

// Clear empties the cart and purges its persisted state
func (s *Store) Clear() error {
	return s.mutate("clear", func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		return []domain.CartLine{}, true
	})
}

// Receipt is the result of a checkout
type Receipt struct {
	OrderID  string            `json:"orderId"`
	Lines    []domain.CartLine `json:"lines"`
	Totals   Totals            `json:"totals"`
	PlacedAt time.Time         `json:"placedAt"`
}

// Checkout captures the cart as a receipt and clears it. An empty cart
// returns domain.ErrEmptyCart.
func (s *Store) Checkout() (*Receipt, error) {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		return nil, domain.ErrEmptyCart
	}
	receipt := &Receipt{
		OrderID:  uuid.NewString(),
		Lines:    domain.CloneLines(s.lines),
		Totals:   ComputeTotals(s.lines),
		PlacedAt: s.now(),
	}
	err := s.commitLocked("clear", []domain.CartLine{})
	s.mu.Unlock()
	s.stream.Flush()
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.logger.Info("checkout completed",
		slog.String("order_id", receipt.OrderID),
		slog.Int("items", receipt.Totals.Count),
		slog.Float64("total", receipt.Totals.Total),
	)
	return receipt, nil
}

// Subscribe registers fn for cart changes. fn receives the current lines
// immediately. The returned function unsubscribes.
func (s *Store) Subscribe(fn func([]domain.CartLine)) (unsubscribe func()) {
	return s.stream.Subscribe(fn)
}

// Watch returns a channel with the current lines and later changes until
// ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan []domain.CartLine {
	return s.stream.Watch(ctx)
}
