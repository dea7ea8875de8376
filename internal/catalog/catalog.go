// Package catalog provides product data to the storefront. Products are
// handed out as snapshots; the cart copies them by value.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-state/internal/domain"

	"github.com/google/uuid"
)

// Provider is the product CRUD surface
type Provider interface {
	List(ctx context.Context) ([]domain.ProductSnapshot, error)
	Get(ctx context.Context, id string) (domain.ProductSnapshot, error)
	Create(ctx context.Context, p domain.ProductSnapshot) (domain.ProductSnapshot, error)
	Update(ctx context.Context, p domain.ProductSnapshot) (domain.ProductSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// DefaultSellerName is assigned to products created without one
const DefaultSellerName = "Mi Tienda"

// SeedProducts is the catalogue the mock starts with
func SeedProducts() []domain.ProductSnapshot {
	return []domain.ProductSnapshot{
		{ID: "1", Name: "Laptop HP Pavilion", Description: "Laptop de alto rendimiento con procesador Intel i7", Price: 1299.99, Stock: 15, Category: "Electrónica", ImageURL: "https://images.unsplash.com/photo-1496181133206-80ce9b88a853?w=400", SellerName: "TechStore"},
		{ID: "2", Name: "Mouse Logitech MX Master 3", Description: "Mouse ergonómico para productividad", Price: 99.99, Stock: 50, Category: "Accesorios", ImageURL: "https://images.unsplash.com/photo-1527814050087-3793815479db?w=400", SellerName: "Peripherals Inc"},
		{ID: "3", Name: "Teclado Mecánico RGB", Description: "Teclado mecánico con iluminación RGB personalizable", Price: 159.99, Stock: 30, Category: "Accesorios", ImageURL: "https://images.unsplash.com/photo-1587829741301-dc798b83add3?w=400", SellerName: "Gaming Pro"},
		{ID: "4", Name: `Monitor LG UltraWide 34"`, Description: "Monitor ultrawide para máxima productividad", Price: 499.99, Stock: 10, Category: "Electrónica", ImageURL: "https://images.unsplash.com/photo-1527443224154-c4a3942d3acf?w=400", SellerName: "DisplayWorld"},
		{ID: "5", Name: "Auriculares Sony WH-1000XM4", Description: "Auriculares con cancelación de ruido premium", Price: 349.99, Stock: 25, Category: "Audio", ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", SellerName: "AudioPro"},
		{ID: "6", Name: "Webcam Logitech C920", Description: "Webcam Full HD para videollamadas", Price: 79.99, Stock: 40, Category: "Accesorios", ImageURL: "https://images.unsplash.com/photo-1589739900243-c651dd1755fe?w=400", SellerName: "TechStore"},
	}
}

// MockCatalog is an in-memory Provider with optional simulated latency
type MockCatalog struct {
	mu       sync.RWMutex
	products []domain.ProductSnapshot
	latency  time.Duration
}

// NewMockCatalog creates a catalogue seeded with products. Pass nil for
// SeedProducts.
func NewMockCatalog(products []domain.ProductSnapshot, latency time.Duration) *MockCatalog {
	if products == nil {
		products = SeedProducts()
	}
	c := &MockCatalog{latency: latency}
	c.products = append(c.products, products...)
	return c
}

func (c *MockCatalog) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *MockCatalog) indexOf(id string) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// List returns every product
func (c *MockCatalog) List(ctx context.Context) ([]domain.ProductSnapshot, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ProductSnapshot, len(c.products))
	copy(out, c.products)
	return out, nil
}

// Get returns the product with id or domain.ErrNotFound
func (c *MockCatalog) Get(ctx context.Context, id string) (domain.ProductSnapshot, error) {
	if err := c.wait(ctx); err != nil {
		return domain.ProductSnapshot{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return domain.ProductSnapshot{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return c.products[i], nil
}

func validate(p domain.ProductSnapshot) error {
	if strings.TrimSpace(p.Name) == "" || p.Price < 0 || p.Stock < 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// Create assigns an id and stores p
func (c *MockCatalog) Create(ctx context.Context, p domain.ProductSnapshot) (domain.ProductSnapshot, error) {
	if err := validate(p); err != nil {
		return domain.ProductSnapshot{}, err
	}
	if err := c.wait(ctx); err != nil {
		return domain.ProductSnapshot{}, err
	}
	p.ID = uuid.NewString()
	if p.SellerName == "" {
		p.SellerName = DefaultSellerName
	}

	c.mu.Lock()
	c.products = append(c.products, p)
	c.mu.Unlock()
	return p, nil
}

// Update replaces the product with p.ID. Existing carts keep their snapshots.
func (c *MockCatalog) Update(ctx context.Context, p domain.ProductSnapshot) (domain.ProductSnapshot, error) {
	if err := validate(p); err != nil {
		return domain.ProductSnapshot{}, err
	}
	if err := c.wait(ctx); err != nil {
		return domain.ProductSnapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(p.ID)
	if i < 0 {
		return domain.ProductSnapshot{}, fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	if p.SellerName == "" {
		p.SellerName = c.products[i].SellerName
	}
	if p.SellerID == "" {
		p.SellerID = c.products[i].SellerID
	}
	c.products[i] = p
	return p, nil
}

// Delete removes the product with id
func (c *MockCatalog) Delete(ctx context.Context, id string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	c.products = append(c.products[:i], c.products[i+1:]...)
	return nil
}
