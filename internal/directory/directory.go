// Package directory provides the user accounts managed from the admin area.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-state/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Provider is the user CRUD surface
type Provider interface {
	List(ctx context.Context, filter Filter) ([]domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, req CreateRequest) (domain.User, error)
	Update(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string) (domain.User, error)
	Stats(ctx context.Context) (domain.UserStats, error)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Role   domain.Role
	Active *bool
	// Search matches name or email, case-insensitively
	Search string
}

func (f Filter) matches(u domain.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(strings.ToLower(u.Name), term) ||
			strings.Contains(strings.ToLower(u.Email), term)
	}
	return true
}

// CreateRequest is a new account. Password is checked but never stored.
type CreateRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"min=3"`
	Password string      `json:"password" validate:"min=6"`
	Role     domain.Role `json:"role" validate:"oneof=admin seller buyer"`
	Phone    string      `json:"phone,omitempty"`
	Address  string      `json:"address,omitempty"`
}

// profile is the validated part of an update
type profile struct {
	Email string      `validate:"required,email"`
	Name  string      `validate:"min=3"`
	Role  domain.Role `validate:"oneof=admin seller buyer"`
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// SeedUsers is the account list the mock starts with
func SeedUsers() []domain.User {
	return []domain.User{
		{ID: "1", Email: "admin@tienda.com", Name: "Administrador Principal", Role: domain.RoleAdmin, AvatarURL: "https://i.pravatar.cc/150?img=12", Phone: "+57 300 123 4567", Address: "Calle Principal 123", Active: true, CreatedAt: day(2023, time.January, 15)},
		{ID: "2", Email: "seller@tienda.com", Name: "Vendedor TechStore", Role: domain.RoleSeller, AvatarURL: "https://i.pravatar.cc/150?img=33", Phone: "+57 301 234 5678", Address: "Avenida Comercio 456", Active: true, CreatedAt: day(2023, time.February, 20)},
		{ID: "3", Email: "comprador@gmail.com", Name: "Juan Pérez", Role: domain.RoleBuyer, AvatarURL: "https://i.pravatar.cc/150?img=55", Phone: "+57 302 345 6789", Address: "Carrera 10 #20-30", Active: true, CreatedAt: day(2023, time.March, 10)},
		{ID: "4", Email: "maria.gomez@email.com", Name: "María Gómez", Role: domain.RoleBuyer, AvatarURL: "https://i.pravatar.cc/150?img=44", Phone: "+57 303 456 7890", Address: "Calle 50 #15-20", Active: true, CreatedAt: day(2023, time.April, 5)},
		{ID: "5", Email: "vendedor2@tienda.com", Name: "Carlos Rodríguez", Role: domain.RoleSeller, AvatarURL: "https://i.pravatar.cc/150?img=68", Phone: "+57 304 567 8901", Address: "Centro Comercial Norte", Active: true, CreatedAt: day(2023, time.May, 12)},
	}
}

// MockDirectory is an in-memory Provider with optional simulated latency
type MockDirectory struct {
	mu      sync.RWMutex
	users   []domain.User
	latency time.Duration
	now     func() time.Time
}

// NewMockDirectory creates a directory seeded with users. Pass nil for
// SeedUsers.
func NewMockDirectory(users []domain.User, latency time.Duration) *MockDirectory {
	if users == nil {
		users = SeedUsers()
	}
	d := &MockDirectory{latency: latency, now: time.Now}
	d.users = append(d.users, users...)
	return d
}

func (d *MockDirectory) wait(ctx context.Context) error {
	if d.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MockDirectory) indexOf(id string) int {
	for i, u := range d.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (d *MockDirectory) emailTakenLocked(email, exceptID string) bool {
	for _, u := range d.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func notFound(id string) error {
	return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

// List returns the users matching filter in directory order
func (d *MockDirectory) List(ctx context.Context, filter Filter) ([]domain.User, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []domain.User{}
	for _, u := range d.users {
		if filter.matches(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Get returns the user with id or domain.ErrNotFound
func (d *MockDirectory) Get(ctx context.Context, id string) (domain.User, error) {
	if err := d.wait(ctx); err != nil {
		return domain.User{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexOf(id)
	if i < 0 {
		return domain.User{}, notFound(id)
	}
	return d.users[i], nil
}

// Create adds an active account. A taken email yields domain.ErrConflict.
func (d *MockDirectory) Create(ctx context.Context, req CreateRequest) (domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := check(req); err != nil {
		return domain.User{}, err
	}
	if err := d.wait(ctx); err != nil {
		return domain.User{}, err
	}

	id := uuid.NewString()
	u := domain.User{
		ID:        id,
		Email:     req.Email,
		Name:      req.Name,
		Role:      req.Role,
		AvatarURL: "https://i.pravatar.cc/150?u=" + id,
		Phone:     req.Phone,
		Address:   req.Address,
		Active:    true,
		CreatedAt: d.now().UTC(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.emailTakenLocked(u.Email, "") {
		return domain.User{}, fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
	}
	d.users = append(d.users, u)
	return u, nil
}

// Update replaces the profile of u.ID. CreatedAt is kept, as is the avatar
// when u has none.
func (d *MockDirectory) Update(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = strings.TrimSpace(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	if err := check(profile{Email: u.Email, Name: u.Name, Role: u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := d.wait(ctx); err != nil {
		return domain.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(u.ID)
	if i < 0 {
		return domain.User{}, notFound(u.ID)
	}
	if d.emailTakenLocked(u.Email, u.ID) {
		return domain.User{}, fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
	}
	u.CreatedAt = d.users[i].CreatedAt
	if u.AvatarURL == "" {
		u.AvatarURL = d.users[i].AvatarURL
	}
	d.users[i] = u
	return u, nil
}

// Delete removes the user with id
func (d *MockDirectory) Delete(ctx context.Context, id string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	d.users = append(d.users[:i], d.users[i+1:]...)
	return nil
}

// ToggleActive flips the active flag of id and returns the result
func (d *MockDirectory) ToggleActive(ctx context.Context, id string) (domain.User, error) {
	if err := d.wait(ctx); err != nil {
		return domain.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(id)
	if i < 0 {
		return domain.User{}, notFound(id)
	}
	d.users[i].Active = !d.users[i].Active
	return d.users[i], nil
}

// Stats counts accounts by role and status
func (d *MockDirectory) Stats(ctx context.Context) (domain.UserStats, error) {
	if err := d.wait(ctx); err != nil {
		return domain.UserStats{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := domain.UserStats{Total: len(d.users)}
	for _, u := range d.users {
		switch u.Role {
		case domain.RoleAdmin:
			stats.Admins++
		case domain.RoleSeller:
			stats.Sellers++
		case domain.RoleBuyer:
			stats.Buyers++
		}
		if u.Active {
			stats.Active++
		} else {
			stats.Inactive++
		}
	}
	return stats, nil
}
