package directory

import (
	"context"
	"testing"
	"time"

	"storefront-state/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDirectory_Seed(t *testing.T) {
	d := NewMockDirectory(nil, 0)

	users, err := d.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, users, 5)
	assert.Equal(t, "admin@tienda.com", users[0].Email)
	assert.Equal(t, domain.RoleSeller, users[4].Role)
	for _, u := range users {
		assert.True(t, u.Active, u.Email)
	}
}

func TestMockDirectory_List(t *testing.T) {
	ctx := context.Background()
	d := NewMockDirectory(nil, 0)
	active, inactive := true, false

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"by_role", Filter{Role: domain.RoleSeller}, []string{"2", "5"}},
		{"by_search_name", Filter{Search: "gómez"}, []string{"4"}},
		{"by_search_email", Filter{Search: "TIENDA.COM"}, []string{"1", "2", "5"}},
		{"active", Filter{Active: &active}, []string{"1", "2", "3", "4", "5"}},
		{"inactive", Filter{Active: &inactive}, []string{}},
		{"combined", Filter{Role: domain.RoleBuyer, Search: "juan"}, []string{"3"}},
		{"no_match", Filter{Role: domain.RoleAdmin, Search: "carlos"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := d.List(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMockDirectory_Get(t *testing.T) {
	d := NewMockDirectory(nil, 0)

	u, err := d.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", u.Name)

	_, err = d.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMockDirectory_Create(t *testing.T) {
	ctx := context.Background()
	d := NewMockDirectory([]domain.User{}, 0)
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	req := CreateRequest{Email: " lucia@tienda.com ", Name: "Lucía Torres", Password: "secret1", Role: domain.RoleSeller}

	t.Run("creates_active_account", func(t *testing.T) {
		created, err := d.Create(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "lucia@tienda.com", created.Email)
		assert.True(t, created.Active)
		assert.NotEmpty(t, created.AvatarURL)
		assert.Equal(t, d.now(), created.CreatedAt)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		dup := req
		dup.Email = "LUCIA@tienda.com"
		_, err := d.Create(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	invalid := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"short_name", func(r *CreateRequest) { r.Name = "Al" }},
		{"bad_email", func(r *CreateRequest) { r.Email = "not-an-email" }},
		{"short_password", func(r *CreateRequest) { r.Password = "12345" }},
		{"unknown_role", func(r *CreateRequest) { r.Role = "owner" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			bad := req
			bad.Email = "other@tienda.com"
			tt.mutate(&bad)
			_, err := d.Create(ctx, bad)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	users, _ := d.List(ctx, Filter{})
	assert.Len(t, users, 1)
}

func TestMockDirectory_UpdateDelete(t *testing.T) {
	d := NewMockDirectory(nil, 0)
	ctx := context.Background()

	t.Run("update_existing", func(t *testing.T) {
		u, err := d.Get(ctx, "4")
		require.NoError(t, err)
		created := u.CreatedAt
		u.Phone = "+57 310 000 0000"
		u.AvatarURL = ""
		u.CreatedAt = time.Time{}

		updated, err := d.Update(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, "+57 310 000 0000", updated.Phone)
		assert.Equal(t, created, updated.CreatedAt)
		assert.Equal(t, "https://i.pravatar.cc/150?img=44", updated.AvatarURL)
	})

	t.Run("update_to_taken_email", func(t *testing.T) {
		u, err := d.Get(ctx, "4")
		require.NoError(t, err)
		u.Email = "admin@tienda.com"
		_, err = d.Update(ctx, u)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("update_missing", func(t *testing.T) {
		_, err := d.Update(ctx, domain.User{ID: "nope", Name: "Nadie", Email: "nadie@x.com", Role: domain.RoleBuyer})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, d.Delete(ctx, "5"))
		assert.ErrorIs(t, d.Delete(ctx, "5"), domain.ErrNotFound)
	})
}

func TestMockDirectory_ToggleActiveAndStats(t *testing.T) {
	d := NewMockDirectory(nil, 0)
	ctx := context.Background()

	u, err := d.ToggleActive(ctx, "3")
	require.NoError(t, err)
	assert.False(t, u.Active)

	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStats{Total: 5, Admins: 1, Sellers: 2, Buyers: 2, Active: 4, Inactive: 1}, stats)

	u, err = d.ToggleActive(ctx, "3")
	require.NoError(t, err)
	assert.True(t, u.Active)

	_, err = d.ToggleActive(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMockDirectory_LatencyHonoursContext(t *testing.T) {
	d := NewMockDirectory(nil, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Stats(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
