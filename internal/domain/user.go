package domain

import "time"

// User is an account record held by the user directory. Identity is the
// subset a session carries.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AvatarURL string    `json:"avatar,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity returns the session view of u
func (u User) Identity() Identity {
	return Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.Name,
		Role:        u.Role,
		AvatarURL:   u.AvatarURL,
	}
}

// UserStats counts directory accounts by role and status
type UserStats struct {
	Total    int `json:"total"`
	Admins   int `json:"admins"`
	Sellers  int `json:"sellers"`
	Buyers   int `json:"buyers"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}
