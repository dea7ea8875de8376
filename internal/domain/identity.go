package domain

// Role is the authorization role carried by an identity
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// AllRoles contains every valid role
var AllRoles = []Role{RoleAdmin, RoleSeller, RoleBuyer}

// IsValid checks if a role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Identity is the authenticated user's role-bearing profile.
// The JSON keys match the persisted browser layout.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Role        Role   `json:"role"`
	AvatarURL   string `json:"avatar,omitempty"`
}

// Clone returns a copy that callers may keep without aliasing store state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
