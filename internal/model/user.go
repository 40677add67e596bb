package model

import "time"

type User struct {
	ID        int        `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsActive reports whether the account can still hold tickets.
func (u *User) IsActive() bool {
	return u.DeletedAt == nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleGate      Role = "gate"
	RoleAdmin     Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleGate, RoleAdmin:
		return true
	}
	return false
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID int
	Role   Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanActFor reports whether the caller may act on behalf of userID.
func (c Caller) CanActFor(userID int) bool {
	return c.IsAdmin() || c.UserID == userID
}
