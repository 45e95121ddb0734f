package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleStudent      Role = "STUDENT"
	RoleOrganisation Role = "ORGANISATION"
)

// ParseRole accepts a role name in any letter case. Unknown names are reported with ok=false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleOrganisation:
		return r, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOrganisation:
		return true
	default:
		return false
	}
}

// DefaultUserName is stored when registration omits a display name.
const DefaultUserName = "New User"

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Credentials struct {
	UserID       uuid.UUID
	PasswordHash string // bcrypt hash
}

type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	PasswordHash    string    `json:"-"`
	HasProfileImage bool      `json:"hasProfileImage"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Identity is the caller established by a verified session token.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

type Image struct {
	Data     []byte
	MimeType string
}
