package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RolePractitioner
}

// Status is the single lifecycle flag of an account. A hard-deleted account
// has no row, so it has no status.
type Status string

const (
	StatusActive      Status = "active"
	StatusSoftDeleted Status = "soft_deleted"
)

type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    *string   `json:"first_name" db:"first_name"`
	LastName     *string   `json:"last_name" db:"last_name"`
	Role         Role      `json:"role" db:"role"`
	Status       Status    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (a Account) IsActive() bool {
	return a.Status == StatusActive
}

// MarshalJSON adds the derived is_active field older clients read.
func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	return json.Marshal(struct {
		plain
		IsActive bool `json:"is_active"`
	}{plain: plain(a), IsActive: a.IsActive()})
}

// AccountPatch carries a partial update. Nil fields are left untouched; an
// explicit JSON null cannot be told apart from an absent field.
type AccountPatch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Status    *Status `json:"-"`
}

func (p AccountPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Status == nil
}

// AccountFilter narrows an account listing.
type AccountFilter struct {
	Role            *Role
	IncludeInactive bool
}
