package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the external birthdate format (dd-mm-yyyy).
const DateLayout = "02-01-2006"

// storageDateLayout is how dates are persisted.
const storageDateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// ParseDate parses a dd-mm-yyyy string, rejecting impossible calendar dates.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected dd-mm-yyyy", s)
	}
	return Date{Time: t}, nil
}

// ParseStorageDate parses the persisted yyyy-mm-dd form.
func ParseStorageDate(s string) (Date, error) {
	t, err := time.Parse(storageDateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) StorageString() string {
	return d.Format(storageDateLayout)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type PatientProfile struct {
	ID               string    `json:"id" db:"id"`
	AccountID        string    `json:"account_id" db:"account_id"`
	Country          *string   `json:"country" db:"country"`
	Province         *string   `json:"province" db:"province"`
	Ethnicity        *string   `json:"ethnicity" db:"ethnicity"`
	Birthdate        *Date     `json:"birthdate" db:"birthdate"`
	Sex              *string   `json:"sex" db:"sex"`
	PractitionerName *string   `json:"practitioner_name" db:"practitioner_name"`
	Consent          bool      `json:"consent" db:"consent"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type PractitionerProfile struct {
	ID                  string    `json:"id" db:"id"`
	AccountID           string    `json:"account_id" db:"account_id"`
	PractitionerID      string    `json:"practitioner_id" db:"practitioner_id"`
	Institution         *string   `json:"institution" db:"institution"`
	InstitutionLocation *string   `json:"institution_location" db:"institution_location"`
	Consent             bool      `json:"consent" db:"consent"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Profile holds exactly one of Patient or Practitioner, matching Role.
type Profile struct {
	Role         Role                 `json:"role"`
	Patient      *PatientProfile      `json:"patient,omitempty"`
	Practitioner *PractitionerProfile `json:"practitioner,omitempty"`
}

func (p Profile) AccountID() string {
	switch {
	case p.Patient != nil:
		return p.Patient.AccountID
	case p.Practitioner != nil:
		return p.Practitioner.AccountID
	}
	return ""
}

// PractitionerPatch carries a partial practitioner profile update.
type PractitionerPatch struct {
	PractitionerID      *string `json:"practitioner_id"`
	Institution         *string `json:"institution"`
	InstitutionLocation *string `json:"institution_location"`
}

func (p PractitionerPatch) Empty() bool {
	return p.PractitionerID == nil && p.Institution == nil && p.InstitutionLocation == nil
}
