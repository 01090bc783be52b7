package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/store"
	"github.com/google/uuid"
)

type PatientSignup struct {
	Email            string
	Password         string
	FirstName        *string
	LastName         *string
	Country          *string
	Province         *string
	Ethnicity        *string
	Sex              *string
	PractitionerName *string
	// Birthdate is dd-mm-yyyy; empty means not given.
	Birthdate string
	Consent   bool
}

type PractitionerSignup struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	// PractitionerID is generated when empty.
	PractitionerID      string
	Institution         *string
	InstitutionLocation *string
	Consent             bool
}

func (s *Service) SignupPatient(ctx context.Context, in PatientSignup) (_ Session, err error) {
	ctx, span := s.start(ctx, "SignupPatient")
	defer func() { finish(span, err) }()

	email, err := s.validateEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return Session{}, err
	}
	var birthdate *models.Date
	if strings.TrimSpace(in.Birthdate) != "" {
		d, err := models.ParseDate(in.Birthdate)
		if err != nil {
			return Session{}, &ValidationError{Field: "birthdate", Message: "invalid birthdate, expected dd-mm-yyyy", Unprocessable: true}
		}
		birthdate = &d
	}

	account := models.Account{Email: email, FirstName: in.FirstName, LastName: in.LastName, Role: models.RolePatient}
	profile := models.PatientProfile{
		Country:          in.Country,
		Province:         in.Province,
		Ethnicity:        in.Ethnicity,
		Birthdate:        birthdate,
		Sex:              in.Sex,
		PractitionerName: in.PractitionerName,
		Consent:          in.Consent,
	}
	err = s.signup(ctx, &account, in.Password, func(tx *store.Tx) error {
		profile.AccountID = account.ID
		return tx.Profiles.CreatePatient(ctx, &profile)
	})
	if err != nil {
		return Session{}, err
	}
	return s.issue(account, &models.Profile{Role: models.RolePatient, Patient: &profile})
}

func (s *Service) SignupPractitioner(ctx context.Context, in PractitionerSignup) (_ Session, err error) {
	ctx, span := s.start(ctx, "SignupPractitioner")
	defer func() { finish(span, err) }()

	email, err := s.validateEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return Session{}, err
	}
	practitionerID := strings.TrimSpace(in.PractitionerID)
	if practitionerID == "" {
		practitionerID = generatePractitionerID()
	}

	account := models.Account{Email: email, FirstName: in.FirstName, LastName: in.LastName, Role: models.RolePractitioner}
	profile := models.PractitionerProfile{
		PractitionerID:      practitionerID,
		Institution:         in.Institution,
		InstitutionLocation: in.InstitutionLocation,
		Consent:             in.Consent,
	}
	err = s.signup(ctx, &account, in.Password, func(tx *store.Tx) error {
		profile.AccountID = account.ID
		return tx.Profiles.CreatePractitioner(ctx, &profile)
	})
	if err != nil {
		return Session{}, err
	}
	return s.issue(account, &models.Profile{Role: models.RolePractitioner, Practitioner: &profile})
}

// signup rejects a taken email before any write, then creates the account
// and its profile in one transaction. The unique index still decides
// concurrent signups for the same email.
func (s *Service) signup(ctx context.Context, account *models.Account, password string, createProfile func(*store.Tx) error) error {
	_, err := s.store.Accounts().FindByEmail(ctx, account.Email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return storageErr(err)
	}

	hash, err := s.vault.Hash(password)
	if err != nil {
		return err
	}
	account.PasswordHash = hash

	err = s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.Accounts.Create(ctx, account); err != nil {
			return err
		}
		return createProfile(tx)
	})
	if err != nil {
		return storageErr(err)
	}
	s.publish(ctx, events.AccountCreated, *account)
	return nil
}

func generatePractitionerID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PR-" + strings.ToUpper(id[:8])
}
