package lifecycle

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/store"
)

type Credentials struct {
	// Role, when set, must match the account's role.
	Role     models.Role
	Email    string
	Password string
	// PractitionerID, when set, must match the account's practitioner id.
	PractitionerID string
}

func (s *Service) Login(ctx context.Context, in Credentials) (_ Session, err error) {
	ctx, span := s.start(ctx, "Login")
	defer func() { finish(span, err) }()

	account, err := s.store.Accounts().FindByEmail(ctx, s.canonicalEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		s.vault.VerifyDummy(in.Password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, storageErr(err)
	}
	if !s.vault.Verify(in.Password, account.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if !account.IsActive() || (in.Role != "" && in.Role != account.Role) {
		return Session{}, ErrInvalidCredentials
	}

	var profile *models.Profile
	p, err := s.store.Profiles().FindByAccountID(ctx, account.ID)
	switch {
	case err == nil:
		profile = &p
	case !errors.Is(err, store.ErrNotFound):
		return Session{}, storageErr(err)
	}

	if practitionerID := strings.TrimSpace(in.PractitionerID); practitionerID != "" {
		if profile == nil || profile.Practitioner == nil || profile.Practitioner.PractitionerID != practitionerID {
			return Session{}, ErrInvalidCredentials
		}
	}

	if s.vault.NeedsRehash(account.PasswordHash) {
		s.rehash(ctx, account.ID, in.Password)
	}
	return s.issue(account, profile)
}

// rehash upgrades a legacy or weaker hash after a successful login. Failure
// leaves the old hash in place.
func (s *Service) rehash(ctx context.Context, accountID, password string) {
	hash, err := s.vault.Hash(password)
	if err == nil {
		err = s.store.Accounts().UpdatePasswordHash(ctx, accountID, hash)
	}
	if err != nil {
		log.Printf("Failed to rehash password for account %s: %v", accountID, err)
	}
}

// Authenticate resolves a bearer token to its active account.
func (s *Service) Authenticate(ctx context.Context, token string) (_ models.Account, err error) {
	ctx, span := s.start(ctx, "Authenticate")
	defer func() { finish(span, err) }()

	subject, err := s.tokens.Validate(token)
	if err != nil {
		return models.Account{}, ErrUnauthorized
	}
	account, err := s.store.Accounts().FindByID(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		return models.Account{}, ErrUnauthorized
	}
	if err != nil {
		return models.Account{}, storageErr(err)
	}
	if !account.IsActive() {
		return models.Account{}, ErrUnauthorized
	}
	return account, nil
}

// ChangePassword replaces the actor's own password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, current, next string) (err error) {
	ctx, span := s.start(ctx, "ChangePassword")
	defer func() { finish(span, err) }()

	if actor.AccountID == "" {
		return ErrUnauthorized
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}
	account, err := s.store.Accounts().FindByID(ctx, actor.AccountID)
	if err != nil {
		return storageErr(err)
	}
	if !s.vault.Verify(current, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := s.vault.Hash(next)
	if err != nil {
		return err
	}
	return storageErr(s.store.Accounts().UpdatePasswordHash(ctx, account.ID, hash))
}
