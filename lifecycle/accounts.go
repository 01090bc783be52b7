package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/store"
)

// ProfilePatch is a partial update of an account and, for practitioners, its
// profile. Nil fields are left untouched.
type ProfilePatch struct {
	FirstName           *string
	LastName            *string
	Email               *string
	IsActive            *bool
	PractitionerID      *string
	Institution         *string
	InstitutionLocation *string
}

func (p ProfilePatch) practitioner() models.PractitionerPatch {
	return models.PractitionerPatch{
		PractitionerID:      p.PractitionerID,
		Institution:         p.Institution,
		InstitutionLocation: p.InstitutionLocation,
	}
}

func (s *Service) GetAccount(ctx context.Context, actor Actor, id string) (models.Account, error) {
	if err := s.policy.Authorize(actor, ActionRead, id); err != nil {
		return models.Account{}, err
	}
	account, err := s.store.Accounts().FindByID(ctx, id)
	return account, storageErr(err)
}

func (s *Service) ListAccounts(ctx context.Context, actor Actor, filter models.AccountFilter) ([]models.Account, error) {
	if err := s.policy.Authorize(actor, ActionList, ""); err != nil {
		return nil, err
	}
	accounts, err := s.store.Accounts().List(ctx, filter)
	return accounts, storageErr(err)
}

// GetProfile returns the role profile of accountID. Accounts created without
// a profile yield ErrNotFound.
func (s *Service) GetProfile(ctx context.Context, actor Actor, accountID string) (models.Profile, error) {
	if err := s.policy.Authorize(actor, ActionRead, accountID); err != nil {
		return models.Profile{}, err
	}
	profile, err := s.store.Profiles().FindByAccountID(ctx, accountID)
	return profile, storageErr(err)
}

func (s *Service) ListProfiles(ctx context.Context, actor Actor, skip, limit int) ([]models.Profile, error) {
	if err := s.policy.Authorize(actor, ActionList, ""); err != nil {
		return nil, err
	}
	profiles, err := s.store.Profiles().List(ctx, skip, limit)
	return profiles, storageErr(err)
}

// UpdateProfile applies patch to account id in one transaction. An empty
// patch, or one that only restates current values of IsActive, writes
// nothing.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, id string, patch ProfilePatch) (_ models.Account, err error) {
	ctx, span := s.start(ctx, "UpdateProfile")
	defer func() { finish(span, err) }()

	if err := s.policy.Authorize(actor, ActionUpdate, id); err != nil {
		return models.Account{}, err
	}
	if patch.Email != nil {
		email, err := s.validateEmail(*patch.Email)
		if err != nil {
			return models.Account{}, err
		}
		patch.Email = &email
	}
	if patch.PractitionerID != nil {
		trimmed := strings.TrimSpace(*patch.PractitionerID)
		if trimmed == "" {
			return models.Account{}, invalid("practitioner_id", "must not be empty")
		}
		patch.PractitionerID = &trimmed
	}

	var (
		updated models.Account
		changed bool
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		current, err := tx.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		practitioner := patch.practitioner()
		if !practitioner.Empty() && current.Role != models.RolePractitioner {
			return invalid("practitioner_id", "practitioner fields apply only to practitioner accounts")
		}

		accountPatch := models.AccountPatch{FirstName: patch.FirstName, LastName: patch.LastName}
		if patch.Email != nil && *patch.Email != current.Email {
			other, err := tx.Accounts.FindByEmail(ctx, *patch.Email)
			switch {
			case err == nil && other.ID != current.ID:
				return ErrDuplicateEmail
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}
			accountPatch.Email = patch.Email
		}
		if patch.IsActive != nil && *patch.IsActive != current.IsActive() {
			status := models.StatusSoftDeleted
			if *patch.IsActive {
				status = models.StatusActive
			}
			accountPatch.Status = &status
		}

		changed = !accountPatch.Empty() || !practitioner.Empty()
		if updated, err = tx.Accounts.Update(ctx, id, accountPatch); err != nil {
			return err
		}
		if !practitioner.Empty() {
			if _, err := tx.Profiles.UpdatePractitioner(ctx, id, practitioner); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Account{}, storageErr(err)
	}
	if changed {
		s.publish(ctx, events.AccountUpdated, updated)
	}
	return updated, nil
}

func (s *Service) SoftDelete(ctx context.Context, actor Actor, id string) (models.Account, error) {
	return s.transition(ctx, actor, id, ActionSoftDelete, models.StatusSoftDeleted, events.AccountSoftDeleted)
}

func (s *Service) Restore(ctx context.Context, actor Actor, id string) (models.Account, error) {
	return s.transition(ctx, actor, id, ActionRestore, models.StatusActive, events.AccountRestored)
}

// transition moves id to status. Repeating a transition returns the account
// unchanged and publishes nothing.
func (s *Service) transition(ctx context.Context, actor Actor, id string, action Action, status models.Status, event events.Type) (_ models.Account, err error) {
	ctx, span := s.start(ctx, string(action))
	defer func() { finish(span, err) }()

	if err := s.policy.Authorize(actor, action, id); err != nil {
		return models.Account{}, err
	}
	var (
		account models.Account
		changed bool
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		current, err := tx.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == status {
			account = current
			return nil
		}
		changed = true
		account, err = tx.Accounts.SetStatus(ctx, id, status)
		return err
	})
	if err != nil {
		return models.Account{}, storageErr(err)
	}
	if changed {
		s.publish(ctx, event, account)
	}
	return account, nil
}

// HardDelete permanently removes the account and its profile together.
func (s *Service) HardDelete(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := s.start(ctx, "HardDelete")
	defer func() { finish(span, err) }()

	if err := s.policy.Authorize(actor, ActionHardDelete, id); err != nil {
		return err
	}
	var account models.Account
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		if account, err = tx.Accounts.FindByID(ctx, id); err != nil {
			return err
		}
		return tx.Accounts.HardDelete(ctx, id)
	})
	if err != nil {
		return storageErr(err)
	}
	s.publish(ctx, events.AccountHardDeleted, account)
	return nil
}
