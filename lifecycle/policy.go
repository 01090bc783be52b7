package lifecycle

import (
	"fmt"

	"github.com/digibiomics/LungSense-main/config"
	"github.com/digibiomics/LungSense-main/models"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	AccountID string
	Role      models.Role
}

func ActorFor(a models.Account) Actor {
	return Actor{AccountID: a.ID, Role: a.Role}
}

type Action string

const (
	ActionRead       Action = "read"
	ActionList       Action = "list"
	ActionUpdate     Action = "update"
	ActionSoftDelete Action = "soft_delete"
	ActionRestore    Action = "restore"
	ActionHardDelete Action = "hard_delete"
)

// Policy decides whether actor may perform action on the account targetID.
// targetID is empty for list actions.
type Policy interface {
	Authorize(actor Actor, action Action, targetID string) error
}

// AuthenticatedPolicy lets any authenticated caller act on any account. It
// keeps the existing behaviour; deployments that need isolation should use
// SelfPolicy.
type AuthenticatedPolicy struct{}

func (AuthenticatedPolicy) Authorize(actor Actor, _ Action, _ string) error {
	if actor.AccountID == "" {
		return ErrUnauthorized
	}
	return nil
}

// SelfPolicy restricts every action to the caller's own account.
type SelfPolicy struct{}

func (SelfPolicy) Authorize(actor Actor, _ Action, targetID string) error {
	if actor.AccountID == "" {
		return ErrUnauthorized
	}
	if targetID == "" || targetID != actor.AccountID {
		return ErrForbidden
	}
	return nil
}

// PolicyFor maps an AUTHZ_POLICY value onto a Policy.
func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", config.PolicyAuthenticated:
		return AuthenticatedPolicy{}, nil
	case config.PolicySelf:
		return SelfPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown authorization policy %q", name)
}
