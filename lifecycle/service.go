// Package lifecycle implements account signup, login and the
// active / soft-deleted / hard-deleted state machine on top of the store.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/digibiomics/LungSense-main/store"
	"github.com/digibiomics/LungSense-main/telemetry"
	"go.opentelemetry.io/otel/trace"
)

const (
	MinPasswordLength = 6
	TokenType         = "bearer"

	publishTimeout = 5 * time.Second
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Session is returned by signup and login.
type Session struct {
	Account     models.Account  `json:"account"`
	Profile     *models.Profile `json:"profile,omitempty"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
}

type Options struct {
	// EmailCaseInsensitive trims and lower-cases emails before they are
	// stored or looked up.
	EmailCaseInsensitive bool
	Policy               Policy
	Publisher            events.Publisher
	// TokenTTL of zero uses the token service default.
	TokenTTL time.Duration
}

type Service struct {
	store     *store.Store
	vault     *security.Vault
	tokens    *security.TokenService
	policy    Policy
	publisher events.Publisher
	foldEmail bool
	ttl       time.Duration
	tracer    trace.Tracer
}

func New(st *store.Store, vault *security.Vault, tokens *security.TokenService, opts Options) (*Service, error) {
	if st == nil || vault == nil || tokens == nil {
		return nil, errors.New("lifecycle: store, vault and token service are required")
	}
	if opts.Policy == nil {
		opts.Policy = AuthenticatedPolicy{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Service{
		store:     st,
		vault:     vault,
		tokens:    tokens,
		policy:    opts.Policy,
		publisher: opts.Publisher,
		foldEmail: opts.EmailCaseInsensitive,
		ttl:       opts.TokenTTL,
		tracer:    telemetry.Tracer("lifecycle"),
	}, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return storageErr(s.store.Ping(ctx))
}

func (s *Service) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "lifecycle."+op)
}

func finish(span trace.Span, err error) {
	telemetry.RecordError(span, err)
	span.End()
}

func (s *Service) canonicalEmail(email string) string {
	email = strings.TrimSpace(email)
	if s.foldEmail {
		email = strings.ToLower(email)
	}
	return email
}

func (s *Service) validateEmail(email string) (string, error) {
	email = s.canonicalEmail(email)
	if !emailRegex.MatchString(email) {
		return "", invalid("email", "must be a valid email address")
	}
	return email, nil
}

func validatePassword(field, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalid(field, "must be at least 6 characters")
	}
	return nil
}

func (s *Service) issue(account models.Account, profile *models.Profile) (Session, error) {
	token, expiresIn, err := s.tokens.Issue(account.ID, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Account:     account,
		Profile:     profile,
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   expiresIn,
	}, nil
}

// publish sends e once its change has committed. Delivery failures are
// logged and never fail the operation.
func (s *Service) publish(ctx context.Context, t events.Type, account models.Account) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.New(t, account.ID, string(account.Role))); err != nil {
		log.Printf("Failed to publish %s for account %s: %v", t, account.ID, err)
	}
}
