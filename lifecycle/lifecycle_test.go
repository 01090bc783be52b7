package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/digibiomics/LungSense-main/config"
	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/digibiomics/LungSense-main/store"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *store.Store
	events *recordingPublisher
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	st, err := store.Open(config.Database{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "lifecycle.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		QueryTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	vault, err := security.NewVault(security.HashParams{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	tokens, err := security.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	pub := &recordingPublisher{}
	svc, err := New(st, vault, tokens, Options{EmailCaseInsensitive: true, Policy: policy, Publisher: pub})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, store: st, events: pub}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func (f *fixture) signupPatient(t *testing.T, email string) Session {
	t.Helper()
	sess, err := f.svc.SignupPatient(context.Background(), PatientSignup{Email: email, Password: "secretpw", FirstName: strPtr("Pat")})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return sess
}

func TestPatientSignupAndLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignupPatient(ctx, PatientSignup{
		Email:     "p1@example.com",
		Password:  "secretpw",
		FirstName: strPtr("Pat"),
		Birthdate: "29-02-2024",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess.AccessToken == "" || sess.TokenType != "bearer" || sess.ExpiresIn != 3600 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.Account.Role != models.RolePatient || sess.Profile == nil || sess.Profile.Patient == nil {
		t.Fatalf("expected patient account with profile, got %+v", sess)
	}
	if sess.Profile.Patient.Birthdate.String() != "29-02-2024" {
		t.Fatalf("unexpected birthdate %v", sess.Profile.Patient.Birthdate)
	}

	login, err := f.svc.Login(ctx, Credentials{Role: models.RolePatient, Email: "p1@example.com", Password: "secretpw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.AccessToken == "" || login.Account.ID != sess.Account.ID || login.Profile == nil {
		t.Fatalf("unexpected login session %+v", login)
	}

	_, wrongPassword := f.svc.Login(ctx, Credentials{Email: "p1@example.com", Password: "wrongpw"})
	_, unknownEmail := f.svc.Login(ctx, Credentials{Email: "nobody@example.com", Password: "secretpw"})
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected uniform invalid credentials, got %v / %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("login errors should not reveal account existence: %q vs %q", wrongPassword, unknownEmail)
	}

	if got := f.events.types(); len(got) != 1 || got[0] != events.AccountCreated {
		t.Fatalf("expected a single account.created event, got %v", got)
	}
}

func TestDuplicateEmailRejectedAcrossRoles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.signupPatient(t, "dup@example.com")

	_, err := f.svc.SignupPatient(ctx, PatientSignup{Email: "dup@example.com", Password: "secretpw"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email for same role, got %v", err)
	}
	_, err = f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "  DUP@example.com ", Password: "secretpw"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email across roles, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name          string
		in            PatientSignup
		field         string
		unprocessable bool
	}{
		{name: "short password", in: PatientSignup{Email: "a@example.com", Password: "12345"}, field: "password"},
		{name: "bad email", in: PatientSignup{Email: "not-an-email", Password: "secretpw"}, field: "email"},
		{name: "impossible date", in: PatientSignup{Email: "b@example.com", Password: "secretpw", Birthdate: "31-02-2024"}, field: "birthdate", unprocessable: true},
		{name: "wrong date layout", in: PatientSignup{Email: "c@example.com", Password: "secretpw", Birthdate: "2024-02-01"}, field: "birthdate", unprocessable: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SignupPatient(ctx, tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field || verr.Unprocessable != tc.unprocessable {
				t.Fatalf("unexpected validation error %+v", verr)
			}
		})
	}

	if _, err := f.store.Accounts().FindByEmail(ctx, "b@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no account after rejected birthdate, got %v", err)
	}
}

func TestPractitionerSignup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc1@example.com", Password: "secretpw"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	generated := sess.Profile.Practitioner.PractitionerID
	if !regexp.MustCompile(`^PR-[0-9A-F]{8}$`).MatchString(generated) {
		t.Fatalf("unexpected generated practitioner id %q", generated)
	}

	_, err = f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc1@example.com", Password: "secretpw"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestDuplicatePractitionerIDRollsBackSignup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc1@example.com", Password: "secretpw", PractitionerID: "PR-1"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc2@example.com", Password: "secretpw", PractitionerID: "PR-1"})
	if !errors.Is(err, ErrDuplicatePractitionerID) {
		t.Fatalf("expected duplicate practitioner id, got %v", err)
	}
	if _, err := f.store.Accounts().FindByEmail(ctx, "doc2@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected account creation rolled back, got %v", err)
	}
	if got := f.events.types(); len(got) != 1 {
		t.Fatalf("expected only the first signup to publish, got %v", got)
	}
}

func TestLoginChecks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc@example.com", Password: "secretpw", PractitionerID: "PR-7"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	cases := []struct {
		name string
		in   Credentials
		ok   bool
	}{
		{name: "plain", in: Credentials{Email: "doc@example.com", Password: "secretpw"}, ok: true},
		{name: "matching practitioner id", in: Credentials{Role: models.RolePractitioner, Email: "DOC@example.com", Password: "secretpw", PractitionerID: "PR-7"}, ok: true},
		{name: "wrong practitioner id", in: Credentials{Email: "doc@example.com", Password: "secretpw", PractitionerID: "PR-8"}},
		{name: "wrong role route", in: Credentials{Role: models.RolePatient, Email: "doc@example.com", Password: "secretpw"}},
		{name: "wrong password", in: Credentials{Email: "doc@example.com", Password: "secretpx"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected login to succeed, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
		})
	}
}

func TestLoginRejectsSoftDeletedAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess := f.signupPatient(t, "gone@example.com")
	actor := ActorFor(sess.Account)

	if _, err := f.svc.SoftDelete(ctx, actor, sess.Account.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := f.svc.Login(ctx, Credentials{Email: "gone@example.com", Password: "secretpw"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := f.svc.Restore(ctx, actor, sess.Account.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := f.svc.Login(ctx, Credentials{Email: "gone@example.com", Password: "secretpw"}); err != nil {
		t.Fatalf("expected login after restore, got %v", err)
	}
}

func TestLoginRehashesLegacyBcrypt(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("secretpw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	a := models.Account{Email: "old@example.com", PasswordHash: string(legacy), Role: models.RolePatient}
	if err := f.store.Accounts().Create(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := f.svc.Login(ctx, Credentials{Email: "old@example.com", Password: "secretpw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Profile != nil {
		t.Fatalf("expected no profile for bare account, got %+v", sess.Profile)
	}
	stored, err := f.store.Accounts().FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("expected hash upgraded to argon2id, got %q", stored.PasswordHash[:7])
	}
	if _, err := f.svc.Login(ctx, Credentials{Email: "old@example.com", Password: "secretpw"}); err != nil {
		t.Fatalf("login with upgraded hash: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess := f.signupPatient(t, "auth@example.com")

	account, err := f.svc.Authenticate(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if account.ID != sess.Account.ID {
		t.Fatalf("expected %s, got %s", sess.Account.ID, account.ID)
	}

	if _, err := f.svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}

	actor := ActorFor(sess.Account)
	if _, err := f.svc.SoftDelete(ctx, actor, sess.Account.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, sess.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for soft-deleted account, got %v", err)
	}

	if err := f.svc.HardDelete(ctx, actor, sess.Account.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, sess.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for removed account, got %v", err)
	}
}

func TestSoftDeleteAndRestoreAreIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess := f.signupPatient(t, "idem@example.com")
	actor := ActorFor(sess.Account)
	id := sess.Account.ID

	restored, err := f.svc.Restore(ctx, actor, id)
	if err != nil {
		t.Fatalf("restore active account: %v", err)
	}
	if !restored.UpdatedAt.Equal(sess.Account.UpdatedAt) || restored.Status != models.StatusActive {
		t.Fatalf("restore of active account should be a no-op, got %+v", restored)
	}

	first, err := f.svc.SoftDelete(ctx, actor, id)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	second, err := f.svc.SoftDelete(ctx, actor, id)
	if err != nil {
		t.Fatalf("second soft delete: %v", err)
	}
	if second.Status != models.StatusSoftDeleted || !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("second soft delete should be a no-op: %+v vs %+v", second, first)
	}

	want := []events.Type{events.AccountCreated, events.AccountSoftDeleted}
	if got := f.events.types(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}

	for _, op := range []func(context.Context, Actor, string) (models.Account, error){f.svc.SoftDelete, f.svc.Restore} {
		if _, err := op(ctx, actor, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
}

func TestHardDeleteRemovesAccountAndProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess := f.signupPatient(t, "hard@example.com")
	actor := ActorFor(sess.Account)

	if err := f.svc.HardDelete(ctx, actor, sess.Account.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := f.svc.GetAccount(ctx, actor, sess.Account.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected account gone, got %v", err)
	}
	if _, err := f.svc.GetProfile(ctx, actor, sess.Account.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected profile gone, got %v", err)
	}
	if err := f.svc.HardDelete(ctx, actor, sess.Account.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on repeat, got %v", err)
	}
	if got := f.events.types(); got[len(got)-1] != events.AccountHardDeleted {
		t.Fatalf("expected account.hard_deleted last, got %v", got)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	patient := f.signupPatient(t, "pat@example.com")
	f.signupPatient(t, "taken@example.com")
	actor := ActorFor(patient.Account)
	id := patient.Account.ID

	same, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if !same.UpdatedAt.Equal(patient.Account.UpdatedAt) {
		t.Fatalf("empty patch changed updated_at: %v vs %v", same.UpdatedAt, patient.Account.UpdatedAt)
	}
	if _, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{IsActive: boolPtr(true)}); err != nil {
		t.Fatalf("restating is_active: %v", err)
	}

	updated, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{LastName: strPtr("Smith"), Email: strPtr(" Pat.New@Example.com")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "pat.new@example.com" || updated.LastName == nil || *updated.LastName != "Smith" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if _, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{Email: strPtr("taken@example.com")}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	var verr *ValidationError
	if _, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{Institution: strPtr("General")}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for practitioner fields on patient, got %v", err)
	}

	deactivated, err := f.svc.UpdateProfile(ctx, actor, id, ProfilePatch{IsActive: boolPtr(false)})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Status != models.StatusSoftDeleted {
		t.Fatalf("expected is_active=false to soft delete, got %s", deactivated.Status)
	}

	if _, err := f.svc.UpdateProfile(ctx, actor, "missing", ProfilePatch{LastName: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePractitionerFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc@example.com", Password: "secretpw", PractitionerID: "PR-1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := f.svc.SignupPractitioner(ctx, PractitionerSignup{Email: "doc2@example.com", Password: "secretpw", PractitionerID: "PR-2"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	actor := ActorFor(sess.Account)

	if _, err := f.svc.UpdateProfile(ctx, actor, sess.Account.ID, ProfilePatch{Institution: strPtr("General"), PractitionerID: strPtr("PR-9")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, err := f.svc.GetProfile(ctx, actor, sess.Account.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Practitioner.PractitionerID != "PR-9" || *profile.Practitioner.Institution != "General" {
		t.Fatalf("unexpected profile %+v", profile.Practitioner)
	}

	if _, err := f.svc.UpdateProfile(ctx, actor, sess.Account.ID, ProfilePatch{PractitionerID: strPtr("PR-2")}); !errors.Is(err, ErrDuplicatePractitionerID) {
		t.Fatalf("expected duplicate practitioner id, got %v", err)
	}
}

func TestSelfPolicy(t *testing.T) {
	f := newFixture(t, SelfPolicy{})
	ctx := context.Background()
	alice := f.signupPatient(t, "alice@example.com")
	bob := f.signupPatient(t, "bob@example.com")
	actor := ActorFor(alice.Account)

	if _, err := f.svc.SoftDelete(ctx, actor, bob.Account.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.ListAccounts(ctx, actor, models.AccountFilter{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden list, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, actor, alice.Account.ID, ProfilePatch{LastName: strPtr("A")}); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if _, err := f.svc.GetAccount(ctx, Actor{}, alice.Account.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for anonymous actor, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sess := f.signupPatient(t, "pw@example.com")
	actor := ActorFor(sess.Account)

	if err := f.svc.ChangePassword(ctx, actor, "wrongpw", "newsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	var verr *ValidationError
	if err := f.svc.ChangePassword(ctx, actor, "secretpw", "short"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, actor, "secretpw", "newsecret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Login(ctx, Credentials{Email: "pw@example.com", Password: "newsecret"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestListAccountsAndProfiles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.signupPatient(t, "a@example.com")
	f.signupPatient(t, "b@example.com")
	actor := ActorFor(a.Account)
	if _, err := f.svc.SoftDelete(ctx, actor, a.Account.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	active, err := f.svc.ListAccounts(ctx, actor, models.AccountFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active account, got %d", len(active))
	}
	profiles, err := f.svc.ListProfiles(ctx, actor, 0, 10)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
}

func TestPublishFailureDoesNotFailSignup(t *testing.T) {
	f := newFixture(t, nil)
	f.events.err = errors.New("broker down")
	f.signupPatient(t, "pub@example.com")
}

func TestStorageErrMapping(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{in: store.ErrNotFound, want: ErrNotFound},
		{in: fmt.Errorf("%w: deadline", store.ErrTimeout), want: ErrStorageTimeout},
		{in: fmt.Errorf("%w: refused", store.ErrUnavailable), want: ErrStorageUnavailable},
		{in: &store.ConflictError{Table: "accounts", Column: "email"}, want: ErrDuplicateEmail},
		{in: &store.ConflictError{Table: "practitioner_profiles", Column: "practitioner_id"}, want: ErrDuplicatePractitionerID},
		{in: &store.ConflictError{Table: "accounts", Column: "id"}, want: ErrStorageUnavailable},
		{in: ErrForbidden, want: ErrForbidden},
	}
	for _, tc := range cases {
		if got := storageErr(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("storageErr(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if storageErr(nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestPolicyFor(t *testing.T) {
	if p, err := PolicyFor(""); err != nil || p != (AuthenticatedPolicy{}) {
		t.Fatalf("expected default policy, got %v %v", p, err)
	}
	if p, err := PolicyFor("self"); err != nil || p != (SelfPolicy{}) {
		t.Fatalf("expected self policy, got %v %v", p, err)
	}
	if _, err := PolicyFor("admin"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
