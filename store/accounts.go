package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/digibiomics/LungSense-main/models"
	"github.com/google/uuid"
)

const accountColumns = `id, email, password_hash, first_name, last_name, role, status, created_at, updated_at`

// AccountStore owns the accounts table.
type AccountStore struct {
	conn
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (models.Account, error) {
	var (
		a                   models.Account
		firstName, lastName sql.NullString
		createdAt           int64
		updatedAt           int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &firstName, &lastName, &a.Role, &a.Status, &createdAt, &updatedAt); err != nil {
		return models.Account{}, err
	}
	a.FirstName = stringPtr(firstName)
	a.LastName = stringPtr(lastName)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

// Create inserts a new active account, assigning its id and timestamps. A
// duplicate email yields a *ConflictError.
func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	if strings.TrimSpace(a.Email) == "" {
		return errors.New("email is required")
	}
	if !a.Role.Valid() {
		return fmt.Errorf("invalid role %q", a.Role)
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(timePrecision)
	a.Status = models.StatusActive
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Email, a.PasswordHash, nullString(a.FirstName), nullString(a.LastName),
		string(a.Role), string(a.Status), toMillis(now), toMillis(now))
	if err != nil {
		return classify(ctx, fmt.Errorf("insert account: %w", err))
	}
	return nil
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (models.Account, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	a, err := scanAccount(s.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return models.Account{}, classify(ctx, err)
	}
	return a, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	a, err := scanAccount(s.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
	if err != nil {
		return models.Account{}, classify(ctx, err)
	}
	return a, nil
}

// List returns accounts oldest first. Soft-deleted rows are skipped unless
// filter.IncludeInactive is set.
func (s *AccountStore) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts`
	var (
		where []string
		args  []any
	)
	if filter.Role != nil {
		where = append(where, "role = ?")
		args = append(args, string(*filter.Role))
	}
	if !filter.IncludeInactive {
		where = append(where, "status = ?")
		args = append(args, string(models.StatusActive))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("list accounts: %w", err))
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("scan account: %w", err))
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// Update applies the non-nil fields of patch. An empty patch performs no write
// and leaves updated_at untouched.
func (s *AccountStore) Update(ctx context.Context, id string, patch models.AccountPatch) (models.Account, error) {
	if patch.Empty() {
		return s.FindByID(ctx, id)
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var (
		sets []string
		args []any
	)
	if patch.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *patch.FirstName)
	}
	if patch.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *patch.LastName)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Status != nil {
		if *patch.Status != models.StatusActive && *patch.Status != models.StatusSoftDeleted {
			return models.Account{}, fmt.Errorf("invalid status %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(s.now()), id)

	res, err := s.exec(ctx, "UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return models.Account{}, classify(ctx, fmt.Errorf("update account: %w", err))
	}
	if err := requireRow(ctx, res); err != nil {
		return models.Account{}, err
	}
	return s.FindByID(ctx, id)
}

// SetStatus moves the account to status. Setting the current status is a
// no-op that returns the unchanged row.
func (s *AccountStore) SetStatus(ctx context.Context, id string, status models.Status) (models.Account, error) {
	if status != models.StatusActive && status != models.StatusSoftDeleted {
		return models.Account{}, fmt.Errorf("invalid status %q", status)
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	_, err := s.exec(ctx, `UPDATE accounts SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		string(status), toMillis(s.now()), id, string(status))
	if err != nil {
		return models.Account{}, classify(ctx, fmt.Errorf("set account status: %w", err))
	}
	return s.FindByID(ctx, id)
}

func (s *AccountStore) SoftDelete(ctx context.Context, id string) (models.Account, error) {
	return s.SetStatus(ctx, id, models.StatusSoftDeleted)
}

func (s *AccountStore) Restore(ctx context.Context, id string) (models.Account, error) {
	return s.SetStatus(ctx, id, models.StatusActive)
}

func (s *AccountStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.exec(ctx, `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, toMillis(s.now()), id)
	if err != nil {
		return classify(ctx, fmt.Errorf("update password hash: %w", err))
	}
	return requireRow(ctx, res)
}

// HardDelete removes the account and any profile row that references it.
// Callers run it inside Store.WithTx so both deletes commit together.
func (s *AccountStore) HardDelete(ctx context.Context, id string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	profiles := &ProfileStore{conn: s.conn}
	if err := profiles.DeleteByAccountID(ctx, id); err != nil {
		return err
	}
	res, err := s.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return classify(ctx, fmt.Errorf("delete account: %w", err))
	}
	return requireRow(ctx, res)
}

func requireRow(ctx context.Context, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(ctx, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
