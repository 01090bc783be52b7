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

const (
	// MaxProfilePage caps List's limit.
	MaxProfilePage = 100

	patientColumns      = `id, account_id, country, province, ethnicity, birthdate, sex, practitioner_name, consent, created_at, updated_at`
	practitionerColumns = `id, account_id, practitioner_id, institution, institution_location, consent, created_at, updated_at`
)

// profileUnion lists both profile tables with a shared column layout. The
// %s placeholders take an optional per-branch WHERE clause.
const profileUnion = `
	SELECT 'patient' AS role, id, account_id, country, province, ethnicity, birthdate, sex, practitioner_name,
		NULL AS practitioner_id, NULL AS institution, NULL AS institution_location, consent, created_at, updated_at
	FROM patient_profiles %s
	UNION ALL
	SELECT 'practitioner' AS role, id, account_id, NULL, NULL, NULL, NULL, NULL, NULL,
		practitioner_id, institution, institution_location, consent, created_at, updated_at
	FROM practitioner_profiles %s`

// ProfileStore owns the patient_profiles and practitioner_profiles tables.
// Profiles are always reached through their account_id foreign key.
type ProfileStore struct {
	conn
}

func (s *ProfileStore) CreatePatient(ctx context.Context, p *models.PatientProfile) error {
	if p.AccountID == "" {
		return errors.New("account id is required")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(timePrecision)
	p.CreatedAt, p.UpdatedAt = now, now

	var birthdate sql.NullString
	if p.Birthdate != nil {
		birthdate = sql.NullString{String: p.Birthdate.StorageString(), Valid: true}
	}
	_, err := s.exec(ctx, `
		INSERT INTO patient_profiles (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.AccountID, nullString(p.Country), nullString(p.Province), nullString(p.Ethnicity), birthdate,
		nullString(p.Sex), nullString(p.PractitionerName), p.Consent, toMillis(now), toMillis(now))
	if err != nil {
		return classify(ctx, fmt.Errorf("insert patient profile: %w", err))
	}
	return nil
}

func (s *ProfileStore) CreatePractitioner(ctx context.Context, p *models.PractitionerProfile) error {
	if p.AccountID == "" {
		return errors.New("account id is required")
	}
	if strings.TrimSpace(p.PractitionerID) == "" {
		return errors.New("practitioner id is required")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(timePrecision)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.exec(ctx, `
		INSERT INTO practitioner_profiles (`+practitionerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.AccountID, p.PractitionerID, nullString(p.Institution), nullString(p.InstitutionLocation),
		p.Consent, toMillis(now), toMillis(now))
	if err != nil {
		return classify(ctx, fmt.Errorf("insert practitioner profile: %w", err))
	}
	return nil
}

func scanProfile(row scanner) (models.Profile, error) {
	var (
		role                                       models.Role
		id, accountID                              string
		country, province, ethnicity, birthdate    sql.NullString
		sex, practitionerName                      sql.NullString
		practitionerID, institution, institutionAt sql.NullString
		consent                                    bool
		createdAt, updatedAt                       int64
	)
	if err := row.Scan(&role, &id, &accountID, &country, &province, &ethnicity, &birthdate, &sex, &practitionerName,
		&practitionerID, &institution, &institutionAt, &consent, &createdAt, &updatedAt); err != nil {
		return models.Profile{}, err
	}

	out := models.Profile{Role: role}
	switch role {
	case models.RolePatient:
		p := &models.PatientProfile{
			ID:               id,
			AccountID:        accountID,
			Country:          stringPtr(country),
			Province:         stringPtr(province),
			Ethnicity:        stringPtr(ethnicity),
			Sex:              stringPtr(sex),
			PractitionerName: stringPtr(practitionerName),
			Consent:          consent,
			CreatedAt:        fromMillis(createdAt),
			UpdatedAt:        fromMillis(updatedAt),
		}
		if birthdate.Valid {
			d, err := models.ParseStorageDate(birthdate.String)
			if err != nil {
				return models.Profile{}, fmt.Errorf("parse stored birthdate: %w", err)
			}
			p.Birthdate = &d
		}
		out.Patient = p
	case models.RolePractitioner:
		out.Practitioner = &models.PractitionerProfile{
			ID:                  id,
			AccountID:           accountID,
			PractitionerID:      practitionerID.String,
			Institution:         stringPtr(institution),
			InstitutionLocation: stringPtr(institutionAt),
			Consent:             consent,
			CreatedAt:           fromMillis(createdAt),
			UpdatedAt:           fromMillis(updatedAt),
		}
	default:
		return models.Profile{}, fmt.Errorf("unknown profile role %q", role)
	}
	return out, nil
}

// FindByAccountID returns the single profile that belongs to accountID.
func (s *ProfileStore) FindByAccountID(ctx context.Context, accountID string) (models.Profile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	query := fmt.Sprintf(profileUnion, "WHERE account_id = ?", "WHERE account_id = ?")
	p, err := scanProfile(s.queryRow(ctx, query, accountID, accountID))
	if err != nil {
		return models.Profile{}, classify(ctx, err)
	}
	return p, nil
}

func (s *ProfileStore) FindPractitionerByExternalID(ctx context.Context, practitionerID string) (models.PractitionerProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	query := fmt.Sprintf(profileUnion, "WHERE 1 = 0", "WHERE practitioner_id = ?")
	p, err := scanProfile(s.queryRow(ctx, query, practitionerID))
	if err != nil {
		return models.PractitionerProfile{}, classify(ctx, err)
	}
	return *p.Practitioner, nil
}

// List pages through all profiles oldest first. limit is clamped to
// [1, MaxProfilePage]; there is no total count.
func (s *ProfileStore) List(ctx context.Context, skip, limit int) ([]models.Profile, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > MaxProfilePage {
		limit = MaxProfilePage
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	query := `SELECT * FROM (` + fmt.Sprintf(profileUnion, "", "") + `) profiles ORDER BY created_at, id LIMIT ? OFFSET ?`
	rows, err := s.query(ctx, query, limit, skip)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("list profiles: %w", err))
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("scan profile: %w", err))
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, fmt.Errorf("list profiles: %w", err))
	}
	return profiles, nil
}

// UpdatePractitioner applies the non-nil fields of patch to the practitioner
// profile of accountID. An empty patch performs no write.
func (s *ProfileStore) UpdatePractitioner(ctx context.Context, accountID string, patch models.PractitionerPatch) (models.PractitionerProfile, error) {
	if !patch.Empty() {
		if err := s.updatePractitioner(ctx, accountID, patch); err != nil {
			return models.PractitionerProfile{}, err
		}
	}
	p, err := s.FindByAccountID(ctx, accountID)
	if err != nil {
		return models.PractitionerProfile{}, err
	}
	if p.Practitioner == nil {
		return models.PractitionerProfile{}, ErrNotFound
	}
	return *p.Practitioner, nil
}

func (s *ProfileStore) updatePractitioner(ctx context.Context, accountID string, patch models.PractitionerPatch) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var (
		sets []string
		args []any
	)
	if patch.PractitionerID != nil {
		sets = append(sets, "practitioner_id = ?")
		args = append(args, *patch.PractitionerID)
	}
	if patch.Institution != nil {
		sets = append(sets, "institution = ?")
		args = append(args, *patch.Institution)
	}
	if patch.InstitutionLocation != nil {
		sets = append(sets, "institution_location = ?")
		args = append(args, *patch.InstitutionLocation)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(s.now()), accountID)

	res, err := s.exec(ctx, "UPDATE practitioner_profiles SET "+strings.Join(sets, ", ")+" WHERE account_id = ?", args...)
	if err != nil {
		return classify(ctx, fmt.Errorf("update practitioner profile: %w", err))
	}
	return requireRow(ctx, res)
}

// DeleteByAccountID removes whichever profile row references accountID.
func (s *ProfileStore) DeleteByAccountID(ctx context.Context, accountID string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	for _, table := range []string{"patient_profiles", "practitioner_profiles"} {
		if _, err := s.exec(ctx, "DELETE FROM "+table+" WHERE account_id = ?", accountID); err != nil {
			return classify(ctx, fmt.Errorf("delete %s: %w", table, err))
		}
	}
	return nil
}
