package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"havenlink/internal/profile/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists profiles in PostgreSQL. Host amenities and languages
// are text[] columns round-tripped through pq.Array.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) CreateSeeker(ctx context.Context, p *models.SeekerProfile) error {
	query := `
		INSERT INTO seeker_profiles
			(identity_id, family_size, has_children, has_pets,
			 current_location, desired_location, special_requirements,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identity_id) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.IdentityID), p.FamilySize, p.HasChildren, p.HasPets,
		p.CurrentLocation, p.DesiredLocation, p.SpecialRequirements,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create seeker profile: %w", err)
	}
	return conflictIfNoRows(res)
}

func (s *Postgres) CreateHost(ctx context.Context, p *models.HostProfile) error {
	query := `
		INSERT INTO host_profiles
			(identity_id, location, accommodation_type, capacity,
			 amenities, languages, available_from, description,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (identity_id) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.IdentityID), p.Location, string(p.AccommodationType), p.Capacity,
		pq.Array(p.Amenities), pq.Array(p.Languages), p.AvailableFrom, p.Description,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create host profile: %w", err)
	}
	return conflictIfNoRows(res)
}

func (s *Postgres) FindSeeker(ctx context.Context, identityID id.IdentityID) (*models.SeekerProfile, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT identity_id, family_size, has_children, has_pets,
		       current_location, desired_location, special_requirements,
		       created_at, updated_at
		FROM seeker_profiles WHERE identity_id = $1`,
		uuid.UUID(identityID))
	p, err := scanSeeker(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Postgres) FindHost(ctx context.Context, identityID id.IdentityID) (*models.HostProfile, error) {
	row := s.q(ctx).QueryRowContext(ctx, hostSelect+` WHERE identity_id = $1`,
		uuid.UUID(identityID))
	return scanHostRow(row)
}

func (s *Postgres) UpdateSeeker(ctx context.Context, p *models.SeekerProfile) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE seeker_profiles
		SET family_size = $2, has_children = $3, has_pets = $4,
		    current_location = $5, desired_location = $6,
		    special_requirements = $7, updated_at = $8
		WHERE identity_id = $1`,
		uuid.UUID(p.IdentityID), p.FamilySize, p.HasChildren, p.HasPets,
		p.CurrentLocation, p.DesiredLocation, p.SpecialRequirements, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update seeker profile: %w", err)
	}
	return notFoundIfNoRows(res)
}

func (s *Postgres) UpdateHost(ctx context.Context, p *models.HostProfile) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE host_profiles
		SET location = $2, accommodation_type = $3, capacity = $4,
		    amenities = $5, languages = $6, available_from = $7,
		    description = $8, updated_at = $9
		WHERE identity_id = $1`,
		uuid.UUID(p.IdentityID), p.Location, string(p.AccommodationType), p.Capacity,
		pq.Array(p.Amenities), pq.Array(p.Languages), p.AvailableFrom,
		p.Description, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update host profile: %w", err)
	}
	return notFoundIfNoRows(res)
}

func (s *Postgres) FindHostsByIdentityIDs(ctx context.Context, ids []id.IdentityID) (map[id.IdentityID]*models.HostProfile, error) {
	if len(ids) == 0 {
		return map[id.IdentityID]*models.HostProfile{}, nil
	}
	raw := make([]uuid.UUID, len(ids))
	for i, identityID := range ids {
		raw[i] = uuid.UUID(identityID)
	}
	rows, err := s.q(ctx).QueryContext(ctx,
		hostSelect+` WHERE identity_id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list host profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[id.IdentityID]*models.HostProfile, len(ids))
	for rows.Next() {
		p, err := scanHostRows(rows)
		if err != nil {
			return nil, err
		}
		out[p.IdentityID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate host profiles: %w", err)
	}
	return out, nil
}

func (s *Postgres) FindSeekersByIdentityIDs(ctx context.Context, ids []id.IdentityID) (map[id.IdentityID]*models.SeekerProfile, error) {
	if len(ids) == 0 {
		return map[id.IdentityID]*models.SeekerProfile{}, nil
	}
	raw := make([]uuid.UUID, len(ids))
	for i, identityID := range ids {
		raw[i] = uuid.UUID(identityID)
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT identity_id, family_size, has_children, has_pets,
		       current_location, desired_location, special_requirements,
		       created_at, updated_at
		FROM seeker_profiles WHERE identity_id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list seeker profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[id.IdentityID]*models.SeekerProfile, len(ids))
	for rows.Next() {
		var p models.SeekerProfile
		var identityID uuid.UUID
		err := rows.Scan(&identityID, &p.FamilySize, &p.HasChildren, &p.HasPets,
			&p.CurrentLocation, &p.DesiredLocation, &p.SpecialRequirements,
			&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan seeker profile: %w", err)
		}
		p.IdentityID = id.IdentityID(identityID)
		out[p.IdentityID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seeker profiles: %w", err)
	}
	return out, nil
}

const hostSelect = `
	SELECT identity_id, location, accommodation_type, capacity,
	       amenities, languages, available_from, description,
	       created_at, updated_at
	FROM host_profiles`

func scanSeeker(row *sql.Row) (*models.SeekerProfile, error) {
	var p models.SeekerProfile
	var identityID uuid.UUID
	err := row.Scan(&identityID, &p.FamilySize, &p.HasChildren, &p.HasPets,
		&p.CurrentLocation, &p.DesiredLocation, &p.SpecialRequirements,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan seeker profile: %w", err)
	}
	p.IdentityID = id.IdentityID(identityID)
	return &p, nil
}

func scanHostRow(row *sql.Row) (*models.HostProfile, error) {
	var p models.HostProfile
	var identityID uuid.UUID
	var accType string
	err := row.Scan(&identityID, &p.Location, &accType, &p.Capacity,
		pq.Array(&p.Amenities), pq.Array(&p.Languages),
		&p.AvailableFrom, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan host profile: %w", err)
	}
	p.IdentityID = id.IdentityID(identityID)
	p.AccommodationType = models.AccommodationType(accType)
	return &p, nil
}

func scanHostRows(rows *sql.Rows) (*models.HostProfile, error) {
	var p models.HostProfile
	var identityID uuid.UUID
	var accType string
	err := rows.Scan(&identityID, &p.Location, &accType, &p.Capacity,
		pq.Array(&p.Amenities), pq.Array(&p.Languages),
		&p.AvailableFrom, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan host profile: %w", err)
	}
	p.IdentityID = id.IdentityID(identityID)
	p.AccommodationType = models.AccommodationType(accType)
	return &p, nil
}

func conflictIfNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func notFoundIfNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
