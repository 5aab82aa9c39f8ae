package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"havenlink/internal/identity/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists identities in PostgreSQL. All methods honor a
// transaction placed in the context by tx.SQLRunner.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier abstracts over *sql.DB and *sql.Tx.
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

const identityColumns = `id, email, display_name, role, profile_status, password_hash, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(identity.ID), identity.Email, identity.DisplayName,
		string(identity.Role), string(identity.ProfileStatus),
		identity.PasswordHash, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`,
		uuid.UUID(identityID))
	return scanIdentity(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = lower($1)`,
		email)
	return scanIdentity(row)
}

func (s *Postgres) ListByRole(ctx context.Context, role id.Role) ([]*models.Identity, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE role = $1 ORDER BY created_at`,
		string(role))
	if err != nil {
		return nil, fmt.Errorf("list identities by role: %w", err)
	}
	defer rows.Close()
	return scanIdentities(rows)
}

func (s *Postgres) ListByRoleAndStatus(ctx context.Context, role id.Role, status models.ProfileStatus) ([]*models.Identity, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE role = $1 AND profile_status = $2 ORDER BY created_at`,
		string(role), string(status))
	if err != nil {
		return nil, fmt.Errorf("list identities by role and status: %w", err)
	}
	defer rows.Close()
	return scanIdentities(rows)
}

// Execute locks the row FOR UPDATE, validates, mutates, and writes back.
// Runs in the ambient transaction when one is present, otherwise opens its
// own so the lock still covers validate-then-mutate.
func (s *Postgres) Execute(ctx context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error,
	mutate func(*models.Identity)) (*models.Identity, error) {

	if _, ok := tx.From(ctx); ok {
		return s.executeLocked(ctx, identityID, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin identity execute: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	identity, err := s.executeLocked(tx.WithTx(ctx, sqlTx), identityID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity execute: %w", err)
	}
	return identity, nil
}

func (s *Postgres) executeLocked(ctx context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error,
	mutate func(*models.Identity)) (*models.Identity, error) {

	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`,
		uuid.UUID(identityID))
	identity, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	if err := validate(identity); err != nil {
		return nil, err
	}
	mutate(identity)

	_, err = s.q(ctx).ExecContext(ctx, `
		UPDATE identities
		SET display_name = $2, profile_status = $3, updated_at = $4
		WHERE id = $1`,
		uuid.UUID(identity.ID), identity.DisplayName,
		string(identity.ProfileStatus), identity.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return identity, nil
}

func scanIdentity(row *sql.Row) (*models.Identity, error) {
	var identity models.Identity
	var identityID uuid.UUID
	var role, status string
	err := row.Scan(&identityID, &identity.Email, &identity.DisplayName,
		&role, &status, &identity.PasswordHash,
		&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	identity.ID = id.IdentityID(identityID)
	identity.Role = id.Role(role)
	identity.ProfileStatus = models.ProfileStatus(status)
	return &identity, nil
}

func scanIdentities(rows *sql.Rows) ([]*models.Identity, error) {
	var out []*models.Identity
	for rows.Next() {
		var identity models.Identity
		var identityID uuid.UUID
		var role, status string
		err := rows.Scan(&identityID, &identity.Email, &identity.DisplayName,
			&role, &status, &identity.PasswordHash,
			&identity.CreatedAt, &identity.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}
		identity.ID = id.IdentityID(identityID)
		identity.Role = id.Role(role)
		identity.ProfileStatus = models.ProfileStatus(status)
		out = append(out, &identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}
