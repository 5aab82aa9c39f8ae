package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"havenlink/internal/messaging/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists messages in PostgreSQL.
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

const columns = `id, sender_id, recipient_id, content, status, created_at, read_at`

func (s *Postgres) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.SenderID), uuid.UUID(m.RecipientID),
		m.Content, string(m.Status), m.CreatedAt, m.ReadAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, messageID id.MessageID) (*models.Message, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+columns+` FROM messages WHERE id = $1`,
		uuid.UUID(messageID))
	return scanRow(row)
}

// ListConversation returns the messages exchanged between the pair in
// either direction, oldest first.
func (s *Postgres) ListConversation(ctx context.Context, a, b id.IdentityID) ([]*models.Message, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM messages
		 WHERE (sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY created_at ASC`,
		uuid.UUID(a), uuid.UUID(b))
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return collect(rows)
}

func (s *Postgres) ListByParticipant(ctx context.Context, identityID id.IdentityID) ([]*models.Message, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM messages
		 WHERE sender_id = $1 OR recipient_id = $1
		 ORDER BY created_at ASC`,
		uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return collect(rows)
}

// Execute locks the row FOR UPDATE, validates, mutates, writes back.
func (s *Postgres) Execute(ctx context.Context, messageID id.MessageID,
	validate func(*models.Message) error,
	mutate func(*models.Message)) (*models.Message, error) {

	sqlTx, owned, err := beginOrJoin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if owned {
		defer func() { _ = sqlTx.Rollback() }()
	}

	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+columns+` FROM messages WHERE id = $1 FOR UPDATE`,
		uuid.UUID(messageID))
	m, err := scanRow(row)
	if err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)

	_, err = sqlTx.ExecContext(ctx,
		`UPDATE messages SET status = $2, read_at = $3 WHERE id = $1`,
		uuid.UUID(m.ID), string(m.Status), m.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	if owned {
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit message update: %w", err)
		}
	}
	return m, nil
}

func beginOrJoin(ctx context.Context, db *sql.DB) (*sql.Tx, bool, error) {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx, false, nil
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin message update: %w", err)
	}
	return sqlTx, true, nil
}

func collect(rows *sql.Rows) ([]*models.Message, error) {
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func scanRow(row *sql.Row) (*models.Message, error) {
	var m models.Message
	var messageID, senderID, recipientID uuid.UUID
	var status string
	err := row.Scan(&messageID, &senderID, &recipientID,
		&m.Content, &status, &m.CreatedAt, &m.ReadAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.ID = id.MessageID(messageID)
	m.SenderID = id.IdentityID(senderID)
	m.RecipientID = id.IdentityID(recipientID)
	m.Status = models.DeliveryStatus(status)
	return &m, nil
}

func scan(rows *sql.Rows) (*models.Message, error) {
	var m models.Message
	var messageID, senderID, recipientID uuid.UUID
	var status string
	err := rows.Scan(&messageID, &senderID, &recipientID,
		&m.Content, &status, &m.CreatedAt, &m.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.ID = id.MessageID(messageID)
	m.SenderID = id.IdentityID(senderID)
	m.RecipientID = id.IdentityID(recipientID)
	m.Status = models.DeliveryStatus(status)
	return &m, nil
}
