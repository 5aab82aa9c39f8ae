package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"havenlink/internal/notification/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists notifications in PostgreSQL.
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

const columns = `id, recipient_id, title, content, category, read, created_at, read_at`

func (s *Postgres) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.RecipientID), n.Title, n.Content,
		string(n.Category), n.Read, n.CreatedAt, n.ReadAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *Postgres) ListByRecipient(ctx context.Context, recipientID id.IdentityID) ([]*models.Notification, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM notifications
		 WHERE recipient_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(recipientID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *Postgres) CountUnread(ctx context.Context, recipientID id.IdentityID) (int, error) {
	var count int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND read = false`,
		uuid.UUID(recipientID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// Execute locks the row FOR UPDATE, validates, mutates, writes back.
func (s *Postgres) Execute(ctx context.Context, notificationID id.NotificationID,
	validate func(*models.Notification) error,
	mutate func(*models.Notification)) (*models.Notification, error) {

	sqlTx, owned, err := beginOrJoin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if owned {
		defer func() { _ = sqlTx.Rollback() }()
	}

	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+columns+` FROM notifications WHERE id = $1 FOR UPDATE`,
		uuid.UUID(notificationID))
	n, err := scanRow(row)
	if err != nil {
		return nil, err
	}
	if err := validate(n); err != nil {
		return nil, err
	}
	mutate(n)

	_, err = sqlTx.ExecContext(ctx,
		`UPDATE notifications SET read = $2, read_at = $3 WHERE id = $1`,
		uuid.UUID(n.ID), n.Read, n.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}

	if owned {
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit notification update: %w", err)
		}
	}
	return n, nil
}

func beginOrJoin(ctx context.Context, db *sql.DB) (*sql.Tx, bool, error) {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx, false, nil
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin notification update: %w", err)
	}
	return sqlTx, true, nil
}

func scanRow(row *sql.Row) (*models.Notification, error) {
	var n models.Notification
	var notificationID, recipientID uuid.UUID
	var category string
	err := row.Scan(&notificationID, &recipientID, &n.Title, &n.Content,
		&category, &n.Read, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.ID = id.NotificationID(notificationID)
	n.RecipientID = id.IdentityID(recipientID)
	n.Category = models.Category(category)
	return &n, nil
}

func scan(rows *sql.Rows) (*models.Notification, error) {
	var n models.Notification
	var notificationID, recipientID uuid.UUID
	var category string
	err := rows.Scan(&notificationID, &recipientID, &n.Title, &n.Content,
		&category, &n.Read, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.ID = id.NotificationID(notificationID)
	n.RecipientID = id.IdentityID(recipientID)
	n.Category = models.Category(category)
	return &n, nil
}
