package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg == nil || msg.Body == "" {
		return pkgerrors.ErrInvalidInput
	}
	query := `INSERT INTO messages (escrow_id, sender_id, body)
		VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, msg.EscrowID, msg.SenderID, msg.Body).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) ListByEscrow(ctx context.Context, escrowID int32, sinceID int64) ([]models.Message, error) {
	query := `SELECT id, escrow_id, sender_id, body, created_at FROM messages
		WHERE escrow_id = $1 AND id > $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, escrowID, sinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.EscrowID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
