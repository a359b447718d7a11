package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMessageRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewPostgresMessageRepository(db)

		mock.ExpectQuery("INSERT INTO messages").
			WithArgs(int32(5), int32(1), "when does it ship?").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

		msg := &models.Message{EscrowID: 5, SenderID: 1, Body: "when does it ship?"}
		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(1), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyBody", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewPostgresMessageRepository(db)

		err = repo.Create(ctx, &models.Message{EscrowID: 5, SenderID: 1})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestPostgresMessageRepository_ListByEscrow(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresMessageRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM messages").
		WithArgs(int32(5), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "escrow_id", "sender_id", "body", "created_at"}).
			AddRow(int64(3), int32(5), int32(2), "third", now))

	msgs, err := repo.ListByEscrow(ctx, 5, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "third", msgs[0].Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}
