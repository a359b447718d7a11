package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/safehold/escrowpay/internal/infrastructure/observability"
	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresEscrowRepository struct {
	db *sql.DB
}

func NewPostgresEscrowRepository(db *sql.DB) *PostgresEscrowRepository {
	return &PostgresEscrowRepository{db: db}
}

const escrowColumns = `id, reference, title, description, amount, currency, status,
	buyer_id, seller_id,
	buyer_fee, buyer_pays, seller_fee, seller_receives, platform_fee,
	payment_method, payment_reference, paid_at,
	disputed, dispute_reason, dispute_raised_by, dispute_raised_at,
	created_at, updated_at`

func (r *PostgresEscrowRepository) Create(ctx context.Context, escrow *models.Escrow) error {
	var err error
	tracer := otel.Tracer("escrow-repository")
	ctx, span := tracer.Start(ctx, "CreateEscrow")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateEscrow", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateEscrow").Observe(time.Since(start).Seconds())
	}()

	if escrow == nil {
		err = pkgerrors.ErrInvalidInput
		return err
	}
	if escrow.Title == "" || escrow.Amount <= 0 || escrow.BuyerID == escrow.SellerID {
		err = pkgerrors.ErrInvalidInput
		slog.Error("invalid escrow", "method", "Create", "title", escrow.Title, "amount", escrow.Amount, "error", err)
		return err
	}
	if escrow.Payment == nil {
		err = fmt.Errorf("escrow payment breakdown is required")
		return err
	}

	span.SetAttributes(
		attribute.String("reference", escrow.Reference),
		attribute.Int("buyer_id", int(escrow.BuyerID)),
		attribute.Int("seller_id", int(escrow.SellerID)),
		attribute.Int64("amount", escrow.Amount),
		attribute.String("currency", escrow.Currency),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO escrows
		(reference, title, description, amount, currency, status, buyer_id, seller_id,
		 buyer_fee, buyer_pays, seller_fee, seller_receives, platform_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	err = dbTx.QueryRowContext(ctx, query,
		escrow.Reference, escrow.Title, escrow.Description, escrow.Amount, escrow.Currency,
		escrow.Status, escrow.BuyerID, escrow.SellerID,
		escrow.Payment.BuyerFee, escrow.Payment.BuyerPays, escrow.Payment.SellerFee,
		escrow.Payment.SellerReceives, escrow.Payment.PlatformFee,
	).Scan(&escrow.ID, &escrow.CreatedAt, &escrow.UpdatedAt)
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "Create", "error", rbErr)
		}
		slog.Error("failed to create escrow", "method", "Create", "reference", escrow.Reference, "error", err)
		return fmt.Errorf("failed to create escrow: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO escrow_timeline (escrow_id, status) VALUES ($1, $2)`,
		escrow.ID, escrow.Status)
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "Create", "error", rbErr)
		}
		slog.Error("failed to create timeline entry", "method", "Create", "escrow_id", escrow.ID, "error", err)
		return fmt.Errorf("failed to create timeline entry: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	escrow.Timeline = []models.TimelineEntry{{Status: escrow.Status, Timestamp: escrow.CreatedAt}}
	slog.Info("escrow created", "method", "Create", "id", escrow.ID, "reference", escrow.Reference,
		"buyer_id", escrow.BuyerID, "seller_id", escrow.SellerID, "amount", escrow.Amount)
	return nil
}

func (r *PostgresEscrowRepository) scanEscrow(row *sql.Row) (*models.Escrow, error) {
	var e models.Escrow
	var payment models.Payment
	var method, paymentRef, disputeReason sql.NullString
	var paidAt, disputeRaisedAt sql.NullTime
	var disputeRaisedBy sql.NullInt32
	var disputed bool

	err := row.Scan(
		&e.ID, &e.Reference, &e.Title, &e.Description, &e.Amount, &e.Currency, &e.Status,
		&e.BuyerID, &e.SellerID,
		&payment.BuyerFee, &payment.BuyerPays, &payment.SellerFee, &payment.SellerReceives, &payment.PlatformFee,
		&method, &paymentRef, &paidAt,
		&disputed, &disputeReason, &disputeRaisedBy, &disputeRaisedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount = e.Amount
	payment.Method = method.String
	payment.Reference = paymentRef.String
	if paidAt.Valid {
		t := paidAt.Time
		payment.PaidAt = &t
	}
	e.Payment = &payment

	if disputed {
		d := models.Dispute{IsDisputed: true, Reason: disputeReason.String, RaisedBy: disputeRaisedBy.Int32}
		if disputeRaisedAt.Valid {
			t := disputeRaisedAt.Time
			d.RaisedAt = &t
		}
		e.Dispute = &d
	}
	return &e, nil
}

func (r *PostgresEscrowRepository) loadTimeline(ctx context.Context, escrowID int32) ([]models.TimelineEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, created_at FROM escrow_timeline WHERE escrow_id = $1 ORDER BY id`, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timeline []models.TimelineEntry
	for rows.Next() {
		var entry models.TimelineEntry
		if err := rows.Scan(&entry.Status, &entry.Timestamp); err != nil {
			return nil, err
		}
		timeline = append(timeline, entry)
	}
	return timeline, rows.Err()
}

func (r *PostgresEscrowRepository) GetByID(ctx context.Context, id int32) (*models.Escrow, error) {
	var err error
	tracer := otel.Tracer("escrow-repository")
	ctx, span := tracer.Start(ctx, "GetEscrowByID")
	span.SetAttributes(attribute.Int("escrow_id", int(id)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetEscrowByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetEscrowByID").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE id = $1`
	escrow, scanErr := r.scanEscrow(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(scanErr, sql.ErrNoRows) {
		err = pkgerrors.ErrEscrowNotFound
		return nil, err
	}
	if scanErr != nil {
		err = fmt.Errorf("failed to get escrow by id: %w", scanErr)
		slog.Error("failed to get escrow", "method", "GetByID", "escrow_id", id, "error", err)
		return nil, err
	}

	timeline, tlErr := r.loadTimeline(ctx, id)
	if tlErr != nil {
		err = fmt.Errorf("failed to load timeline: %w", tlErr)
		slog.Error("failed to load timeline", "method", "GetByID", "escrow_id", id, "error", err)
		return nil, err
	}
	escrow.Timeline = timeline
	return escrow, nil
}

func (r *PostgresEscrowRepository) GetByReference(ctx context.Context, reference string) (*models.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE reference = $1`
	escrow, err := r.scanEscrow(r.db.QueryRowContext(ctx, query, reference))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow by reference: %w", err)
	}
	timeline, err := r.loadTimeline(ctx, escrow.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	escrow.Timeline = timeline
	return escrow, nil
}

func (r *PostgresEscrowRepository) ListByUser(ctx context.Context, userID int32) ([]models.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows
		WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escrows: %w", err)
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		var e models.Escrow
		var payment models.Payment
		var method, paymentRef, disputeReason sql.NullString
		var paidAt, disputeRaisedAt sql.NullTime
		var disputeRaisedBy sql.NullInt32
		var disputed bool

		if err := rows.Scan(
			&e.ID, &e.Reference, &e.Title, &e.Description, &e.Amount, &e.Currency, &e.Status,
			&e.BuyerID, &e.SellerID,
			&payment.BuyerFee, &payment.BuyerPays, &payment.SellerFee, &payment.SellerReceives, &payment.PlatformFee,
			&method, &paymentRef, &paidAt,
			&disputed, &disputeReason, &disputeRaisedBy, &disputeRaisedAt,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan escrow: %w", err)
		}
		payment.Amount = e.Amount
		payment.Method = method.String
		payment.Reference = paymentRef.String
		if paidAt.Valid {
			t := paidAt.Time
			payment.PaidAt = &t
		}
		e.Payment = &payment
		if disputed {
			e.Dispute = &models.Dispute{IsDisputed: true, Reason: disputeReason.String, RaisedBy: disputeRaisedBy.Int32}
		}
		escrows = append(escrows, e)
	}
	return escrows, rows.Err()
}

func (r *PostgresEscrowRepository) UpdateStatus(ctx context.Context, id int32, from, to models.EscrowStatus) error {
	var err error
	tracer := otel.Tracer("escrow-repository")
	ctx, span := tracer.Start(ctx, "UpdateEscrowStatus")
	span.SetAttributes(
		attribute.Int("escrow_id", int(id)),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdateEscrowStatus", status).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdateEscrowStatus").Observe(time.Since(start).Seconds())
	}()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "UpdateStatus", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Status predicate in the WHERE clause: a stale writer updates zero rows.
	res, err := dbTx.ExecContext(ctx,
		`UPDATE escrows SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "UpdateStatus", "error", rbErr)
		}
		slog.Error("failed to update status", "method", "UpdateStatus", "escrow_id", id, "error", err)
		return fmt.Errorf("failed to update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "UpdateStatus", "error", rbErr)
		}
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "UpdateStatus", "error", rbErr)
		}
		err = pkgerrors.ErrStaleStatus
		slog.Warn("stale status update", "method", "UpdateStatus", "escrow_id", id, "from", from, "to", to)
		return err
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO escrow_timeline (escrow_id, status) VALUES ($1, $2)`, id, to)
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "UpdateStatus", "error", rbErr)
		}
		slog.Error("failed to append timeline", "method", "UpdateStatus", "escrow_id", id, "error", err)
		return fmt.Errorf("failed to append timeline: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "UpdateStatus", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.EscrowTransitions.WithLabelValues(string(from), string(to)).Inc()
	slog.Info("escrow status updated", "method", "UpdateStatus", "escrow_id", id, "from", from, "to", to)
	return nil
}

func (r *PostgresEscrowRepository) SetPayment(ctx context.Context, id int32, payment *models.Payment) error {
	if payment == nil {
		return pkgerrors.ErrInvalidInput
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE escrows SET payment_method = $1, payment_reference = $2, paid_at = $3, updated_at = NOW()
		 WHERE id = $4`,
		payment.Method, payment.Reference, payment.PaidAt, id)
	if err != nil {
		slog.Error("failed to set payment", "method", "SetPayment", "escrow_id", id, "error", err)
		return fmt.Errorf("failed to set payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrEscrowNotFound
	}
	slog.Info("payment recorded", "method", "SetPayment", "escrow_id", id, "reference", payment.Reference)
	return nil
}

func (r *PostgresEscrowRepository) SetDispute(ctx context.Context, id int32, dispute *models.Dispute) error {
	if dispute == nil {
		return pkgerrors.ErrInvalidInput
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE escrows SET disputed = TRUE, dispute_reason = $1, dispute_raised_by = $2,
		 dispute_raised_at = NOW(), updated_at = NOW() WHERE id = $3`,
		dispute.Reason, dispute.RaisedBy, id)
	if err != nil {
		slog.Error("failed to set dispute", "method", "SetDispute", "escrow_id", id, "error", err)
		return fmt.Errorf("failed to set dispute: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrEscrowNotFound
	}
	slog.Info("dispute recorded", "method", "SetDispute", "escrow_id", id, "raised_by", dispute.RaisedBy)
	return nil
}
