package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	domain "courtbooking/internal/domain/payments"
)

const paymentColumns = `id, booking_id, gateway, checkout_session_id, payment_intent_id, receipt_url,
	amount, currency, status, idempotency_key, created_at, updated_at`

type PaymentsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewPaymentsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *PaymentsRepo {
	return &PaymentsRepo{db: db, getter: getter}
}

func (r *PaymentsRepo) Create(ctx context.Context, payment *domain.Payment) error {
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO payments (
			booking_id, gateway, checkout_session_id, amount, currency, status, idempotency_key
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id, created_at, updated_at`,
		payment.BookingID,
		payment.Gateway,
		payment.CheckoutSessionID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.IdempotencyKey,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *PaymentsRepo) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

func (r *PaymentsRepo) getOne(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	var payment domain.Payment
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &payment, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}

	return &payment, nil
}

// UpdateByBookingID mirrors BookingsRepo.UpdateByID for the booking's payment row.
func (r *PaymentsRepo) UpdateByBookingID(
	ctx context.Context,
	bookingID int64,
	updateFn func(payment *domain.Payment) error,
) (*domain.Payment, error) {
	payment, err := r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 FOR UPDATE`, bookingID)
	if err != nil {
		return nil, err
	}

	err = updateFn(payment)
	if errors.Is(err, domain.ErrNoChange) {
		return payment, err
	}
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	err = r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE payments
		SET status = $1, payment_intent_id = $2, receipt_url = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at`,
		payment.Status,
		payment.PaymentIntentID,
		payment.ReceiptURL,
		payment.ID,
	).Scan(&payment.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	return payment, nil
}
