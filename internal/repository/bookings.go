package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	domain "courtbooking/internal/domain/bookings"
)

const bookingColumns = `id, user_id, court_id, start_time, end_time, status, idempotency_key, notes,
	checkout_session_id, checkout_url, created_at, updated_at`

type BookingsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewBookingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *BookingsRepo {
	return &BookingsRepo{db: db, getter: getter}
}

func (r *BookingsRepo) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			user_id, court_id, start_time, end_time, status, idempotency_key, notes,
			checkout_session_id, checkout_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING id, created_at, updated_at`

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, query,
		booking.UserID,
		booking.CourtID,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.IdempotencyKey,
		booking.Notes,
		booking.CheckoutSessionID,
		booking.CheckoutURL,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return fmt.Errorf("insert booking: %w", domain.ErrDuplicateIdempotencyKey)
		case pgExclusionViolation:
			return fmt.Errorf("insert booking: %w", domain.ErrSlotConflict)
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingsRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = $1`, key)
}

func (r *BookingsRepo) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	return r.getOne(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE checkout_session_id = $1
		ORDER BY id DESC
		LIMIT 1`, sessionID)
}

func (r *BookingsRepo) getOne(ctx context.Context, query string, args ...any) (*domain.Booking, error) {
	var booking domain.Booking
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &booking, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select booking: %w", err)
	}

	return &booking, nil
}

// FindConflicting returns slot-blocking bookings of the court overlapping interval.
func (r *BookingsRepo) FindConflicting(ctx context.Context, courtID int64, interval domain.Interval) ([]domain.Booking, error) {
	var conflicting []domain.Booking
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &conflicting, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE court_id = $1
			AND status = ANY($2)
			AND start_time < $3
			AND end_time > $4
		ORDER BY start_time`,
		courtID,
		pq.Array(statusStrings(domain.BlockingStatuses)),
		interval.End,
		interval.Start,
	)
	if err != nil {
		return nil, fmt.Errorf("select conflicting bookings: %w", err)
	}

	return conflicting, nil
}

func (r *BookingsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	bookings := []domain.Booking{}
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = $1
		ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select user bookings: %w", err)
	}

	return bookings, nil
}

// ListEndedConfirmed returns confirmed bookings that finished before now.
func (r *BookingsRepo) ListEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	var ended []domain.Booking
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &ended, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time
		LIMIT $3`, domain.StatusConfirmed, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select ended bookings: %w", err)
	}

	return ended, nil
}

// UpdateByID locks the booking row, applies updateFn and stores the result.
// When updateFn returns domain.ErrNoChange nothing is written and the error is passed through.
func (r *BookingsRepo) UpdateByID(
	ctx context.Context,
	id int64,
	updateFn func(booking *domain.Booking) error,
) (*domain.Booking, error) {
	booking, err := r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	err = updateFn(booking)
	if errors.Is(err, domain.ErrNoChange) {
		return booking, err
	}
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	err = r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE bookings
		SET status = $1, notes = $2, checkout_session_id = $3, checkout_url = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at`,
		booking.Status,
		booking.Notes,
		booking.CheckoutSessionID,
		booking.CheckoutURL,
		booking.ID,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgExclusionViolation {
			return nil, fmt.Errorf("update booking: %w", domain.ErrSlotConflict)
		}
		return nil, fmt.Errorf("update booking: %w", err)
	}

	return booking, nil
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// ListBlocking returns the slot-blocking bookings of a court that overlap interval.
func (r *BookingsRepo) ListBlocking(ctx context.Context, courtID int64, interval domain.Interval) ([]domain.Slot, error) {
	rows, err := r.FindConflicting(ctx, courtID, interval)
	if err != nil {
		return nil, err
	}

	slots := make([]domain.Slot, 0, len(rows))
	for _, b := range rows {
		slots = append(slots, domain.Slot{
			BookingID: b.ID,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    b.Status,
		})
	}
	return slots, nil
}
