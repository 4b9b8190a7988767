package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	domain "courtbooking/internal/domain/courts"
)

type CourtsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewCourtsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *CourtsRepo {
	return &CourtsRepo{db: db, getter: getter}
}

func (r *CourtsRepo) CreateVenue(ctx context.Context, venue domain.Venue) (int64, error) {
	var id int64
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO venues (owner_id, name, city)
		VALUES ($1, $2, $3)
		RETURNING id`,
		venue.OwnerID,
		venue.Name,
		venue.City,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create venue: %w", err)
	}

	return id, nil
}

func (r *CourtsRepo) CreateCourt(ctx context.Context, court domain.Court) (int64, error) {
	var id int64
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO courts (venue_id, name, sport, price_per_hour, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		court.VenueID,
		court.Name,
		court.Sport,
		court.PricePerHour,
		court.Currency,
	).Scan(&id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return 0, fmt.Errorf("failed to create court: %w", domain.ErrVenueNotFound)
		}
		return 0, fmt.Errorf("failed to create court: %w", err)
	}

	return id, nil
}

func (r *CourtsRepo) GetVenue(ctx context.Context, id int64) (*domain.Venue, error) {
	var venue domain.Venue
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &venue,
		`SELECT id, owner_id, name, city FROM venues WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	return &venue, nil
}

func (r *CourtsRepo) GetCourt(ctx context.Context, id int64) (*domain.Court, error) {
	return r.getCourt(ctx, `SELECT id, venue_id, name, sport, price_per_hour, currency FROM courts WHERE id = $1`, id)
}

// GetForUpdate locks the court row, which serializes reservations of the same court.
func (r *CourtsRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Court, error) {
	return r.getCourt(ctx, `SELECT id, venue_id, name, sport, price_per_hour, currency FROM courts WHERE id = $1 FOR UPDATE`, id)
}

func (r *CourtsRepo) getCourt(ctx context.Context, query string, id int64) (*domain.Court, error) {
	var court domain.Court
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &court, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get court: %w", err)
	}

	return &court, nil
}
