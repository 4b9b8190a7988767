package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"courtbooking/internal/entities"
)

// temporary datalake using postgres
// should be replaced with a real datalake in prod(google bigquery, aws s3, etc)

type EventsRepository struct {
	db *sqlx.DB
}

func NewEventsRepo(db *sqlx.DB) *EventsRepository {
	return &EventsRepository{db: db}
}

func (r *EventsRepository) SaveEvent(ctx context.Context, event entities.DatalakeEvent) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, published_at, event_name, event_payload)
		VALUES (:event_id, :published_at, :event_name, :event_payload)
		ON CONFLICT DO NOTHING
	`, event)
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", event.EventName, err)
	}

	return nil
}
