package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"btree_gist extension", `CREATE EXTENSION IF NOT EXISTS btree_gist;`},
	{"venues table", `
CREATE TABLE IF NOT EXISTS venues (
	id BIGSERIAL PRIMARY KEY,
	owner_id VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	city VARCHAR(255) NOT NULL DEFAULT ''
);`},
	{"courts table", `
CREATE TABLE IF NOT EXISTS courts (
	id BIGSERIAL PRIMARY KEY,
	venue_id BIGINT NOT NULL REFERENCES venues (id),
	name VARCHAR(255) NOT NULL,
	sport VARCHAR(64) NOT NULL,
	price_per_hour NUMERIC(10, 2) NOT NULL CHECK (price_per_hour >= 0),
	currency CHAR(3) NOT NULL
);`},
	{"bookings table", `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGSERIAL PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	court_id BIGINT NOT NULL REFERENCES courts (id),
	start_time TIMESTAMP WITH TIME ZONE NOT NULL,
	end_time TIMESTAMP WITH TIME ZONE NOT NULL,
	status VARCHAR(16) NOT NULL,
	idempotency_key VARCHAR(255) NOT NULL UNIQUE,
	notes TEXT,
	checkout_session_id VARCHAR(255) NOT NULL,
	checkout_url TEXT NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	CHECK (end_time > start_time),
	CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
		court_id WITH =,
		tstzrange(start_time, end_time, '[)') WITH &&
	) WHERE (status IN ('PENDING', 'CONFIRMED', 'COMPLETED'))
);`},
	{"bookings court index", `CREATE INDEX IF NOT EXISTS bookings_court_id_idx ON bookings (court_id, start_time);`},
	{"bookings checkout session index", `CREATE INDEX IF NOT EXISTS bookings_checkout_session_idx ON bookings (checkout_session_id);`},
	{"payments table", `
CREATE TABLE IF NOT EXISTS payments (
	id BIGSERIAL PRIMARY KEY,
	booking_id BIGINT NOT NULL UNIQUE REFERENCES bookings (id),
	gateway VARCHAR(32) NOT NULL,
	checkout_session_id VARCHAR(255) NOT NULL,
	payment_intent_id VARCHAR(255),
	receipt_url TEXT,
	amount BIGINT NOT NULL CHECK (amount >= 0),
	currency CHAR(3) NOT NULL,
	status VARCHAR(16) NOT NULL,
	idempotency_key VARCHAR(255) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
	{"events table", `
CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMP WITH TIME ZONE NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);`},
}

func InitializeDBSchema(db *sqlx.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(context.Background(), s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}
