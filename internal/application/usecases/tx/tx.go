package tx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/lib/pq"
)

const (
	pgSerializationFailure pq.ErrorCode = "40001"

	// DefaultAttempts bounds how many times a serializable transaction is replayed.
	DefaultAttempts = 3
)

func Serializable() trm.Settings {
	return trmsql.MustSettings(
		settings.Must(settings.WithCancelable(true)),
		trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}),
	)
}

func ReadCommitted() trm.Settings {
	return trmsql.MustSettings(
		settings.Must(settings.WithCancelable(true)),
		trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelReadCommitted}),
	)
}

func IsSerializationFailure(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}

// WithRetry replays f while it fails with a serialization failure.
func WithRetry(attempts int, f func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var lastErr error
		for i := 0; i < attempts; i++ {
			err := f(ctx)
			if err == nil {
				return nil
			}
			if !IsSerializationFailure(err) {
				return err
			}

			log.FromContext(ctx).
				WithField("attempt", i+1).
				Warn("serialization failure, retrying transaction")
			lastErr = err
		}
		return lastErr
	}
}

// RunSerializable runs fn in a serializable transaction, replaying it on serialization failures.
func RunSerializable(ctx context.Context, manager trm.Manager, fn func(ctx context.Context) error) error {
	return WithRetry(DefaultAttempts, func(ctx context.Context) error {
		return manager.DoWithSettings(ctx, Serializable(), fn)
	})(ctx)
}
