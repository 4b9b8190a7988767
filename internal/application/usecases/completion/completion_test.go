package completion_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbooking/internal/application/usecases/completion"
	"courtbooking/internal/application/usecases/usecasetest"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/payments"
	"courtbooking/internal/entities"
)

func TestCompleteEnded(t *testing.T) {
	store := usecasetest.NewStore()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	add := func(key string, status bookings.Status, end time.Time) bookings.Booking {
		return store.AddBooking(bookings.Booking{
			UserID:         "user-1",
			CourtID:        1,
			StartTime:      end.Add(-time.Hour),
			EndTime:        end,
			Status:         status,
			IdempotencyKey: key,
		}, payments.Payment{Status: payments.StatusSucceeded})
	}

	ended := add("ended", bookings.StatusConfirmed, now.Add(-time.Minute))
	endsNow := add("ends-now", bookings.StatusConfirmed, now)
	running := add("running", bookings.StatusConfirmed, now.Add(30*time.Minute))
	pending := add("pending", bookings.StatusPending, now.Add(-time.Hour))

	usecase := completion.NewUsecase(store.Bookings(), store.Events(), store.Manager())

	n, err := usecase.CompleteEnded(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	status := func(id int64) bookings.Status {
		b, err := store.Bookings().GetByID(context.Background(), id)
		require.NoError(t, err)
		return b.Status
	}
	assert.Equal(t, bookings.StatusCompleted, status(ended.ID))
	assert.Equal(t, bookings.StatusCompleted, status(endsNow.ID))
	assert.Equal(t, bookings.StatusConfirmed, status(running.ID))
	assert.Equal(t, bookings.StatusPending, status(pending.ID))

	events := store.PublishedEvents()
	require.Len(t, events, 2)
	for _, e := range events {
		_, ok := e.(entities.BookingCompleted_v1)
		assert.True(t, ok)
	}

	n, err = usecase.CompleteEnded(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_StopsWithContext(t *testing.T) {
	store := usecasetest.NewStore()
	usecase := completion.NewUsecase(store.Bookings(), store.Events(), store.Manager())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- usecase.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("completion loop did not stop")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	store := usecasetest.NewStore()
	usecase := completion.NewUsecase(store.Bookings(), store.Events(), store.Manager())

	for _, interval := range []time.Duration{0, -time.Second} {
		err := usecase.Run(context.Background(), interval)
		assert.Error(t, err, "interval %s", interval)
	}
}
