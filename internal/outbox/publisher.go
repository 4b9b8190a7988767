package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"

	"courtbooking/internal/entities"
	"courtbooking/internal/infrastructure/event_publisher"
	"courtbooking/internal/interfaces/message/events"
	"courtbooking/internal/observability"
)

// Topic is the SQL table topic the forwarder drains into the broker.
const Topic = "events_to_forward"

func NewPublisher(
	tx watermillSQL.ContextExecutor,
	logger watermill.LoggerAdapter,
) (message.Publisher, error) {
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	// metadata must be set before the forwarder wraps messages into envelopes
	var pub message.Publisher = forwarder.NewPublisher(publisher, forwarder.PublisherConfig{ForwarderTopic: Topic})
	pub = observability.PublisherWithTracing{Publisher: pub}

	return event_publisher.CorrelationPublisherDecorator{Publisher: pub}, nil
}

// TxEventBus publishes events into the outbox table of the transaction found in ctx.
type TxEventBus struct {
	getter *trmsqlx.CtxGetter
	logger watermill.LoggerAdapter
}

func NewTxEventBus(getter *trmsqlx.CtxGetter, logger watermill.LoggerAdapter) *TxEventBus {
	return &TxEventBus{getter: getter, logger: logger}
}

func (b *TxEventBus) Publish(ctx context.Context, event entities.Event) error {
	tr := b.getter.DefaultTrOrDB(ctx, nil)
	if tr == nil {
		return fmt.Errorf("failed to get transaction from context")
	}

	publisher, err := NewPublisher(tr, b.logger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	eb, err := events.NewEventBus(publisher, b.logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	log.FromContext(ctx).WithField("event", fmt.Sprintf("%T", event)).Debug("publishing event to outbox")

	return eb.Publish(ctx, event)
}
