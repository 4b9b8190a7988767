package event_publisher

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
)

const correlationIDKey = "correlation_id"

// CorrelationPublisherDecorator copies the correlation id of each message context into its metadata.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get(correlationIDKey) != "" {
			continue
		}
		if id := log.CorrelationIDFromContext(msg.Context()); id != "" {
			msg.Metadata.Set(correlationIDKey, id)
		}
	}
	return c.Publisher.Publish(topic, messages...)
}
