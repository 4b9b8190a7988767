package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"courtbooking/internal/entities"
)

const (
	// Topic receives every public event; the router splits it into per-event topics.
	Topic               = "events"
	InternalTopicPrefix = "internal-events.svc-courtbooking."
)

func NewEventBus(
	pub message.Publisher,
	logger watermill.LoggerAdapter,
) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				event, ok := params.Event.(entities.Event)
				if !ok {
					return "", fmt.Errorf("invalid event type: %T doesn't implement entities.Event", params.Event)
				}

				if event.IsInternal() {
					return InternalTopicPrefix + params.EventName, nil
				}
				// stored to the data lake and forwarded to the per-event topic
				return Topic, nil
			},
			Marshaler: Marshaler,
			Logger:    logger,
		},
	)
}
