package message

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"courtbooking/internal/entities"
	"courtbooking/internal/interfaces/message/commands"
	"courtbooking/internal/interfaces/message/events"
)

func NewRouter(
	watermillLogger watermill.LoggerAdapter,
	redisClient *redis.Client,
	redisPublisher message.Publisher,

	eventHandler *events.Handler,
	commandsHandler *commands.Handler,

	eventsRepo events.EventRepository,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	initMiddlewares(watermillLogger, router)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, events.NewEventProcessorConfig(redisClient, watermillLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}
	if err := eventProcessor.AddHandlers(eventHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("failed to add event handlers: %w", err)
	}

	commandProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commands.NewCommandProcessorConfig(redisClient, watermillLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create command processor: %w", err)
	}
	if err := commandProcessor.AddHandlers(commandsHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("failed to add command handlers: %w", err)
	}

	splitterSubscriber, err := newEventsSubscriber(redisClient, watermillLogger, "events_splitter")
	if err != nil {
		return nil, err
	}
	router.AddNoPublisherHandler(
		"events_splitter",
		events.Topic,
		splitterSubscriber,
		func(msg *message.Message) error {
			eventName := events.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("cannot get event name from message")
			}

			return redisPublisher.Publish(events.Topic+"."+eventName, msg)
		},
	)

	saverSubscriber, err := newEventsSubscriber(redisClient, watermillLogger, "events_saver")
	if err != nil {
		return nil, err
	}
	router.AddNoPublisherHandler(
		"events_saver",
		events.Topic,
		saverSubscriber,
		func(msg *message.Message) error {
			type Event struct {
				Header entities.EventHeader `json:"header"`
			}

			var event Event
			if err := events.Marshaler.Unmarshal(msg, &event); err != nil {
				return err
			}

			eventName := events.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("cannot get event name from message")
			}

			id, err := uuid.Parse(event.Header.Id)
			if err != nil {
				return fmt.Errorf("failed to parse event id: %w", err)
			}

			return eventsRepo.SaveEvent(
				msg.Context(),
				entities.DatalakeEvent{
					ID:          id,
					PublishedAt: event.Header.PublishedAt,
					EventName:   eventName,
					Payload:     msg.Payload,
				},
			)
		},
	)

	return router, nil
}

func newEventsSubscriber(redisClient *redis.Client, logger watermill.LoggerAdapter, handlerName string) (message.Subscriber, error) {
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: events.ConsumerGroupPrefix + handlerName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s subscriber: %w", handlerName, err)
	}
	return sub, nil
}
