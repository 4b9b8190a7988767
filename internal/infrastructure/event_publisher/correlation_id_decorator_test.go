package event_publisher_test

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbooking/internal/infrastructure/event_publisher"
)

type recordingPublisher struct {
	published []*message.Message
}

func (p *recordingPublisher) Publish(_ string, messages ...*message.Message) error {
	p.published = append(p.published, messages...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestCorrelationPublisherDecorator(t *testing.T) {
	recorder := &recordingPublisher{}
	publisher := event_publisher.CorrelationPublisherDecorator{Publisher: recorder}

	fromContext := message.NewMessage(watermill.NewUUID(), nil)
	fromContext.SetContext(log.ContextWithCorrelationID(context.Background(), "corr-ctx"))

	alreadySet := message.NewMessage(watermill.NewUUID(), nil)
	alreadySet.Metadata.Set("correlation_id", "corr-original")
	alreadySet.SetContext(log.ContextWithCorrelationID(context.Background(), "corr-ctx"))

	withoutID := message.NewMessage(watermill.NewUUID(), nil)

	require.NoError(t, publisher.Publish("events", fromContext, alreadySet, withoutID))
	require.Len(t, recorder.published, 3)

	assert.Equal(t, "corr-ctx", recorder.published[0].Metadata.Get("correlation_id"))
	assert.Equal(t, "corr-original", recorder.published[1].Metadata.Get("correlation_id"))
	// a message without one gets a generated id
	assert.NotEmpty(t, recorder.published[2].Metadata.Get("correlation_id"))
}
