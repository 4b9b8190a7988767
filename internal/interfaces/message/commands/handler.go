package commands

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
)

//go:generate mockgen -destination=mocks/payments_service_mock.go -package=mocks . PaymentsService
type PaymentsService interface {
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Handler struct {
	eb             EventPublisher
	paymentService PaymentsService
}

func NewHandler(
	eb EventPublisher,
	paymentService PaymentsService,
) *Handler {
	return &Handler{
		eb:             eb,
		paymentService: paymentService,
	}
}

func (h *Handler) Handlers() []cqrs.CommandHandler {
	return []cqrs.CommandHandler{
		h.RefundPaymentHandler(),
		h.ExpireCheckoutSessionHandler(),
	}
}

var _ EventPublisher = (*cqrs.EventBus)(nil)
