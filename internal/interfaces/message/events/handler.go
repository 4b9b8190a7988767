package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"courtbooking/internal/entities"
)

//go:generate mockgen -destination=mocks/command_sender_mock.go -package=mocks . CommandSender
type CommandSender interface {
	Send(ctx context.Context, cmd any) error
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event entities.DatalakeEvent) error
}

type Handler struct {
	commandBus CommandSender
}

func NewHandler(commandBus CommandSender) *Handler {
	return &Handler{
		commandBus: commandBus,
	}
}

func (h *Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.RefundOnBookingCancelledHandler(),
		h.ExpireCheckoutOnBookingCancelledHandler(),
	}
}
