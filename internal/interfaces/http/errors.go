package http

import (
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"courtbooking/internal/application/services"
	"courtbooking/internal/application/usecases/reservation"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/domain/payments"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// errorMapping lists client-visible failures. Errors that wrap a detail worth showing
// keep their full message, the rest answer with the sentinel text.
var errorMapping = []struct {
	err        error
	status     int
	withDetail bool
}{
	{reservation.ErrMalformedInput, http.StatusBadRequest, true},
	{services.ErrInvalidCourt, http.StatusBadRequest, true},
	{payments.ErrWebhookSignature, http.StatusBadRequest, false},
	{payments.ErrWebhookCorrelationMissing, http.StatusBadRequest, false},
	{bookings.ErrNotOwner, http.StatusForbidden, false},
	{courts.ErrNotVenueOwner, http.StatusForbidden, false},
	{bookings.ErrNotFound, http.StatusNotFound, false},
	{courts.ErrNotFound, http.StatusNotFound, false},
	{courts.ErrVenueNotFound, http.StatusNotFound, false},
	{bookings.ErrSlotConflict, http.StatusConflict, false},
	{bookings.ErrIncompleteBooking, http.StatusConflict, false},
	{bookings.ErrDuplicateIdempotencyKey, http.StatusConflict, false},
	{bookings.ErrCancellationWindowClosed, http.StatusConflict, false},
	{bookings.ErrIllegalTransition, http.StatusConflict, true},
	{payments.ErrGatewaySession, http.StatusBadGateway, false},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.withDetail {
				return m.status, err.Error()
			}
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func respondError(c echo.Context, err error) error {
	status, msg := statusFor(err)

	logger := log.FromContext(c.Request().Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Info("request rejected")
	}

	return c.JSON(status, ErrorResponse{Error: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
