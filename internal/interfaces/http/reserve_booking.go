package http

import (
	"net/http"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/labstack/echo/v4"

	"courtbooking/internal/application/usecases/reservation"
)

const idempotencyKeyHeader = "Idempotency-Key"

type ReserveBookingRequest struct {
	CourtID        int64  `json:"courtId"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Notes          string `json:"notes,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type ReserveBookingResponse struct {
	URL string `json:"url"`
}

func (s *Server) ReserveBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request ReserveBookingRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &request); err != nil {
		return badRequest(c, "malformed input: request body is not valid JSON")
	}

	start, err := time.Parse(time.RFC3339, request.StartTime)
	if err != nil {
		return badRequest(c, "malformed input: startTime must be an ISO-8601 timestamp")
	}
	end, err := time.Parse(time.RFC3339, request.EndTime)
	if err != nil {
		return badRequest(c, "malformed input: endTime must be an ISO-8601 timestamp")
	}

	key := request.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get(idempotencyKeyHeader)
	}

	res, err := s.deps.Reservation.Reserve(ctx, reservation.ReserveRequest{
		UserID:         userID(c),
		CourtID:        request.CourtID,
		StartTime:      start,
		EndTime:        end,
		Notes:          pointer.ToStringOrNil(request.Notes),
		IdempotencyKey: key,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, ReserveBookingResponse{URL: res.URL})
}
