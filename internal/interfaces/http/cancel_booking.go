package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) CancelBookingHandler(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	booking, err := s.deps.Cancellation.Cancel(c.Request().Context(), id, userID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}
