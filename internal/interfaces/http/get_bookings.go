package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) ListBookingsHandler(c echo.Context) error {
	bookings, err := s.deps.Bookings.ListForUser(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, bookings)
}

func (s *Server) GetBookingHandler(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	booking, err := s.deps.Bookings.GetForUser(c.Request().Context(), id, userID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

func (s *Server) CourtAvailabilityHandler(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	day := time.Now().UTC()
	if date := c.QueryParam("date"); date != "" {
		day, err = time.Parse(time.DateOnly, date)
		if err != nil {
			return badRequest(c, "date is not a valid date")
		}
	}

	availability, err := s.deps.Bookings.CourtAvailability(c.Request().Context(), id, day)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, availability)
}
