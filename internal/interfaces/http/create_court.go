package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"courtbooking/internal/domain/courts"
)

type CreateVenueRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type CreateCourtRequest struct {
	Name         string          `json:"name"`
	Sport        string          `json:"sport"`
	PricePerHour decimal.Decimal `json:"pricePerHour"`
	Currency     string          `json:"currency"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) CreateVenueHandler(c echo.Context) error {
	var request CreateVenueRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &request); err != nil {
		return badRequest(c, "request body is not valid JSON")
	}

	id, err := s.deps.Courts.CreateVenue(c.Request().Context(), courts.Venue{
		OwnerID: userID(c),
		Name:    request.Name,
		City:    request.City,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (s *Server) CreateCourtHandler(c echo.Context) error {
	venueID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var request CreateCourtRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &request); err != nil {
		return badRequest(c, "request body is not valid JSON")
	}

	ownerID := userID(c)
	if claims := claimsFrom(c); claims != nil && claims.Role == RoleAdmin {
		ownerID = ""
	}

	id, err := s.deps.Courts.CreateCourt(c.Request().Context(), ownerID, courts.Court{
		VenueID:      venueID,
		Name:         request.Name,
		Sport:        request.Sport,
		PricePerHour: request.PricePerHour,
		Currency:     request.Currency,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}
