package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courtbooking/internal/application/services"
	"courtbooking/internal/application/usecases/reservation"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/observability"
)

type Reserver interface {
	Reserve(ctx context.Context, req reservation.ReserveRequest) (reservation.ReserveResult, error)
}

type WebhookHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

type Canceller interface {
	Cancel(ctx context.Context, bookingID int64, userID string) (*bookings.Booking, error)
}

type BookingsQueries interface {
	ListForUser(ctx context.Context, userID string) ([]bookings.Booking, error)
	GetForUser(ctx context.Context, id int64, userID string) (*services.BookingDetails, error)
	CourtAvailability(ctx context.Context, courtID int64, day time.Time) (*services.Availability, error)
}

type CourtsAdmin interface {
	CreateVenue(ctx context.Context, venue courts.Venue) (int64, error)
	CreateCourt(ctx context.Context, ownerID string, court courts.Court) (int64, error)
}

type Deps struct {
	Reservation  Reserver
	Webhooks     WebhookHandler
	Cancellation Canceller
	Bookings     BookingsQueries
	Courts       CourtsAdmin

	Auth        *Authenticator
	RateLimiter *RateLimiter

	// HealthCheck reports whether the service can serve traffic.
	HealthCheck func(ctx context.Context) error
}

type Server struct {
	e    *echo.Echo
	addr string
	deps Deps
}

func NewServer(e *echo.Echo, addr string, deps Deps) *Server {
	srv := &Server{
		e:    e,
		addr: addr,
		deps: deps,
	}

	e.Use(metricsMiddleware)
	e.Use(loggingMiddleware)

	api := e.Group("/api")
	api.POST("/webhooks/stripe", srv.StripeWebhookHandler)
	api.GET("/courts/:id/availability", srv.CourtAvailabilityHandler)

	authed := api.Group("", deps.Auth.Middleware)
	authed.POST("/bookings", srv.ReserveBookingHandler, deps.RateLimiter.Middleware)
	authed.GET("/bookings", srv.ListBookingsHandler)
	authed.GET("/bookings/:id", srv.GetBookingHandler)
	authed.POST("/bookings/:id/cancel", srv.CancelBookingHandler)

	owners := authed.Group("", RequireRole(RoleOwner, RoleAdmin))
	owners.POST("/venues", srv.CreateVenueHandler)
	owners.POST("/venues/:id/courts", srv.CreateCourtHandler)

	e.GET("/health", func(c echo.Context) error {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return srv
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func loggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log.FromContext(c.Request().Context()).
			WithField("path", c.Request().URL.Path).
			WithField("method", c.Request().Method).
			Info("Handling a request")

		err := next(c)
		if err != nil {
			log.FromContext(c.Request().Context()).
				WithField("error", err).
				Error("Request handling error")
		}

		return err
	}
}

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		code := c.Response().Status
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
		}
		observability.HTTPRequestsTotal.WithLabelValues(c.Path(), strconv.Itoa(code)).Inc()

		return err
	}
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}
