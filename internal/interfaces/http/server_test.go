package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbooking/internal/application/services"
	"courtbooking/internal/application/usecases/cancellation"
	"courtbooking/internal/application/usecases/reconciliation"
	reconciliationMocks "courtbooking/internal/application/usecases/reconciliation/mocks"
	"courtbooking/internal/application/usecases/reservation"
	reservationMocks "courtbooking/internal/application/usecases/reservation/mocks"
	"courtbooking/internal/application/usecases/usecasetest"
	"courtbooking/internal/domain/bookings"
	"courtbooking/internal/domain/courts"
	"courtbooking/internal/domain/payments"
	httpapi "courtbooking/internal/interfaces/http"
)

const jwtSecret = "test-secret"

type testServer struct {
	e            *echo.Echo
	store        *usecasetest.Store
	auth         *httpapi.Authenticator
	court        courts.Court
	checkout     *reservationMocks.MockPaymentGateway
	webhookParse *reconciliationMocks.MockPaymentGateway
}

func newTestServer(t *testing.T, reservesPerMinute int) *testServer {
	ctrl := gomock.NewController(t)
	store := usecasetest.NewStore()
	checkout := reservationMocks.NewMockPaymentGateway(ctrl)
	webhookParse := reconciliationMocks.NewMockPaymentGateway(ctrl)
	auth := httpapi.NewAuthenticator(jwtSecret)

	court := store.AddCourt(courts.Court{
		Name:         "Court 1",
		Sport:        "badminton",
		PricePerHour: decimal.RequireFromString("500.00"),
		Currency:     "inr",
	})

	e := commonHTTP.NewEcho()
	httpapi.NewServer(e, ":0", httpapi.Deps{
		Reservation:  reservation.NewUsecase(store.Bookings(), store.Payments(), store.Courts(), checkout, store.Events(), store.Manager(), time.Second),
		Webhooks:     reconciliation.NewUsecase(store.Bookings(), store.Payments(), webhookParse, store.Events(), store.Manager(), time.Second),
		Cancellation: cancellation.NewUsecase(store.Bookings(), store.Payments(), store.Events(), store.Manager(), nil),
		Bookings:     services.NewBookingsService(store.Bookings(), store.Courts(), store.Payments()),
		Courts:       services.NewCourtsService(store.Courts()),
		Auth:         auth,
		RateLimiter:  httpapi.NewRateLimiter(reservesPerMinute),
	})

	return &testServer{
		e:            e,
		store:        store,
		auth:         auth,
		court:        court,
		checkout:     checkout,
		webhookParse: webhookParse,
	}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := s.auth.CreateToken(userID, role, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) reserveBody(key, start, end string) httpapi.ReserveBookingRequest {
	return httpapi.ReserveBookingRequest{
		CourtID:        s.court.ID,
		StartTime:      start,
		EndTime:        end,
		IdempotencyKey: key,
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func (s *testServer) expectCheckout() {
	s.checkout.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
			key := req.Metadata.IdempotencyKey
			return payments.CheckoutSession{ID: "cs_" + key, URL: "https://checkout.stripe.com/c/pay/cs_" + key}, nil
		}).
		AnyTimes()
}

func TestReserveBooking(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()
	token := s.token(t, "user-1", httpapi.RolePlayer)

	rec := s.do(t, http.MethodPost, "/api/bookings", token, s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:30:00Z"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp httpapi.ReserveBookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_key-a", resp.URL)

	stored := s.store.AllPayments()
	require.Len(t, stored, 1)
	assert.Equal(t, int64(75000), stored[0].Amount)

	replay := s.do(t, http.MethodPost, "/api/bookings", token, s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:30:00Z"))
	require.Equal(t, http.StatusOK, replay.Code)
	assert.JSONEq(t, rec.Body.String(), replay.Body.String())
	assert.Len(t, s.store.AllBookings(), 1)
}

func TestReserveBooking_IdempotencyKeyHeader(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-1", httpapi.RolePlayer),
		s.reserveBody("", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"),
		"Idempotency-Key", "header-key",
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "header-key", s.store.AllBookings()[0].IdempotencyKey)
}

func TestReserveBooking_Conflict(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()
	token := s.token(t, "user-1", httpapi.RolePlayer)

	rec := s.do(t, http.MethodPost, "/api/bookings", token, s.reserveBody("key-a", "2025-03-14T14:00:00Z", "2025-03-14T15:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-2", httpapi.RolePlayer), s.reserveBody("key-b", "2025-03-14T14:30:00Z", "2025-03-14T15:30:00Z"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, bookings.ErrSlotConflict.Error(), decodeError(t, rec))
}

func TestReserveBooking_MalformedInput(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.token(t, "user-1", httpapi.RolePlayer)

	tests := []struct {
		name string
		body any
	}{
		{"end before start", s.reserveBody("key-a", "2025-03-14T11:00:00Z", "2025-03-14T10:00:00Z")},
		{"end equals start", s.reserveBody("key-a", "2025-03-14T11:00:00Z", "2025-03-14T11:00:00Z")},
		{"not a timestamp", s.reserveBody("key-a", "tomorrow", "2025-03-14T11:00:00Z")},
		{"invalid json", `{"courtId": `},
		{"missing idempotency key", s.reserveBody("", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/bookings", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}

	assert.Empty(t, s.store.AllBookings())
}

func TestReserveBooking_CourtNotFound(t *testing.T) {
	s := newTestServer(t, 100)

	body := s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z")
	body.CourtID = 999

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-1", httpapi.RolePlayer), body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveBooking_GatewayFailure(t *testing.T) {
	s := newTestServer(t, 100)
	s.checkout.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		Return(payments.CheckoutSession{}, assert.AnError)

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-1", httpapi.RolePlayer), s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, s.store.AllBookings())
}

func TestReserveBooking_Unauthenticated(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodPost, "/api/bookings", "", s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := httpapi.NewAuthenticator("other-secret").CreateToken("user-1", httpapi.RolePlayer, "", time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/bookings", forged, s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserveBooking_RateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	s.expectCheckout()
	token := s.token(t, "user-1", httpapi.RolePlayer)

	rec := s.do(t, http.MethodPost, "/api/bookings", token, s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bookings", token, s.reserveBody("key-b", "2025-03-14T12:00:00Z", "2025-03-14T13:00:00Z"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-2", httpapi.RolePlayer), s.reserveBody("key-c", "2025-03-14T12:00:00Z", "2025-03-14T13:00:00Z"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-1", httpapi.RolePlayer), s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)

	event := payments.WebhookEvent{
		ID:                "evt_1",
		Kind:              payments.EventCheckoutCompleted,
		IdempotencyKey:    "key-a",
		CheckoutSessionID: "cs_key-a",
		Paid:              true,
	}
	s.webhookParse.EXPECT().ParseWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=ok").Return(event, nil).Times(2)

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPost, "/api/webhooks/stripe", "", `{"id":"evt_1"}`, "Stripe-Signature", "t=1,v1=ok")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	}

	assert.Equal(t, bookings.StatusConfirmed, s.store.AllBookings()[0].Status)
	assert.Equal(t, payments.StatusSucceeded, s.store.AllPayments()[0].Status)
}

func TestStripeWebhook_Rejections(t *testing.T) {
	s := newTestServer(t, 100)

	s.webhookParse.EXPECT().ParseWebhook(gomock.Any(), "forged").Return(payments.WebhookEvent{}, payments.ErrWebhookSignature)
	rec := s.do(t, http.MethodPost, "/api/webhooks/stripe", "", `{}`, "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.webhookParse.EXPECT().ParseWebhook(gomock.Any(), "ok").Return(payments.WebhookEvent{ID: "evt_2", Kind: payments.EventCheckoutCompleted, Paid: true}, nil)
	rec = s.do(t, http.MethodPost, "/api/webhooks/stripe", "", `{}`, "Stripe-Signature", "ok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, payments.ErrWebhookCorrelationMissing.Error(), decodeError(t, rec))
}

func TestBookings_ReadAndCancel(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()
	owner := s.token(t, "user-1", httpapi.RolePlayer)
	stranger := s.token(t, "user-2", httpapi.RolePlayer)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	rec := s.do(t, http.MethodPost, "/api/bookings", owner, s.reserveBody("key-a", start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339)))
	require.Equal(t, http.StatusOK, rec.Code)
	id := s.store.AllBookings()[0].ID
	path := "/api/bookings/" + strconv.FormatInt(id, 10)

	rec = s.do(t, http.MethodGet, "/api/bookings", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []bookings.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, stranger, nil).Code)
	rec = s.do(t, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details services.BookingDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, id, details.ID)
	assert.Equal(t, bookings.StatusPending, details.Status)
	require.NotNil(t, details.Payment)
	assert.Equal(t, payments.StatusPending, details.Payment.Status)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/bookings/abc", owner, nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path+"/cancel", stranger, nil).Code)

	rec = s.do(t, http.MethodPost, path+"/cancel", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled bookings.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, bookings.StatusCancelled, cancelled.Status)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, path+"/cancel", owner, nil).Code)
}

func TestCourtAvailability(t *testing.T) {
	s := newTestServer(t, 100)
	s.expectCheckout()

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, "user-1", httpapi.RolePlayer), s.reserveBody("key-a", "2025-03-14T10:00:00Z", "2025-03-14T11:00:00Z"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/courts/"+strconv.FormatInt(s.court.ID, 10)+"/availability?date=2025-03-14", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var availability services.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &availability))
	assert.Equal(t, "2025-03-14", availability.Date)
	require.Len(t, availability.Busy, 1)
	assert.Equal(t, bookings.StatusPending, availability.Busy[0].Status)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/courts/"+strconv.FormatInt(s.court.ID, 10)+"/availability?date=14.03.2025", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/courts/999/availability", "", nil).Code)
}

func TestVenuesAndCourts(t *testing.T) {
	s := newTestServer(t, 100)
	owner := s.token(t, "owner-1", httpapi.RoleOwner)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/venues", s.token(t, "user-1", httpapi.RolePlayer), httpapi.CreateVenueRequest{Name: "Arena"}).Code)

	rec := s.do(t, http.MethodPost, "/api/venues", owner, httpapi.CreateVenueRequest{Name: "Arena", City: "Pune"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var venue httpapi.CreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &venue))

	courtsPath := "/api/venues/" + strconv.FormatInt(venue.ID, 10) + "/courts"
	court := httpapi.CreateCourtRequest{Name: "Court A", Sport: "padel", PricePerHour: decimal.NewFromInt(900), Currency: "INR"}

	rec = s.do(t, http.MethodPost, courtsPath, owner, court)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, courtsPath, s.token(t, "owner-2", httpapi.RoleOwner), court)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, courtsPath, s.token(t, "admin-1", httpapi.RoleAdmin), court)
	assert.Equal(t, http.StatusCreated, rec.Code)

	court.Currency = "rupees"
	rec = s.do(t, http.MethodPost, courtsPath, owner, court)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 100)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
}
