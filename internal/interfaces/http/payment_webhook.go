package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 65536
)

type WebhookResponse struct {
	Received bool `json:"received"`
}

func (s *Server) StripeWebhookHandler(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return badRequest(c, "unable to read request body")
	}

	err = s.deps.Webhooks.HandleEvent(c.Request().Context(), payload, c.Request().Header.Get(stripeSignatureHeader))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
