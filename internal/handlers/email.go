package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/service/mailer"
)

type EmailHandler struct {
	Mail mailer.Sender
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail delivers an ad-hoc message through the configured SMTP relay.
func (h *EmailHandler) SendEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "email.send")

	if h.Mail == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "mail delivery is not configured")
	}

	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.To == "" || req.Subject == "" || req.Body == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "to, subject and body are required")
	}

	if err := h.Mail.Send(req.To, req.Subject, req.Body); err != nil {
		l.Error("send_failed", "status", 502, "to", req.To, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cannot send email")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}
