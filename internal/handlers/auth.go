package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/auth"
)

type AuthHandler struct {
	DB  *gorm.DB
	Svc *auth.Service
}

// Exchange trades an identity-provider token for a session token.
func (h *AuthHandler) Exchange(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.exchange")

	var req struct {
		IDToken  string `json:"idToken"`
		Provider string `json:"provider"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.IDToken == "" || req.Provider == "" {
		l.Warn("exchange_failed", "status", 400, "reason", "missing idToken or provider")
		return echo.NewHTTPError(http.StatusBadRequest, "idToken and provider are required")
	}

	result, err := h.Svc.Exchange(ctx, req.IDToken, req.Provider)
	if err != nil {
		if errors.Is(err, auth.ErrVerification) {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
		}
		l.Error("exchange_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot complete sign-in")
	}
	return c.JSON(http.StatusOK, result)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, dto.FromUser(user))
}
