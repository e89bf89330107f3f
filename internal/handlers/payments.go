package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/events"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/momo"
)

type PaymentHandler struct {
	DB       *gorm.DB
	Momo     *momo.Client
	Producer *events.Producer
}

type createPaymentRequest struct {
	ToID    uint    `json:"to_id"`
	OrderID uint    `json:"order_id"`
	Amount  float64 `json:"amount"`
	Phone   string  `json:"phone"`
}

// CreatePayment confirms a transaction with the mobile-money gateway and
// persists the resulting payment row, stamped with the current time. An empty
// gateway response means the payment could not be confirmed and maps to
// not-found.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.create")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OrderID == 0 || req.ToID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id and to_id are required")
	}
	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}
	if req.Phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone is required")
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}

	if h.Momo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payments are not configured")
	}

	tx, err := h.Momo.RequestToPay(ctx, momo.PaymentRequest{
		Amount:     req.Amount,
		Currency:   "EUR",
		Phone:      req.Phone,
		ExternalID: fmt.Sprint(req.OrderID),
		Note:       fmt.Sprintf("BookBridge order %d", req.OrderID),
	})
	if err != nil {
		if errors.Is(err, momo.ErrEmptyResponse) {
			l.Warn("create_payment_failed", "status", 404, "reason", "empty gateway response")
			return echo.NewHTTPError(http.StatusNotFound, "payment could not be confirmed")
		}
		l.Error("create_payment_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "payment gateway error")
	}

	payment := models.Payment{
		ID:        tx.FinancialTransactionID,
		FromID:    userID,
		ToID:      req.ToID,
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Status:    tx.Status,
		CreatedAt: time.Now(),
	}
	if err := h.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		l.Error("create_payment_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot persist payment")
	}

	publish(c, h.Producer, "payment_events", payment.ID, map[string]any{
		"type": "payment_confirmed", "paymentID": payment.ID, "orderID": payment.OrderID,
		"amount": payment.Amount, "status": payment.Status,
	})
	return c.JSON(http.StatusCreated, dto.FromPayment(payment))
}
