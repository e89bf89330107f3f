package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/events"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/notify"
	"github.com/nahomt/bookbridge/internal/util"
)

type ConfirmationHandler struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
	Producer *events.Producer
}

func validConfirmationType(t string) bool {
	switch t {
	case models.ConfirmationDispatch, models.ConfirmationReceipt, models.ConfirmationCanceled:
		return true
	}
	return false
}

func (h *ConfirmationHandler) GetConfirmations(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Confirmation{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list confirmations")
	}

	var confs []models.Confirmation
	if err := h.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&confs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list confirmations")
	}

	out := make([]dto.Confirmation, len(confs))
	for i, cf := range confs {
		out[i] = dto.FromConfirmation(cf)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

func (h *ConfirmationHandler) GetConfirmation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid confirmation id")
	}

	var conf models.Confirmation
	if err := h.DB.WithContext(ctx).First(&conf, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "confirmation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load confirmation")
	}
	return c.JSON(http.StatusOK, dto.FromConfirmation(conf))
}

// CreateConfirmation records a milestone against an order item. The
// notification side effects run after the write and can never undo it.
func (h *ConfirmationHandler) CreateConfirmation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "confirmations.create")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		OrderItemID uint   `json:"order_item_id"`
		Type        string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OrderItemID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order_item_id is required")
	}
	if !validConfirmationType(req.Type) {
		l.Warn("create_confirmation_failed", "status", 400, "reason", "bad type", "type", req.Type)
		return echo.NewHTTPError(http.StatusBadRequest, "unknown confirmation type")
	}

	var item models.OrderItem
	if err := h.DB.WithContext(ctx).First(&item, req.OrderItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order item")
	}

	var existing int64
	if err := h.DB.WithContext(ctx).Model(&models.Confirmation{}).
		Where("user_id = ? AND order_item_id = ? AND type = ?", userID, req.OrderItemID, req.Type).
		Count(&existing).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check confirmations")
	}
	if existing > 0 {
		l.Warn("create_confirmation_failed", "status", 409, "reason", "already confirmed")
		return echo.NewHTTPError(http.StatusConflict, "already confirmed")
	}

	conf := models.Confirmation{OrderItemID: req.OrderItemID, UserID: userID, Type: req.Type}
	if err := h.DB.WithContext(ctx).Create(&conf).Error; err != nil {
		l.Error("create_confirmation_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create confirmation")
	}

	if h.Notifier != nil {
		h.Notifier.ConfirmationCreated(ctx, conf)
	}
	publish(c, h.Producer, "confirmation_events", fmt.Sprint(conf.ID), map[string]any{
		"type": "confirmation_created", "confirmationID": conf.ID,
		"orderItemID": conf.OrderItemID, "confirmationType": conf.Type,
	})

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/Confirmations/%d", conf.ID))
	return c.JSON(http.StatusCreated, dto.FromConfirmation(conf))
}

// PatchConfirmation lets the author change the type of an existing
// confirmation, subject to the same uniqueness rule.
func (h *ConfirmationHandler) PatchConfirmation(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "confirmations.patch")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid confirmation id")
	}

	var req struct {
		Type *string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var conf models.Confirmation
	if err := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&conf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "confirmation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load confirmation")
	}

	if req.Type != nil {
		if !validConfirmationType(*req.Type) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown confirmation type")
		}
		var dup int64
		if err := h.DB.WithContext(ctx).Model(&models.Confirmation{}).
			Where("user_id = ? AND order_item_id = ? AND type = ? AND id <> ?", userID, conf.OrderItemID, *req.Type, conf.ID).
			Count(&dup).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot check confirmations")
		}
		if dup > 0 {
			l.Warn("patch_confirmation_failed", "status", 409, "reason", "duplicate type")
			return echo.NewHTTPError(http.StatusConflict, "already confirmed with that type")
		}
		conf.Type = *req.Type
	}

	if err := h.DB.WithContext(ctx).Save(&conf).Error; err != nil {
		l.Error("patch_confirmation_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update confirmation")
	}
	return c.JSON(http.StatusOK, dto.FromConfirmation(conf))
}
