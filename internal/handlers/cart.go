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
	"github.com/nahomt/bookbridge/internal/util"
)

type CartHandler struct {
	DB *gorm.DB
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}

	var items []models.CartItem
	if err := h.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}

	out := make([]dto.CartItem, len(items))
	for i, item := range items {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, item.BookID).Error; err == nil {
			b := bookDTO(ctx, h.DB, book)
			out[i] = dto.FromCartItem(item, &b)
		} else {
			out[i] = dto.FromCartItem(item, nil)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

func (h *CartHandler) GetCartItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart item id")
	}

	var item models.CartItem
	if err := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart item")
	}
	return c.JSON(http.StatusOK, dto.FromCartItem(item, nil))
}

// AddToCart creates a cart line; a second line for the same book is a
// conflict, never a merge.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		BookID   uint `json:"book_id"`
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "book_id is required")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, req.BookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}

	var existing int64
	if err := h.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND book_id = ?", userID, req.BookID).
		Count(&existing).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check cart")
	}
	if existing > 0 {
		l.Warn("add_to_cart_failed", "status", 409, "reason", "book already in cart", "book_id", req.BookID)
		return echo.NewHTTPError(http.StatusConflict, "book already in cart")
	}

	item := models.CartItem{UserID: userID, BookID: req.BookID, Quantity: req.Quantity}
	if err := h.DB.WithContext(ctx).Create(&item).Error; err != nil {
		l.Error("add_to_cart_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add to cart")
	}
	return c.JSON(http.StatusCreated, dto.FromCartItem(item, nil))
}

// PutCartItem replaces the line's quantity.
func (h *CartHandler) PutCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.put")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart item id")
	}

	var req struct {
		ID       uint `json:"id"`
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ID != id {
		return echo.NewHTTPError(http.StatusBadRequest, "path id does not match payload id")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}

	var item models.CartItem
	if err := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart item")
	}

	item.Quantity = req.Quantity
	if err := h.DB.WithContext(ctx).Save(&item).Error; err != nil {
		l.Error("put_cart_item_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart item")
	}
	return c.JSON(http.StatusOK, dto.FromCartItem(item, nil))
}

func (h *CartHandler) DeleteCartItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart item id")
	}

	res := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete cart item")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkDelete removes the caller's cart lines matching the submitted ids.
func (h *CartHandler) BulkDelete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.bulk_delete")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	// Ids arrive either as repeated ?id= query params or as a JSON body.
	var ids []uint
	for _, raw := range c.QueryParams()["id"] {
		if v := util.ParseIntDefault(raw, 0); v > 0 {
			ids = append(ids, uint(v))
		}
	}
	if len(ids) == 0 {
		var req struct {
			IDs []uint `json:"ids"`
		}
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		ids = req.IDs
	}
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids are required")
	}

	res := h.DB.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.CartItem{})
	if res.Error != nil {
		l.Error("bulk_delete_failed", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete cart items")
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": res.RowsAffected})
}
