package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
)

type OrderItemHandler struct {
	DB *gorm.DB
}

// GetOrderItems lists order items from the caller's perspective: as the
// customer who ordered them, or as the vendor whose books they reference.
func (h *OrderItemHandler) GetOrderItems(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	role := c.QueryParam("role")
	var items []models.OrderItem
	switch role {
	case "", "customer":
		err = h.DB.WithContext(ctx).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.customer_id = ?", userID).
			Order("order_items.id ASC").
			Find(&items).Error
	case "vendor":
		err = h.DB.WithContext(ctx).
			Joins("JOIN owned_details ON owned_details.book_id = order_items.book_id").
			Where("owned_details.vendor_id = ?", userID).
			Order("order_items.id ASC").
			Find(&items).Error
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "role must be customer or vendor")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list order items")
	}

	out := make([]dto.OrderItem, len(items))
	for i, item := range items {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, item.BookID).Error; err == nil {
			b := bookDTO(ctx, h.DB, book)
			out[i] = dto.FromOrderItem(item, &b)
		} else {
			out[i] = dto.FromOrderItem(item, nil)
		}
	}
	return c.JSON(http.StatusOK, out)
}
