package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
)

type DeliveryHandler struct {
	DB *gorm.DB
}

// GetDeliveries lists order items in transit: dispatched by the vendor but
// not yet confirmed received by the customer.
func (h *DeliveryHandler) GetDeliveries(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	role := c.QueryParam("role")
	q := h.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN confirmations ON confirmations.order_item_id = order_items.id AND confirmations.type = ?", models.ConfirmationDispatch).
		Where("NOT EXISTS (SELECT 1 FROM confirmations r WHERE r.order_item_id = order_items.id AND r.type = ?)", models.ConfirmationReceipt)

	switch role {
	case "", "customer":
		q = q.Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.customer_id = ?", userID)
	case "vendor":
		q = q.Joins("JOIN owned_details ON owned_details.book_id = order_items.book_id").
			Where("owned_details.vendor_id = ?", userID)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "role must be customer or vendor")
	}

	var items []models.OrderItem
	if err := q.Order("order_items.id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list deliveries")
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
