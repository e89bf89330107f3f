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
	"github.com/nahomt/bookbridge/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ?", userID).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	var orders []models.Order
	if err := h.DB.WithContext(ctx).Where("customer_id = ?", userID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	out := make([]dto.Order, len(orders))
	for i, o := range orders {
		out[i] = dto.FromOrder(o, h.orderItems(c, o.ID))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

type createOrderRequest struct {
	Items []struct {
		BookID   uint `json:"book_id"`
		Quantity uint `json:"quantity"`
	} `json:"items"`
	DeliveryLocation     string `json:"delivery_location"`
	DeliveryInstructions string `json:"delivery_instructions"`
}

// CreateOrder writes the order, its items, the sale ledger entries and the
// cart cleanup in one transaction. The total is computed from current book
// prices at creation time and never re-validated afterwards.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.create")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		l.Warn("create_order_failed", "status", 400, "reason", "no items")
		return echo.NewHTTPError(http.StatusBadRequest, "items are required")
	}
	if req.DeliveryLocation == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "delivery_location is required")
	}
	for _, item := range req.Items {
		if item.BookID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "book_id is required")
		}
		if item.Quantity == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
		}
	}

	order := models.Order{
		CustomerID:           userID,
		Status:               models.OrderStatusPending,
		DeliveryLocation:     req.DeliveryLocation,
		DeliveryInstructions: req.DeliveryInstructions,
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		bookIDs := make([]uint, 0, len(req.Items))
		items := make([]models.OrderItem, 0, len(req.Items))

		for _, line := range req.Items {
			var book models.Book
			if err := tx.First(&book, line.BookID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("book %d: %w", line.BookID, gorm.ErrRecordNotFound)
				}
				return err
			}
			total += float64(line.Quantity) * book.Price
			bookIDs = append(bookIDs, line.BookID)
			items = append(items, models.OrderItem{BookID: line.BookID, Quantity: line.Quantity})
		}

		order.Total = total
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
			entry := models.InventoryLog{
				BookID:   items[i].BookID,
				Quantity: -int(items[i].Quantity),
				Type:     models.InventorySale,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return tx.Where("user_id = ? AND book_id IN ?", userID, bookIDs).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("create_order_failed", "status", 404, "reason", "book not found", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		l.Error("create_order_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type": "order_created", "orderID": order.ID, "customerID": userID, "total": order.Total,
	})

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/Orders/%d", order.ID))
	return c.JSON(http.StatusCreated, dto.FromOrder(order, h.orderItems(c, order.ID)))
}

func (h *OrderHandler) orderItems(c echo.Context, orderID uint) []dto.OrderItem {
	ctx := c.Request().Context()

	var items []models.OrderItem
	if err := h.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil
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
	return out
}
