// Package notify sends the emails triggered by confirmation milestones. None
// of these sends may fail the confirmation write: every failure path here
// ends in a logged warning.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/mailer"
)

type Notifier struct {
	DB         *gorm.DB
	Mail       mailer.Sender
	AdminEmail string
}

// ConfirmationCreated dispatches the notification matching the confirmation
// type. Missing related rows short-circuit the specific notice with a
// warning.
func (n *Notifier) ConfirmationCreated(ctx context.Context, conf models.Confirmation) {
	l := logging.FromContext(ctx).With("svc", "notify.confirmation", "confirmation_id", conf.ID, "type", conf.Type)

	if n.Mail == nil {
		l.Warn("notification_skipped", "reason", "no mailer configured")
		return
	}

	var item models.OrderItem
	if err := n.DB.WithContext(ctx).First(&item, conf.OrderItemID).Error; err != nil {
		l.Warn("notification_skipped", "reason", "order item not found", "error", err)
		return
	}
	var book models.Book
	if err := n.DB.WithContext(ctx).First(&book, item.BookID).Error; err != nil {
		l.Warn("notification_skipped", "reason", "book not found", "error", err)
		return
	}

	switch conf.Type {
	case models.ConfirmationDispatch:
		n.notifyDispatch(ctx, l, item, book)
	case models.ConfirmationReceipt:
		n.notifyReceipt(ctx, l, item, book)
	}
}

func (n *Notifier) notifyDispatch(ctx context.Context, l *slog.Logger, item models.OrderItem, book models.Book) {
	var order models.Order
	if err := n.DB.WithContext(ctx).First(&order, item.OrderID).Error; err != nil {
		l.Warn("notification_skipped", "reason", "order not found", "error", err)
		return
	}
	var customer models.User
	if err := n.DB.WithContext(ctx).First(&customer, order.CustomerID).Error; err != nil {
		l.Warn("notification_skipped", "reason", "customer not found", "error", err)
		return
	}

	subject := "Your order is on the way"
	body := fmt.Sprintf("Hi %s,\n\n%q by %s has been dispatched and is on its way to %s.\n\nBookBridge",
		customer.Name, book.Title, book.Author, order.DeliveryLocation)
	if err := n.Mail.Send(customer.Email, subject, body); err != nil {
		l.Warn("notification_failed", "to", customer.Email, "error", err)
		return
	}
	l.Info("notification_sent", "to", customer.Email)
}

func (n *Notifier) notifyReceipt(ctx context.Context, l *slog.Logger, item models.OrderItem, book models.Book) {
	var owned models.OwnedDetails
	if err := n.DB.WithContext(ctx).Where("book_id = ?", book.ID).First(&owned).Error; err != nil {
		l.Warn("notification_skipped", "reason", "no vendor for book", "error", err)
		return
	}
	var vendor models.User
	if err := n.DB.WithContext(ctx).First(&vendor, owned.VendorID).Error; err != nil {
		l.Warn("notification_skipped", "reason", "vendor not found", "error", err)
		return
	}

	amount := float64(item.Quantity) * book.Price

	subject := "Delivery confirmed, payment on the way"
	body := fmt.Sprintf("Hi %s,\n\nThe buyer confirmed receipt of %q. Your payment of %.2f will be released shortly.\n\nBookBridge",
		vendor.Name, book.Title, amount)
	if err := n.Mail.Send(vendor.Email, subject, body); err != nil {
		l.Warn("notification_failed", "to", vendor.Email, "error", err)
	} else {
		l.Info("notification_sent", "to", vendor.Email)
	}

	if n.AdminEmail == "" {
		l.Warn("notification_skipped", "reason", "no admin mailbox configured")
		return
	}
	adminBody := fmt.Sprintf("Receipt confirmed for order item %d (%q).\nRelease %.2f to vendor %s <%s>.",
		item.ID, book.Title, amount, vendor.Name, vendor.Email)
	if err := n.Mail.Send(n.AdminEmail, "Release payment", adminBody); err != nil {
		l.Warn("notification_failed", "to", n.AdminEmail, "error", err)
		return
	}
	l.Info("notification_sent", "to", n.AdminEmail)
}
