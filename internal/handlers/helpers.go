package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/events"
	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/models"
)

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// publish sends a domain event and only logs on failure; events never fail
// the request that produced them. Safe to call with a nil producer (tests,
// kafka not configured).
func publish(c echo.Context, p *events.Producer, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event_publish_failed", "topic", topic, "error", err)
	}
}

// bookDTO assembles the wire projection of a book together with its image and
// ownership rows.
func bookDTO(ctx context.Context, db *gorm.DB, book models.Book) dto.Book {
	var img *models.Image
	var row models.Image
	if err := db.WithContext(ctx).Where("book_id = ?", book.ID).First(&row).Error; err == nil {
		img = &row
	}

	var owned *models.OwnedDetails
	var ownedRow models.OwnedDetails
	if err := db.WithContext(ctx).Where("book_id = ?", book.ID).First(&ownedRow).Error; err == nil {
		owned = &ownedRow
	}

	var aff *models.AffiliateDetails
	var affRow models.AffiliateDetails
	if err := db.WithContext(ctx).Where("book_id = ?", book.ID).First(&affRow).Error; err == nil {
		aff = &affRow
	}

	return dto.FromBook(book, img, owned, aff)
}
