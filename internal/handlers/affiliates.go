package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/logging"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/catalog"
	"github.com/nahomt/bookbridge/internal/util"
)

type AffiliateHandler struct {
	DB      *gorm.DB
	Catalog *catalog.Client
}

type createAffiliateRequest struct {
	BookID   uint   `json:"book_id"`
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Link     string `json:"link"`
}

func (h *AffiliateHandler) GetAffiliates(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	src := c.QueryParam("source")
	filtered := func(q *gorm.DB) *gorm.DB {
		if src != "" {
			return q.Where("source = ?", src)
		}
		return q
	}

	var total int64
	if err := filtered(h.DB.WithContext(ctx).Model(&models.AffiliateDetails{})).
		Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list affiliate details")
	}

	var details []models.AffiliateDetails
	if err := filtered(h.DB.WithContext(ctx)).
		Order("id ASC").Offset(offset).Limit(limit).Find(&details).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list affiliate details")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": details,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

func (h *AffiliateHandler) GetAffiliate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid affiliate id")
	}
	var detail models.AffiliateDetails
	if err := h.DB.WithContext(ctx).First(&detail, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "affiliate detail not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load affiliate detail")
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateAffiliate links a book to an external listing. When no book id is
// given the book is created from the catalog entry, hidden from browsing
// until a vendor claims it.
func (h *AffiliateHandler) CreateAffiliate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "affiliates.create")

	var req createAffiliateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Source = strings.TrimSpace(req.Source)
	req.SourceID = strings.TrimSpace(req.SourceID)
	if req.Source == "" || req.SourceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source and source_id are required")
	}

	bookID := req.BookID
	if bookID == 0 {
		id, err := h.bookFromCatalog(c, req.Source, req.SourceID)
		if err != nil {
			return err
		}
		bookID = id
	} else {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "book not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
		}
	}

	var count int64
	if err := h.DB.WithContext(ctx).Model(&models.AffiliateDetails{}).
		Where("book_id = ? AND source = ? AND source_id = ?", bookID, req.Source, req.SourceID).
		Count(&count).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check affiliate detail")
	}
	if count > 0 {
		l.Warn("create_rejected", "status", 409, "reason", "duplicate affiliate detail",
			"book_id", bookID, "source", req.Source)
		return echo.NewHTTPError(http.StatusConflict, "affiliate detail already exists")
	}

	detail := models.AffiliateDetails{
		BookID:   bookID,
		Source:   req.Source,
		SourceID: req.SourceID,
		Link:     req.Link,
	}
	if err := h.DB.WithContext(ctx).Create(&detail).Error; err != nil {
		l.Error("create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create affiliate detail")
	}

	c.Response().Header().Set("Location", fmt.Sprintf("/api/AffiliateDetails/%d", detail.ID))
	return c.JSON(http.StatusCreated, detail)
}

func (h *AffiliateHandler) DeleteAffiliate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid affiliate id")
	}
	res := h.DB.WithContext(ctx).Delete(&models.AffiliateDetails{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete affiliate detail")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "affiliate detail not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// bookFromCatalog resolves a catalog volume into a local book row, creating
// an invisible one when the title is unknown.
func (h *AffiliateHandler) bookFromCatalog(c echo.Context, source, sourceID string) (uint, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "affiliates.create")

	if h.Catalog == nil || source != catalog.SourceName {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "book_id is required for this source")
	}

	vol, err := h.Catalog.LookupISBN(ctx, sourceID)
	if err != nil {
		l.Warn("catalog_lookup_failed", "status", 404, "source_id", sourceID, "error", err)
		return 0, echo.NewHTTPError(http.StatusNotFound, "no catalog entry for source_id")
	}

	var book models.Book
	err = h.DB.WithContext(ctx).Where("title = ? AND author = ?", vol.Title, vol.Author).First(&book).Error
	if err == nil {
		return book.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, echo.NewHTTPError(http.StatusInternalServerError, "cannot look up book")
	}

	book = models.Book{
		Title:       vol.Title,
		Author:      vol.Author,
		ISBN:        vol.ISBN,
		Price:       vol.Price,
		Description: vol.Description,
		Condition:   "Unknown",
		Visible:     false,
	}
	if err := h.DB.WithContext(ctx).Create(&book).Error; err != nil {
		return 0, echo.NewHTTPError(http.StatusInternalServerError, "cannot create book")
	}
	return book.ID, nil
}
