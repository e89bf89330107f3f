package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/events"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/catalog"
	"github.com/nahomt/bookbridge/internal/service/search"
	"github.com/nahomt/bookbridge/internal/util"
)

type BookHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
	ESIndex  string
	Catalog  *catalog.Client
}

func (h *BookHandler) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Book{}).Where("visible = ?", true).Count(&total).Error; err != nil {
		l.Error("list_books_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}

	var books []models.Book
	if err := h.DB.WithContext(ctx).Where("visible = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		l.Error("list_books_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}

	items := make([]dto.Book, len(books))
	for i, b := range books {
		items[i] = bookDTO(ctx, h.DB, b)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

// GetMyBooks lists the caller's owned listings, hidden ones included.
func (h *BookHandler) GetMyBooks(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var owned []models.OwnedDetails
	if err := h.DB.WithContext(ctx).Where("vendor_id = ?", userID).Find(&owned).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list books")
	}

	items := make([]dto.Book, 0, len(owned))
	for _, o := range owned {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, o.BookID).Error; err != nil {
			continue
		}
		items = append(items, bookDTO(ctx, h.DB, book))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BookHandler) GetBook(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}
	return c.JSON(http.StatusOK, bookDTO(ctx, h.DB, book))
}

type createBookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Quantity    uint    `json:"quantity"`
	Visible     bool    `json:"visible"`
}

// CreateBook lists a book for sale with the caller as vendor. A second book
// with the same isbn, title and author is a conflict, not a new listing.
func (h *BookHandler) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.create")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" || req.Author == "" {
		l.Warn("create_book_failed", "status", 400, "reason", "missing title or author")
		return echo.NewHTTPError(http.StatusBadRequest, "title and author are required")
	}

	var existing int64
	if err := h.DB.WithContext(ctx).Model(&models.Book{}).
		Where("isbn = ? AND title = ? AND author = ?", req.ISBN, req.Title, req.Author).
		Count(&existing).Error; err != nil {
		l.Error("create_book_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create book")
	}
	if existing > 0 {
		l.Warn("create_book_failed", "status", 409, "reason", "duplicate listing")
		return echo.NewHTTPError(http.StatusConflict, "book already listed")
	}

	book := models.Book{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Price:       req.Price,
		Description: req.Description,
		Condition:   req.Condition,
		Quantity:    req.Quantity,
		Visible:     req.Visible,
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&book).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.OwnedDetails{BookID: book.ID, VendorID: userID}).Error; err != nil {
			return err
		}
		entry := models.InventoryLog{BookID: book.ID, Quantity: int(book.Quantity), Type: models.InventoryInitialStock}
		return tx.Create(&entry).Error
	})
	if err != nil {
		l.Error("create_book_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create book")
	}

	h.index(c, book)
	publish(c, h.Producer, "book_events", fmt.Sprint(book.ID), map[string]any{
		"type": "book_created", "bookID": book.ID, "title": book.Title, "vendorID": userID,
	})

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/Books/%d", book.ID))
	return c.JSON(http.StatusCreated, bookDTO(ctx, h.DB, book))
}

type putBookRequest struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Quantity    uint    `json:"quantity"`
	Visible     bool    `json:"visible"`
	Version     uint    `json:"version"`
}

// PutBook replaces all mutable fields. The update is guarded by the version
// stamp the client read: a moved version is a conflict, a vanished row is
// not-found.
func (h *BookHandler) PutBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.put")

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	var req putBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ID != id {
		l.Warn("put_book_failed", "status", 400, "reason", "id mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "path id does not match payload id")
	}
	if req.Title == "" || req.Author == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and author are required")
	}

	updates := map[string]any{
		"title":       req.Title,
		"author":      req.Author,
		"isbn":        req.ISBN,
		"price":       req.Price,
		"description": req.Description,
		"condition":   req.Condition,
		"quantity":    req.Quantity,
		"visible":     req.Visible,
		"version":     req.Version + 1,
	}
	return h.guardedUpdate(c, l, id, req.Version, updates)
}

type patchBookRequest struct {
	Title       *string  `json:"title"`
	Author      *string  `json:"author"`
	ISBN        *string  `json:"isbn"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Condition   *string  `json:"condition"`
	Quantity    *uint    `json:"quantity"`
	Visible     *bool    `json:"visible"`
}

// PatchBook applies a field-level patch against the current row, guarded by
// the version read inside the handler.
func (h *BookHandler) PatchBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.patch")

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	var req patchBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}

	updates := map[string]any{"version": book.Version + 1}
	if req.Title != nil {
		if *req.Title == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "title cannot be empty")
		}
		updates["title"] = *req.Title
	}
	if req.Author != nil {
		if *req.Author == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "author cannot be empty")
		}
		updates["author"] = *req.Author
	}
	if req.ISBN != nil {
		updates["isbn"] = *req.ISBN
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Condition != nil {
		updates["condition"] = *req.Condition
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.Visible != nil {
		updates["visible"] = *req.Visible
	}
	return h.guardedUpdate(c, l, id, book.Version, updates)
}

func (h *BookHandler) guardedUpdate(c echo.Context, l *slog.Logger, id, version uint, updates map[string]any) error {
	ctx := c.Request().Context()

	res := h.DB.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		l.Error("update_book_failed", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update book")
	}
	if res.RowsAffected == 0 {
		var count int64
		h.DB.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			l.Warn("update_book_failed", "status", 404, "reason", "book vanished")
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		l.Warn("update_book_failed", "status", 409, "reason", "stale version")
		return echo.NewHTTPError(http.StatusConflict, "book was modified concurrently")
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot reload book")
	}

	h.index(c, book)
	publish(c, h.Producer, "book_events", fmt.Sprint(book.ID), map[string]any{
		"type": "book_updated", "bookID": book.ID, "title": book.Title,
	})
	return c.JSON(http.StatusOK, bookDTO(ctx, h.DB, book))
}

// DeleteBook removes the listing and its dependent rows, recording the stock
// removal in the inventory ledger first.
func (h *BookHandler) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.delete")

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.InventoryLog{BookID: book.ID, Quantity: -int(book.Quantity), Type: models.InventoryDeletion}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		for _, dep := range []any{
			&models.OwnedDetails{}, &models.AffiliateDetails{}, &models.Image{},
			&models.CartItem{}, &models.Review{}, &models.Recommendation{},
		} {
			if err := tx.Where("book_id = ?", book.ID).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Book{}, book.ID).Error
	})
	if err != nil {
		l.Error("delete_book_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete book")
	}

	if h.ES != nil {
		if err := search.DeleteBook(ctx, h.ES, h.ESIndex, book.ID); err != nil {
			l.Warn("index_delete_failed", "book_id", book.ID, "error", err)
		}
	}
	publish(c, h.Producer, "book_events", fmt.Sprint(book.ID), map[string]any{
		"type": "book_deleted", "bookID": book.ID,
	})
	return c.NoContent(http.StatusNoContent)
}

// SearchBooks runs a full-text query against the Elasticsearch index.
func (h *BookHandler) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.search")

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, books, err := search.Search(ctx, h.ES, h.ESIndex, q, from, limit)
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"total": total, "books": books})
}

// LookupBooks queries the external metadata catalog, for registering
// affiliate listings.
func (h *BookHandler) LookupBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "books.lookup")

	if h.Catalog == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog is not configured")
	}

	if isbn := c.QueryParam("isbn"); isbn != "" {
		vol, err := h.Catalog.LookupISBN(ctx, isbn)
		if err != nil {
			l.Warn("lookup_failed", "status", 404, "isbn", isbn, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "no volume found")
		}
		return c.JSON(http.StatusOK, []catalog.Volume{*vol})
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "isbn or q is required")
	}
	vols, err := h.Catalog.Search(ctx, q, util.ParseIntDefault(c.QueryParam("size"), 10))
	if err != nil {
		l.Error("lookup_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "catalog lookup failed")
	}
	return c.JSON(http.StatusOK, vols)
}

// index pushes the book into the search index; logs and moves on when the
// index is down.
func (h *BookHandler) index(c echo.Context, book models.Book) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	if err := search.IndexBook(ctx, h.ES, h.ESIndex, book); err != nil {
		logging.FromContext(ctx).Warn("index_failed", "book_id", book.ID, "error", err)
	}
}
