package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/util"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func validReviewStatus(s string) bool {
	switch s {
	case models.ReviewLike, models.ReviewDislike, models.ReviewNeutral:
		return true
	}
	return false
}

// GetReviews lists reviews newest-first, optionally scoped to one book.
func (h *ReviewHandler) GetReviews(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.WithContext(ctx).Model(&models.Review{})
	if bookID := util.ParseIntDefault(c.QueryParam("bookId"), 0); bookID > 0 {
		q = q.Where("book_id = ?", bookID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}

	var reviews []models.Review
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}

	out := make([]dto.Review, len(reviews))
	for i, r := range reviews {
		out[i] = dto.FromReview(r)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": dto.NewListMeta(page, offset, limit, total),
	})
}

func (h *ReviewHandler) GetReview(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var review models.Review
	if err := h.DB.WithContext(ctx).First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load review")
	}
	return c.JSON(http.StatusOK, dto.FromReview(review))
}

// CreateReview rejects an exact duplicate: same user, same book, and either
// the same text or the same status.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reviews.create")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		BookID uint   `json:"book_id"`
		Text   string `json:"text"`
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "book_id is required")
	}
	if !validReviewStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be Like, Dislike or Neutral")
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, req.BookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}

	var dup int64
	if err := h.DB.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ? AND book_id = ? AND (text = ? OR status = ?)", userID, req.BookID, req.Text, req.Status).
		Count(&dup).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check reviews")
	}
	if dup > 0 {
		l.Warn("create_review_failed", "status", 409, "reason", "duplicate review", "book_id", req.BookID)
		return echo.NewHTTPError(http.StatusConflict, "review already exists")
	}

	review := models.Review{UserID: userID, BookID: req.BookID, Text: req.Text, Status: req.Status}
	if err := h.DB.WithContext(ctx).Create(&review).Error; err != nil {
		l.Error("create_review_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create review")
	}

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/Reviews/%d", review.ID))
	return c.JSON(http.StatusCreated, dto.FromReview(review))
}

// PutReview replaces the review's text and status, guarded by the version the
// client read.
func (h *ReviewHandler) PutReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reviews.put")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var req struct {
		ID      uint   `json:"id"`
		Text    string `json:"text"`
		Status  string `json:"status"`
		Version uint   `json:"version"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ID != id {
		return echo.NewHTTPError(http.StatusBadRequest, "path id does not match payload id")
	}
	if !validReviewStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be Like, Dislike or Neutral")
	}

	res := h.DB.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND user_id = ? AND version = ?", id, userID, req.Version).
		Updates(map[string]any{"text": req.Text, "status": req.Status, "version": req.Version + 1})
	if res.Error != nil {
		l.Error("put_review_failed", "status", 500, "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update review")
	}
	if res.RowsAffected == 0 {
		var count int64
		h.DB.WithContext(ctx).Model(&models.Review{}).Where("id = ? AND user_id = ?", id, userID).Count(&count)
		if count == 0 {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		l.Warn("put_review_failed", "status", 409, "reason", "stale version")
		return echo.NewHTTPError(http.StatusConflict, "review was modified concurrently")
	}

	var review models.Review
	if err := h.DB.WithContext(ctx).First(&review, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot reload review")
	}
	return c.JSON(http.StatusOK, dto.FromReview(review))
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	res := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Review{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete review")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return c.NoContent(http.StatusNoContent)
}
