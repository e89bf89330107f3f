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
	"github.com/nahomt/bookbridge/internal/service/genai"
	"github.com/nahomt/bookbridge/internal/service/recommend"
	"github.com/nahomt/bookbridge/internal/util"
)

type RecommendationHandler struct {
	DB  *gorm.DB
	Svc *recommend.Service
}

// GetRecommendations lists the caller's recommendations, newest first.
func (h *RecommendationHandler) GetRecommendations(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var recs []models.Recommendation
	if err := h.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list recommendations")
	}

	out := make([]dto.Recommendation, len(recs))
	for i, rec := range recs {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, rec.BookID).Error; err == nil {
			b := bookDTO(ctx, h.DB, book)
			out[i] = dto.FromRecommendation(rec, &b)
		} else {
			out[i] = dto.FromRecommendation(rec, nil)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RecommendationHandler) GetRecommendation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recommendation id")
	}

	var rec models.Recommendation
	if err := h.DB.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load recommendation")
	}
	return c.JSON(http.StatusOK, dto.FromRecommendation(rec, nil))
}

// Generate runs the LLM recommendation workflow for the caller.
func (h *RecommendationHandler) Generate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recommendations.generate")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if h.Svc == nil || h.Svc.AI == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "recommendations are not configured")
	}

	recs, err := h.Svc.Generate(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrNoReviews), errors.Is(err, recommend.ErrNoEmail):
			return echo.NewHTTPError(http.StatusNotFound, "nothing to recommend from")
		case errors.Is(err, recommend.ErrBadResponse):
			l.Error("generate_failed", "status", 502, "reason", "unparsable model response", "error", err)
			return echo.NewHTTPError(http.StatusBadGateway, "model returned an unusable response")
		}
		var upstream *genai.UpstreamError
		if errors.As(err, &upstream) {
			l.Error("generate_failed", "status", upstream.Status, "reason", "model call failed")
			return echo.NewHTTPError(upstream.Status, "model call failed")
		}
		l.Error("generate_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot generate recommendations")
	}

	out := make([]dto.Recommendation, len(recs))
	for i, rec := range recs {
		var book models.Book
		if err := h.DB.WithContext(ctx).First(&book, rec.BookID).Error; err == nil {
			b := bookDTO(ctx, h.DB, book)
			out[i] = dto.FromRecommendation(rec, &b)
		} else {
			out[i] = dto.FromRecommendation(rec, nil)
		}
	}
	return c.JSON(http.StatusCreated, out)
}

// Similar returns books close to the caller's taste per the vector store.
func (h *RecommendationHandler) Similar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recommendations.similar")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if h.Svc == nil || h.Svc.Vectors == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "vector search is not configured")
	}

	limit := util.ParseIntDefault(c.QueryParam("size"), 10)
	books, err := h.Svc.Similar(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, recommend.ErrNoReviews) {
			return echo.NewHTTPError(http.StatusNotFound, "no reviews to build a profile from")
		}
		l.Error("similar_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "similarity search failed")
	}

	out := make([]dto.Book, len(books))
	for i, b := range books {
		out[i] = bookDTO(ctx, h.DB, b)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RecommendationHandler) DeleteRecommendation(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recommendation id")
	}

	res := h.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Recommendation{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete recommendation")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
	}
	return c.NoContent(http.StatusNoContent)
}
