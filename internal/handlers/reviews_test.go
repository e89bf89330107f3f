package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/models"
)

func TestCreateReview(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/Reviews",
		map[string]any{"book_id": book.ID, "text": "great read", "status": models.ReviewLike})
	loginAs(c, customer.ID)
	require.NoError(t, h.CreateReview(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Location"))
}

func TestCreateReviewBadStatus(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	customer := env.seedUser("customer@example.com")

	_, c := env.doJSONRequest(http.MethodPost, "/api/Reviews",
		map[string]any{"book_id": 1, "status": "Meh"})
	loginAs(c, customer.ID)
	requireHTTPError(t, h.CreateReview(c), http.StatusBadRequest)
}

func TestCreateReviewMissingBook(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	customer := env.seedUser("customer@example.com")

	_, c := env.doJSONRequest(http.MethodPost, "/api/Reviews",
		map[string]any{"book_id": 123, "status": models.ReviewLike})
	loginAs(c, customer.ID)
	requireHTTPError(t, h.CreateReview(c), http.StatusNotFound)
}

func TestCreateReviewDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	_, c := env.doJSONRequest(http.MethodPost, "/api/Reviews",
		map[string]any{"book_id": book.ID, "text": "great read", "status": models.ReviewLike})
	loginAs(c, customer.ID)
	require.NoError(t, h.CreateReview(c))

	// same status counts as a duplicate even with different text
	_, c = env.doJSONRequest(http.MethodPost, "/api/Reviews",
		map[string]any{"book_id": book.ID, "text": "changed my mind", "status": models.ReviewLike})
	loginAs(c, customer.ID)
	requireHTTPError(t, h.CreateReview(c), http.StatusConflict)
}

func TestGetReviewsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	old := models.Review{UserID: customer.ID, BookID: book.ID, Text: "old", Status: models.ReviewNeutral,
		CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, env.DB.Create(&old).Error)
	recent := models.Review{UserID: customer.ID, BookID: book.ID, Text: "new", Status: models.ReviewLike,
		CreatedAt: time.Now()}
	require.NoError(t, env.DB.Create(&recent).Error)

	rec, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/Reviews?bookId=%d", book.ID), nil)
	require.NoError(t, h.GetReviews(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []dto.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.Equal(t, "new", resp.Data[0].Text)
	require.Equal(t, "old", resp.Data[1].Text)
}

func TestPutReviewVersionGuard(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	review := models.Review{UserID: customer.ID, BookID: book.ID, Text: "ok", Status: models.ReviewNeutral}
	require.NoError(t, env.DB.Create(&review).Error)

	body := map[string]any{"id": review.ID, "text": "loved it", "status": models.ReviewLike, "version": review.Version}
	rec, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/Reviews/%d", review.ID), body)
	loginAs(c, customer.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(review.ID))
	require.NoError(t, h.PutReview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, review.Version+1, resp.Version)
	require.Equal(t, models.ReviewLike, resp.Status)

	_, c = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/Reviews/%d", review.ID), body)
	loginAs(c, customer.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(review.ID))
	requireHTTPError(t, h.PutReview(c), http.StatusConflict)
}

func TestPutReviewOtherUsersReviewIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	other := env.seedUser("other@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	review := models.Review{UserID: customer.ID, BookID: book.ID, Status: models.ReviewLike}
	require.NoError(t, env.DB.Create(&review).Error)

	body := map[string]any{"id": review.ID, "status": models.ReviewDislike, "version": review.Version}
	_, c := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/Reviews/%d", review.ID), body)
	loginAs(c, other.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(review.ID))
	requireHTTPError(t, h.PutReview(c), http.StatusNotFound)
}

func TestDeleteReview(t *testing.T) {
	env := newTestEnv(t)
	h := &ReviewHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	customer := env.seedUser("customer@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	review := models.Review{UserID: customer.ID, BookID: book.ID, Status: models.ReviewLike}
	require.NoError(t, env.DB.Create(&review).Error)

	rec, c := env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/Reviews/%d", review.ID), nil)
	loginAs(c, customer.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(review.ID))
	require.NoError(t, h.DeleteReview(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
