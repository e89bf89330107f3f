package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahomt/bookbridge/internal/models"
)

func TestUploadImageUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	h := &ImageHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")

	_, c := env.doJSONRequest(http.MethodPost, "/api/Images", nil)
	loginAs(c, vendor.ID)
	requireHTTPError(t, h.UploadImage(c), http.StatusServiceUnavailable)
}

func TestDeleteImageVendorOnly(t *testing.T) {
	env := newTestEnv(t)
	h := &ImageHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	other := env.seedUser("other@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	img := models.Image{BookID: book.ID, URL: "https://cdn.example.com/walden.jpg", Key: "covers/walden.jpg"}
	require.NoError(t, env.DB.Create(&img).Error)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/Images/1", nil)
	loginAs(c, other.ID)
	c.SetParamNames("id")
	c.SetParamValues("1")
	requireHTTPError(t, h.DeleteImage(c), http.StatusForbidden)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/Images/1", nil)
	loginAs(c, vendor.ID)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteImage(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Image{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDeleteImageNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := &ImageHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")

	_, c := env.doJSONRequest(http.MethodDelete, "/api/Images/99", nil)
	loginAs(c, vendor.ID)
	c.SetParamNames("id")
	c.SetParamValues("99")
	requireHTTPError(t, h.DeleteImage(c), http.StatusNotFound)
}
