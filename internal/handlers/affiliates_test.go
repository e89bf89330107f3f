package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/catalog"
)

func newCatalogServer(t *testing.T, payload map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateAffiliateForExistingBook(t *testing.T) {
	env := newTestEnv(t)
	h := &AffiliateHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	body := map[string]any{"book_id": book.ID, "source": "open_library", "source_id": "OL1", "link": "https://example.com"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/AffiliateDetails", body)
	require.NoError(t, h.CreateAffiliate(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Location"))

	_, c = env.doJSONRequest(http.MethodPost, "/api/AffiliateDetails", body)
	requireHTTPError(t, h.CreateAffiliate(c), http.StatusConflict)
}

func TestCreateAffiliateCreatesInvisibleBookFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	srv := newCatalogServer(t, map[string]any{
		"totalItems": 1,
		"items": []map[string]any{{
			"id": "vol1",
			"volumeInfo": map[string]any{
				"title":       "The Catalogued Book",
				"authors":     []string{"Some Author"},
				"description": "from the catalog",
				"industryIdentifiers": []map[string]string{
					{"type": "ISBN_13", "identifier": "9781111111111"},
				},
			},
			"saleInfo": map[string]any{"listPrice": map[string]any{"amount": 19.99}},
		}},
	})
	h := &AffiliateHandler{DB: env.DB, Catalog: catalog.NewClient(srv.URL, "")}

	body := map[string]any{"source": catalog.SourceName, "source_id": "9781111111111"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/AffiliateDetails", body)
	require.NoError(t, h.CreateAffiliate(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var book models.Book
	require.NoError(t, env.DB.Where("title = ?", "The Catalogued Book").First(&book).Error)
	require.False(t, book.Visible)
	require.Equal(t, "Unknown", book.Condition)
	require.Equal(t, "9781111111111", book.ISBN)

	var detail models.AffiliateDetails
	require.NoError(t, env.DB.Where("book_id = ?", book.ID).First(&detail).Error)
	require.Equal(t, catalog.SourceName, detail.Source)
}

func TestCreateAffiliateUnknownSourceNeedsBookID(t *testing.T) {
	env := newTestEnv(t)
	h := &AffiliateHandler{DB: env.DB}

	_, c := env.doJSONRequest(http.MethodPost, "/api/AffiliateDetails",
		map[string]any{"source": "open_library", "source_id": "OL1"})
	requireHTTPError(t, h.CreateAffiliate(c), http.StatusBadRequest)
}

func TestCreateAffiliateCatalogMiss(t *testing.T) {
	env := newTestEnv(t)
	srv := newCatalogServer(t, map[string]any{"totalItems": 0, "items": []map[string]any{}})
	h := &AffiliateHandler{DB: env.DB, Catalog: catalog.NewClient(srv.URL, "")}

	_, c := env.doJSONRequest(http.MethodPost, "/api/AffiliateDetails",
		map[string]any{"source": catalog.SourceName, "source_id": "0000000000000"})
	requireHTTPError(t, h.CreateAffiliate(c), http.StatusNotFound)
}

func TestDeleteAffiliate(t *testing.T) {
	env := newTestEnv(t)
	h := &AffiliateHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	detail := models.AffiliateDetails{BookID: book.ID, Source: "open_library", SourceID: "OL1"}
	require.NoError(t, env.DB.Create(&detail).Error)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/AffiliateDetails/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteAffiliate(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, c = env.doJSONRequest(http.MethodDelete, "/api/AffiliateDetails/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	requireHTTPError(t, h.DeleteAffiliate(c), http.StatusNotFound)
}

func TestGetAffiliatesPaginatesAndClamps(t *testing.T) {
	env := newTestEnv(t)
	h := &AffiliateHandler{DB: env.DB}
	vendor := env.seedUser("vendor@example.com")
	book := env.seedBook(vendor.ID, "Walden")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.DB.Create(&models.AffiliateDetails{
			BookID:   book.ID,
			Source:   "google_books",
			SourceID: fmt.Sprintf("vol-%d", i),
		}).Error)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/AffiliateDetails?size=2", nil)
	require.NoError(t, h.GetAffiliates(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.AffiliateDetails `json:"data"`
		Meta dto.ListMeta              `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.Equal(t, int64(3), resp.Meta.Total)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/AffiliateDetails?size=5000", nil)
	require.NoError(t, h.GetAffiliates(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 100, resp.Meta.Size)
}
