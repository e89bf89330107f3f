package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func volumePayload() map[string]any {
	return map[string]any{
		"totalItems": 1,
		"items": []map[string]any{{
			"id": "vol1",
			"volumeInfo": map[string]any{
				"title":       "Walden",
				"authors":     []string{"Henry David Thoreau"},
				"description": "life in the woods",
				"infoLink":    "https://example.com/walden",
				"industryIdentifiers": []map[string]string{
					{"type": "ISBN_10", "identifier": "0000000000"},
					{"type": "ISBN_13", "identifier": "9780000000001"},
				},
			},
			"saleInfo": map[string]any{"listPrice": map[string]any{"amount": 15.0}},
		}},
	}
}

func TestLookupISBN(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(volumePayload())
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "")
	vol, err := c.LookupISBN(context.Background(), "978-0-00-000000-1")
	require.NoError(t, err)
	require.Equal(t, "isbn:9780000000001", gotQuery)
	require.Equal(t, SourceName, vol.Source)
	require.Equal(t, "vol1", vol.SourceID)
	require.Equal(t, "Walden", vol.Title)
	require.Equal(t, "Henry David Thoreau", vol.Author)
	// ISBN_13 wins over ISBN_10
	require.Equal(t, "9780000000001", vol.ISBN)
	require.Equal(t, 15.0, vol.Price)
}

func TestLookupISBNNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"totalItems": 0})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "")
	_, err := c.LookupISBN(context.Background(), "9780000000001")
	require.Error(t, err)
}

func TestSearchSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		json.NewEncoder(w).Encode(volumePayload())
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "api-key")
	vols, err := c.Search(context.Background(), "walden", 5)
	require.NoError(t, err)
	require.Equal(t, "api-key", gotKey)
	require.Len(t, vols, 1)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient("http://unused", "")
	_, err := c.Search(context.Background(), "  ", 5)
	require.Error(t, err)
}

func TestQueryCatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "")
	_, err := c.Search(context.Background(), "walden", 5)
	require.Error(t, err)
}
