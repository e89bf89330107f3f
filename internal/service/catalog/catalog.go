// Package catalog looks up book metadata in the Google Books volumes API,
// which backs affiliate listings sourced from an external catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const SourceName = "google_books"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Volume is the normalized shape the rest of the app consumes.
type Volume struct {
	Source      string  `json:"source"`
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Link        string  `json:"link"`
	Price       float64 `json:"price"`
}

type volumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		SelfLink   string `json:"selfLink"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			InfoLink string `json:"infoLink"`
		} `json:"volumeInfo"`
		SaleInfo struct {
			ListPrice struct {
				Amount float64 `json:"amount"`
			} `json:"listPrice"`
		} `json:"saleInfo"`
	} `json:"items"`
}

// LookupISBN returns the best match for an ISBN, or an error when the catalog
// knows no such volume.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Volume, error) {
	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return nil, fmt.Errorf("isbn is required")
	}
	vols, err := c.query(ctx, "isbn:"+isbn, 1)
	if err != nil {
		return nil, err
	}
	if len(vols) == 0 {
		return nil, fmt.Errorf("no volume found for isbn %s", isbn)
	}
	return &vols[0], nil
}

// Search runs a free-text query against the catalog.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Volume, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 || limit > 40 {
		limit = 10
	}
	return c.query(ctx, query, limit)
}

func (c *Client) query(ctx context.Context, q string, limit int) ([]Volume, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", fmt.Sprint(limit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var data volumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	out := make([]Volume, 0, len(data.Items))
	for _, item := range data.Items {
		v := Volume{
			Source:      SourceName,
			SourceID:    item.ID,
			Title:       item.VolumeInfo.Title,
			Description: item.VolumeInfo.Description,
			Thumbnail:   item.VolumeInfo.ImageLinks.Thumbnail,
			Link:        item.VolumeInfo.InfoLink,
			Price:       item.SaleInfo.ListPrice.Amount,
		}
		if len(item.VolumeInfo.Authors) > 0 {
			v.Author = strings.Join(item.VolumeInfo.Authors, ", ")
		}
		for _, id := range item.VolumeInfo.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				v.ISBN = id.Identifier
				break
			}
			if id.Type == "ISBN_10" && v.ISBN == "" {
				v.ISBN = id.Identifier
			}
		}
		out = append(out, v)
	}
	return out, nil
}
