package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"padwatch/config"
	"padwatch/models"
)

type APIHandler struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func NewAPIHandler(cfg *config.SourceConfig) *APIHandler {
	return &APIHandler{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (h *APIHandler) ID() string {
	return h.cfg.ID
}

func (h *APIHandler) Fetch(ctx context.Context, area Area) ([]models.RawListing, error) {
	var allListings []models.RawListing

	for page := 1; page <= h.cfg.MaxPages; page++ {
		listings, totalPages, err := h.fetchPage(ctx, area, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if len(listings) == 0 {
			break
		}

		allListings = append(allListings, listings...)
		log.Printf("[%s] page %d: %d listings for %s (total: %d)",
			h.cfg.ID, page, len(listings), area.Neighborhood, len(allListings))

		// Trust the feed's own page count when it reports one; some feeds
		// cap per_page server-side, so a short page alone doesn't mean the
		// results are exhausted.
		if totalPages > 0 {
			if page >= totalPages {
				break
			}
		} else if len(listings) < feedPageSize {
			break
		}

		if err := rateLimit(ctx, h.cfg); err != nil {
			return allListings, err
		}
	}

	return allListings, nil
}

const feedPageSize = 100

func (h *APIHandler) fetchPage(ctx context.Context, area Area, page int) ([]models.RawListing, int, error) {
	endpoint := h.cfg.Endpoints["search"]

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, 0, err
	}
	q := u.Query()
	q.Set("area", area.AreaID)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(feedPageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("feed API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result feedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, err
	}

	var listings []models.RawListing
	for _, r := range result.Listings {
		listing := models.RawListing{
			ExternalID:   r.ID,
			Address:      r.Address,
			Unit:         r.Unit,
			Neighborhood: area.Neighborhood,
			Price:        r.Price,
			Bedrooms:     r.Bedrooms,
			Bathrooms:    r.Bathrooms,
			SqFt:         r.SqFt,
			NoFee:        r.NoFee,
			URL:          r.URL,
			Lat:          r.Lat,
			Lng:          r.Lng,
		}
		if len(r.Images) > 0 {
			listing.ImageURL = r.Images[0]
		}

		data, _ := json.Marshal(r)
		listing.Data = data
		listings = append(listings, listing)
	}

	return listings, result.Paging.TotalPages, nil
}

type feedSearchResponse struct {
	Listings []feedListing `json:"listings"`
	Paging   struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalPages int `json:"total_pages"`
		Total      int `json:"total"`
	} `json:"paging"`
}

type feedListing struct {
	ID        string   `json:"id"`
	Address   string   `json:"address"`
	Unit      string   `json:"unit"`
	Price     int      `json:"price"`
	Bedrooms  int      `json:"bedrooms"`
	Bathrooms float64  `json:"bathrooms"`
	SqFt      int      `json:"sqft"`
	NoFee     bool     `json:"no_fee"`
	URL       string   `json:"url"`
	Images    []string `json:"images"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}
