package sources

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"padwatch/config"
	"padwatch/models"
)

// HTMLHandler scrapes server-rendered listing pages. Card markup is
// assumed stable per source; selector drift surfaces as zero results.
type HTMLHandler struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func NewHTMLHandler(cfg *config.SourceConfig) *HTMLHandler {
	return &HTMLHandler{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (h *HTMLHandler) ID() string {
	return h.cfg.ID
}

func (h *HTMLHandler) Fetch(ctx context.Context, area Area) ([]models.RawListing, error) {
	var allListings []models.RawListing

	for page := 1; page <= h.cfg.MaxPages; page++ {
		listings, hasNext, err := h.fetchPage(ctx, area, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if len(listings) == 0 {
			break
		}

		allListings = append(allListings, listings...)
		log.Printf("[%s] page %d: %d listings for %s (total: %d)",
			h.cfg.ID, page, len(listings), area.Neighborhood, len(allListings))

		if !hasNext {
			break
		}

		if err := rateLimit(ctx, h.cfg); err != nil {
			return allListings, err
		}
	}

	return allListings, nil
}

func (h *HTMLHandler) fetchPage(ctx context.Context, area Area, page int) ([]models.RawListing, bool, error) {
	endpoint := h.cfg.Endpoints["listings"]

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, false, err
	}
	q := u.Query()
	q.Set("area", area.AreaID)
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("listing page error %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, err
	}

	listings := h.parseListings(doc, area)
	hasNext := doc.Find("a.next-page, .pagination .next:not(.disabled)").Length() > 0

	return listings, hasNext, nil
}

func (h *HTMLHandler) parseListings(doc *goquery.Document, area Area) []models.RawListing {
	var listings []models.RawListing

	doc.Find(".listing-card").Each(func(_ int, card *goquery.Selection) {
		externalID, _ := card.Attr("data-listing-id")
		if externalID == "" {
			return
		}

		listing := models.RawListing{
			ExternalID:   externalID,
			Neighborhood: area.Neighborhood,
			Address:      strings.TrimSpace(card.Find(".listing-address").Text()),
			Unit:         strings.TrimSpace(card.Find(".listing-unit").Text()),
			Price:        parsePrice(card.Find(".listing-price").Text()),
			Bedrooms:     parseBeds(card.Find(".listing-beds").Text()),
			Bathrooms:    parseBaths(card.Find(".listing-baths").Text()),
			SqFt:         parseDigits(card.Find(".listing-sqft").Text()),
			NoFee:        card.Find(".no-fee-badge").Length() > 0,
		}

		if href, ok := card.Find("a.listing-link").Attr("href"); ok {
			listing.URL = h.absoluteURL(href)
		}
		if src, ok := card.Find("img.listing-photo").Attr("src"); ok {
			listing.ImageURL = src
		}
		if lat, ok := card.Attr("data-lat"); ok {
			if v, err := strconv.ParseFloat(lat, 64); err == nil {
				listing.Lat = &v
			}
		}
		if lng, ok := card.Attr("data-lng"); ok {
			if v, err := strconv.ParseFloat(lng, 64); err == nil {
				listing.Lng = &v
			}
		}

		listings = append(listings, listing)
	})

	return listings
}

func (h *HTMLHandler) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(h.cfg.Endpoints["listings"])
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// parsePrice extracts the dollar amount from text like "$3,200/mo".
func parsePrice(text string) int {
	return parseDigits(text)
}

func parseDigits(text string) int {
	var result int
	for _, c := range text {
		if c >= '0' && c <= '9' {
			result = result*10 + int(c-'0')
		}
	}
	return result
}

// parseBeds handles "2 bed", "Studio", "2BR".
func parseBeds(text string) int {
	if strings.Contains(strings.ToLower(text), "studio") {
		return 0
	}
	return parseDigits(text)
}

// parseBaths handles "1 bath" and "1.5 bath".
func parseBaths(text string) float64 {
	fields := strings.Fields(text)
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			return v
		}
	}
	return float64(parseDigits(text))
}
