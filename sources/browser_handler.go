package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"padwatch/config"
	"padwatch/models"
)

// BrowserHandler drives a real browser against sources that gate their
// search API behind bot detection. Listings come from intercepting the
// site's own XHR responses, not from scraping rendered markup.
type BrowserHandler struct {
	cfg         *config.SourceConfig
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	mu          sync.Mutex
	sessionMu   sync.Mutex
	initialized bool

	pageDelayMin int
	pageDelayMax int
}

// sessionPage is the slice of playwright.Page the pagination loop drives.
type sessionPage interface {
	Evaluate(expression string, arg ...any) (any, error)
	WaitForTimeout(timeout float64)
	Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator
	Close(options ...playwright.PageCloseOptions) error
}

func NewBrowserHandler(cfg *config.SourceConfig) *BrowserHandler {
	return &BrowserHandler{
		cfg:          cfg,
		pageDelayMin: 2000,
		pageDelayMax: 4000,
	}
}

func (h *BrowserHandler) ID() string {
	return h.cfg.ID
}

func (h *BrowserHandler) Fetch(ctx context.Context, area Area) ([]models.RawListing, error) {
	if err := h.ensureBrowser(); err != nil {
		return nil, err
	}
	return h.runSession(ctx, area, func() (sessionPage, error) {
		return h.startSession(area)
	})
}

// runSession serializes whole sessions. The persistent context is shared
// across alert goroutines, and interleaved page state would cross-wire
// intercepted responses between areas. The page lives on the stack of one
// session, never on the handler.
func (h *BrowserHandler) runSession(ctx context.Context, area Area, open func() (sessionPage, error)) ([]models.RawListing, error) {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()

	page, err := open()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	return h.paginate(ctx, page, area)
}

func (h *BrowserHandler) paginate(ctx context.Context, page sessionPage, area Area) ([]models.RawListing, error) {
	var allListings []models.RawListing

	for pageNum := 1; pageNum <= h.cfg.MaxPages; pageNum++ {
		if ctx.Err() != nil {
			return allListings, ctx.Err()
		}

		listings, err := h.fetchCurrentPage(page)
		if err != nil {
			log.Printf("[%s] error on page %d: %v", h.cfg.ID, pageNum, err)
			break
		}

		if len(listings) == 0 {
			break
		}

		for i := range listings {
			listings[i].Neighborhood = area.Neighborhood
		}
		allListings = append(allListings, listings...)
		log.Printf("[%s] page %d: %d listings (total: %d)", h.cfg.ID, pageNum, len(listings), len(allListings))

		if !h.clickNextPage(page) {
			break
		}
		h.humanDelay(h.pageDelayMin, h.pageDelayMax)
	}

	return allListings, nil
}

func (h *BrowserHandler) ensureBrowser() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	var err error
	h.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	cwd, _ := os.Getwd()
	userDataDir := filepath.Join(cwd, "browser_data")
	h.context, err = h.pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	h.initialized = true
	return nil
}

func (h *BrowserHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.context != nil {
		h.context.Close()
	}
	if h.pw != nil {
		h.pw.Stop()
	}
	h.initialized = false
}

func (h *BrowserHandler) startSession(area Area) (playwright.Page, error) {
	page, err := h.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	h.setupAPIIntercept(page)

	searchURL := strings.Replace(h.cfg.Endpoints["search"], "{area}", url.QueryEscape(area.AreaID), 1)
	log.Printf("[%s] navigating to %s", h.cfg.ID, searchURL)

	_, err = page.Goto(searchURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		log.Printf("[%s] navigation error (continuing): %v", h.cfg.ID, err)
	}

	h.humanDelay(2000, 4000)
	return page, nil
}

func (h *BrowserHandler) setupAPIIntercept(page playwright.Page) {
	interceptPath := h.cfg.Endpoints["intercept"]
	page.OnResponse(func(response playwright.Response) {
		if strings.Contains(response.URL(), interceptPath) && response.Status() == 200 {
			go func() {
				body, err := response.Body()
				if err != nil || len(body) == 0 {
					return
				}
				page.Evaluate(fmt.Sprintf(`window.__apiResponse = %q`, string(body)))
			}()
		}
	})
}

func (h *BrowserHandler) fetchCurrentPage(page sessionPage) ([]models.RawListing, error) {
	var data []byte
	for i := 0; i < 20; i++ {
		page.WaitForTimeout(500)
		result, _ := page.Evaluate(`window.__apiResponse`)
		if str, ok := result.(string); ok && str != "" {
			data = []byte(str)
			break
		}
	}
	if data == nil {
		return nil, fmt.Errorf("no API response intercepted")
	}

	var resp feedSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse intercepted response: %w", err)
	}

	var listings []models.RawListing
	for _, r := range resp.Listings {
		listing := models.RawListing{
			ExternalID: r.ID,
			Address:    r.Address,
			Unit:       r.Unit,
			Price:      r.Price,
			Bedrooms:   r.Bedrooms,
			Bathrooms:  r.Bathrooms,
			SqFt:       r.SqFt,
			NoFee:      r.NoFee,
			URL:        r.URL,
			Lat:        r.Lat,
			Lng:        r.Lng,
		}
		if len(r.Images) > 0 {
			listing.ImageURL = r.Images[0]
		}
		raw, _ := json.Marshal(r)
		listing.Data = raw
		listings = append(listings, listing)
	}

	return listings, nil
}

func (h *BrowserHandler) clickNextPage(page sessionPage) bool {
	page.Evaluate(`window.__apiResponse = null`)

	nextSelectors := []string{
		"a.next-page",
		"a[aria-label='Go to the next page']",
	}

	for _, sel := range nextSelectors {
		btn := page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); visible {
			if disabled, _ := btn.GetAttribute("disabled"); disabled == "" {
				btn.Click()
				return true
			}
		}
	}
	return false
}

func (h *BrowserHandler) humanDelay(minMs, maxMs int) {
	delay := minMs + rand.Intn(maxMs-minMs)
	time.Sleep(time.Duration(delay) * time.Millisecond)
}
