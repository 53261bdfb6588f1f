package sources

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"padwatch/config"
	"padwatch/models"
)

// fakeSessionPage replays canned intercepted payloads, one per result page.
type fakeSessionPage struct {
	payloads []string
	current  int
	closed   bool
	onEval   func()
	onClose  func()
}

func (p *fakeSessionPage) Evaluate(expression string, _ ...any) (any, error) {
	if p.onEval != nil {
		p.onEval()
	}
	if expression == `window.__apiResponse` && p.current < len(p.payloads) {
		return p.payloads[p.current], nil
	}
	return nil, nil
}

func (p *fakeSessionPage) WaitForTimeout(float64) {}

func (p *fakeSessionPage) Locator(string, ...playwright.PageLocatorOptions) playwright.Locator {
	return &fakeNextButton{page: p}
}

func (p *fakeSessionPage) Close(...playwright.PageCloseOptions) error {
	p.closed = true
	if p.onClose != nil {
		p.onClose()
	}
	return nil
}

// fakeNextButton is visible while more payload pages remain; clicking it
// advances the page. Only the methods the pagination loop touches are
// implemented.
type embeddedLocator = playwright.Locator

type fakeNextButton struct {
	embeddedLocator
	page *fakeSessionPage
}

func (b *fakeNextButton) First() playwright.Locator { return b }

func (b *fakeNextButton) IsVisible(...playwright.LocatorIsVisibleOptions) (bool, error) {
	return b.page.current+1 < len(b.page.payloads), nil
}

func (b *fakeNextButton) GetAttribute(string, ...playwright.LocatorGetAttributeOptions) (string, error) {
	return "", nil
}

func (b *fakeNextButton) Click(...playwright.LocatorClickOptions) error {
	b.page.current++
	return nil
}

func testBrowserHandler(maxPages int) *BrowserHandler {
	h := NewBrowserHandler(&config.SourceConfig{
		ID:       "aptfinder",
		Handler:  "browser",
		MaxPages: maxPages,
	})
	h.pageDelayMin, h.pageDelayMax = 1, 2
	return h
}

const interceptedPage1 = `{"listings": [{"id": "af-101", "address": "425 East 9th Street", "price": 3100, "bedrooms": 1, "bathrooms": 1, "no_fee": true}]}`
const interceptedPage2 = `{"listings": [{"id": "af-102", "address": "17 Avenue B", "price": 2850, "bedrooms": 0, "bathrooms": 1}]}`

func TestBrowserSessionCollectsInterceptedPages(t *testing.T) {
	h := testBrowserHandler(5)
	page := &fakeSessionPage{payloads: []string{interceptedPage1, interceptedPage2}}

	listings, err := h.runSession(context.Background(), Area{Neighborhood: "East Village", AreaID: "12041"},
		func() (sessionPage, error) { return page, nil })
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings across pages, got %d", len(listings))
	}
	if listings[0].ExternalID != "af-101" || listings[1].ExternalID != "af-102" {
		t.Fatalf("unexpected listing order: %s, %s", listings[0].ExternalID, listings[1].ExternalID)
	}
	if listings[0].Neighborhood != "East Village" {
		t.Fatalf("expected canonical neighborhood, got %s", listings[0].Neighborhood)
	}
	if !listings[0].NoFee {
		t.Fatalf("expected no-fee flag carried over")
	}
	if !page.closed {
		t.Fatalf("expected session page closed")
	}
}

func TestBrowserSessionMaxPagesCap(t *testing.T) {
	h := testBrowserHandler(1)
	page := &fakeSessionPage{payloads: []string{interceptedPage1, interceptedPage2}}

	listings, err := h.runSession(context.Background(), Area{Neighborhood: "East Village", AreaID: "12041"},
		func() (sessionPage, error) { return page, nil })
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected page cap to stop at 1 listing, got %d", len(listings))
	}
}

// Concurrent alerts covering the same browser source must not share page
// state: each session runs to completion before the next starts.
func TestBrowserConcurrentSessionsDoNotInterleave(t *testing.T) {
	h := testBrowserHandler(3)

	var active, overlaps int32
	newPage := func() *fakeSessionPage {
		p := &fakeSessionPage{payloads: []string{interceptedPage1, interceptedPage2}}
		p.onEval = func() {
			if atomic.LoadInt32(&active) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(time.Millisecond)
		}
		p.onClose = func() { atomic.AddInt32(&active, -1) }
		return p
	}

	const sessions = 4
	results := make([][]models.RawListing, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			listings, err := h.runSession(context.Background(), Area{Neighborhood: "East Village", AreaID: "12041"},
				func() (sessionPage, error) {
					atomic.AddInt32(&active, 1)
					return newPage(), nil
				})
			if err != nil {
				t.Errorf("session %d failed: %v", i, err)
				return
			}
			results[i] = listings
		}()
	}
	wg.Wait()

	if overlaps != 0 {
		t.Fatalf("expected sessions to serialize, saw %d overlapping page operations", overlaps)
	}
	for i, listings := range results {
		if len(listings) != 2 {
			t.Fatalf("session %d: expected 2 listings, got %d", i, len(listings))
		}
	}
}
