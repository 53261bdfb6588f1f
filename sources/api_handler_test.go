package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"padwatch/config"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func TestAPIHandlerFetch(t *testing.T) {
	fixture := loadFixture(t, "feed_page.json")

	var gotArea string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotArea = r.URL.Query().Get("area")
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`{"listings": []}`))
			return
		}
		w.Write(fixture)
	}))
	defer server.Close()

	handler := NewAPIHandler(&config.SourceConfig{
		ID:       "streeteasy",
		Handler:  "api",
		MaxPages: 5,
		Endpoints: map[string]string{
			"search": server.URL + "/api/search",
		},
	})

	listings, err := handler.Fetch(context.Background(), Area{Neighborhood: "East Village", AreaID: "ev-101"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotArea != "ev-101" {
		t.Fatalf("expected area ev-101 in request, got %s", gotArea)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.ExternalID != "sl-88421" {
		t.Fatalf("expected external ID sl-88421, got %s", first.ExternalID)
	}
	if first.Neighborhood != "East Village" {
		t.Fatalf("expected canonical neighborhood East Village, got %s", first.Neighborhood)
	}
	if first.Price != 3200 {
		t.Fatalf("expected price 3200, got %d", first.Price)
	}
	if !first.NoFee {
		t.Fatalf("expected no-fee listing")
	}
	if first.ImageURL != "https://cdn.example.com/photos/sl-88421_1.jpg" {
		t.Fatalf("unexpected image URL %s", first.ImageURL)
	}
	if first.Lat == nil || *first.Lat != 40.72622 {
		t.Fatalf("unexpected latitude %v", first.Lat)
	}

	second := listings[1]
	if second.Bathrooms != 1.5 {
		t.Fatalf("expected 1.5 baths, got %v", second.Bathrooms)
	}
	if second.Lat != nil {
		t.Fatalf("expected no coordinates for second listing")
	}
	if second.ImageURL != "" {
		t.Fatalf("expected empty image URL, got %s", second.ImageURL)
	}
}

func TestAPIHandlerFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	handler := NewAPIHandler(&config.SourceConfig{
		ID:       "streeteasy",
		MaxPages: 5,
		Endpoints: map[string]string{
			"search": server.URL + "/api/search",
		},
	})

	_, err := handler.Fetch(context.Background(), Area{Neighborhood: "East Village", AreaID: "ev-101"})
	if err == nil {
		t.Fatalf("expected error on 429 response")
	}
}

func TestAPIHandlerMaxPagesCap(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Always a full page: without the cap this would loop forever.
		w.Write([]byte(fullPageJSON()))
	}))
	defer server.Close()

	handler := NewAPIHandler(&config.SourceConfig{
		ID:       "streeteasy",
		MaxPages: 3,
		Endpoints: map[string]string{
			"search": server.URL + "/api/search",
		},
	})

	listings, err := handler.Fetch(context.Background(), Area{Neighborhood: "East Village", AreaID: "ev-101"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 page fetches, got %d", pages)
	}
	if len(listings) != 3*feedPageSize {
		t.Fatalf("expected %d listings, got %d", 3*feedPageSize, len(listings))
	}
}

// A feed that caps per_page below what we ask for still reports its total
// page count; short pages alone must not end pagination early.
func TestAPIHandlerServerCappedPageSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		body := `{"listings": [{"id": "p` + page + `-1", "address": "1 Main St", "price": 1000, "bedrooms": 1, "bathrooms": 1},` +
			`{"id": "p` + page + `-2", "address": "2 Main St", "price": 1100, "bedrooms": 1, "bathrooms": 1}],` +
			`"paging": {"page": ` + page + `, "per_page": 2, "total_pages": 3, "total": 6}}`
		w.Write([]byte(body))
	}))
	defer server.Close()

	handler := NewAPIHandler(&config.SourceConfig{
		ID:       "streeteasy",
		MaxPages: 10,
		Endpoints: map[string]string{
			"search": server.URL + "/api/search",
		},
	})

	listings, err := handler.Fetch(context.Background(), Area{Neighborhood: "East Village", AreaID: "ev-101"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(listings) != 6 {
		t.Fatalf("expected all 3 reported pages fetched (6 listings), got %d", len(listings))
	}
	if listings[4].ExternalID != "p3-1" {
		t.Fatalf("expected third page reached, got %s", listings[4].ExternalID)
	}
}

func fullPageJSON() string {
	body := `{"listings": [`
	for i := 0; i < feedPageSize; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"id": "x", "address": "1 Main St", "price": 1000, "bedrooms": 1, "bathrooms": 1}`
	}
	return body + `]}`
}
