package buildings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"padwatch/config"
	"padwatch/models"
)

const (
	// Half-width of the lookup box in degrees, roughly a 55m radius.
	bboxHalfWidth = 0.0005
	lookupLimit   = 5
	cacheTTL      = 24 * time.Hour
)

// Resolver maps listing coordinates to building registry records.
type Resolver struct {
	cfg    config.RegistryConfig
	client *http.Client
	cache  *registryCache
}

func NewResolver(cfg config.RegistryConfig, client *http.Client) *Resolver {
	return &Resolver{
		cfg:    cfg,
		client: client,
		cache:  newRegistryCache(cacheTTL),
	}
}

// Resolve returns the registry building nearest to the given coordinates,
// or nil when nothing falls inside the lookup box. Misses are cached too:
// a listing in a park stays a miss for the whole TTL.
func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) (*models.BuildingRecord, error) {
	if b, ok := r.cache.get(lat, lng); ok {
		return b, nil
	}

	candidates, err := r.query(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	building := nearest(candidates, lat, lng)
	r.cache.set(lat, lng, building)
	return building, nil
}

func (r *Resolver) query(ctx context.Context, lat, lng float64) ([]models.BuildingRecord, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return nil, err
	}

	where := fmt.Sprintf(
		"latitude between '%f' and '%f' AND longitude between '%f' and '%f'",
		lat-bboxHalfWidth, lat+bboxHalfWidth,
		lng-bboxHalfWidth, lng+bboxHalfWidth,
	)
	q := u.Query()
	q.Set("$where", where)
	q.Set("$limit", strconv.Itoa(lookupLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.AppToken != "" {
		req.Header.Set("X-App-Token", r.cfg.AppToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry error %d: %s", resp.StatusCode, string(body))
	}

	var rows []registryRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	buildings := make([]models.BuildingRecord, 0, len(rows))
	for _, row := range rows {
		buildings = append(buildings, row.toBuilding())
	}
	return buildings, nil
}

// nearest picks the candidate closest to the listing point. The box is
// small enough that plain squared coordinate distance is fine.
func nearest(candidates []models.BuildingRecord, lat, lng float64) *models.BuildingRecord {
	var best *models.BuildingRecord
	bestDist := 0.0

	for i := range candidates {
		c := &candidates[i]
		if c.Lat == nil || c.Lng == nil {
			continue
		}
		dLat := *c.Lat - lat
		dLng := *c.Lng - lng
		dist := dLat*dLat + dLng*dLng
		if best == nil || dist < bestDist {
			best = c
			bestDist = dist
		}
	}

	if best == nil && len(candidates) > 0 {
		// No candidate carried coordinates; fall back to the first row.
		return &candidates[0]
	}
	return best
}

// registryRow is the raw open-data row. Everything comes back as strings.
type registryRow struct {
	BIN           string `json:"bin"`
	Address       string `json:"address"`
	ResUnits      string `json:"res_units"`
	YearBuilt     string `json:"year_built"`
	BuildingClass string `json:"bldg_class"`
	ZipCode       string `json:"zip_code"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
}

func (r registryRow) toBuilding() models.BuildingRecord {
	b := models.BuildingRecord{
		BIN:           r.BIN,
		Address:       r.Address,
		BuildingClass: r.BuildingClass,
		ZipCode:       r.ZipCode,
	}
	b.ResidentialUnits, _ = strconv.Atoi(r.ResUnits)
	b.YearBuilt, _ = strconv.Atoi(r.YearBuilt)
	if lat, err := strconv.ParseFloat(r.Latitude, 64); err == nil {
		b.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(r.Longitude, 64); err == nil {
		b.Lng = &lng
	}
	return b
}
