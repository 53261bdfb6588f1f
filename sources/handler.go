package sources

import (
	"context"
	"fmt"
	"time"

	"padwatch/config"
	"padwatch/models"
)

// Area is one neighborhood to fetch, already translated to the source's
// own area identifier via the source config mapping.
type Area struct {
	Neighborhood string // canonical name
	AreaID       string // source-specific
}

// Handler fetches raw listings for one area from one external source.
type Handler interface {
	ID() string
	Fetch(ctx context.Context, area Area) ([]models.RawListing, error)
}

func NewHandler(cfg *config.SourceConfig) (Handler, error) {
	switch cfg.Handler {
	case "api":
		return NewAPIHandler(cfg), nil
	case "html":
		return NewHTMLHandler(cfg), nil
	case "browser":
		return NewBrowserHandler(cfg), nil
	default:
		return nil, fmt.Errorf("unknown handler type: %s", cfg.Handler)
	}
}

// rateLimit sleeps for the source's configured delay between page fetches,
// returning early if the context ends.
func rateLimit(ctx context.Context, cfg *config.SourceConfig) error {
	if cfg.RateLimitMS <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(cfg.RateLimitMS) * time.Millisecond):
		return nil
	}
}
