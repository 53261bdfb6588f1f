package checker

import (
	"context"

	"padwatch/config"
	"padwatch/models"
	"padwatch/sources"
)

// ConfiguredSource binds a source handler to its config so the checker
// can translate neighborhoods to source area IDs.
type ConfiguredSource struct {
	handler sources.Handler
	cfg     *config.SourceConfig
}

func NewConfiguredSource(handler sources.Handler, cfg *config.SourceConfig) *ConfiguredSource {
	return &ConfiguredSource{handler: handler, cfg: cfg}
}

func (s *ConfiguredSource) ID() string {
	return s.cfg.ID
}

func (s *ConfiguredSource) AreaFor(neighborhood string) (string, bool) {
	areaID, ok := s.cfg.Areas[neighborhood]
	return areaID, ok
}

func (s *ConfiguredSource) Fetch(ctx context.Context, area sources.Area) ([]models.RawListing, error) {
	return s.handler.Fetch(ctx, area)
}

// BuildSources wires every configured source to its handler.
func BuildSources(cfgs map[string]*config.SourceConfig) ([]Source, error) {
	var out []Source
	for _, cfg := range cfgs {
		handler, err := sources.NewHandler(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, NewConfiguredSource(handler, cfg))
	}
	return out, nil
}
