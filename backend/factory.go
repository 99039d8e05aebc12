package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/config"
)

// New creates the active backend from configuration. The choice is made
// once at startup; callers only ever see the Backend interface.
func New(ctx context.Context, cfg config.BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case config.BackendMock:
		log.Info().Msg("using mock backend")
		return NewMock(), nil
	case config.BackendGemini:
		return NewGemini(ctx, cfg.Gemini, cfg.Timeout)
	case config.BackendRelay:
		return NewRelay(cfg.Relay, cfg.Timeout), nil
	case config.BackendMedGemma:
		return NewMedGemma(cfg.MedGemma, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}
