package connector

import (
	"fmt"
	"log/slog"
	"time"

	"spotbot/internal/domain"
)

// VenueConfig is the generic shape the registry dispatches on; concrete
// factories pull only the fields their venue needs out of it.
type VenueConfig struct {
	Name           string
	APIEndpoint    string
	APIKey         string
	SecretKey      string
	Pairs          []*domain.Pair
	Retries        int
	RequestTimeout time.Duration
	ProcessTimeout time.Duration
	Logger         *slog.Logger
}

// Factory builds a Connector from a VenueConfig. Registered under the venue
// name read from bot-profile config (spec §9/§12).
type Factory func(VenueConfig) (Connector, error)

var registry = map[string]Factory{
	"FMFW": func(cfg VenueConfig) (Connector, error) {
		return NewFMFW(FMFWConfig{
			APIEndpoint:    cfg.APIEndpoint,
			APIKey:         cfg.APIKey,
			SecretKey:      cfg.SecretKey,
			Pairs:          cfg.Pairs,
			Retries:        cfg.Retries,
			RequestTimeout: cfg.RequestTimeout,
			ProcessTimeout: cfg.ProcessTimeout,
			Logger:         cfg.Logger,
		})
	},
	"BITRUE": func(cfg VenueConfig) (Connector, error) {
		return NewBITRUE(BITRUEConfig{
			APIEndpoint:    cfg.APIEndpoint,
			APIKey:         cfg.APIKey,
			SecretKey:      cfg.SecretKey,
			Pairs:          cfg.Pairs,
			Retries:        cfg.Retries,
			RequestTimeout: cfg.RequestTimeout,
			ProcessTimeout: cfg.ProcessTimeout,
			Logger:         cfg.Logger,
		})
	},
}

// Register adds (or overrides) a venue factory under name, letting a caller
// extend the registry with a venue beyond the two built-ins.
func Register(name string, f Factory) {
	registry[name] = f
}

// New looks up and invokes the factory registered under cfg.Name. An unknown
// venue name is a fatal configuration error (spec §9/§12), surfaced rather
// than silently skipped.
func New(cfg VenueConfig) (Connector, error) {
	f, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("connector: no factory registered for venue %q", cfg.Name)
	}
	return f(cfg)
}
