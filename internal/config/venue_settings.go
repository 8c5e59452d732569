package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
)

// VenueSettings is the per-pair settings snapshot a venue publishes outside
// the bot-profile file: tick size, quantity increment, and fee rates. It is
// a flat read-once snapshot, not a layered/overridable config, so it is
// loaded with encoding/json rather than viper.
type VenueSettings struct {
	TickSize          decimal.Decimal `json:"tick_size"`
	QuantityIncrement decimal.Decimal `json:"quantity_increment"`
	TakeRate          decimal.Decimal `json:"take_rate"`
	MakeRate          decimal.Decimal `json:"make_rate"`
}

// LoadVenueSettings reads a flat JSON object keyed by trading-pair symbol
// (e.g. "BTCUSD") from path. Grounded on the teacher's atomic-file store
// idiom for the read half; there is no write-back path since these
// settings are published by the venue, not mutated by the bot.
func LoadVenueSettings(path string) (map[string]VenueSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venue settings %s: %w", path, err)
	}

	var settings map[string]VenueSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal venue settings %s: %w", path, err)
	}

	for symbol, s := range settings {
		if s.TickSize.IsNegative() || s.QuantityIncrement.IsNegative() {
			return nil, fmt.Errorf("venue settings %q: tick_size and quantity_increment must be >= 0", symbol)
		}
	}
	return settings, nil
}

// LoadProfileVenueSettings loads every exchange base's venue-settings file
// named in profile, keyed by exchange name. An exchange base with no
// venue_settings_path is skipped; its pairs keep their zero-value defaults.
func LoadProfileVenueSettings(profile *Profile) (map[string]map[string]VenueSettings, error) {
	out := make(map[string]map[string]VenueSettings, len(profile.ExchangeBases))
	for _, eb := range profile.ExchangeBases {
		if eb.VenueSettingsPath == "" {
			continue
		}
		settings, err := LoadVenueSettings(eb.VenueSettingsPath)
		if err != nil {
			return nil, fmt.Errorf("bot %q: exchange base %q: %w", profile.BotID, eb.ExchangeName, err)
		}
		out[eb.ExchangeName] = settings
	}
	return out, nil
}

// Apply pushes the loaded settings onto the matching pairs by trading-pair
// symbol. A pair with no matching entry is left at its zero-value defaults.
func Apply(settings map[string]VenueSettings, pairs []*domain.Pair) {
	for _, p := range pairs {
		s, ok := settings[p.TradingPair()]
		if !ok {
			continue
		}
		p.SetTickSize(s.TickSize)
		p.SetQuantityIncrement(s.QuantityIncrement)
		p.SetRates(s.TakeRate, s.MakeRate)
	}
}
