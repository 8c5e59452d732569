// Package config loads the bot-profile file (spec'd venue/pair wiring for
// one or more bots) and per-venue settings snapshots.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// PairConfig names one base/quote pair to trade on a venue.
type PairConfig struct {
	BaseAsset  string `mapstructure:"base_asset"`
	QuoteAsset string `mapstructure:"quote_asset"`
}

// AccountConfig is a venue credential pair, read from the profile file or
// overridden by environment variables (never logged).
type AccountConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ExchangeBaseConfig wires one connector+exchange loop within a bot.
type ExchangeBaseConfig struct {
	ExchangeName      string        `mapstructure:"exchange_name"`
	ExchangeType      string        `mapstructure:"exchange_type"`
	APIEndpoint       string        `mapstructure:"api_endpoint"`
	Account           AccountConfig `mapstructure:"account"`
	Pairs             []PairConfig  `mapstructure:"pairs"`
	Retries           int           `mapstructure:"retries"`
	RequestTimeoutSec int           `mapstructure:"request_timeout_sec"`
	ProcessTimeoutSec int           `mapstructure:"process_timeout_sec"`
	LoopIntervalSec   int           `mapstructure:"loop_interval_sec"`
	// VenueSettingsPath points at the per-exchange tick_size/quantity_increment/
	// take_rate/make_rate JSON snapshot (§6). Optional: a pair with no
	// settings file is left at its zero-value defaults.
	VenueSettingsPath string `mapstructure:"venue_settings_path"`
}

// Profile is one bot's full configuration: which strategy it runs and which
// exchange bases it runs that strategy against.
type Profile struct {
	BotID         string
	Strategy      string               `mapstructure:"strategy_file"`
	ExchangeBases []ExchangeBaseConfig `mapstructure:"exchange_bases"`
	DryRun        bool                 `mapstructure:"dry_run"`
	LogLevel      string               `mapstructure:"log_level"`
	LogFormat     string               `mapstructure:"log_format"`
}

// LoadProfiles reads the bot-profile file, keyed by bot id, with BOT_*
// environment overrides (mirroring the teacher config loader's POLY_*
// env-prefix pattern, generalized from a single flat config to this
// keyed-by-bot_id shape).
func LoadProfiles(path string) (map[string]Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read bot profiles: %w", err)
	}

	var raw map[string]Profile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal bot profiles: %w", err)
	}

	profiles := make(map[string]Profile, len(raw))
	for id, p := range raw {
		p.BotID = id
		profiles[id] = p
	}
	return profiles, nil
}

// LoadProfile reads path and returns the single profile named botID.
func LoadProfile(path, botID string) (*Profile, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	p, ok := profiles[botID]
	if !ok {
		return nil, fmt.Errorf("no bot profile with id %q in %s", botID, path)
	}
	return &p, nil
}

// Validate checks the fields a supervisor needs before constructing
// anything: an unregistered venue or empty credential fails fast instead of
// partway through startup.
func (p *Profile) Validate() error {
	if p.Strategy == "" {
		return fmt.Errorf("bot %q: strategy_file is required", p.BotID)
	}
	if len(p.ExchangeBases) == 0 {
		return fmt.Errorf("bot %q: at least one exchange base is required", p.BotID)
	}
	for i, eb := range p.ExchangeBases {
		if eb.ExchangeName == "" {
			return fmt.Errorf("bot %q: exchange_bases[%d].exchange_name is required", p.BotID, i)
		}
		if eb.Account.APIKey == "" || eb.Account.SecretKey == "" {
			return fmt.Errorf("bot %q: exchange_bases[%d].account requires api_key and secret_key", p.BotID, i)
		}
		if len(eb.Pairs) == 0 {
			return fmt.Errorf("bot %q: exchange_bases[%d].pairs must not be empty", p.BotID, i)
		}
		for j, pr := range eb.Pairs {
			if pr.BaseAsset == "" || pr.QuoteAsset == "" {
				return fmt.Errorf("bot %q: exchange_bases[%d].pairs[%d] requires base_asset and quote_asset", p.BotID, i, j)
			}
		}
	}
	return nil
}
