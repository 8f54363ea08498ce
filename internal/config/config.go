package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. BIGTWO_TURN_DURATION_SECONDS.
const EnvPrefix = "BIGTWO"

type GameConfig struct {
	TurnDurationSeconds int    `json:"turn_duration_seconds" mapstructure:"turn_duration_seconds"`
	ScoreUnit           int64  `json:"score_unit" mapstructure:"score_unit"`
	TickRate            int    `json:"tick_rate" mapstructure:"tick_rate"`
	TicketTTLSeconds    int    `json:"ticket_ttl_seconds" mapstructure:"ticket_ttl_seconds"`
	TicketSecret        string `json:"ticket_secret" mapstructure:"ticket_secret"`
	ListenAddr          string `json:"listen_addr" mapstructure:"listen_addr"`
	// ReconnectGraceSeconds is how long a dropped player's seat is held during a round.
	ReconnectGraceSeconds int `json:"reconnect_grace_seconds" mapstructure:"reconnect_grace_seconds"`
}

var defaults = map[string]any{
	"turn_duration_seconds":   30,
	"score_unit":              1,
	"tick_rate":               1,
	"ticket_ttl_seconds":      600,
	"ticket_secret":           "",
	"listen_addr":             ":8080",
	"reconnect_grace_seconds": 60,
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration once. An empty path uses defaults
// and environment overrides only.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		cfg, loadErr = Load(path)
	})
	return loadErr
}

// Load reads a JSON or YAML config file with BIGTWO_* environment overrides.
func Load(path string) (*GameConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read game config: %w", err)
		}
	}

	var c GameConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	c.normalize()
	return &c, nil
}

func (c *GameConfig) normalize() {
	if c.TurnDurationSeconds <= 0 {
		c.TurnDurationSeconds = defaults["turn_duration_seconds"].(int)
	}
	if c.ScoreUnit <= 0 {
		c.ScoreUnit = 1
	}
	if c.TickRate <= 0 {
		c.TickRate = 1
	}
	if c.TicketTTLSeconds <= 0 {
		c.TicketTTLSeconds = defaults["ticket_ttl_seconds"].(int)
	}
	if c.ReconnectGraceSeconds < 0 {
		c.ReconnectGraceSeconds = 0
	}
}

// GetGameConfig returns the global game configuration, or defaults when none was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		c, err := Load("")
		if err != nil {
			return &GameConfig{TurnDurationSeconds: 30, ScoreUnit: 1, TickRate: 1, TicketTTLSeconds: 600, ListenAddr: ":8080"}
		}
		return c
	}
	return cfg
}

func (c *GameConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationSeconds) * time.Second
}

func (c *GameConfig) TicketTTL() time.Duration {
	return time.Duration(c.TicketTTLSeconds) * time.Second
}

func (c *GameConfig) ReconnectGrace() time.Duration {
	return time.Duration(c.ReconnectGraceSeconds) * time.Second
}

// TurnTicks converts the turn duration into match loop ticks.
func (c *GameConfig) TurnTicks() int64 {
	return int64(c.TurnDurationSeconds * c.TickRate)
}

// GraceTicks converts the reconnect grace period into match loop ticks.
func (c *GameConfig) GraceTicks() int64 {
	return int64(c.ReconnectGraceSeconds * c.TickRate)
}
