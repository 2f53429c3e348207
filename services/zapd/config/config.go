package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	rootconfig "poolzap/config"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for zapd.
type Config struct {
	ListenAddress string         `yaml:"listen"`
	JournalPath   string         `yaml:"journal"`
	Network       NetworkConfig  `yaml:"network"`
	Deadline      DeadlineConfig `yaml:"deadline"`
	SlippageBps   uint64         `yaml:"slippage_floor_bps"`
	Seeds         []Seed         `yaml:"seeds"`
}

// NetworkConfig pins the simulated collaborator addresses.
type NetworkConfig struct {
	WrappedNative string `yaml:"wrapped_native"`
	Router        string `yaml:"router"`
	Factory       string `yaml:"factory"`
	Engine        string `yaml:"engine"`
	Owner         string `yaml:"owner"`
}

// DeadlineConfig tunes how the atomic flow treats expired deadlines.
type DeadlineConfig struct {
	Strict bool     `yaml:"strict"`
	Grace  Duration `yaml:"grace"`
}

// Seed pre-funds a token account in the simulation ledger at startup.
type Seed struct {
	Token   string `yaml:"token"`
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

// Load reads and validates the zapd configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress: ":8645",
		JournalPath:   "zapd-events.db",
		Network: NetworkConfig{
			WrappedNative: "0x1111111111111111111111111111111111111111",
			Router:        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Factory:       "0xf0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0",
			Engine:        "0x5555555555555555555555555555555555555555",
			Owner:         "0x6666666666666666666666666666666666666666",
		},
		Deadline: DeadlineConfig{Strict: true, Grace: Duration{5 * time.Minute}},
	}
}

// Validate checks the listen address, address bindings and seed amounts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if strings.TrimSpace(c.JournalPath) == "" {
		return fmt.Errorf("journal path must not be empty")
	}
	for field, value := range map[string]string{
		"network.wrapped_native": c.Network.WrappedNative,
		"network.router":         c.Network.Router,
		"network.factory":        c.Network.Factory,
		"network.engine":         c.Network.Engine,
		"network.owner":          c.Network.Owner,
	} {
		if _, err := rootconfig.ParseAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if c.Deadline.Grace.Duration <= 0 {
		return fmt.Errorf("deadline.grace must be positive")
	}
	if c.SlippageBps > 10_000 {
		return fmt.Errorf("slippage_floor_bps must not exceed 10000")
	}
	for i, seed := range c.Seeds {
		if _, err := rootconfig.ParseAddress(seed.Token); err != nil {
			return fmt.Errorf("seeds[%d].token: %w", i, err)
		}
		if _, err := rootconfig.ParseAddress(seed.Account); err != nil {
			return fmt.Errorf("seeds[%d].account: %w", i, err)
		}
		if _, err := ParseAmount(seed.Amount); err != nil {
			return fmt.Errorf("seeds[%d].amount: %w", i, err)
		}
	}
	return nil
}

// ParseAmount decodes a positive decimal amount.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a decimal integer", raw)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}
