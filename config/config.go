package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config describes the deployment-level bindings the orchestrator needs: the
// collaborator addresses are immutable once the engine is constructed.
type Config struct {
	NetworkName          string `toml:"NetworkName"`
	WrappedNativeAddress string `toml:"WrappedNativeAddress"`
	RouterAddress        string `toml:"RouterAddress"`
	FactoryAddress       string `toml:"FactoryAddress"`
	OwnerAddress         string `toml:"OwnerAddress"`
	DeadlineGraceSeconds int64  `toml:"DeadlineGraceSeconds"`
	StrictDeadline       bool   `toml:"StrictDeadline"`
	SlippageFloorBps     uint64 `toml:"SlippageFloorBps"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the address bindings and guard settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NetworkName) == "" {
		return fmt.Errorf("NetworkName must not be empty")
	}
	for field, value := range map[string]string{
		"WrappedNativeAddress": c.WrappedNativeAddress,
		"RouterAddress":        c.RouterAddress,
		"FactoryAddress":       c.FactoryAddress,
		"OwnerAddress":         c.OwnerAddress,
	} {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if c.DeadlineGraceSeconds <= 0 {
		return fmt.Errorf("DeadlineGraceSeconds must be positive")
	}
	if c.SlippageFloorBps > 10_000 {
		return fmt.Errorf("SlippageFloorBps must not exceed 10000")
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("address must not be empty")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address %q: %w", raw, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address %q must be %d bytes", raw, len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		NetworkName:          "poolzap-devnet",
		WrappedNativeAddress: "0x1111111111111111111111111111111111111111",
		RouterAddress:        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		FactoryAddress:       "0xf0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0",
		OwnerAddress:         "0x6666666666666666666666666666666666666666",
		DeadlineGraceSeconds: 300,
		StrictDeadline:       true,
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	return cfg, nil
}
