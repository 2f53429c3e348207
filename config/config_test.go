package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poolzap.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.FileExists(t, path)

	// A second load reads the file back.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poolzap.toml")
	body := `
NetworkName = "devnet"
WrappedNativeAddress = "0xnothex"
RouterAddress = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
FactoryAddress = "0xf0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0"
OwnerAddress = "0x6666666666666666666666666666666666666666"
DeadlineGraceSeconds = 300
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "WrappedNativeAddress")
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, byte(0x11), addr[0])
	require.Equal(t, byte(0x11), addr[19])

	_, err = ParseAddress("")
	require.Error(t, err)
	_, err = ParseAddress("0x1234")
	require.Error(t, err)
}

func TestValidateGuards(t *testing.T) {
	cfg := &Config{
		NetworkName:          "devnet",
		WrappedNativeAddress: "0x1111111111111111111111111111111111111111",
		RouterAddress:        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		FactoryAddress:       "0xf0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0",
		OwnerAddress:         "0x6666666666666666666666666666666666666666",
		DeadlineGraceSeconds: 300,
	}
	require.NoError(t, cfg.Validate())

	cfg.SlippageFloorBps = 10_001
	require.Error(t, cfg.Validate())
	cfg.SlippageFloorBps = 0
	cfg.DeadlineGraceSeconds = 0
	require.Error(t, cfg.Validate())
}
