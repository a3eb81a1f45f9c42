package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config describes the lsgated daemon configuration.
type Config struct {
	RPCAddress      string `toml:"RPCAddress"`
	DataDir         string `toml:"DataDir"`
	Environment     string `toml:"Environment"`
	AdminAddress    string `toml:"AdminAddress"`
	VaultAddress    string `toml:"VaultAddress"`
	LSPrefix        string `toml:"LSPrefix"`
	ICATimeout      uint64 `toml:"ICATimeout"`
	TransferTimeout uint64 `toml:"TransferTimeout"`
	CallbackPolicy  string `toml:"CallbackPolicy"`
	PayoutMode      string `toml:"PayoutMode"`
	BridgeURL       string `toml:"BridgeURL"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown field %s", path, undecoded[0])
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./lsgated-data"
	}
	if strings.TrimSpace(cfg.LSPrefix) == "" {
		cfg.LSPrefix = "stk/"
	}
	if cfg.ICATimeout == 0 {
		cfg.ICATimeout = 18_000
	}
	if cfg.TransferTimeout == 0 {
		cfg.TransferTimeout = 18_000
	}
	if strings.TrimSpace(cfg.CallbackPolicy) == "" {
		cfg.CallbackPolicy = "always"
	}
	if strings.TrimSpace(cfg.PayoutMode) == "" {
		cfg.PayoutMode = "push"
	}
}

func validate(cfg *Config) error {
	switch cfg.CallbackPolicy {
	case "always", "on_success":
	default:
		return fmt.Errorf("config: CallbackPolicy must be \"always\" or \"on_success\" (got %q)", cfg.CallbackPolicy)
	}
	switch cfg.PayoutMode {
	case "push", "claim":
	default:
		return fmt.Errorf("config: PayoutMode must be \"push\" or \"claim\" (got %q)", cfg.PayoutMode)
	}
	if strings.TrimSpace(cfg.AdminAddress) == "" {
		return fmt.Errorf("config: AdminAddress is required")
	}
	if strings.TrimSpace(cfg.VaultAddress) == "" {
		return fmt.Errorf("config: VaultAddress is required")
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, fmt.Errorf("config: wrote default config to %s; fill in AdminAddress and VaultAddress", path)
}
