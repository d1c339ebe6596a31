// Package walletconfig loads the client configuration: defaults,
// optional yaml file, then environment overrides, in that order.
package walletconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"hbar-desk/go-client/internal/ledger"

	ma "github.com/multiformats/go-multiaddr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Wallet WalletConfig  `yaml:"wallet"`
	Ledger ledger.Config `yaml:"ledger"`
}

type WalletConfig struct {
	DataDir     string  `yaml:"dataDir"`
	Passphrase  string  `yaml:"passphrase"`
	MetricsAddr string  `yaml:"metricsAddr"`
	SubmitRPS   float64 `yaml:"submitRps"`
	SubmitBurst int     `yaml:"submitBurst"`
}

func Default() Config {
	return Config{
		Wallet: WalletConfig{
			DataDir:     defaultDataDir(),
			MetricsAddr: "127.0.0.1:9465",
			SubmitRPS:   2,
			SubmitBurst: 5,
		},
		Ledger: ledger.DefaultConfig(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hbar-desk"
	}
	return home + "/.hbar-desk"
}

// LoadFromPath reads configPath when given, otherwise the first
// existing default location, and applies env overrides on top.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/wallet.yaml",
			defaultDataDir()+"/wallet.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, err
			}
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src Config) {
	if src.Wallet.DataDir != "" {
		dst.Wallet.DataDir = src.Wallet.DataDir
	}
	if src.Wallet.Passphrase != "" {
		dst.Wallet.Passphrase = src.Wallet.Passphrase
	}
	if src.Wallet.MetricsAddr != "" {
		dst.Wallet.MetricsAddr = src.Wallet.MetricsAddr
	}
	if src.Wallet.SubmitRPS != 0 {
		dst.Wallet.SubmitRPS = src.Wallet.SubmitRPS
	}
	if src.Wallet.SubmitBurst != 0 {
		dst.Wallet.SubmitBurst = src.Wallet.SubmitBurst
	}
	if src.Ledger.Transport != "" {
		dst.Ledger.Transport = src.Ledger.Transport
	}
	if src.Ledger.Network != "" {
		dst.Ledger.Network = src.Ledger.Network
	}
	if src.Ledger.Nodes != nil {
		dst.Ledger.Nodes = src.Ledger.Nodes
	}
	if src.Ledger.FeeTinybar != 0 {
		dst.Ledger.FeeTinybar = src.Ledger.FeeTinybar
	}
	if src.Ledger.Genesis != nil {
		dst.Ledger.Genesis = src.Ledger.Genesis
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HBARDESK_DATA_DIR")); v != "" {
		cfg.Wallet.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("HBARDESK_PASSPHRASE")); v != "" {
		cfg.Wallet.Passphrase = v
	}
	if v := strings.TrimSpace(os.Getenv("HBARDESK_METRICS_ADDR")); v != "" {
		cfg.Wallet.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("HBARDESK_TRANSPORT")); v != "" {
		cfg.Ledger.Transport = v
	}
	if v := strings.TrimSpace(os.Getenv("HBARDESK_NETWORK")); v != "" {
		cfg.Ledger.Network = v
	}
	if v := strings.TrimSpace(os.Getenv("HBARDESK_SUBMIT_RPS")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			cfg.Wallet.SubmitRPS = parsed
		}
	}
}

// Validate checks gateway node addresses are well-formed multiaddrs
// before anything tries to dial them.
func Validate(cfg Config) error {
	for _, node := range cfg.Ledger.Nodes {
		if _, err := ma.NewMultiaddr(node); err != nil {
			return fmt.Errorf("ledger node address %q: %w", node, err)
		}
	}
	return nil
}
