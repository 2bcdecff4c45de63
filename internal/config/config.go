// Package config loads the reward service configuration from a YAML file
// with environment variable overrides. The treasury seed phrase is read from
// the environment only and never appears in config files or serialized
// output.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/convoai/reward-layer/internal/chain"
	"github.com/convoai/reward-layer/internal/token"
)

// Config is the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	Network    string `yaml:"network"` // mainnet or devnet
	RPCURL     string `yaml:"rpc_url"` // overrides the network default when set

	MintAddress string `yaml:"mint_address"`
	BurnAddress string `yaml:"burn_address"`

	DailyCapTokens        int64 `yaml:"daily_cap_tokens"`
	RequestsPerMinute     int   `yaml:"requests_per_minute"`
	ConfirmTimeoutSeconds int   `yaml:"confirm_timeout_seconds"`

	RedisAddr   string   `yaml:"redis_addr"`   // empty means in-memory daily limits
	PostgresDSN string   `yaml:"postgres_dsn"` // empty means in-memory grant store
	CORSOrigins []string `yaml:"cors_origins"`

	// SeedPhrase comes from TREASURY_SEED_PHRASE only. Excluded from YAML so
	// a committed config file can never carry the treasury key.
	SeedPhrase string `yaml:"-"`
}

// BurnAddressDefault receives the burn share. The system program address
// cannot sign, so tokens sent there are permanently out of circulation.
const BurnAddressDefault = "11111111111111111111111111111111"

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		ListenAddr:            ":8090",
		Network:               "mainnet",
		MintAddress:           token.MintAddress,
		BurnAddress:           BurnAddressDefault,
		DailyCapTokens:        1000,
		RequestsPerMinute:     10,
		ConfirmTimeoutSeconds: 45,
		CORSOrigins:           []string{"*"},
	}
}

// Load reads the config file at path (optional), applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.Network, "SOLANA_NETWORK")
	setString(&cfg.RPCURL, "SOLANA_RPC_URL")
	setString(&cfg.MintAddress, "TOKEN_MINT_ADDRESS")
	setString(&cfg.BurnAddress, "BURN_ADDRESS")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")

	// The cap is a whole-token count; fractional values are ignored like any
	// other malformed override.
	if v := os.Getenv("DAILY_CAP_TOKENS"); v != "" {
		if amt, err := token.ParseTokens(v); err == nil && amt.BaseUnits()%token.UnitsPerToken == 0 {
			cfg.DailyCapTokens = amt.Tokens()
		}
	}
	if v := os.Getenv("REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("CONFIRM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConfirmTimeoutSeconds = n
		}
	}

	cfg.SeedPhrase = os.Getenv("TREASURY_SEED_PHRASE")
}

func (c Config) validate() error {
	if c.Network != "mainnet" && c.Network != "devnet" {
		return fmt.Errorf("network must be mainnet or devnet, got %q", c.Network)
	}
	if c.MintAddress == "" {
		return fmt.Errorf("mint address is required")
	}
	if c.BurnAddress == "" {
		return fmt.Errorf("burn address is required")
	}
	if c.DailyCapTokens <= 0 {
		return fmt.Errorf("daily cap must be positive, got %d", c.DailyCapTokens)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive, got %d", c.RequestsPerMinute)
	}
	return nil
}

// ResolveRPCURL returns the explicit RPC URL or the network default.
func (c Config) ResolveRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	if c.Network == "devnet" {
		return chain.DevnetRPCURL
	}
	return chain.MainnetRPCURL
}
