// Package config defines all configuration for the batch-auction
// settlement driver. Config is loaded from a YAML file (default:
// configs/config.yaml) with sensitive fields overridable via DRIVER_*
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/stablex/driver/internal/filter"
	"github.com/stablex/driver/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	DryRun     bool             `mapstructure:"dry_run"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Reader     ReaderConfig     `mapstructure:"reader"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// ChainConfig holds the Ethereum connection and signing material the
// driver needs to read events and submit solutions (§6).
type ChainConfig struct {
	NodeURL         string `mapstructure:"node_url"`
	NetworkID       int64  `mapstructure:"network_id"`
	ContractAddress string `mapstructure:"contract_address"`
	PrivateKey      string `mapstructure:"private_key"`
}

// ReaderConfig tunes the paginated view-call reader (C2).
type ReaderConfig struct {
	AuctionDataPageSize uint16 `mapstructure:"auction_data_page_size"`
}

// FilterConfig is the JSON-encoded orderbook filter (C8), loaded
// verbatim from the DRIVER_ORDERBOOK_FILTER env var or the YAML file's
// equivalent key. An empty value means "allow everything."
type FilterConfig struct {
	Raw string `mapstructure:"orderbook_filter"`
}

// Parse decodes the raw JSON filter config into an OrderbookFilter,
// defaulting to filter.Default() when unset. Only the "tokens" section is
// read; any other key, including per-user order rules, is ignored, so the
// returned filter never restricts orders by owner.
func (f FilterConfig) Parse() (filter.OrderbookFilter, error) {
	if strings.TrimSpace(f.Raw) == "" {
		return filter.Default(), nil
	}

	var spec struct {
		Tokens struct {
			Mode    string          `json:"mode"`
			Members []types.TokenID `json:"members"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal([]byte(f.Raw), &spec); err != nil {
		return filter.OrderbookFilter{}, fmt.Errorf("parse orderbook_filter: %w", err)
	}

	var tokens filter.AllowList[types.TokenID]
	switch spec.Tokens.Mode {
	case "", "all":
		tokens = filter.AllowAll[types.TokenID]()
	case "only":
		tokens = filter.AllowOnly(spec.Tokens.Members...)
	case "all_except":
		tokens = filter.AllowAllExcept(spec.Tokens.Members...)
	default:
		return filter.OrderbookFilter{}, fmt.Errorf("orderbook_filter: unknown tokens.mode %q", spec.Tokens.Mode)
	}

	return filter.OrderbookFilter{Tokens: tokens}, nil
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the observability HTTP/WS surface.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: DRIVER_PRIVATE_KEY, DRIVER_NODE_URL,
// DRIVER_NETWORK_ID, DRIVER_ORDERBOOK_FILTER.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DRIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("reader.auction_data_page_size", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("DRIVER_PRIVATE_KEY"); key != "" {
		cfg.Chain.PrivateKey = key
	}
	if url := os.Getenv("DRIVER_NODE_URL"); url != "" {
		cfg.Chain.NodeURL = url
	}
	if id := os.Getenv("DRIVER_NETWORK_ID"); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse DRIVER_NETWORK_ID: %w", err)
		}
		cfg.Chain.NetworkID = n
	}
	if raw := os.Getenv("DRIVER_ORDERBOOK_FILTER"); raw != "" {
		cfg.Filter.Raw = raw
	}
	if os.Getenv("DRIVER_DRY_RUN") == "true" || os.Getenv("DRIVER_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	if cfg.Reader.AuctionDataPageSize == 0 {
		cfg.Reader.AuctionDataPageSize = 100
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Chain.NodeURL == "" {
		return fmt.Errorf("chain.node_url is required (set DRIVER_NODE_URL)")
	}
	if c.Chain.NetworkID == 0 {
		return fmt.Errorf("chain.network_id is required")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required")
	}
	if c.Chain.PrivateKey == "" {
		return fmt.Errorf("chain.private_key is required (set DRIVER_PRIVATE_KEY)")
	}
	if c.Reader.AuctionDataPageSize == 0 {
		return fmt.Errorf("reader.auction_data_page_size must be > 0")
	}
	if _, err := c.Filter.Parse(); err != nil {
		return err
	}
	return nil
}
