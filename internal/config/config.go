// Package config loads service settings from the environment and flags,
// and exposes the embedded seed lists.
package config

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"hypeflow/internal/market"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/storage/memory"
	"hypeflow/internal/throttle"
)

// DefaultRPCEndpoint is the public mainnet RPC.
const DefaultRPCEndpoint = "https://api.mainnet-beta.solana.com"

// Config holds every runtime setting.
type Config struct {
	Port         int    `mapstructure:"PORT" validate:"min=1,max=65535"`
	RPCEndpoint  string `mapstructure:"SOLANA_RPC_ENDPOINT" validate:"required,url"`
	WSEndpoint   string `mapstructure:"SOLANA_WS_ENDPOINT" validate:"omitempty,url"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`
	HeliusAPIKey string `mapstructure:"HELIUS_API_KEY"`

	MagicEdenURL  string `mapstructure:"MAGICEDEN_URL" validate:"required,url"`
	HeliusURL     string `mapstructure:"HELIUS_URL" validate:"required,url"`
	HyperspaceURL string `mapstructure:"HYPERSPACE_URL" validate:"required,url"`
	TensorURL     string `mapstructure:"TENSOR_URL" validate:"required,url"`
	SolanaFMURL   string `mapstructure:"SOLANAFM_URL" validate:"required,url"`
	JupiterURL    string `mapstructure:"JUPITER_URL" validate:"required,url"`

	OnChainInterval     time.Duration `mapstructure:"ONCHAIN_INTERVAL" validate:"gt=0"`
	OnChainDelay        time.Duration `mapstructure:"ONCHAIN_DELAY" validate:"gte=0"`
	CollectionInterval  time.Duration `mapstructure:"COLLECTION_INTERVAL" validate:"gt=0"`
	AggregationInterval time.Duration `mapstructure:"AGGREGATION_INTERVAL" validate:"gt=0"`
	AggregationWarmup   time.Duration `mapstructure:"AGGREGATION_WARMUP" validate:"gte=0"`

	ThrottleInterval time.Duration `mapstructure:"THROTTLE_INTERVAL" validate:"gte=0"`
	ThrottlePenalty  time.Duration `mapstructure:"THROTTLE_PENALTY" validate:"gte=0"`
	BreakerFailures  uint32        `mapstructure:"BREAKER_FAILURES" validate:"min=1"`
	BreakerCooldown  time.Duration `mapstructure:"BREAKER_COOLDOWN" validate:"gt=0"`

	CacheCapacity int    `mapstructure:"CACHE_CAPACITY" validate:"min=1"`
	RulesFile     string `mapstructure:"RULES_FILE"`
	SelectorSeed  int64  `mapstructure:"SELECTOR_SEED"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=json console text"`
}

var validate = validator.New()

// SetDefaults registers the default for every key and enables environment lookup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 3002)
	v.SetDefault("SOLANA_RPC_ENDPOINT", DefaultRPCEndpoint)
	v.SetDefault("SOLANA_WS_ENDPOINT", "")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("HELIUS_API_KEY", "")

	v.SetDefault("MAGICEDEN_URL", market.DefaultMagicEdenURL)
	v.SetDefault("HELIUS_URL", market.DefaultHeliusURL)
	v.SetDefault("HYPERSPACE_URL", market.DefaultHyperspaceURL)
	v.SetDefault("TENSOR_URL", market.DefaultTensorURL)
	v.SetDefault("SOLANAFM_URL", market.DefaultSolanaFMURL)
	v.SetDefault("JUPITER_URL", market.DefaultJupiterURL)

	v.SetDefault("ONCHAIN_INTERVAL", scheduler.OnChainInterval)
	v.SetDefault("ONCHAIN_DELAY", scheduler.OnChainDelay)
	v.SetDefault("COLLECTION_INTERVAL", scheduler.CollectionInterval)
	v.SetDefault("AGGREGATION_INTERVAL", scheduler.AggregationInterval)
	v.SetDefault("AGGREGATION_WARMUP", scheduler.AggregationWarmup)

	v.SetDefault("THROTTLE_INTERVAL", throttle.DefaultInterval)
	v.SetDefault("THROTTLE_PENALTY", throttle.DefaultPenalty)
	v.SetDefault("BREAKER_FAILURES", 3)
	v.SetDefault("BREAKER_COOLDOWN", 5*time.Minute)

	v.SetDefault("CACHE_CAPACITY", memory.DefaultCacheCapacity)
	v.SetDefault("RULES_FILE", "")
	v.SetDefault("SELECTOR_SEED", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.AutomaticEnv()
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"port":         "PORT",
	"rpc":          "SOLANA_RPC_ENDPOINT",
	"ws":           "SOLANA_WS_ENDPOINT",
	"postgres-dsn": "POSTGRES_DSN",
	"rules":        "RULES_FILE",
	"log-level":    "LOG_LEVEL",
	"log-format":   "LOG_FORMAT",
}

// RegisterFlags defines the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("port", 3002, "HTTP listen port")
	fs.String("rpc", DefaultRPCEndpoint, "Solana RPC endpoint")
	fs.String("ws", "", "Solana WebSocket endpoint (empty disables the live log stream)")
	fs.String("postgres-dsn", "", "PostgreSQL DSN for the record archive (empty disables it)")
	fs.String("rules", "", "patch rules YAML file (empty uses the built-in table)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or console")
}

// BindFlags makes flags in fs override environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

//go:embed seeds.yaml
var seedsYAML []byte

// Seeds are the lists the service starts from.
type Seeds struct {
	Collections    []string `yaml:"collections"`
	KnownMints     []string `yaml:"knownMints"`
	JupiterSymbols []string `yaml:"jupiterSymbols"`
}

// DefaultSeeds returns the embedded seed lists.
func DefaultSeeds() (Seeds, error) {
	var s Seeds
	if err := yaml.Unmarshal(seedsYAML, &s); err != nil {
		return Seeds{}, fmt.Errorf("parse seeds: %w", err)
	}
	return s, nil
}
