package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Market    MarketConfig    `mapstructure:"market"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Sinks     SinksConfig     `mapstructure:"sinks"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. It is only used for
// the leadership lock; an empty DSN disables it.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// ProvidersConfig covers the external data providers.
type ProvidersConfig struct {
	RequestTimeout time.Duration     `mapstructure:"request_timeout" validate:"gt=0"`
	UserAgent      string            `mapstructure:"user_agent"`
	Moralis        MoralisConfig     `mapstructure:"moralis"`
	Helius         HeliusConfig      `mapstructure:"helius"`
	DexScreener    DexScreenerConfig `mapstructure:"dexscreener"`
}

// MoralisConfig drives the new-listings feed.
type MoralisConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
}

// HeliusConfig drives wallet history, RPC and log streaming.
type HeliusConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
	RPCURL  string `mapstructure:"rpc_url" validate:"omitempty,url"`
	WSURL   string `mapstructure:"ws_url" validate:"omitempty,url"`
}

// DexScreenerConfig drives pair lookups.
type DexScreenerConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// ListingConfig governs the new-token poller.
type ListingConfig struct {
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	PageSize     int           `mapstructure:"page_size" validate:"gte=1,lte=100"`
	StartupDelay time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
	Stream       StreamConfig  `mapstructure:"stream"`
}

// StreamConfig enables WebSocket wake-ups of the poller.
type StreamConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ProgramID      string        `mapstructure:"program_id" validate:"omitempty,solana_address"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// TrackerConfig governs wallet profiling and monitoring.
type TrackerConfig struct {
	MonitorInterval    time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`
	MonitorDelay       time.Duration `mapstructure:"monitor_startup_delay" validate:"gte=0"`
	MonitorLimit       int           `mapstructure:"monitor_limit" validate:"gte=1,lte=100"`
	HistoryLimit       int           `mapstructure:"history_limit" validate:"gte=1,lte=100"`
	WinRateThreshold   float64       `mapstructure:"win_rate_threshold" validate:"gt=0,lt=1"`
	MinTrades          int           `mapstructure:"min_trades" validate:"gte=1"`
	BatchDelay         time.Duration `mapstructure:"batch_delay" validate:"gte=0"`
	PriceTTL           time.Duration `mapstructure:"price_ttl"`
	Wallets            []string      `mapstructure:"wallets" validate:"dive,solana_address"`
	DemoteOnReanalysis bool          `mapstructure:"demote_on_reanalysis"`
}

// MarketConfig governs snapshot lookups.
type MarketConfig struct {
	TopHolders   int  `mapstructure:"top_holders" validate:"gte=1,lte=20"`
	Concurrency  int  `mapstructure:"concurrency" validate:"gte=1"`
	EnrichTokens bool `mapstructure:"enrich_tokens"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SinksConfig lists the message-bus sinks.
type SinksConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	Redis RedisConfig `mapstructure:"redis"`
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// RedisConfig configures the Redis pub/sub sink.
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db" validate:"gte=0"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("ALPHARADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alpharadar")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x616c7068))

	v.SetDefault("providers.request_timeout", "10s")
	v.SetDefault("providers.user_agent", "alpharadar/1.0")
	v.SetDefault("providers.moralis.base_url", "https://solana-gateway.moralis.io")
	v.SetDefault("providers.moralis.api_key", "")
	v.SetDefault("providers.helius.base_url", "https://api.helius.xyz")
	v.SetDefault("providers.helius.api_key", "")
	v.SetDefault("providers.helius.rpc_url", "")
	v.SetDefault("providers.helius.ws_url", "")
	v.SetDefault("providers.dexscreener.base_url", "https://api.dexscreener.com/latest/dex")

	v.SetDefault("listing.interval", "5s")
	v.SetDefault("listing.page_size", 20)
	v.SetDefault("listing.startup_delay", "0s")
	v.SetDefault("listing.stream.enabled", false)
	v.SetDefault("listing.stream.program_id", PumpFunProgramID)
	v.SetDefault("listing.stream.reconnect_delay", "1s")

	v.SetDefault("tracker.monitor_interval", "30s")
	v.SetDefault("tracker.monitor_startup_delay", "5s")
	v.SetDefault("tracker.monitor_limit", 10)
	v.SetDefault("tracker.history_limit", 100)
	v.SetDefault("tracker.win_rate_threshold", 0.6)
	v.SetDefault("tracker.min_trades", 10)
	v.SetDefault("tracker.batch_delay", "1s")
	v.SetDefault("tracker.price_ttl", "1m")
	v.SetDefault("tracker.wallets", []string{})
	v.SetDefault("tracker.demote_on_reanalysis", false)

	v.SetDefault("market.top_holders", 10)
	v.SetDefault("market.concurrency", 4)
	v.SetDefault("market.enrich_tokens", true)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("sinks.kafka.enabled", false)
	v.SetDefault("sinks.kafka.brokers", []string{})
	v.SetDefault("sinks.kafka.topic", "alpharadar.events")
	v.SetDefault("sinks.kafka.batch_timeout", "50ms")
	v.SetDefault("sinks.redis.enabled", false)
	v.SetDefault("sinks.redis.addr", "localhost:6379")
	v.SetDefault("sinks.redis.password", "")
	v.SetDefault("sinks.redis.db", 0)
	v.SetDefault("sinks.redis.channel_prefix", "alpharadar")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":3000")

	v.SetDefault("metrics.namespace", "alpharadar")
}

// PumpFunProgramID is the pump.fun bonding-curve program.
const PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("solana_address", func(fl validator.FieldLevel) bool {
		return model.ValidateAddress(fl.Field().String()) == nil
	})
	return v
}

// Validate runs the struct-tag rules, then the cross-field checks.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Listing.Stream.Enabled {
		if c.HeliusWSURL() == "" {
			return fmt.Errorf("listing.stream requires providers.helius.ws_url or api_key")
		}
		if c.Listing.Stream.ProgramID == "" {
			return fmt.Errorf("listing.stream.program_id must be set")
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Sinks.Kafka.Enabled {
		if len(c.Sinks.Kafka.Brokers) == 0 {
			return fmt.Errorf("sinks.kafka.brokers 必须配置")
		}
		if c.Sinks.Kafka.Topic == "" {
			return fmt.Errorf("sinks.kafka.topic 必须配置")
		}
	}
	if c.Sinks.Redis.Enabled && c.Sinks.Redis.Addr == "" {
		return fmt.Errorf("sinks.redis.addr 必须配置")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must be set when http is enabled")
	}
	return nil
}

// HeliusRPCURL returns the configured RPC endpoint, or the keyed Helius
// mainnet endpoint when only an API key is set.
func (c *Config) HeliusRPCURL() string {
	h := c.Providers.Helius
	if h.RPCURL != "" {
		return h.RPCURL
	}
	if h.APIKey != "" {
		return "https://mainnet.helius-rpc.com/?api-key=" + h.APIKey
	}
	return ""
}

// HeliusWSURL is the WebSocket counterpart of HeliusRPCURL.
func (c *Config) HeliusWSURL() string {
	h := c.Providers.Helius
	if h.WSURL != "" {
		return h.WSURL
	}
	if h.APIKey != "" {
		return "wss://mainnet.helius-rpc.com/?api-key=" + h.APIKey
	}
	return ""
}

// MissingCredentials names the provider keys a full run needs but lacks.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.Providers.Moralis.APIKey == "" {
		missing = append(missing, "providers.moralis.api_key")
	}
	if c.Providers.Helius.APIKey == "" {
		missing = append(missing, "providers.helius.api_key")
	}
	return missing
}
