package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/usemiddleman/middleman/types"
)

var (
	Version    = "dev"
	CommitHash = "unknown"

	// Singleton instance
	configInstance *Config
	configOnce     sync.Once
)

// Default configuration constants
const (
	// Indexer settings
	DefaultIndexerURL       = "https://constellations-api.mainnet.stargaze-apis.com/graphql"
	DefaultIndexerUserAgent = "usemiddleman-app/0.1 (contact: set INDEXER_UA)"
	DefaultIndexerTimeout   = 30 * time.Second
	DefaultMaxGetURLLength  = 7000

	// Chain settings
	DefaultChainId              = "stargaze-1"
	DefaultRestUrl              = "https://rest.stargaze-apis.com"
	DefaultAccountAddressPrefix = "stars"
	DefaultIPFSGateway          = "https://ipfs-gw.stargaze-apis.com/ipfs/"
	DefaultQueryTimeout         = 10 * time.Second

	// Port settings
	DefaultProxyPort   = "8080"
	DefaultMetricsPort = "9090"
	MinPortNumber      = 1
	MaxPortNumber      = 65535

	// Concurrent request settings
	DefaultMaxConcurrentRequests = 16
	MaxAllowedConcurrentRequests = 256

	// Cache settings
	DefaultMediaCacheSize    = 4096
	DefaultDetailsCacheSize  = 4096
	DefaultNftInfoCacheSize  = 4096
	DefaultMetadataCacheSize = 2048
	DefaultMetadataCacheTTL  = 30 * time.Minute

	// Metrics settings
	DefaultMetricsPath = "/metrics"

	// Default environment
	DefaultEnvironment = "local"
)

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	Port    string `json:"port"`
}

// CacheConfig sizes the process-wide enrichment caches
type CacheConfig struct {
	MediaCacheSize    int           `json:"media_cache_size"`
	DetailsCacheSize  int           `json:"details_cache_size"`
	NftInfoCacheSize  int           `json:"nft_info_cache_size"`
	MetadataCacheSize int           `json:"metadata_cache_size"`
	MetadataCacheTTL  time.Duration `json:"metadata_cache_ttl"`
}

// SentryConfig contains configuration for Sentry integration
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	SampleRate       float64 `json:"sample_rate"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Environment      string  `json:"environment"`
}

func SetBuildInfo(v, commit string) {
	Version = v
	CommitHash = commit
}

type Config struct {
	indexerConfig         *IndexerConfig
	chainConfig           *ChainConfig
	proxyConfig           *ProxyConfig
	logLevel              string
	logFormat             string
	maxConcurrentRequests int
	mediaConcurrency      int
	metricsConfig         *MetricsConfig
	cacheConfig           *CacheConfig
	sentryConfig          *SentryConfig
}

func setDefaults() {
	viper.SetDefault("INDEXER_URL", DefaultIndexerURL)
	viper.SetDefault("INDEXER_UA", DefaultIndexerUserAgent)
	viper.SetDefault("INDEXER_TIMEOUT", DefaultIndexerTimeout)
	viper.SetDefault("INDEXER_MAX_GET_URL", DefaultMaxGetURLLength)
	viper.SetDefault("CHAIN_ID", DefaultChainId)
	viper.SetDefault("REST_URLS", DefaultRestUrl)
	viper.SetDefault("ACCOUNT_ADDRESS_PREFIX", DefaultAccountAddressPrefix)
	viper.SetDefault("IPFS_GATEWAY", DefaultIPFSGateway)
	viper.SetDefault("QUERY_TIMEOUT", DefaultQueryTimeout)
	viper.SetDefault("PROXY_PORT", DefaultProxyPort)
	viper.SetDefault("PROXY_TARGET", DefaultIndexerURL)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "https://app.usemiddleman.xyz,http://localhost:5173,http://127.0.0.1:5173")
	viper.SetDefault("CORS_ANY", false)
	viper.SetDefault("MAX_CONCURRENT_REQUESTS", DefaultMaxConcurrentRequests)
	viper.SetDefault("MEDIA_CONCURRENCY", types.DefaultMediaConcurrency)
	viper.SetDefault("LOG_LEVEL", "warn")
	viper.SetDefault("LOG_FORMAT", "plain")
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_PATH", DefaultMetricsPath)
	viper.SetDefault("METRICS_PORT", DefaultMetricsPort)
	viper.SetDefault("ENVIRONMENT", DefaultEnvironment)

	// Sentry defaults
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_SAMPLE_RATE", 0.1)
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.01)

	// Cache defaults
	viper.SetDefault("MEDIA_CACHE_SIZE", DefaultMediaCacheSize)
	viper.SetDefault("DETAILS_CACHE_SIZE", DefaultDetailsCacheSize)
	viper.SetDefault("NFT_INFO_CACHE_SIZE", DefaultNftInfoCacheSize)
	viper.SetDefault("METADATA_CACHE_SIZE", DefaultMetadataCacheSize)
	viper.SetDefault("METADATA_CACHE_TTL", DefaultMetadataCacheTTL)

	// ESCROW_CONTRACT has no default
}

func GetConfig() (*Config, error) {
	var err error

	configOnce.Do(func() {
		configInstance, err = loadConfig()
	})

	return configInstance, err
}

func loadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// just log without panic, local testing purpose only
		fmt.Fprintln(os.Stderr, "No .env file found")
	}
	viper.AutomaticEnv()
	setDefaults()

	ic := &IndexerConfig{
		URL:             viper.GetString("INDEXER_URL"),
		UserAgent:       viper.GetString("INDEXER_UA"),
		Timeout:         viper.GetDuration("INDEXER_TIMEOUT"),
		MaxGetURLLength: viper.GetInt("INDEXER_MAX_GET_URL"),
	}

	cc := &ChainConfig{
		ChainId:              viper.GetString("CHAIN_ID"),
		RestUrls:             splitList(viper.GetString("REST_URLS")),
		EscrowContract:       strings.TrimSpace(viper.GetString("ESCROW_CONTRACT")),
		AccountAddressPrefix: viper.GetString("ACCOUNT_ADDRESS_PREFIX"),
		IPFSGateway:          viper.GetString("IPFS_GATEWAY"),
		QueryTimeout:         viper.GetDuration("QUERY_TIMEOUT"),
		Environment:          viper.GetString("ENVIRONMENT"),
	}

	pc := &ProxyConfig{
		Port:           viper.GetString("PROXY_PORT"),
		Target:         viper.GetString("PROXY_TARGET"),
		AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		AllowAnyOrigin: corsAny(viper.GetString("CORS_ANY")),
	}

	config := &Config{
		indexerConfig:         ic,
		chainConfig:           cc,
		proxyConfig:           pc,
		logLevel:              viper.GetString("LOG_LEVEL"),
		logFormat:             viper.GetString("LOG_FORMAT"),
		maxConcurrentRequests: viper.GetInt("MAX_CONCURRENT_REQUESTS"),
		mediaConcurrency:      viper.GetInt("MEDIA_CONCURRENCY"),
		metricsConfig: &MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Path:    viper.GetString("METRICS_PATH"),
			Port:    viper.GetString("METRICS_PORT"),
		},
		cacheConfig: &CacheConfig{
			MediaCacheSize:    viper.GetInt("MEDIA_CACHE_SIZE"),
			DetailsCacheSize:  viper.GetInt("DETAILS_CACHE_SIZE"),
			NftInfoCacheSize:  viper.GetInt("NFT_INFO_CACHE_SIZE"),
			MetadataCacheSize: viper.GetInt("METADATA_CACHE_SIZE"),
			MetadataCacheTTL:  viper.GetDuration("METADATA_CACHE_TTL"),
		},
		sentryConfig: &SentryConfig{
			DSN:              viper.GetString("SENTRY_DSN"),
			SampleRate:       viper.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: viper.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Environment:      viper.GetString("ENVIRONMENT"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// initialize sdk
	InitializeSDKConfig(cc.AccountAddressPrefix)

	return config, nil
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// corsAny accepts "1" as well as viper's boolean spellings.
func corsAny(raw string) bool {
	if raw == "1" {
		return true
	}
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

// SetIndexerConfig assigns the indexer config for testing purposes.
func (c *Config) SetIndexerConfig(indexerCfg *IndexerConfig) {
	c.indexerConfig = indexerCfg
}

func (c Config) GetIndexerConfig() *IndexerConfig {
	return c.indexerConfig
}

// SetChainConfig assigns the chain config for testing purposes.
func (c *Config) SetChainConfig(chainCfg *ChainConfig) {
	c.chainConfig = chainCfg
}

func (c Config) GetChainConfig() *ChainConfig {
	return c.chainConfig
}

// SetProxyConfig assigns the proxy config for testing purposes.
func (c *Config) SetProxyConfig(proxyCfg *ProxyConfig) {
	c.proxyConfig = proxyCfg
}

func (c Config) GetProxyConfig() *ProxyConfig {
	return c.proxyConfig
}

func (c Config) GetChainId() string {
	return c.chainConfig.ChainId
}

func (c Config) GetMaxConcurrentRequests() int {
	return c.maxConcurrentRequests
}

func (c Config) GetMediaConcurrency() int {
	if c.mediaConcurrency < 1 {
		return types.DefaultMediaConcurrency
	}
	return c.mediaConcurrency
}

func (c Config) GetSentryConfig() *SentryConfig {
	if c.sentryConfig == nil || c.sentryConfig.DSN == "" {
		return nil
	}
	return c.sentryConfig
}

func (c Config) GetLogLevel() slog.Level {
	switch c.logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (c Config) GetLogFormat() string {
	if c.logFormat == "json" {
		return "json"
	}
	return "plain"
}

func (c Config) GetMetricsConfig() *MetricsConfig {
	return c.metricsConfig
}

func (c Config) GetCacheConfig() *CacheConfig {
	if c.cacheConfig == nil {
		return &CacheConfig{
			MediaCacheSize:    DefaultMediaCacheSize,
			DetailsCacheSize:  DefaultDetailsCacheSize,
			NftInfoCacheSize:  DefaultNftInfoCacheSize,
			MetadataCacheSize: DefaultMetadataCacheSize,
			MetadataCacheTTL:  DefaultMetadataCacheTTL,
		}
	}
	return c.cacheConfig
}

func (c Config) Validate() error {
	if err := c.validateLogSettings(); err != nil {
		return err
	}
	if err := c.validateNumericSettings(); err != nil {
		return err
	}
	if err := c.validateMetricsConfig(); err != nil {
		return err
	}
	if err := c.validateSubConfigs(); err != nil {
		return err
	}
	return nil
}

// validateLogSettings validates log format and level configuration
func (c Config) validateLogSettings() error {
	switch c.logFormat {
	case "json", "plain":
		break
	default:
		return types.NewValidationError("LOG_FORMAT", fmt.Sprintf("invalid value '%s', must be 'json' or 'plain'", c.logFormat))
	}

	switch c.logLevel {
	case "debug", "info", "warn", "error":
		break
	default:
		return types.NewValidationError("LOG_LEVEL", fmt.Sprintf("invalid value '%s', must be one of: debug, info, warn, error", c.logLevel))
	}
	return nil
}

// validateNumericSettings validates all numeric configuration values
func (c Config) validateNumericSettings() error {
	if c.maxConcurrentRequests < 1 {
		return types.NewValidationError("MAX_CONCURRENT_REQUESTS", "must be at least 1")
	}
	if c.maxConcurrentRequests > MaxAllowedConcurrentRequests {
		return types.NewInvalidValueError("MAX_CONCURRENT_REQUESTS", fmt.Sprintf("%d", c.maxConcurrentRequests), fmt.Sprintf("must not exceed %d", MaxAllowedConcurrentRequests))
	}
	if c.mediaConcurrency < 1 || c.mediaConcurrency > types.MaxMediaConcurrency {
		return types.NewInvalidValueError("MEDIA_CONCURRENCY", fmt.Sprintf("%d", c.mediaConcurrency), fmt.Sprintf("must be between 1 and %d", types.MaxMediaConcurrency))
	}
	if cc := c.cacheConfig; cc != nil {
		if cc.MediaCacheSize < 1 || cc.DetailsCacheSize < 1 || cc.NftInfoCacheSize < 1 || cc.MetadataCacheSize < 1 {
			return types.NewValidationError("CACHE_SIZE", "cache sizes must be at least 1")
		}
		if cc.MetadataCacheTTL <= 0 {
			return types.NewValidationError("METADATA_CACHE_TTL", "must be positive")
		}
	}
	return nil
}

func (c Config) validateMetricsConfig() error {
	if c.metricsConfig == nil || !c.metricsConfig.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.metricsConfig.Path, "/") {
		return types.NewValidationError("METRICS_PATH", "must start with '/'")
	}
	return validatePort("METRICS_PORT", c.metricsConfig.Port)
}

func (c Config) validateSubConfigs() error {
	if c.indexerConfig != nil {
		if err := c.indexerConfig.Validate(); err != nil {
			return err
		}
	}
	if c.chainConfig != nil {
		if err := c.chainConfig.Validate(); err != nil {
			return err
		}
	}
	if c.proxyConfig != nil {
		if err := c.proxyConfig.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validatePort(field, port string) error {
	if len(port) == 0 {
		return types.NewValidationError(field, "required field is missing")
	}
	if p, err := strconv.Atoi(port); err != nil || p < MinPortNumber || p > MaxPortNumber {
		return types.NewValidationError(field, fmt.Sprintf("must be a valid port number (%d-%d)", MinPortNumber, MaxPortNumber))
	}
	return nil
}
