// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Providers ProvidersConfig `koanf:"providers"`
	IGDB      IGDBConfig      `koanf:"igdb"`
	RAWG      RAWGConfig      `koanf:"rawg"`
	Resolver  ResolverConfig  `koanf:"resolver"`
	Sync      SyncConfig      `koanf:"sync"`
	Expiry    ExpiryConfig    `koanf:"expiry"`
	Events    EventsConfig    `koanf:"events"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// JWTConfig only carries what is needed to verify access tokens issued by
// the identity service.
type JWTConfig struct {
	PublicKeyPath string `koanf:"public_key_path"`
	Algorithm     string `koanf:"algorithm"`
	Issuer        string `koanf:"issuer"`
	Audience      string `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`

	// PersonalRequests is the per-user budget per minute on /me routes.
	PersonalRequests int `koanf:"personal_requests"`
	// SyncTriggers is the per-job budget per hour for admin sync triggers.
	SyncTriggers int `koanf:"sync_triggers"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type ProvidersConfig struct {
	UserAgent       string        `koanf:"user_agent"`
	Timeout         time.Duration `koanf:"timeout"`
	RequestDelay    time.Duration `koanf:"request_delay"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`

	Xbox    XboxConfig    `koanf:"xbox"`
	PSPlus  PSPlusConfig  `koanf:"psplus"`
	Ubisoft UbisoftConfig `koanf:"ubisoft"`
}

type XboxConfig struct {
	CatalogURL string `koanf:"catalog_url"`
	ProductURL string `koanf:"product_url"`
	Market     string `koanf:"market"`
	Language   string `koanf:"language"`
	BatchSize  int    `koanf:"batch_size"`
}

type PSPlusConfig struct {
	GraphQLURL      string        `koanf:"graphql_url"`
	Locale          string        `koanf:"locale"`
	PageSize        int           `koanf:"page_size"`
	PageDelay       time.Duration `koanf:"page_delay"`
	IncludeClassics bool          `koanf:"include_classics"`
}

type UbisoftConfig struct {
	SearchURL     string `koanf:"search_url"`
	PageSize      int    `koanf:"page_size"`
	MaxPages      int    `koanf:"max_pages"`
	ForceFallback bool   `koanf:"force_fallback"`
}

type IGDBConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	TokenURL     string `koanf:"token_url"`
	BaseURL      string `koanf:"base_url"`
}

func (c IGDBConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type RAWGConfig struct {
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
	PageSize int    `koanf:"page_size"`
}

func (c RAWGConfig) Enabled() bool {
	return c.APIKey != ""
}

type ResolverConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	CandidateLimit      int     `koanf:"candidate_limit"`
}

type SyncConfig struct {
	ItemLimit  int           `koanf:"item_limit"`
	JobTimeout time.Duration `koanf:"job_timeout"`
}

type ExpiryConfig struct {
	Window time.Duration `koanf:"window"`
}

type EventsConfig struct {
	Driver  string `koanf:"driver"`
	NATSURL string `koanf:"nats_url"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "gotit-catalog",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.migrate_on_start":   false,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.algorithm":       "ES256",
		"jwt.issuer":          "gotit-identity",
		"jwt.audience":        "gotit-api",
		"jwt.public_key_path": "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"rate_limit.personal_requests": 30,
		"rate_limit.sync_triggers":     6,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "gotit-catalog",

		"providers.user_agent":       "Mozilla/5.0 (compatible; GotItCatalog/1.0)",
		"providers.timeout":          "30s",
		"providers.request_delay":    "250ms",
		"providers.breaker_failures": 5,
		"providers.breaker_timeout":  "60s",

		"providers.xbox.catalog_url": "https://catalog.gamepass.com/sigls/v2",
		"providers.xbox.product_url": "https://displaycatalog.mp.microsoft.com/v7.0/products",
		"providers.xbox.market":      "US",
		"providers.xbox.language":    "en-us",
		"providers.xbox.batch_size":  20,

		"providers.psplus.graphql_url":      "https://web.np.playstation.com/api/graphql/v1/op",
		"providers.psplus.locale":           "en-US",
		"providers.psplus.page_size":        100,
		"providers.psplus.page_delay":       "200ms",
		"providers.psplus.include_classics": true,

		"providers.ubisoft.search_url":     "https://store.ubisoft.com/api/catalog/search",
		"providers.ubisoft.page_size":      100,
		"providers.ubisoft.max_pages":      50,
		"providers.ubisoft.force_fallback": false,

		"igdb.token_url": "https://id.twitch.tv/oauth2/token",
		"igdb.base_url":  "https://api.igdb.com/v4",

		"rawg.base_url":  "https://api.rawg.io/api",
		"rawg.page_size": 5,

		"resolver.similarity_threshold": 0.92,
		"resolver.candidate_limit":      10,

		"sync.item_limit":  0,
		"sync.job_timeout": "30m",

		"expiry.window": "336h",

		"events.driver": "gochannel",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_MIGRATE_ON_START":   "database.migrate_on_start",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ALGORITHM":               "jwt.algorithm",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_PERSONAL":         "rate_limit.personal_requests",
	"RATE_LIMIT_SYNC_TRIGGERS":    "rate_limit.sync_triggers",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"PROVIDER_REQUEST_DELAY":      "providers.request_delay",
	"PROVIDER_TIMEOUT":            "providers.timeout",
	"PSPLUS_INCLUDE_CLASSICS":     "providers.psplus.include_classics",
	"UBISOFT_FORCE_FALLBACK":      "providers.ubisoft.force_fallback",
	"IGDB_CLIENT_ID":              "igdb.client_id",
	"IGDB_CLIENT_SECRET":          "igdb.client_secret",
	"RAWG_API_KEY":                "rawg.api_key",
	"SYNC_ITEM_LIMIT":             "sync.item_limit",
	"SYNC_JOB_TIMEOUT":            "sync.job_timeout",
	"EXPIRY_WINDOW":               "expiry.window",
	"EVENTS_DRIVER":               "events.driver",
	"NATS_URL":                    "events.nats_url",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Expiry.Window <= 0 {
		return fmt.Errorf("expiry.window must be positive")
	}

	if c.Resolver.SimilarityThreshold <= 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("resolver.similarity_threshold must be in (0, 1]")
	}

	switch c.Events.Driver {
	case "gochannel":
	case "nats":
		if c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when events.driver is nats")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}

	if c.Sync.ItemLimit < 0 {
		return fmt.Errorf("sync.item_limit must not be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
