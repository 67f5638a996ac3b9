package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the accounthub service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Email       EmailConfig       `mapstructure:"email"`
	Users       UsersConfig       `mapstructure:"users"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	HSTS            bool          `mapstructure:"hsts"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig selects the cache back-end shared by rate limiting and geolocation lookups.
type CacheConfig struct {
	Driver string            `mapstructure:"driver"`
	Memory MemoryCacheConfig `mapstructure:"memory"`
	Redis  RedisCacheConfig  `mapstructure:"redis"`
}

// MemoryCacheConfig bounds the in-process cache.
type MemoryCacheConfig struct {
	SizeLimit int `mapstructure:"size_limit"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefix   string        `mapstructure:"prefix"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DispatcherConfig sizes the background delivery pool.
type DispatcherConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// UsersConfig holds the user module settings shared by the validation,
// verification and photo services.
type UsersConfig struct {
	MaxUsernameLength     int           `mapstructure:"max_username_length"`
	SiteAddress           string        `mapstructure:"site_address"`
	IssueReportURL        string        `mapstructure:"issue_report_url"`
	VerificationExpiry    time.Duration `mapstructure:"verification_expiry"`
	VerificationCodeBytes int           `mapstructure:"verification_code_bytes"`
	PhotoMaxBytes         int64         `mapstructure:"photo_max_bytes"`
	PhotoSize             int           `mapstructure:"photo_size"`
}

// GeolocationConfig selects and tunes the IP locator.
type GeolocationConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIURL        string        `mapstructure:"api_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MaxMindDBPath string        `mapstructure:"maxmind_db_path"`
}

// MonitoringConfig enables metrics and health probes.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health"`
}

// HealthConfig controls the /health endpoints.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	VerificationSchedule string `mapstructure:"verification_schedule"`
	CacheSchedule        string `mapstructure:"cache_schedule"`
}

// RateLimitConfig bounds requests per client IP on the public user endpoints.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ACCOUNTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Cache.Driver) {
	case "", CacheDriverMemory, CacheDriverDatabase, CacheDriverRedis:
	default:
		return fmt.Errorf("config: unsupported cache driver %q", c.Cache.Driver)
	}
	switch strings.ToLower(c.Geolocation.Provider) {
	case "", GeoProviderHTTP, GeoProviderNone:
	case GeoProviderMaxMind:
		if strings.TrimSpace(c.Geolocation.MaxMindDBPath) == "" {
			return errors.New("config: geolocation.maxmind_db_path is required for the maxmind provider")
		}
	default:
		return fmt.Errorf("config: unsupported geolocation provider %q", c.Geolocation.Provider)
	}
	if c.Users.MaxUsernameLength < 0 {
		return errors.New("config: users.max_username_length must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.hsts", false)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/accounthub.sqlite")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("cache.driver", CacheDriverMemory)
	v.SetDefault("cache.memory.size_limit", 10000)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.prefix", "accounthub:")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.dispatcher.workers", 2)
	v.SetDefault("email.dispatcher.queue_size", 64)
	v.SetDefault("email.dispatcher.send_timeout", "30s")

	v.SetDefault("users.max_username_length", 150)
	v.SetDefault("users.site_address", "http://localhost:8000")
	v.SetDefault("users.issue_report_url", "")
	v.SetDefault("users.verification_expiry", "24h")
	v.SetDefault("users.verification_code_bytes", 24)
	v.SetDefault("users.photo_max_bytes", 5<<20)
	v.SetDefault("users.photo_size", 256)

	v.SetDefault("geolocation.provider", GeoProviderHTTP)
	v.SetDefault("geolocation.api_url", "http://ip-api.com/json/%s")
	v.SetDefault("geolocation.timeout", "5s")
	v.SetDefault("geolocation.cache_ttl", "1h")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health.enabled", true)
	v.SetDefault("monitoring.health.timeout", "2s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.verification_schedule", "@hourly")
	v.SetDefault("maintenance.cache_schedule", "@every 10m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
