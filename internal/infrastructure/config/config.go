package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Remote   RemoteConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Resolver ResolverConfig
	Summary  SummaryConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// RemoteConfig holds the connection settings for the remote document store.
type RemoteConfig struct {
	BaseURL        string
	CompanyDB      string
	Username       string
	Password       string
	SessionRenewal time.Duration
	LoginTimeout   time.Duration
	QueryTimeout   time.Duration
	FetchTimeout   time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the ephemeral trace cache backend.
type CacheConfig struct {
	Backend  string // memory, redis
	TraceTTL time.Duration
}

// ResolverConfig bounds a single lineage resolution.
type ResolverConfig struct {
	WindowBack           time.Duration
	WindowForward        time.Duration
	OrderCandidateCap    int
	DeliveryCandidateCap int
}

// SummaryConfig tunes durable summary serving and batch scans.
type SummaryConfig struct {
	Freshness time.Duration
	ScanPace  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DOCLINK_ prefix (e.g., DOCLINK_REMOTE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DOCLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Remote: RemoteConfig{
			BaseURL:        v.GetString("remote.base_url"),
			CompanyDB:      v.GetString("remote.company_db"),
			Username:       v.GetString("remote.username"),
			Password:       v.GetString("remote.password"),
			SessionRenewal: v.GetDuration("remote.session_renewal"),
			LoginTimeout:   v.GetDuration("remote.login_timeout"),
			QueryTimeout:   v.GetDuration("remote.query_timeout"),
			FetchTimeout:   v.GetDuration("remote.fetch_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Backend:  v.GetString("cache.backend"),
			TraceTTL: v.GetDuration("cache.trace_ttl"),
		},
		Resolver: ResolverConfig{
			WindowBack:           v.GetDuration("resolver.window_back"),
			WindowForward:        v.GetDuration("resolver.window_forward"),
			OrderCandidateCap:    v.GetInt("resolver.order_candidate_cap"),
			DeliveryCandidateCap: v.GetInt("resolver.delivery_candidate_cap"),
		},
		Summary: SummaryConfig{
			Freshness: v.GetDuration("summary.freshness"),
			ScanPace:  v.GetDuration("summary.scan_pace"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "doclink"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Remote.SessionRenewal == 0 {
		cfg.Remote.SessionRenewal = 25 * time.Minute
	}
	if cfg.Remote.LoginTimeout == 0 {
		cfg.Remote.LoginTimeout = 10 * time.Second
	}
	if cfg.Remote.QueryTimeout == 0 {
		cfg.Remote.QueryTimeout = 15 * time.Second
	}
	if cfg.Remote.FetchTimeout == 0 {
		cfg.Remote.FetchTimeout = 45 * time.Second
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "doclink"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TraceTTL == 0 {
		cfg.Cache.TraceTTL = 6 * time.Hour
	}
	if cfg.Resolver.WindowBack == 0 {
		cfg.Resolver.WindowBack = 7 * 24 * time.Hour
	}
	if cfg.Resolver.WindowForward == 0 {
		cfg.Resolver.WindowForward = 30 * 24 * time.Hour
	}
	if cfg.Resolver.OrderCandidateCap == 0 {
		cfg.Resolver.OrderCandidateCap = 120
	}
	if cfg.Resolver.DeliveryCandidateCap == 0 {
		cfg.Resolver.DeliveryCandidateCap = 200
	}
	if cfg.Summary.Freshness == 0 {
		cfg.Summary.Freshness = 12 * time.Hour
	}
	if cfg.Summary.ScanPace == 0 {
		cfg.Summary.ScanPace = 150 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, requests are small number batches
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Remote.CompanyDB == "" {
		return fmt.Errorf("remote.company_db is required")
	}
	if c.Remote.Username == "" {
		return fmt.Errorf("remote.username is required")
	}
	if c.Remote.Password == "" {
		return fmt.Errorf("remote.password is required")
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !strings.HasPrefix(c.Remote.BaseURL, "https://") {
			return fmt.Errorf("remote.base_url must use https in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
