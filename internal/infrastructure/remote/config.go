package remote

import (
	"errors"
	"strings"
	"time"
)

// Defaults for the remote document store connection. The session renewal
// threshold is deliberately shorter than any observed server-side idle
// timeout; the store does not document its session TTL.
const (
	DefaultSessionRenewal = 25 * time.Minute
	DefaultLoginTimeout   = 10 * time.Second
	DefaultQueryTimeout   = 15 * time.Second
	DefaultFetchTimeout   = 45 * time.Second
)

// Configuration errors surfaced by Validate.
var (
	ErrConfigMissingBaseURL   = errors.New("remote: base URL is required")
	ErrConfigMissingCompanyDB = errors.New("remote: company database is required")
	ErrConfigMissingUsername  = errors.New("remote: username is required")
	ErrConfigMissingPassword  = errors.New("remote: password is required")
)

// Config holds connection settings for the remote document store.
type Config struct {
	BaseURL   string
	CompanyDB string
	Username  string
	Password  string

	// SessionRenewal bounds how long a login is reused before a fresh one
	// is performed.
	SessionRenewal time.Duration
	// LoginTimeout bounds the login exchange.
	LoginTimeout time.Duration
	// QueryTimeout bounds list queries.
	QueryTimeout time.Duration
	// FetchTimeout bounds single-document fetches, which may carry many
	// lines and run noticeably longer than list queries.
	FetchTimeout time.Duration
}

// NewConfig creates a config with defaults applied.
func NewConfig(baseURL, companyDB, username, password string) *Config {
	cfg := &Config{
		BaseURL:   baseURL,
		CompanyDB: companyDB,
		Username:  username,
		Password:  password,
	}
	cfg.applyDefaults()
	return cfg
}

// Validate checks required fields and fills in default durations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.CompanyDB) == "" {
		return ErrConfigMissingCompanyDB
	}
	if strings.TrimSpace(c.Username) == "" {
		return ErrConfigMissingUsername
	}
	if strings.TrimSpace(c.Password) == "" {
		return ErrConfigMissingPassword
	}
	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.SessionRenewal == 0 {
		c.SessionRenewal = DefaultSessionRenewal
	}
	if c.LoginTimeout == 0 {
		c.LoginTimeout = DefaultLoginTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}
