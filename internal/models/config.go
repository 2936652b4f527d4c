package models

import "time"

// Config represents the application configuration
type Config struct {
	AppName  string
	Database DatabaseConfig
	Auth     AuthConfig
	Server   ServerConfig
	SMTP     SMTPConfig
	Digest   DigestConfig
	Catalog  CatalogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	Key             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// AuthConfig holds token signing and lifetime settings
type AuthConfig struct {
	SecretKey          string
	Algorithm          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	CookieName         string
	CookiePath         string
	CookieSecure       bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	CorsOrigins     []string
	ShutdownTimeout time.Duration
}

// SMTPConfig holds outbound mail settings. An empty Host disables email.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
}

// Enabled reports whether mail can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// DigestConfig holds weekly digest settings
type DigestConfig struct {
	Enabled      bool
	Interval     time.Duration
	ExpiringDays int
	RenewalDays  int
}

// CatalogConfig locates the card definition files
type CatalogConfig struct {
	Dir string
}
