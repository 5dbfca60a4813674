// Package config defines the service configuration and its loader. Every
// backend (storage, revocation, rate limiting, master key, audit) is
// selected here; components receive their section, never the whole tree.
package config

import (
	"fmt"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Vault       VaultConfig       `mapstructure:"vault"`
	MasterKey   MasterKeyConfig   `mapstructure:"master_key"`
	Token       TokenConfig       `mapstructure:"token"`
	KeyRotation KeyRotationConfig `mapstructure:"key_rotation"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Revocation  RevocationConfig  `mapstructure:"revocation"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	GRPCPort     int      `mapstructure:"grpc_port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
	EnablePprof  bool     `mapstructure:"enable_pprof"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

type DatabaseConfig struct {
	// Driver selects the SQL backend: postgres or sqlite.
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	Path            string `mapstructure:"path"` // sqlite file, :memory: for tests
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`  // in minutes
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
	DialTimeout  int      `mapstructure:"dial_timeout"` // in seconds
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
	Field      string `mapstructure:"field"`
}

// MasterKeyConfig selects how the 32-byte at-rest secret is obtained.
type MasterKeyConfig struct {
	// Provider is vault or static.
	Provider string `mapstructure:"provider"`
	// Key is the base64-encoded 32-byte secret for the static provider.
	Key string `mapstructure:"key"`
	// Passphrase plus Salt derive the secret via Argon2id when Key is
	// empty; intended for dev profiles only.
	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

type TokenConfig struct {
	Issuer          string `mapstructure:"issuer"`
	AccessTokenTTL  int    `mapstructure:"access_token_ttl"`  // in seconds
	RefreshTokenTTL int    `mapstructure:"refresh_token_ttl"` // in seconds
	ResetTokenTTL   int    `mapstructure:"reset_token_ttl"`   // in seconds
	ClockSkew       int    `mapstructure:"clock_skew"`        // in seconds
	// RefreshTransport is bearer or cookie; never mixed per request.
	RefreshTransport string `mapstructure:"refresh_transport"`
	CookieDomain     string `mapstructure:"cookie_domain"`
}

func (c *TokenConfig) AccessTTL() time.Duration  { return time.Duration(c.AccessTokenTTL) * time.Second }
func (c *TokenConfig) RefreshTTL() time.Duration { return time.Duration(c.RefreshTokenTTL) * time.Second }
func (c *TokenConfig) ResetTTL() time.Duration   { return time.Duration(c.ResetTokenTTL) * time.Second }
func (c *TokenConfig) Skew() time.Duration       { return time.Duration(c.ClockSkew) * time.Second }

type KeyRotationConfig struct {
	IntervalHours      int `mapstructure:"interval_hours"`
	GraceHours         int `mapstructure:"grace_hours"`
	RSAKeySize         int `mapstructure:"rsa_key_size"`
	CheckIntervalMin   int `mapstructure:"check_interval_minutes"`
	PurgeIntervalHours int `mapstructure:"purge_interval_hours"`
}

func (c *KeyRotationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

func (c *KeyRotationConfig) Grace() time.Duration {
	return time.Duration(c.GraceHours) * time.Hour
}

func (c *KeyRotationConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMin) * time.Minute
}

func (c *KeyRotationConfig) PurgeInterval() time.Duration {
	return time.Duration(c.PurgeIntervalHours) * time.Hour
}

type RateLimitConfig struct {
	// Backend is redis or local.
	Backend       string `mapstructure:"backend"`
	Threshold     int    `mapstructure:"threshold"`
	WindowSeconds int    `mapstructure:"window_seconds"`
}

func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type RevocationConfig struct {
	// Backend is redis, postgres or memory.
	Backend string `mapstructure:"backend"`
}

type AuditConfig struct {
	// Sink is log or kafka.
	Sink            string   `mapstructure:"sink"`
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	RevocationTopic string   `mapstructure:"revocation_topic"`
	ConsumerGroup   string   `mapstructure:"consumer_group"`
	ConsumerEnabled bool     `mapstructure:"consumer_enabled"`

	// SigningSecret, when set, adds an HMAC-SHA256 signature header to
	// every published audit message so downstream consumers can detect
	// tampering. Empty disables signing.
	SigningSecret string `mapstructure:"signing_secret"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Validate checks for configuration values that would otherwise fail deep
// inside a component at first use.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	switch c.MasterKey.Provider {
	case "vault", "static":
	default:
		return fmt.Errorf("master_key.provider must be vault or static, got %q", c.MasterKey.Provider)
	}
	if c.MasterKey.Provider == "static" && c.MasterKey.Key == "" && c.MasterKey.Passphrase == "" {
		return fmt.Errorf("master_key: static provider needs key or passphrase")
	}

	switch c.RateLimit.Backend {
	case "redis", "local":
	default:
		return fmt.Errorf("rate_limit.backend must be redis or local, got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Threshold <= 0 {
		return fmt.Errorf("rate_limit.threshold must be positive, got %d", c.RateLimit.Threshold)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be positive, got %d", c.RateLimit.WindowSeconds)
	}

	switch c.Revocation.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("revocation.backend must be redis, postgres or memory, got %q", c.Revocation.Backend)
	}
	if c.Revocation.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("revocation.backend redis requires redis.enabled")
	}
	if c.Revocation.Backend == "postgres" && c.Database.Driver != "postgres" {
		return fmt.Errorf("revocation.backend postgres requires database.driver postgres")
	}
	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("rate_limit.backend redis requires redis.enabled")
	}

	switch c.Audit.Sink {
	case "log", "kafka":
	default:
		return fmt.Errorf("audit.sink must be log or kafka, got %q", c.Audit.Sink)
	}
	if c.Audit.Sink == "kafka" && len(c.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.sink kafka requires audit.brokers")
	}

	switch c.Token.RefreshTransport {
	case string(constants.RefreshTransportBearer), string(constants.RefreshTransportCookie):
	default:
		return fmt.Errorf("token.refresh_transport must be bearer or cookie, got %q", c.Token.RefreshTransport)
	}

	if c.KeyRotation.RSAKeySize < constants.RSAKeySizeMin {
		return fmt.Errorf("key_rotation.rsa_key_size must be at least %d, got %d",
			constants.RSAKeySizeMin, c.KeyRotation.RSAKeySize)
	}
	return nil
}
