package config

import (
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// A missing config file is fine; defaults plus environment cover the full
// tree. Environment variables use the CLIMBAUTH_ prefix with underscores,
// e.g. CLIMBAUTH_SERVER_PORT=8080.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to read config file")
		}
		log.Debug(context.Background(), "no config file found, using defaults and environment")
	} else {
		log.Info(context.Background(), "loaded config file",
			logger.String("path", v.ConfigFileUsed()))
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndWatch loads the configuration and re-reads it whenever the config
// file changes on disk. Only hot-reloadable tunables take effect from a
// reload; onReload receives the full re-validated tree and applies them.
// A reload that fails validation is logged and dropped.
func LoadAndWatch(log logger.Logger, onReload func(*Config)) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to read config file")
		}
		// Nothing to watch without a file; behave like LoadConfig.
		return unmarshal(v)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		reloaded, err := unmarshal(v)
		if err != nil {
			log.Warn(context.Background(), "config reload rejected",
				logger.String("file", e.Name),
				logger.ErrorField(err),
			)
			return
		}
		log.Info(context.Background(), "config reloaded", logger.String("file", e.Name))
		onReload(reloaded)
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/climbauth/")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLIMBAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "invalid configuration")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.enable_pprof", false)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "climbauth")
	v.SetDefault("database.database", "climbauth")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "climbauth.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 60)
	v.SetDefault("database.max_conn_idle_time", 10)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5)

	v.SetDefault("vault.address", "http://localhost:8200")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "climbauth/master-key")
	v.SetDefault("vault.field", "key")

	v.SetDefault("master_key.provider", "static")

	v.SetDefault("token.issuer", "climbauth")
	v.SetDefault("token.access_token_ttl", 8*24*3600)
	v.SetDefault("token.refresh_token_ttl", 30*24*3600)
	v.SetDefault("token.reset_token_ttl", 3600)
	v.SetDefault("token.clock_skew", 30)
	v.SetDefault("token.refresh_transport", "bearer")

	v.SetDefault("key_rotation.interval_hours", 30*24)
	v.SetDefault("key_rotation.grace_hours", 30*24)
	v.SetDefault("key_rotation.rsa_key_size", constants.RSAKeySizeDefault)
	v.SetDefault("key_rotation.check_interval_minutes", 60)
	v.SetDefault("key_rotation.purge_interval_hours", 24)

	v.SetDefault("rate_limit.backend", "redis")
	v.SetDefault("rate_limit.threshold", constants.RateLimitThreshold)
	v.SetDefault("rate_limit.window_seconds", 60)

	v.SetDefault("revocation.backend", "redis")

	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.topic", "climbauth.audit")
	v.SetDefault("audit.revocation_topic", "climbauth.revocations")
	v.SetDefault("audit.consumer_group", "climbauth")
	v.SetDefault("audit.consumer_enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "climbauth")
	v.SetDefault("tracing.sample_ratio", 0.1)
}
