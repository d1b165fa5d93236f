package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	CookieName     string        `mapstructure:"cookie_name"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
}

// Address is the listen address derived from Port.
func (s ServerConfig) Address() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "mongo" or "memory"
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
	// Multi-document transactions need a replica set.
	Transactions bool `mapstructure:"transactions"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether workout media storage is configured.
func (s S3Config) Enabled() bool {
	return s.BucketName != ""
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// RedisConfig configures the cross-instance chat relay. An empty Addr disables it.
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// KafkaConfig configures session event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	ProgressTopic  string        `mapstructure:"progress_topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// Session policies for ProgressConfig.ConcurrentSessions.
const (
	SessionsAllow  = "allow"
	SessionsReuse  = "reuse"
	SessionsReject = "reject"
)

type ProgressConfig struct {
	StrictSessions     bool   `mapstructure:"strict_sessions"`
	ConcurrentSessions string `mapstructure:"concurrent_sessions"`
	StreakTimezone     string `mapstructure:"streak_timezone"`
}

// Location resolves StreakTimezone, falling back to UTC.
func (p ProgressConfig) Location() *time.Location {
	if p.StreakTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.StreakTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CleanupSchedule   string        `mapstructure:"cleanup_schedule"` // cron spec
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// AdminConfig seeds the bootstrap administrator. Empty email skips it.
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

var ErrMissingJWTSecret = errors.New("jwt.secret (JWT_SECRET) must be set")

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Progress.ConcurrentSessions {
	case SessionsAllow, SessionsReuse, SessionsReject:
	default:
		return fmt.Errorf("unknown progress.concurrent_sessions %q", c.Progress.ConcurrentSessions)
	}
	if _, err := time.LoadLocation(c.Progress.StreakTimezone); err != nil {
		return fmt.Errorf("progress.streak_timezone: %w", err)
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (config Config, err error) {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env names: server.port -> SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// AutomaticEnv only resolves keys viper already knows, so every field is bound.
	bindEnvs(v, reflect.TypeOf(Config{}), "")

	// Flat names used by existing deployments.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("database.uri", "DATABASE_URI", "DATABASE_URL")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	// Comma separated lists from the environment arrive as one element.
	config.Kafka.Brokers = splitList(config.Kafka.Brokers)
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.cookie_name", "token")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "gym_manager")
	v.SetDefault("database.transactions", true)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("redis.channel_prefix", "gym:chat:")
	v.SetDefault("kafka.progress_topic", "gym.progress")
	v.SetDefault("kafka.publish_timeout", "2s")
	v.SetDefault("progress.strict_sessions", true)
	v.SetDefault("progress.concurrent_sessions", SessionsAllow)
	v.SetDefault("progress.streak_timezone", "UTC")
	v.SetDefault("ratelimit.requests_per_second", 5)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("ratelimit.cleanup_schedule", "@every 5m")
	v.SetDefault("ratelimit.idle_ttl", "10m")
	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// bindEnvs registers every mapstructure key of t, so KAFKA_BROKERS or S3_BUCKET_NAME
// work without a config file or default.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			bindEnvs(v, field.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
