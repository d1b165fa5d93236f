package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Address())
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.True(t, cfg.Progress.StrictSessions)
	assert.Equal(t, SessionsAllow, cfg.Progress.ConcurrentSessions)
	assert.Equal(t, time.UTC, cfg.Progress.Location())
	assert.False(t, cfg.S3.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.Database.URI)
	assert.Equal(t, "legacy", cfg.JWT.Secret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadOptionalSectionsFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("S3_BUCKET_NAME", "gym-media")
	t.Setenv("S3_REGION", "eu-west-1")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("ADMIN_EMAIL", "root@gym.test")
	t.Setenv("ADMIN_PASSWORD", "rootpass")
	t.Setenv("KAFKA_BROKERS", "k1:9092")
	t.Setenv("KAFKA_PUBLISH_TIMEOUT", "500ms")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "gym:chat:", cfg.Redis.ChannelPrefix)

	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "gym-media", cfg.S3.BucketName)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, "key", cfg.S3.AccessKeyID)
	assert.Equal(t, "secret", cfg.S3.SecretAccessKey)
	assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)

	assert.Equal(t, "root@gym.test", cfg.Admin.Email)
	assert.Equal(t, "rootpass", cfg.Admin.Password)
	assert.Equal(t, "Administrator", cfg.Admin.Name)

	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 500*time.Millisecond, cfg.Kafka.PublishTimeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "7000"
jwt:
  secret: from-file
  expiration: 90m
progress:
  strict_sessions: false
  concurrent_sessions: reuse
  streak_timezone: Europe/Berlin
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
	assert.False(t, cfg.Progress.StrictSessions)
	assert.Equal(t, SessionsReuse, cfg.Progress.ConcurrentSessions)
	assert.Equal(t, "Europe/Berlin", cfg.Progress.Location().String())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		JWT:      JWTConfig{Secret: "x"},
		Database: DatabaseConfig{Driver: "memory"},
		Progress: ProgressConfig{ConcurrentSessions: SessionsAllow, StreakTimezone: "UTC"},
	}
	require.NoError(t, base.Validate())

	noSecret := base
	noSecret.JWT.Secret = ""
	assert.ErrorIs(t, noSecret.Validate(), ErrMissingJWTSecret)

	badPolicy := base
	badPolicy.Progress.ConcurrentSessions = "sometimes"
	assert.Error(t, badPolicy.Validate())

	badDriver := base
	badDriver.Database.Driver = "postgres"
	assert.Error(t, badDriver.Validate())
}
