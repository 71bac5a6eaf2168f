package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "owlrd", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "wisefido-coherence", cfg.MQTT.ClientID)

	assert.Equal(t, "demo-user", cfg.Coherence.UserID)
	assert.Equal(t, "pulse-001", cfg.Coherence.DeviceID)
	assert.Equal(t, "pulse/+/ibi", cfg.Coherence.Topics.IBI)
	assert.Equal(t, "pulse/%s/elevation/query", cfg.Coherence.Topics.ElevationQuery)
	assert.Equal(t, "pulse/+/elevation/report", cfg.Coherence.Topics.ElevationReport)
	assert.Equal(t, 5, cfg.Coherence.CycleIntervalSeconds)
	assert.Equal(t, 2, cfg.Coherence.ElevationTimeoutSeconds)

	assert.Equal(t, "vital-fusion:user:", cfg.Coherence.Cache.KeyPrefix)
	assert.Equal(t, ":fused", cfg.Coherence.Cache.FusedSuffix)
	assert.Equal(t, ":coherence", cfg.Coherence.Cache.CoherenceSuffix)
	assert.Equal(t, ":breathing", cfg.Coherence.Cache.BreathingSuffix)
	assert.Equal(t, ":symbolic", cfg.Coherence.Cache.SymbolicSuffix)
	assert.Equal(t, ":environment", cfg.Coherence.Cache.EnvSuffix)
	assert.Equal(t, 300, cfg.Coherence.Cache.TTL)

	assert.Equal(t, "coherence:fused:stream", cfg.Coherence.Stream.Fused)
	assert.Equal(t, "", cfg.Coherence.Environment.Endpoint)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://test-broker:1883")
	os.Setenv("COHERENCE_USER_ID", "user-42")
	os.Setenv("COHERENCE_CYCLE_INTERVAL", "10")
	os.Setenv("COHERENCE_ELEVATION_TIMEOUT", "5")
	os.Setenv("ENVIRONMENT_ENDPOINT", "http://env-provider:8080/modifier")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	// 验证环境变量覆盖
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "tcp://test-broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "user-42", cfg.Coherence.UserID)
	assert.Equal(t, 10, cfg.Coherence.CycleIntervalSeconds)
	assert.Equal(t, 5, cfg.Coherence.ElevationTimeoutSeconds)
	assert.Equal(t, "http://env-provider:8080/modifier", cfg.Coherence.Environment.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("COHERENCE_CYCLE_INTERVAL", "not-a-number")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Coherence.CycleIntervalSeconds)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db-host",
		Port:     5433,
		User:     "owl",
		Password: "secret",
		Database: "coherence",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()

	assert.Equal(t, "host=db-host port=5433 user=owl password=secret dbname=coherence sslmode=require", dsn)
}
