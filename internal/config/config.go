package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config 相干性融合服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 相干性融合服务特定配置
	Coherence struct {
		// 监测对象（单设备单用户管线）
		UserID   string // 用户 ID
		DeviceID string // 传感器设备 ID

		Topics struct {
			IBI             string // 心跳间期数据主题，如 "pulse/+/ibi"
			ElevationQuery  string // 心率抬升查询主题前缀，如 "pulse/%s/elevation/query"
			ElevationReport string // 心率抬升响应主题，如 "pulse/+/elevation/report"
		}

		CycleIntervalSeconds    int // 分析周期间隔（秒），默认 5
		ElevationTimeoutSeconds int // 心率抬升查询超时（秒），默认 2

		// Redis 缓存配置
		Cache struct {
			KeyPrefix       string // 缓存键前缀，如 "vital-fusion:user:"
			FusedSuffix     string // 融合状态键后缀，如 ":fused"
			CoherenceSuffix string // 相干性结果键后缀，如 ":coherence"
			BreathingSuffix string // 呼吸结果键后缀，如 ":breathing"
			SymbolicSuffix  string // 符号基准值键后缀，如 ":symbolic"
			EnvSuffix       string // 环境修正值键后缀，如 ":environment"
			TTL             int    // 快照 TTL（秒），默认 300
		}

		// Redis Streams 配置
		Stream struct {
			Fused string // 融合状态输出流，如 "coherence:fused:stream"
		}

		// 环境修正值提供方（HTTP）
		Environment struct {
			Endpoint       string // 查询端点，空串表示禁用
			TimeoutSeconds int    // HTTP 超时（秒），默认 3
		}
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-coherence")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 相干性融合服务配置
	cfg.Coherence.UserID = getEnv("COHERENCE_USER_ID", "demo-user")
	cfg.Coherence.DeviceID = getEnv("COHERENCE_DEVICE_ID", "pulse-001")

	cfg.Coherence.Topics.IBI = getEnv("PULSE_TOPIC_IBI", "pulse/+/ibi")
	cfg.Coherence.Topics.ElevationQuery = getEnv("PULSE_TOPIC_ELEVATION_QUERY", "pulse/%s/elevation/query")
	cfg.Coherence.Topics.ElevationReport = getEnv("PULSE_TOPIC_ELEVATION_REPORT", "pulse/+/elevation/report")

	cfg.Coherence.CycleIntervalSeconds = getEnvInt("COHERENCE_CYCLE_INTERVAL", 5)
	cfg.Coherence.ElevationTimeoutSeconds = getEnvInt("COHERENCE_ELEVATION_TIMEOUT", 2)

	cfg.Coherence.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "vital-fusion:user:")
	cfg.Coherence.Cache.FusedSuffix = ":fused"
	cfg.Coherence.Cache.CoherenceSuffix = ":coherence"
	cfg.Coherence.Cache.BreathingSuffix = ":breathing"
	cfg.Coherence.Cache.SymbolicSuffix = ":symbolic"
	cfg.Coherence.Cache.EnvSuffix = ":environment"
	cfg.Coherence.Cache.TTL = getEnvInt("CACHE_TTL", 300)

	cfg.Coherence.Stream.Fused = getEnv("STREAM_FUSED", "coherence:fused:stream")

	cfg.Coherence.Environment.Endpoint = getEnv("ENVIRONMENT_ENDPOINT", "")
	cfg.Coherence.Environment.TimeoutSeconds = getEnvInt("ENVIRONMENT_TIMEOUT", 3)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
