package config

import (
	"os"
	"strconv"

	"surveystream-data/pkg/database"
)

// Config surveystream-data (HTTP API) configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	Database database.DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	SurveyCTO SurveyCTOConfig
	MQTT      MQTTConfig
	Streams   StreamsConfig
}

// SurveyCTOConfig SurveyCTO server access (form-definition lookups)
type SurveyCTOConfig struct {
	BaseURL  string // e.g. "https://<servername>.surveycto.com"
	Username string
	Password string
}

// MQTTConfig status-pipeline broker settings
type MQTTConfig struct {
	Enabled  bool   // subscribe to status-pipeline events (default false)
	Broker   string // e.g. "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	Topic    string // status-pipeline topic (e.g. "surveystream/status")
}

// StreamsConfig Redis Streams event publishing
type StreamsConfig struct {
	Enabled          bool
	AssignmentStream string // stream for assignment-change events
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "surveystream")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.SurveyCTO.BaseURL = getEnv("SCTO_BASE_URL", "")
	cfg.SurveyCTO.Username = getEnv("SCTO_USERNAME", "")
	cfg.SurveyCTO.Password = getEnv("SCTO_PASSWORD", "")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "surveystream-data-status")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "surveystream/status")

	cfg.Streams.Enabled = getEnv("STREAMS_ENABLED", "false") == "true"
	cfg.Streams.AssignmentStream = getEnv("STREAMS_ASSIGNMENT_STREAM", "surveystream:assignments")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
