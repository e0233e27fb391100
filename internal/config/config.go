// config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Режимы доставки уведомлений
const (
	DeliveryModeAll           = "all"
	DeliveryModeEndUsers      = "users"
	DeliveryModeOperators     = "operators"
	DeliveryModeOperatorsRole = "operators_role"
)

// Источники потока сообщений
const (
	StreamSourceTelegram = "telegram"
	StreamSourceGateway  = "gateway"
)

// Config - структура конфигурации приложения
type Config struct {
	// Telegram
	BotToken       string
	ChannelID      int64
	TelegramAPIURL string
	PollTimeout    int

	// Поток сообщений
	StreamSource       string
	GatewayURL         string
	GatewayToken       string
	DeliveryMode       string
	OperatorRoleFilter string

	// FCM
	FCMProjectID       string
	FCMCredentialsFile string
	FCMAPIURL          string

	// База данных
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	DBMaxConns       int
	DBMaxIdle        int
	DBMigrationsPath string

	// Redis
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Часовой пояс площадки
	TZOffsetHours int

	// Logging
	LogLevel  string
	LogFile   string
	DebugMode bool

	// Performance
	RequestTimeout      time.Duration
	StatsReportInterval time.Duration
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig(envPath string) (*Config, error) {
	// В production окружении .env файла нет, переменные заданы платформой
	if !IsProduction() {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envPath, err)
		}
	}

	config := &Config{
		// Telegram
		BotToken:       getEnvString("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:      getEnvInt64("TELEGRAM_CHANNEL_ID", 0),
		TelegramAPIURL: getEnvString("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollTimeout:    getEnvInt("TELEGRAM_POLL_TIMEOUT", 30),

		// Поток
		StreamSource:       getEnvString("STREAM_SOURCE", StreamSourceTelegram),
		GatewayURL:         getEnvString("GATEWAY_WS_URL", ""),
		GatewayToken:       getEnvString("GATEWAY_AUTH_TOKEN", ""),
		DeliveryMode:       getEnvString("DELIVERY_MODE", DeliveryModeAll),
		OperatorRoleFilter: getEnvString("OPERATOR_ROLE_FILTER", ""),

		// FCM
		FCMProjectID:       getEnvString("FCM_PROJECT_ID", ""),
		FCMCredentialsFile: getEnvString("FCM_CREDENTIALS_FILE", "serviceAccountKey.json"),
		FCMAPIURL:          getEnvString("FCM_API_URL", "https://fcm.googleapis.com"),

		// База данных
		DBHost:           getEnvString("DB_HOST", "localhost"),
		DBPort:           getEnvInt("DB_PORT", 5432),
		DBUser:           getEnvString("DB_USER", "signalbridge"),
		DBPassword:       getEnvString("DB_PASSWORD", "password"),
		DBName:           getEnvString("DB_NAME", "signalbridge_db"),
		DBSSLMode:        getEnvString("DB_SSLMODE", "disable"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		DBMaxIdle:        getEnvInt("DB_MAX_IDLE", 5),
		DBMigrationsPath: getEnvString("DB_MIGRATIONS_PATH", "internal/infrastructure/persistence/postgres/migrations"),

		// Redis
		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Часовой пояс площадки (WIB = UTC+7)
		TZOffsetHours: getEnvInt("TZ_OFFSET_HOURS", 7),

		// Logging
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFile:   getEnvString("LOG_FILE", "logs/bridge.log"),
		DebugMode: getEnvBool("DEBUG_MODE", false),

		// Performance
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT", 15)) * time.Second,
		StatsReportInterval: time.Duration(getEnvInt("STATS_REPORT_MINUTES", 5)) * time.Minute,
	}

	return config, nil
}

// IsProduction определяет production окружение по переменной платформы
func IsProduction() bool {
	_, exists := os.LookupEnv("RENDER")
	return exists
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	switch c.StreamSource {
	case StreamSourceTelegram:
		if c.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required for the telegram stream source")
		}
		if c.ChannelID == 0 {
			return fmt.Errorf("TELEGRAM_CHANNEL_ID is required for the telegram stream source")
		}
	case StreamSourceGateway:
		if c.GatewayURL == "" {
			return fmt.Errorf("GATEWAY_WS_URL is required for the gateway stream source")
		}
	default:
		return fmt.Errorf("unknown stream source: %s", c.StreamSource)
	}

	if c.FCMProjectID == "" {
		return fmt.Errorf("FCM_PROJECT_ID is required")
	}
	if c.FCMCredentialsFile == "" {
		return fmt.Errorf("FCM_CREDENTIALS_FILE is required")
	}

	switch c.DeliveryMode {
	case DeliveryModeAll, DeliveryModeEndUsers, DeliveryModeOperators:
	case DeliveryModeOperatorsRole:
		if c.OperatorRoleFilter == "" {
			return fmt.Errorf("OPERATOR_ROLE_FILTER is required for delivery mode %s", DeliveryModeOperatorsRole)
		}
	default:
		return fmt.Errorf("unknown delivery mode: %s", c.DeliveryMode)
	}

	if c.TZOffsetHours < -12 || c.TZOffsetHours > 14 {
		return fmt.Errorf("TZ_OFFSET_HOURS must be within -12..14")
	}

	if c.PollTimeout < 1 {
		return fmt.Errorf("TELEGRAM_POLL_TIMEOUT must be at least 1 second")
	}

	return nil
}

// Вспомогательные функции для парсинга переменных окружения
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
