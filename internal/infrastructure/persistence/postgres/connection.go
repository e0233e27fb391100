package postgres

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"telegram-fcm-signal-bridge/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	Host           string `mapstructure:"DB_HOST"`
	Port           int    `mapstructure:"DB_PORT"`
	User           string `mapstructure:"DB_USER"`
	Password       string `mapstructure:"DB_PASSWORD"`
	Database       string `mapstructure:"DB_NAME"`
	SSLMode        string `mapstructure:"DB_SSLMODE"`
	MaxConns       int    `mapstructure:"DB_MAX_CONNS"`
	MaxIdle        int    `mapstructure:"DB_MAX_IDLE"`
	MigrationsPath string `mapstructure:"DB_MIGRATIONS_PATH"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           5432,
		User:           "bridge",
		Password:       "password",
		Database:       "signal_bridge",
		SSLMode:        "disable",
		MaxConns:       25,
		MaxIdle:        10,
		MigrationsPath: "internal/infrastructure/persistence/postgres/migrations",
	}
}

func Connect(cfg *Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("✅ Подключение к PostgreSQL установлено")

	// Миграции применяются на старте; сбой не роняет процесс
	if cfg.MigrationsPath != "" {
		if err := RunMigrations(db.DB, cfg.MigrationsPath); err != nil {
			logger.Warn("⚠️ Не удалось применить миграции: %v", err)
		}
	}

	return db, nil
}

func RunMigrations(db *sql.DB, migrationsPath string) error {
	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	logger.Info("📂 Запуск миграций из: %s", absPath)

	sqlxDB := sqlx.NewDb(db, "postgres")
	migrator := NewMigrator(sqlxDB)

	if err := migrator.Init(); err != nil {
		return fmt.Errorf("failed to init migrations table: %w", err)
	}

	if err := migrator.LoadMigrations(absPath); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrator.Migrate(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := migrator.Validate(); err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}

	logger.Info("✅ Миграции базы данных применены")
	return nil
}
