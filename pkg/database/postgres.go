package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig содержит параметры пула соединений
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(dsn string, pool PoolConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 25
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 10
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = time.Hour
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return db, nil
}

// NewMigrator создает экземпляр migrate поверх соединения gorm.
// migrationsURL: источник миграций, например "file://migrations".
func NewMigrator(db *gorm.DB, migrationsURL string) (*migrateV4.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить *sql.DB из *gorm.DB: %w", err)
	}

	// Убедимся, что подключение к БД активно
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("не удалось проверить подключение к БД перед миграцией: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}

	m, err := migrateV4.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}
	return m, nil
}

// MigrateDB применяет SQL-миграции "вверх"
func MigrateDB(db *gorm.DB, migrationsURL string) error {
	log.Printf("Запуск применения миграций базы данных из %s...", migrationsURL)

	m, err := NewMigrator(db, migrationsURL)
	if err != nil {
		return err
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Println("Изменений в миграциях не найдено, база данных уже актуальна.")
	case err != nil:
		log.Printf("Ошибка применения миграций: %v", err)
		return fmt.Errorf("ошибка применения миграций 'up': %w", err)
	default:
		log.Println("Миграции успешно применены.")
	}

	return nil
}
