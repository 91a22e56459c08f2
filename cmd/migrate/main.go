package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/cryptic-api/internal/config"
)

// Утилита управления схемой БД.
//
//	go run ./cmd/migrate -up
//	go run ./cmd/migrate -down 1
//	go run ./cmd/migrate -force 2   # снимает флаг dirty после неудачной миграции
//	go run ./cmd/migrate -version
func main() {
	up := flag.Bool("up", false, "применить все новые миграции")
	down := flag.Int("down", 0, "откатить N последних миграций")
	force := flag.Int("force", -1, "принудительно установить версию схемы (очищает dirty)")
	version := flag.Bool("version", false, "показать текущую версию схемы")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[Migrate] Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("[Migrate] Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("[Migrate] Database is unreachable: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("[Migrate] Failed to create postgres driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.Database.MigrationsURL, "postgres", driver)
	if err != nil {
		log.Fatalf("[Migrate] Failed to create migrate instance: %v", err)
	}

	switch {
	case *force >= 0:
		fmt.Printf("Forcing migration version to %d...\n", *force)
		if err := m.Force(*force); err != nil {
			log.Fatalf("[Migrate] Failed to force version: %v", err)
		}
	case *down > 0:
		fmt.Printf("Rolling back %d migration(s)...\n", *down)
		if err := m.Steps(-*down); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("[Migrate] Failed to roll back: %v", err)
		}
	case *up:
		if err := m.Up(); err != nil {
			if !errors.Is(err, migrate.ErrNoChange) {
				log.Fatalf("[Migrate] Failed to apply migrations: %v", err)
			}
			fmt.Println("No new migrations.")
		}
	case !*version:
		flag.Usage()
		os.Exit(2)
	}

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("Schema version: none")
	case err != nil:
		log.Fatalf("[Migrate] Failed to read version: %v", err)
	default:
		fmt.Printf("Schema version: %d (dirty: %t)\n", v, dirty)
	}
}
