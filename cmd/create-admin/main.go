package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/yourusername/cryptic-api/internal/config"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
	pgRepo "github.com/yourusername/cryptic-api/internal/repository/postgres"
	"github.com/yourusername/cryptic-api/internal/service"
	"github.com/yourusername/cryptic-api/pkg/auth"
	"github.com/yourusername/cryptic-api/pkg/database"
)

// Создает учетную запись администратора. Недостающие значения
// запрашиваются интерактивно из stdin.
func main() {
	email := flag.String("email", "", "email администратора")
	password := flag.String("password", "", "пароль (не менее 6 символов)")
	name := flag.String("name", "", "отображаемое имя")
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(reader, "Email: ")
	}
	if *password == "" {
		*password = prompt(reader, "Password: ")
	}
	if *name == "" {
		*name = prompt(reader, "Name (optional): ")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[CreateAdmin] Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), database.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1}, false)
	if err != nil {
		log.Fatalf("[CreateAdmin] Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Fatalf("[CreateAdmin] Failed to initialize JWTService: %v", err)
	}
	authService := service.NewAuthService(pgRepo.NewUserRepo(db), jwtService)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := authService.CreateAdmin(ctx, *email, *password, *name)
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		log.Fatalf("[CreateAdmin] Пользователь с email %s уже существует", *email)
	case errors.Is(err, apperrors.ErrValidation):
		log.Fatalf("[CreateAdmin] Некорректные данные: %v", err)
	case err != nil:
		log.Fatalf("[CreateAdmin] Failed to create admin: %v", err)
	}

	fmt.Printf("Admin created: id=%d email=%s\n", user.ID, user.Email)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
