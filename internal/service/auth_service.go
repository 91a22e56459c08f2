package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
	"github.com/yourusername/cryptic-api/pkg/auth"
)

// MinPasswordLength: минимальная длина пароля
const MinPasswordLength = 6

// LoginResult содержит выданный токен доступа
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        *entity.User
}

// AuthService отвечает за регистрацию, вход и профиль
type AuthService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

// Register создает обычного пользователя
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*entity.User, error) {
	return s.createUser(ctx, email, password, name, entity.RoleUser)
}

// CreateAdmin создает администратора. Используется утилитой create-admin.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*entity.User, error) {
	return s.createUser(ctx, email, password, name, entity.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, email, password, name, role string) (*entity.User, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, MinPasswordLength)
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: user with email %s already exists", apperrors.ErrConflict, email)
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: password, // хешируется в BeforeSave
		Name:         strings.TrimSpace(name),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь ID=%d role=%s", user.ID, user.Role)
	return user, nil
}

// Login проверяет учетные данные и выдает токен доступа
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Неверный пароль для пользователя ID=%d", user.ID)
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresIn:   s.jwtService.TTL(),
		User:        user,
	}, nil
}

// Me возвращает профиль текущего пользователя
func (s *AuthService) Me(ctx context.Context, userID uint) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return user, nil
}

// normalizeEmail приводит email к нижнему регистру и убирает пробелы
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
