package auth

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

const (
	tokenIssuer   = "cryptic-api"
	tokenAudience = "cryptic-solver"
)

// Ошибки разбора токена
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token validation failed")
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin проверяет роль из токена
func (c *JWTCustomClaims) IsAdmin() bool {
	return c.Role == entity.RoleAdmin
}

// JWTService выпускает и проверяет access-токены (HS256)
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(secret string, expirationHrs int) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 bytes long")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    time.Duration(expirationHrs) * time.Hour,
		now:    time.Now,
	}, nil
}

// TTL возвращает время жизни выпускаемых токенов
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken создает новый JWT токен для пользователя
func (s *JWTService) GenerateToken(user *entity.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", errors.New("cannot generate token for empty user")
	}

	now := s.now()
	claims := &JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для пользователя ID=%d: %v", user.ID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет подпись, срок действия и издателя токена
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[JWT] Токен истек для пользователя ID=%d", claims.UserID)
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}

	if !token.Valid || !claims.VerifyIssuer(tokenIssuer, true) || !claims.VerifyAudience(tokenAudience, true) {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
