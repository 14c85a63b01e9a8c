// tokens — кодек access-токенов: выпуск и проверка компактных подписанных
// JWT (HS256) без какого-либо состояния. Секрет и TTL фиксируются при
// создании Codec и не меняются в рантайме.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/config"
	"github.com/arnavgautam0209/task-manager-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed — строка токена не разбирается как JWT.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature — подпись не сходится с секретом
	// (в том числе чужой алгоритм подписи).
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired — expires_at <= now на момент проверки.
	ErrExpired = errors.New("token expired")
)

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Codec выпускает и проверяет access-токены. Экземпляр безопасен для
// конкурентного использования.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// New создаёт кодек из конфигурации auth.
func New(cfg config.AuthConfig) *Codec {
	return &Codec{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AccessTokenTTL,
		issuer: cfg.Issuer,
	}
}

// Issue выпускает подписанный access-токен для пользователя.
// Субъект токена — username; exp = now + TTL.
func (c *Codec) Issue(user *models.User, now time.Time) (string, error) {
	const op = "tokens.codec.Issue"

	claims := accessClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify проверяет подпись, формат и срок действия токена относительно now
// и возвращает субъект (username).
//
// Проверка строгая, без leeway: токен с exp <= now считается просроченным.
func (c *Codec) Verify(tokenStr string, now time.Time) (string, error) {
	const op = "tokens.codec.Verify"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("%s: %w", op, ErrExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", fmt.Errorf("%s: %w", op, ErrInvalidSignature)
		default:
			return "", fmt.Errorf("%s: %w", op, ErrMalformed)
		}
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	return claims.Subject, nil
}

// ExpirationSeconds возвращает срок жизни access-токена в секундах —
// значение expires_in в ответах транспортному слою.
func (c *Codec) ExpirationSeconds() int64 {
	return int64(c.ttl / time.Second)
}
