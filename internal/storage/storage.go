package storage

import (
	"context"
	"errors"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/models"

	"github.com/google/uuid"
)

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

var (
	// ErrNotFound — запись не найдена (пользователь/refresh-токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности при сохранении refresh-токена
	// (коллизия случайного значения).
	ErrAlreadyExists = errors.New("already exists")
	// ErrUsernameTaken — username уже занят другим пользователем.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken — email уже занят другим пользователем.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUnavailable — хранилище временно недоступно (таймаут/обрыв соединения).
	// Ошибка ретраябельна и никогда не подменяет ErrNotFound.
	ErrUnavailable = errors.New("storage unavailable")
)

// UserStorage — справочник пользователей (внешний коллаборатор auth-подсистемы).
type UserStorage interface {
	// SaveUser создаёт пользователя. Нарушение уникальности маппится
	// в ErrUsernameTaken/ErrEmailTaken по имени constraint.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByCredentialKey находит пользователя по username ИЛИ email.
	UserByCredentialKey(ctx context.Context, key string) (*models.User, error)
}

// RefreshTokenStorage — персистентность refresh-токенов.
// Единственный разрешённый вызывающий — sessions.Manager.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новую запись; при коллизии значения токена
	// возвращает ErrAlreadyExists.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByToken находит запись по значению токена.
	RefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// DeleteExpiredRefreshToken атомарно удаляет запись, если она просрочена
	// на момент now (expires_at <= now). Возвращает, была ли удалена строка.
	DeleteExpiredRefreshToken(ctx context.Context, token string, now time.Time) (bool, error)
	// DeleteRefreshTokensByUser удаляет все refresh-токены пользователя (logout).
	DeleteRefreshTokensByUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpiredTokens массово удаляет все просроченные записи (sweep).
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
