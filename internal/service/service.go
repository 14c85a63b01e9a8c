// service — бизнес-логика auth-подсистемы task-трекера: регистрация и
// аутентификация пользователей, обновление пары токенов и logout.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном хранилище;
//   - выпуск/проверка access-токенов делегируются tokens.Codec, жизненный
//     цикл refresh-токенов — sessions.Manager; напрямую к записям сессий
//     сервис не обращается;
//   - ошибки типизированы и возвращаются явно, транспортный слой маппит их
//     в свои коды ответов.
package service

import (
	"errors"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/sessions"
	"github.com/arnavgautam0209/task-manager-api/internal/storage"
	"github.com/arnavgautam0209/task-manager-api/internal/tokens"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь
	// не найден. Оба случая намеренно неразличимы для вызывающего,
	// чтобы исключить перебор существующих логинов.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken — username уже занят другим пользователем.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrEmailTaken — email уже занят другим пользователем.
	ErrEmailTaken = errors.New("email already exists")

	// ErrInvalidRefreshToken — refresh-токен неизвестен или просрочен;
	// вызывающему нужно пройти login заново.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidUsername — username не проходит политику валидации.
	ErrInvalidUsername = errors.New("invalid username format")

	// ErrInvalidEmail — email имеет некорректный формат.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service — оркестратор сценариев register/login/refresh/logout.
type Service struct {
	users    storage.UserStorage
	codec    *tokens.Codec
	sessions *sessions.Manager

	// now подменяется в тестах для управления часами.
	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(users storage.UserStorage, codec *tokens.Codec, sessions *sessions.Manager) *Service {
	return &Service{
		users:    users,
		codec:    codec,
		sessions: sessions,
		now:      time.Now,
	}
}
