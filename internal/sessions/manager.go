// sessions — управление жизненным циклом refresh-токенов: выпуск, проверка
// с ленивым удалением просроченных записей, массовый отзыв и фоновая чистка.
//
// Manager — единственный компонент, которому разрешено писать и удалять
// записи refresh-токенов; оркестратор и транспорт работают только через него.
//
// Жизненный цикл записи: Active (создана, now < expires_at) -> Expired
// (запись ещё может физически существовать) -> Deleted. Переход
// Active -> Deleted возможен напрямую через RevokeAllForOwner.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/cache"
	"github.com/arnavgautam0209/task-manager-api/internal/config"
	"github.com/arnavgautam0209/task-manager-api/internal/models"
	"github.com/arnavgautam0209/task-manager-api/internal/pkg/log"
	"github.com/arnavgautam0209/task-manager-api/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound — refresh-токен отсутствует в хранилище.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired — срок действия refresh-токена истёк;
	// запись удалена (или будет удалена фоновой чисткой).
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenCollision — повторная коллизия случайного значения токена.
	// При 32 байтах энтропии на практике недостижимо.
	ErrTokenCollision = errors.New("refresh token collision")
)

// Manager управляет записями refresh-токенов поверх storage.RefreshTokenStorage.
// Экземпляр безопасен для конкурентного использования.
type Manager struct {
	store  storage.RefreshTokenStorage
	rcache cache.RefreshCache // может быть nil, если кэш не сконфигурирован
	ttl    time.Duration
}

// New создаёт менеджер сессий.
func New(store storage.RefreshTokenStorage, cfg config.AuthConfig) *Manager {
	return &Manager{
		store: store,
		ttl:   cfg.RefreshTokenTTL,
	}
}

// SetCache устанавливает кэш refresh-токенов (опционально).
func (m *Manager) SetCache(c cache.RefreshCache) {
	m.rcache = c
}

// CreateSession выпускает новый refresh-токен для пользователя:
// 32 случайных байта в base64url, expires_at = now + TTL.
// Коллизия значения в хранилище — retry-once-then-fail.
func (m *Manager) CreateSession(ctx context.Context, userID uuid.UUID, now time.Time) (*models.RefreshToken, error) {
	const (
		op          = "sessions.manager.CreateSession"
		maxAttempts = 2
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		token := &models.RefreshToken{
			Token:     base64.RawURLEncoding.EncodeToString(b),
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}

		if err := m.store.SaveRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				lg.Warn("refresh_token_collision",
					slog.String("op", op),
					slog.Int("attempt", attempt+1),
				)
				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		m.cacheSet(ctx, token, now)

		return token, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// VerifyAndFetch проверяет refresh-токен на момент now.
//
// Поведение:
//   - запись отсутствует -> ErrSessionNotFound;
//   - запись просрочена -> условное удаление из хранилища (lazy cleanup)
//     и ErrSessionExpired; неудача удаления логируется, но не блокирует
//     результат — запись дочистит фоновый sweep;
//   - иначе запись возвращается без изменений.
func (m *Manager) VerifyAndFetch(ctx context.Context, tokenStr string, now time.Time) (*models.RefreshToken, error) {
	const op = "sessions.manager.VerifyAndFetch"

	lg := log.From(ctx)

	token := m.cacheGet(ctx, tokenStr)

	if token == nil {
		var err error
		token, err = m.store.RefreshTokenByToken(ctx, tokenStr)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				lg.Warn("refresh_lookup_not_found", slog.String("op", op))
				return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !token.ExpiresAt.After(now) {
		// Удаляет ровно один из конкурентных вызовов; остальные увидят
		// нулевое число затронутых строк — результат для всех одинаков.
		if _, err := m.store.DeleteExpiredRefreshToken(ctx, tokenStr, now); err != nil {
			lg.Warn("refresh_expired_delete_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}

		m.cacheDelete(ctx, tokenStr, token.UserID)

		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	return token, nil
}

// RevokeAllForOwner удаляет все refresh-токены пользователя (logout).
func (m *Manager) RevokeAllForOwner(ctx context.Context, userID uuid.UUID) error {
	const op = "sessions.manager.RevokeAllForOwner"

	// Кэш инвалидируется до БД: если удаление в БД сорвётся, записи
	// останутся источником истины и кэш просто наполнится заново.
	if m.rcache != nil {
		if err := m.rcache.DeleteByUser(ctx, userID); err != nil {
			log.From(ctx).Warn("cache_delete_by_user_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	if err := m.store.DeleteRefreshTokensByUser(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SweepExpired массово удаляет просроченные записи. Идемпотентна:
// повторный или конкурентный запуск лишь не находит новых строк.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) error {
	const op = "sessions.manager.SweepExpired"

	if err := m.store.DeleteExpiredTokens(ctx, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// StartSweeper запускает фоновую горутину, периодически вызывающую
// SweepExpired до отмены ctx. Не держит никаких блокировок и не влияет
// на обслуживание запросов.
func (m *Manager) StartSweeper(ctx context.Context, period time.Duration) {
	if period <= 0 {
		return
	}

	lg := log.From(ctx)

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := m.SweepExpired(ctx, time.Now().UTC()); err != nil {
					lg.Error("refresh_sweep_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}

// cacheGet возвращает запись из кэша или nil (промах/ошибка/кэш выключен).
func (m *Manager) cacheGet(ctx context.Context, tokenStr string) *models.RefreshToken {
	if m.rcache == nil {
		return nil
	}

	e, ok, err := m.rcache.Get(ctx, tokenStr)
	if err != nil {
		log.From(ctx).Warn("cache_get_failed", slog.String("err", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}

	return &models.RefreshToken{
		Token:     tokenStr,
		UserID:    e.UserID,
		ExpiresAt: e.ExpiresAt,
	}
}

func (m *Manager) cacheSet(ctx context.Context, token *models.RefreshToken, now time.Time) {
	if m.rcache == nil {
		return
	}

	e := &cache.Entry{UserID: token.UserID, ExpiresAt: token.ExpiresAt}
	if err := m.rcache.Set(ctx, token.Token, e, token.ExpiresAt.Sub(now)); err != nil {
		log.From(ctx).Warn("cache_set_failed", slog.String("err", err.Error()))
	}
}

func (m *Manager) cacheDelete(ctx context.Context, tokenStr string, userID uuid.UUID) {
	if m.rcache == nil {
		return
	}

	if err := m.rcache.Delete(ctx, tokenStr, userID); err != nil {
		log.From(ctx).Warn("cache_delete_failed", slog.String("err", err.Error()))
	}
}
