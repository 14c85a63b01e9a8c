package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/models"
	"github.com/arnavgautam0209/task-manager-api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveRefreshToken сохраняет новую запись сессии.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
        INSERT INTO refresh_tokens(token, user_id, created_at, expires_at)
        VALUES ($1, $2, $3, $4)
    `

	_, err := s.db.Exec(ctx, query,
		token.Token,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		if uerr := unavailable(err); uerr != nil {
			return fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshTokenByToken находит запись сессии по значению токена.
func (s *Storage) RefreshTokenByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByToken"

	query := `
        SELECT token, user_id, created_at, expires_at
        FROM refresh_tokens
        WHERE token = $1
    `

	var rt models.RefreshToken
	err := s.db.QueryRow(ctx, query, token).Scan(
		&rt.Token,
		&rt.UserID,
		&rt.CreatedAt,
		&rt.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		if uerr := unavailable(err); uerr != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rt, nil
}

// DeleteExpiredRefreshToken удаляет запись одним условным DELETE, только если
// она просрочена на момент now. Атомарность на уровне строки закрывает гонку
// двух конкурентных проверок одного и того же просроченного токена: удалит
// ровно один вызов, оба увидят запись отсутствующей.
func (s *Storage) DeleteExpiredRefreshToken(ctx context.Context, token string, now time.Time) (bool, error) {
	const op = "storage.postgres.DeleteExpiredRefreshToken"

	query := `
        DELETE FROM refresh_tokens
        WHERE token = $1 AND expires_at <= $2
    `

	cmdTag, err := s.db.Exec(ctx, query, token, now)
	if err != nil {
		if uerr := unavailable(err); uerr != nil {
			return false, fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// DeleteRefreshTokensByUser удаляет все refresh-токены пользователя.
func (s *Storage) DeleteRefreshTokensByUser(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.DeleteRefreshTokensByUser"

	query := `
        DELETE FROM refresh_tokens
        WHERE user_id = $1
    `

	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		if uerr := unavailable(err); uerr != nil {
			return fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredTokens массово удаляет все просроченные записи.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
        DELETE FROM refresh_tokens
        WHERE expires_at <= $1
    `

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		if uerr := unavailable(err); uerr != nil {
			return fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
