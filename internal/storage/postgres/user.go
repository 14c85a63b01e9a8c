package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arnavgautam0209/task-manager-api/internal/models"
	"github.com/arnavgautam0209/task-manager-api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = "id, username, email, password_hash, created_at, updated_at"

// SaveUser создаёт нового пользователя.
// Нарушение уникальности переводится в ErrUsernameTaken/ErrEmailTaken
// по имени constraint — это страховка на случай гонки с пред-проверками сервиса.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
			}

			return fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}

		if uerr := unavailable(err); uerr != nil {
			return fmt.Errorf("%s: %w: %w", op, uerr, err)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return s.scanUser(ctx, op, query, id)
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByUsername"

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	return s.scanUser(ctx, op, query, username)
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return s.scanUser(ctx, op, query, email)
}

// UserByCredentialKey находит пользователя по username или email —
// клиент вводит любой из них в форме логина.
func (s *Storage) UserByCredentialKey(ctx context.Context, key string) (*models.User, error) {
	const op = "storage.postgres.UserByCredentialKey"

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`

	return s.scanUser(ctx, op, query, key)
}

func (s *Storage) scanUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
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

	return &user, nil
}
