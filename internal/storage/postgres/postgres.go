// postgres — реализация storage.Storage поверх pgxpool.
//
// Маппинг ошибок:
//   - pgx.ErrNoRows                -> storage.ErrNotFound;
//   - unique violation             -> storage.ErrAlreadyExists /
//     ErrUsernameTaken / ErrEmailTaken (по имени constraint);
//   - таймауты и обрывы соединения -> storage.ErrUnavailable (ретраябельно);
//     просрочка/отсутствие записи никогда не подменяются этой ошибкой.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arnavgautam0209/task-manager-api/internal/storage"
	"github.com/arnavgautam0209/task-manager-api/internal/storage/postgres/migrations"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Storage struct {
	db *pgxpool.Pool
}

// New создаёт пул соединений к PostgreSQL и проверяет его ping-ом.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate применяет embedded-миграции через goose поверх stdlib-драйвера pgx.
func Migrate(ctx context.Context, dbURL string) error {
	const op = "storage.postgres.Migrate"

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// unavailable переводит транзиентные сбои БД в storage.ErrUnavailable.
// Возвращает nil, если ошибка не похожа на транзиентную.
func unavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return storage.ErrUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return storage.ErrUnavailable
	}

	return nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
