package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — запись активной сессии.
//
// Token — непрозрачная случайная строка и одновременно ключ поиска в хранилище.
// Запись валидна, пока ExpiresAt строго в будущем; просроченная запись удаляется
// при первом обращении (lazy) либо фоновой чисткой (sweep).
type RefreshToken struct {
	// Token — случайный секрет, предъявляемый клиентом.
	Token string
	// UserID — владелец сессии; у одного пользователя может быть
	// произвольное число одновременных сессий.
	UserID uuid.UUID
	// CreatedAt — момент выпуска (UTC).
	CreatedAt time.Time
	// ExpiresAt — абсолютный момент истечения (UTC).
	ExpiresAt time.Time
}
