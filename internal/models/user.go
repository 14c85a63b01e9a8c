package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя task-трекера.
// Субъектом auth-подсистемы является Username: он попадает в sub access-токена.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
