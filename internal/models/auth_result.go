package models

import "github.com/google/uuid"

// TokenTypeBearer — единственный поддерживаемый тип токена в ответах.
const TokenTypeBearer = "Bearer"

// UserInfo — минимальные данные пользователя для ответа транспортному слою.
type UserInfo struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// AuthResult — результат register/login/refresh, отдаваемый транспортному слою.
//
// Описание:
//   - AccessToken — короткоживущий подписанный JWT;
//   - RefreshToken — непрозрачный секрет для обновления пары; хранится в БД;
//   - TokenType — метка типа ("Bearer");
//   - ExpiresIn — срок жизни access-токена в секундах;
//   - User — id/username/email аутентифицированного пользователя.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	User         UserInfo
}
