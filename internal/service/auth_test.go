package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arnavgautam0209/task-manager-api/internal/config"
	"github.com/arnavgautam0209/task-manager-api/internal/models"
	"github.com/arnavgautam0209/task-manager-api/internal/sessions"
	"github.com/arnavgautam0209/task-manager-api/internal/storage"
	"github.com/arnavgautam0209/task-manager-api/internal/tokens"
	"github.com/arnavgautam0209/task-manager-api/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1_700_000_000, 0).UTC()

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "task-manager-auth",
	}
}

// newService собирает Service поверх mock-хранилища с фиксированными часами.
// Codec и Manager — настоящие: мокается только граница с БД.
func newService(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	svc := New(st, tokens.New(testCfg()), sessions.New(st, testCfg()))
	svc.now = func() time.Time { return now }

	return svc, st, ctrl
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()

	hash, err := hashPassword(password)
	require.NoError(t, err)

	return &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func requireAuthResult(t *testing.T, svc *Service, res *models.AuthResult, user *models.User) {
	t.Helper()

	require.Equal(t, models.TokenTypeBearer, res.TokenType)
	require.Equal(t, svc.codec.ExpirationSeconds(), res.ExpiresIn)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, user.ID, res.User.ID)
	require.Equal(t, user.Username, res.User.Username)
	require.Equal(t, user.Email, res.User.Email)

	subject, err := svc.codec.Verify(res.AccessToken, now)
	require.NoError(t, err)
	require.Equal(t, user.Username, subject)
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByUsername(ctx, "alice").Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByEmail(ctx, "alice@example.com").Return(nil, storage.ErrNotFound)

	var saved *models.User
	st.EXPECT().SaveUser(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		})
	st.EXPECT().SaveRefreshToken(ctx, gomock.Any()).Return(nil)

	res, err := svc.Register(ctx, "alice", "Alice@Example.COM", "Str0ng#pass")
	require.NoError(t, err)

	require.NotNil(t, saved)
	require.Equal(t, "alice", saved.Username)
	// email нормализуется к нижнему регистру перед записью.
	require.Equal(t, "alice@example.com", saved.Email)
	require.Equal(t, now, saved.CreatedAt)
	require.True(t, checkPassword(saved.PasswordHash, "Str0ng#pass"))

	requireAuthResult(t, svc, res, saved)
}

func TestRegister_InvalidUsername(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newService(t)
	defer ctrl.Finish()

	for _, username := range []string{"", "ab", "has space", "кириллица", "way_too_long_username_over_32_chars_x"} {
		_, err := svc.Register(context.Background(), username, "a@b.com", "Str0ng#pass")
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidUsername)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newService(t)
	defer ctrl.Finish()

	for _, email := range []string{"", "not-an-email", "a@", "@b.com"} {
		_, err := svc.Register(context.Background(), "alice", email, "Str0ng#pass")
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidEmail)
	}
}

func TestRegister_PasswordPolicy(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newService(t)
	defer ctrl.Finish()

	_, err := svc.Register(context.Background(), "alice", "a@b.com", "")
	require.ErrorIs(t, err, ErrEmptyPassword)

	for _, pw := range []string{"short1#", "alllowercase1#", "ALLUPPERCASE1#", "NoDigits#here", "NoSpecial1here"} {
		_, err := svc.Register(context.Background(), "alice", "a@b.com", pw)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrWeakPassword)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByUsername(ctx, "alice").Return(testUser(t, "Str0ng#pass"), nil)

	_, err := svc.Register(ctx, "alice", "a@b.com", "Str0ng#pass")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_EmailTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByUsername(ctx, "alice").Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByEmail(ctx, "a@b.com").Return(testUser(t, "Str0ng#pass"), nil)

	_, err := svc.Register(ctx, "alice", "a@b.com", "Str0ng#pass")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

// Гонка двух регистраций: пре-проверки прошли, а запись упёрлась в constraint.
func TestRegister_SaveRace_MapsConstraint(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByUsername(ctx, "alice").Return(nil, storage.ErrNotFound)
	st.EXPECT().UserByEmail(ctx, "a@b.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(ctx, gomock.Any()).
		Return(fmt.Errorf("storage: %w", storage.ErrUsernameTaken))

	_, err := svc.Register(ctx, "alice", "a@b.com", "Str0ng#pass")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_StorageUnavailable_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByUsername(ctx, "alice").
		Return(nil, fmt.Errorf("storage: %w", storage.ErrUnavailable))

	_, err := svc.Register(ctx, "alice", "a@b.com", "Str0ng#pass")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestLogin_OK_ByUsername(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Str0ng#pass")

	st.EXPECT().UserByCredentialKey(ctx, "alice").Return(user, nil)
	st.EXPECT().SaveRefreshToken(ctx, gomock.Any()).Return(nil)

	res, err := svc.Login(ctx, "alice", "Str0ng#pass")
	require.NoError(t, err)
	requireAuthResult(t, svc, res, user)
}

// email в качестве логина приводится к нижнему регистру перед поиском.
func TestLogin_OK_ByEmail_Lowercased(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Str0ng#pass")

	st.EXPECT().UserByCredentialKey(ctx, "alice@example.com").Return(user, nil)
	st.EXPECT().SaveRefreshToken(ctx, gomock.Any()).Return(nil)

	res, err := svc.Login(ctx, "Alice@Example.COM", "Str0ng#pass")
	require.NoError(t, err)
	requireAuthResult(t, svc, res, user)
}

func TestLogin_EmptyInput(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newService(t)
	defer ctrl.Finish()

	for _, tc := range []struct{ key, pw string }{
		{"", "Str0ng#pass"},
		{"alice", ""},
		{"  ", "Str0ng#pass"},
	} {
		_, err := svc.Login(context.Background(), tc.key, tc.pw)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

// Неизвестный логин и неверный пароль неразличимы снаружи.
func TestLogin_UnknownUserAndWrongPassword_SameError(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByCredentialKey(ctx, "bob").Return(nil, storage.ErrNotFound)
	_, errUnknown := svc.Login(ctx, "bob", "Str0ng#pass")
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)

	st.EXPECT().UserByCredentialKey(ctx, "alice").Return(testUser(t, "Str0ng#pass"), nil)
	_, errWrongPw := svc.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
}

func TestLogin_StorageUnavailable_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().UserByCredentialKey(ctx, "alice").
		Return(nil, fmt.Errorf("storage: %w", storage.ErrUnavailable))

	_, err := svc.Login(ctx, "alice", "Str0ng#pass")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_OK_SameRefreshToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := testUser(t, "Str0ng#pass")

	session := &models.RefreshToken{
		Token:     "refresh-1",
		UserID:    user.ID,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	st.EXPECT().RefreshTokenByToken(ctx, "refresh-1").Return(session, nil)
	st.EXPECT().UserByID(ctx, user.ID).Return(user, nil)

	res, err := svc.Refresh(ctx, "refresh-1")
	require.NoError(t, err)

	// Ротации нет: refresh-токен возвращается тем же.
	require.Equal(t, "refresh-1", res.RefreshToken)
	requireAuthResult(t, svc, res, user)
}

func TestRefresh_Empty(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newService(t)
	defer ctrl.Finish()

	_, err := svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_UnknownToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().RefreshTokenByToken(ctx, "missing").
		Return(nil, fmt.Errorf("storage: %w", storage.ErrNotFound))

	_, err := svc.Refresh(ctx, "missing")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	session := &models.RefreshToken{
		Token:     "stale",
		UserID:    uuid.New(),
		ExpiresAt: now.Add(-time.Minute),
	}

	st.EXPECT().RefreshTokenByToken(ctx, "stale").Return(session, nil)
	st.EXPECT().DeleteExpiredRefreshToken(ctx, "stale", now).Return(true, nil)

	_, err := svc.Refresh(ctx, "stale")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

// Владелец сессии удалён между выпуском и обновлением токена.
func TestRefresh_OwnerDeleted(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	session := &models.RefreshToken{
		Token:     "orphan",
		UserID:    userID,
		ExpiresAt: now.Add(time.Hour),
	}

	st.EXPECT().RefreshTokenByToken(ctx, "orphan").Return(session, nil)
	st.EXPECT().UserByID(ctx, userID).
		Return(nil, fmt.Errorf("storage: %w", storage.ErrNotFound))

	_, err := svc.Refresh(ctx, "orphan")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_StorageUnavailable_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()

	st.EXPECT().RefreshTokenByToken(ctx, "refresh-1").
		Return(nil, fmt.Errorf("storage: %w", storage.ErrUnavailable))

	_, err := svc.Refresh(ctx, "refresh-1")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	st.EXPECT().DeleteRefreshTokensByUser(ctx, userID).Return(nil)

	require.NoError(t, svc.Logout(ctx, userID))
}
