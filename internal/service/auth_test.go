package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tchatsouvenir/bookshop/internal/auth"
	"tchatsouvenir/bookshop/internal/model"
)

func newAuthService(t *testing.T) (*AuthService, *memUsers, *recordingMailer) {
	t.Helper()
	users := newMemUsers()
	mailer := &recordingMailer{}
	svc := NewAuthService(users, auth.NewIssuer("test-secret", time.Hour), mailer, zap.NewNop(), "https://shop.example.com/")
	svc.bcryptCost = bcrypt.MinCost
	return svc, users, mailer
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterRequest{Email: " Awa@Example.com ", Password: "secret1", FirstName: "Awa", LastName: "Diop"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "awa@example.com", res.User.Email)
	assert.Equal(t, model.RoleUser, res.User.Role)

	_, err = svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: "another1"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = svc.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, model.ErrValidation)

	login, err := svc.Login(ctx, "AWA@example.com", "secret1")
	require.NoError(t, err)

	info, err := svc.Verify(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, info.ID)

	_, err = svc.Login(ctx, "awa@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuthService_LoginInactive(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, _ := users.GetByID(ctx, res.User.ID)
	u.Active = false
	require.NoError(t, users.Update(ctx, u))

	_, err = svc.Login(ctx, "awa@example.com", "secret1")
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestAuthService_PasswordAndProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdatePassword(ctx, a.User.ID, "bad", "newsecret"), model.ErrValidation)
	require.NoError(t, svc.UpdatePassword(ctx, a.User.ID, "secret1", "newsecret"))
	_, err = svc.Login(ctx, "awa@example.com", "newsecret")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, a.User.ID, ProfileUpdate{Email: "bob@example.com"})
	assert.ErrorIs(t, err, model.ErrConflict)

	info, err := svc.UpdateProfile(ctx, a.User.ID, ProfileUpdate{Email: "awa.diop@example.com", FirstName: "Awa"})
	require.NoError(t, err)
	assert.Equal(t, "awa.diop@example.com", info.Email)
	assert.Equal(t, "Awa", info.FirstName)
}

func TestAuthService_ResetPassword(t *testing.T) {
	svc, users, mailer := newAuthService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "unknown@example.com"))
	assert.Empty(t, mailer.sent)

	require.NoError(t, svc.ForgotPassword(ctx, "awa@example.com"))
	require.Len(t, mailer.sent, 1)
	u, _ := users.GetByID(ctx, res.User.ID)
	require.NotNil(t, u.ResetToken)
	assert.True(t, strings.Contains(mailer.sent[0].Body, "https://shop.example.com/reset-password?token="+*u.ResetToken))

	token := *u.ResetToken
	assert.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "newsecret"), model.ErrValidation)

	now = now.Add(25 * time.Hour)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "newsecret"), model.ErrValidation)

	now = now.Add(-2 * time.Hour)
	require.NoError(t, svc.ResetPassword(ctx, token, "newsecret"))
	u, _ = users.GetByID(ctx, res.User.ID)
	assert.Nil(t, u.ResetToken)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "again123"), model.ErrValidation)

	_, err = svc.Login(ctx, "awa@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestAuthService_PasswordTooLong(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()
	long := strings.Repeat("é", 40) // 80 bytes

	_, err := svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: long})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	res, err := svc.Register(ctx, RegisterRequest{Email: "awa@example.com", Password: strings.Repeat("a", 72)})
	require.NoError(t, err)

	err = svc.UpdatePassword(ctx, res.User.ID, strings.Repeat("a", 72), long)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	require.NoError(t, svc.ForgotPassword(ctx, "awa@example.com"))
	u, _ := users.GetByID(ctx, res.User.ID)
	require.NotNil(t, u.ResetToken)
	err = svc.ResetPassword(ctx, *u.ResetToken, long)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	// the token survives a rejected password
	require.NoError(t, svc.ResetPassword(ctx, *u.ResetToken, "newsecret"))
}
