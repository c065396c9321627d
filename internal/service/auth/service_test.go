package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	memstore "github.com/zhouzirui/aria/backend/internal/service/chat"
	pkgauth "github.com/zhouzirui/aria/backend/pkg/auth"
)

func newService(t *testing.T) (*Service, *pkgauth.Signer) {
	t.Helper()
	pkgauth.BCryptCost = bcrypt.MinCost
	signer, err := pkgauth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(memstore.NewService(), signer), signer
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)

	cases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing email", RegisterInput{Username: "sam", Password: "secret1"}, "All fields are required"},
		{"blank password", RegisterInput{Username: "sam", Email: "a@b.c", Password: "   "}, "All fields are required"},
		{"short username", RegisterInput{Username: "sa", Email: "a@b.c", Password: "secret1"}, "Username must be at least 3 characters"},
		{"short password", RegisterInput{Username: "sam", Email: "a@b.c", Password: "12345"}, "Password must be at least 6 characters"},
		{"bad email", RegisterInput{Username: "sam", Email: "sam.example.com", Password: "secret1"}, "Please enter a valid email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tc.msg, Message(err))
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, signer := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: " sam ", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "sam", reg.Username)

	claims, err := signer.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, claims.UserID)

	login, err := svc.Login(ctx, LoginInput{Username: "sam", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	_, err = svc.Login(ctx, LoginInput{Username: "sam", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Username: "sam"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "sam", Email: "new@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, ErrUsernameTaken))

	_, err = svc.Register(ctx, RegisterInput{Username: "alex", Email: "sam@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, ErrEmailTaken))
	assert.Equal(t, "Email already registered", Message(err))
}

func TestProfile(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.Profile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "sam", user.Username)
	assert.Equal(t, "sam@example.com", user.Email)

	_, err = svc.Profile(ctx, "no-such-user")
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, "User not found", Message(err))
}
