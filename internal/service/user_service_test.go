package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/user"
	"github.com/tasklocal/marketplace/internal/testutil"
)

const jwtTestSecret = "0123456789abcdef0123456789abcdef"

func newUserService() (*UserService, *testutil.MockUserRepository) {
	repo := testutil.NewMockUserRepository()
	return NewUserService(repo, jwtTestSecret, time.Hour), repo
}

func TestRegister(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterRequest{
		Email: "ada@example.com",
		Name:  "Ada",
		Role:  user.RoleClient,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, user.RoleClient, u.Role)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Ada", Role: user.RoleClient})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Other", Role: user.RoleContractor})
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateEmail)
}

func TestEmailByUserID(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()

	u := testutil.NewTestUser(user.RoleClient)
	require.NoError(t, repo.Create(ctx, u))

	email, err := svc.EmailByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, email)
}

func TestIssueToken(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()

	u := testutil.NewTestUser(user.RoleContractor)
	require.NoError(t, repo.Create(ctx, u))

	signed, err := svc.IssueToken(ctx, u.Email)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (any, error) {
		return []byte(jwtTestSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)

	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), sub)
	assert.Equal(t, string(user.RoleContractor), claims["role"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}

func TestIssueToken_UnknownEmail(t *testing.T) {
	svc, _ := newUserService()
	_, err := svc.IssueToken(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domainErrors.ErrUserNotFound)
}
