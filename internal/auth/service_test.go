package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	nextID int64
	users  map[string]User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]User)}
}

func key(scope Scope, username string) string {
	return string(scope) + "/" + username
}

func (m *memUserRepo) CreateUser(_ context.Context, u User) (User, error) {
	k := key(u.Scope, u.Username)
	if _, exists := m.users[k]; exists {
		return User{}, ErrDuplicateUsername
	}
	m.nextID++
	u.ID = m.nextID
	u.IsActive = true
	m.users[k] = u
	return u, nil
}

func (m *memUserRepo) FindByUsername(_ context.Context, scope Scope, username string) (User, error) {
	u, ok := m.users[key(scope, username)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func newTestService(t *testing.T) (*Service, *TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := NewTokenStore(client)
	return NewService(newMemUserRepo(), tokens, time.Hour), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, ScopeHospital, RegisterInput{
		OrgID: 10, Username: "pharmacy", Password: "correct horse", Role: "staff",
	})
	require.NoError(t, err)
	require.Equal(t, ScopeHospital, user.Scope)
	require.NotEmpty(t, user.PasswordHash)
	require.NotEqual(t, "correct horse", user.PasswordHash)

	loggedIn, token, err := svc.Login(ctx, ScopeHospital, "pharmacy", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)
	require.NotEmpty(t, token)

	actor, err := tokens.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, ScopeHospital, actor.Scope)
	require.Equal(t, int64(10), actor.OrgID)
	require.Equal(t, user.ID, actor.UserID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, ScopeHospital, RegisterInput{OrgID: 10, Username: "", Password: "long enough"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, ScopeHospital, RegisterInput{OrgID: 10, Username: "user", Password: "short"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, ScopeHospital, RegisterInput{Username: "user", Password: "long enough"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, ScopeHospital, RegisterInput{OrgID: 10, Username: "dup", Password: "long enough"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, ScopeHospital, RegisterInput{OrgID: 10, Username: "dup", Password: "long enough"})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, ScopeSupplier, RegisterInput{
		OrgID: 20, Username: "depot", Password: "correct horse",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, ScopeSupplier, "depot", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, ScopeSupplier, "nobody", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The same username on the other portal is a different account space.
	_, _, err = svc.Login(ctx, ScopeHospital, "depot", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, ScopeHospital, RegisterInput{
		OrgID: 10, Username: "pharmacy", Password: "correct horse",
	})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, ScopeHospital, "pharmacy", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = tokens.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := NewTokenStore(client)
	ctx := context.Background()

	token, err := tokens.Issue(ctx, Actor{Scope: ScopeHospital, UserID: 1, OrgID: 10}, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = tokens.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
