package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/webshop/internal/dbtest"
	"github.com/talkincode/webshop/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, "webshop")
	now := time.Now()

	token, err := issuer.Issue(42, "a@example.com", []string{domain.RoleAdmin}, now)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.True(t, claims.HasRole(domain.RoleAdmin))
	assert.False(t, claims.HasRole(domain.RoleUser))

	_, err = NewTokenIssuer("other", time.Hour, "webshop").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := issuer.Issue(42, "a@example.com", nil, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNextIDIsUnique(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < 1000; i++ {
		id := NextID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func newUserService(t *testing.T) *UserService {
	t.Helper()
	svc := NewUserService(dbtest.Open(t))
	require.NoError(t, svc.EnsureRoles(context.Background()))
	return svc
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: " Jane@Example.com ", Password: "Passw0rd!", FullName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)

	_, err = svc.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, roles, err := svc.Authenticate(ctx, "JANE@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, []string{domain.RoleUser}, roles)

	_, _, err = svc.Authenticate(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Authenticate(ctx, "nobody@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAdminIsIdempotent(t *testing.T) {
	svc := NewUserService(dbtest.Open(t))
	ctx := context.Background()

	created, err := svc.CreateAdmin(ctx, "admin@example.com", "Secret123!", "Admin User")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateAdmin(ctx, "admin@example.com", "Secret123!", "Admin User")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := svc.CountInRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLockout(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	user, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetLockout(ctx, admin.ID, admin.ID, true), ErrSelfLock)

	require.NoError(t, svc.SetLockout(ctx, admin.ID, user.ID, true))
	_, _, err = svc.Authenticate(ctx, "user@example.com", "pw")
	assert.ErrorIs(t, err, ErrLockedOut)

	require.NoError(t, svc.SetLockout(ctx, admin.ID, user.ID, false))
	_, _, err = svc.Authenticate(ctx, "user@example.com", "pw")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetLockout(ctx, admin.ID, 12345, true), ErrUserNotFound)
}

func TestProfileAndPassword(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "p@example.com", Password: "old"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{FullName: "Pat", Address: "1 Road"})
	require.NoError(t, err)
	assert.Equal(t, "Pat", updated.FullName)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "bad", "new"), ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "old", "new"))
	_, _, err = svc.Authenticate(ctx, "p@example.com", "new")
	assert.NoError(t, err)
}
