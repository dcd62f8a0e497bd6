// Package apptest builds a fully wired Application over an in-memory
// database for handler tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talkincode/webshop/config"
	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/dbtest"
)

func New(t testing.TB) *app.Application {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.System.Location = "UTC"
	cfg.Database.Type = "sqlite"
	cfg.Web.Secret = "test-secret"
	cfg.Smtp.Workers = 1

	a := app.NewApplication(cfg)
	require.NoError(t, a.OverrideDB(dbtest.Open(t)))
	require.NoError(t, a.Users().EnsureRoles(context.Background()))
	t.Cleanup(a.Release)
	return a
}

// Login registers a customer (or admin) and returns a bearer token for it.
func Login(t testing.TB, a *app.Application, email string, admin bool) (int64, string) {
	t.Helper()
	ctx := context.Background()
	if admin {
		created, err := a.EnsureAdmin(ctx, email, "Secret#123", "Admin User")
		require.NoError(t, err)
		require.True(t, created)
	} else {
		_, err := a.Users().Register(ctx, auth.RegisterInput{Email: email, Password: "Secret#123", FullName: "Test Customer"})
		require.NoError(t, err)
	}
	user, roles, err := a.Users().Authenticate(ctx, email, "Secret#123")
	require.NoError(t, err)
	token, err := a.Tokens().Issue(user.ID, user.Email, roles, time.Now())
	require.NoError(t, err)
	return user.ID, "Bearer " + token
}
