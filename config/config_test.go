package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromYaml(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "webshop.yml")
	content := `
system:
  workdir: ` + dir + `
web:
  port: 9090
database:
  type: sqlite
  name: shop.db
smtp:
  host: smtp.example.com
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "shop.db", cfg.Database.Name)
	assert.Equal(t, "smtp.example.com", cfg.Smtp.Host)
	// defaults survive a partial file
	assert.Equal(t, 587, cfg.Smtp.Port)
	assert.Equal(t, filepath.Join(dir, "public", "images"), cfg.GetImageDir())
	assert.DirExists(t, cfg.GetImageDir())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBSHOP_SYSTEM_WORKDIR", dir)
	t.Setenv("WEBSHOP_WEB_PORT", "7001")
	t.Setenv("WEBSHOP_DB_TYPE", "sqlite")
	t.Setenv("WEBSHOP_DB_DEBUG", "true")
	t.Setenv("WEBSHOP_REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Database.Debug)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}

func TestLoadConfigInvalidValuesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBSHOP_SYSTEM_WORKDIR", dir)
	t.Setenv("WEBSHOP_WEB_PORT", "not-a-port")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Web.Port)
}

func TestLoadConfigRejectsUnknownDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBSHOP_SYSTEM_WORKDIR", dir)
	t.Setenv("WEBSHOP_DB_TYPE", "oracle")

	_, err := LoadConfig("")
	assert.Error(t, err)
}
