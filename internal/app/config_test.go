package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inkhub/internal/auth"
	"github.com/charlesng35/inkhub/internal/database"
	"github.com/charlesng35/inkhub/internal/slug"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5432, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Postgres.Options["sslmode"])

	require.Equal(t, "session-secret", cfg.Auth.Session.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.Session.TokenTTL)

	require.Equal(t, 120, cfg.Content.Slug.MaxLength.Works)
	require.Equal(t, 100, cfg.Content.Slug.MaxLength.Groups)
	require.Equal(t, 4, cfg.Content.Slug.MaxAttempts)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("INKHUB_SERVER_PORT", "7070")
	t.Setenv("INKHUB_AUTH_SESSION_SECRET", "from-env")
	t.Setenv("INKHUB_DATABASE_URL", "postgres://u:p@localhost/inkhub")

	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.Session.Secret)
	require.Equal(t, "postgres://u:p@localhost/inkhub", cfg.Database.URL)
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 8080\n"), 0o600))

	_, err := LoadConfig(dir)
	require.ErrorContains(t, err, "auth.session.secret")
}

func TestAuthConfigAdapter(t *testing.T) {
	cfg := AuthConfig{Session: SessionSettings{Secret: "secret", Issuer: "issuer", Audience: "inkhub", TokenTTL: time.Hour}}
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		Audience:       "inkhub",
		AccessTokenTTL: time.Hour,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestSlugAllocatorConfig(t *testing.T) {
	cfg := ContentConfig{Slug: SlugConfig{MaxLength: SlugLengths{Works: 64}, MaxAttempts: 3}}.SlugAllocatorConfig()
	require.Equal(t, 64, cfg.MaxLength[slug.ScopeWorks])
	require.Equal(t, slug.DefaultConfig().MaxLength[slug.ScopeGroups], cfg.MaxLength[slug.ScopeGroups])
	require.Equal(t, 3, cfg.MaxAttempts)
}

func TestDatabaseOpenConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "mysql",
		MySQL:  DBAuthConfig{Host: "mysql.local", Port: 3307, Database: "inkhub", Username: "app", Password: "pw"},
		Postgres: DBAuthConfig{
			Host: "ignored",
		},
	}
	require.Equal(t, database.Config{
		Driver:   "mysql",
		Host:     "mysql.local",
		Port:     3307,
		User:     "app",
		Password: "pw",
		Name:     "inkhub",
	}, cfg.DatabaseOpenConfig())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/test.sqlite"}.DatabaseOpenConfig()
	require.Equal(t, "./data/test.sqlite", sqlite.Path)
	require.Empty(t, sqlite.Host)
}
