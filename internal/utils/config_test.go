package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commandapi.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9090"
read_timeout = "5s"

[database]
driver = "postgres"
connection_string = "postgres://localhost:5432/commands"
user_id = "file-user"

[auth]
resource_id = "api://commands"
instance = "https://login.example.com/"
tenant_id = "tenant-1"
`)
	t.Setenv("COMMANDAPI_DATABASE_USER_ID", "env-user")
	t.Setenv("COMMANDAPI_DATABASE_PASSWORD", "s3cret")
	t.Setenv("COMMANDAPI_AUTH_API_KEY_HASHES", "hash-a,hash-b")
	t.Setenv("COMMANDAPI_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "env-user", cfg.Database.UserID)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "https://login.example.com/tenant-1", cfg.Auth.Authority())
	assert.Equal(t, []string{"hash-a", "hash-b"}, cfg.Auth.APIKeyHashes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadConfigEnvError(t *testing.T) {
	t.Setenv("COMMANDAPI_SERVER_READ_TIMEOUT", "soon")
	_, err := LoadConfig(writeConfig(t, ""))
	assert.ErrorContains(t, err, "parse env:")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "database.driver")

	cfg = DefaultConfig()
	cfg.Database.Driver = "memory"
	cfg.Database.ConnectionString = ""
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.WriteTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "server.write_timeout")

	cfg = DefaultConfig()
	cfg.Auth.HMACSecret = "secret"
	assert.ErrorContains(t, cfg.Validate(), "auth.resource_id")

	cfg = DefaultConfig()
	cfg.Auth.APIKeyHashes = []string{"$2a$10$hash"}
	assert.NoError(t, cfg.Validate(), "api keys alone need no audience")
	cfg.Auth.JWKSURL = "https://login.example.com/keys"
	assert.ErrorContains(t, cfg.Validate(), "auth.resource_id", "api keys do not waive the audience for tokens")

	cfg = DefaultConfig()
	cfg.Server.TLSCertFile = "server.crt"
	assert.ErrorContains(t, cfg.Validate(), "tls_key_file")
}

func TestGetProjectRootFindsModule(t *testing.T) {
	root := GetProjectRoot()
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err)
}
