package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 18990, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 5, cfg.Agent.MaxToolRounds)
}

func TestLoad_PartialFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "gmail", cfg.Mail.Backend)
	assert.Equal(t, 5, cfg.Ask.TopK)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: map")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_ExpandsEnvRefs(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")
	path := writeConfig(t, `
openai:
  apiKey: ${TEST_OPENAI_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.OpenAI.APIKey)
}

func TestLoad_UnsetEnvRefLeftAlone(t *testing.T) {
	path := writeConfig(t, `
openai:
  apiKey: ${DEFINITELY_NOT_SET_XYZ}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DEFINITELY_NOT_SET_XYZ}", cfg.OpenAI.APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ATTACHE_SERVER_PORT", "12345")
	t.Setenv("ATTACHE_LOG_LEVEL", "DEBUG")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 12345, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	assert.Nil(t, Validate(&cfg))
}

func TestValidate_BadPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 70000
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "server.port", issues[0].Path)
}

func TestValidate_IMAPWithoutSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "imap"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "mail.imap", issues[0].Path)
}

func TestValidate_BadBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Mail.Backend = "pigeon"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "mail.backend", issues[0].Path)
}

func TestParseConfigPath(t *testing.T) {
	parts, err := ParseConfigPath("server.port")
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "port"}, parts)

	_, err = ParseConfigPath("")
	assert.Error(t, err)

	_, err = ParseConfigPath("server..port")
	assert.Error(t, err)
}

func TestGetSetValueAtPath(t *testing.T) {
	root := map[string]any{}
	SetValueAtPath(root, []string{"server", "port"}, 8080)

	val, ok := GetValueAtPath(root, []string{"server", "port"})
	require.True(t, ok)
	assert.Equal(t, 8080, val)

	_, ok = GetValueAtPath(root, []string{"server", "missing"})
	assert.False(t, ok)
}
