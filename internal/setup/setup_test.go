package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_PreservesOtherServersAndKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude", "claude_desktop_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "theme": "dark",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0o600))

	entry, err := Configure(path, Options{
		BinaryPath:       "/usr/local/bin/mcp-server",
		SentimentBaseURL: "http://sentiment.local",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://sentiment.local", entry.Env[EnvSentimentBaseURL])
	assert.NotContains(t, entry.Env, EnvCacheRedisURL)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "dark", raw["theme"])

	config, err := LoadClaudeDesktopConfig(path)
	require.NoError(t, err)
	assert.Contains(t, config.MCPServers, "other")
	assert.Equal(t, "/usr/local/bin/mcp-server", config.MCPServers[ServerName].Command)
}

func TestConfigure_RequiresBinary(t *testing.T) {
	_, err := Configure(filepath.Join(t.TempDir(), "c.json"), Options{})
	assert.Error(t, err)
}

func TestLoadClaudeDesktopConfig_MissingFile(t *testing.T) {
	config, err := LoadClaudeDesktopConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, config.MCPServers)
}

func TestLoadClaudeDesktopConfig_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadClaudeDesktopConfig(path)
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Len(t, status.Issues, 1)

	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))
	_, err = Configure(path, Options{BinaryPath: binary, SentimentBaseURL: "http://s"})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, binary, status.ServerPath)
	assert.Empty(t, status.Issues)

	_, err = Configure(path, Options{BinaryPath: filepath.Join(dir, "gone")})
	require.NoError(t, err)
	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.Len(t, status.Issues, 2)
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")

	removed, err := Remove(path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Configure(path, Options{BinaryPath: "/bin/true"})
	require.NoError(t, err)

	removed, err = Remove(path)
	require.NoError(t, err)
	assert.True(t, removed)

	config, err := LoadClaudeDesktopConfig(path)
	require.NoError(t, err)
	assert.NotContains(t, config.MCPServers, ServerName)
}

func TestCLI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")

	var out bytes.Buffer
	cli := NewCLI(strings.NewReader("n\n"), &out)
	cli.ConfigPath = path

	require.NoError(t, cli.Run([]string{"claude-desktop", "--binary", "/bin/true"}))
	assert.Contains(t, out.String(), "Configuration cancelled.")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	out.Reset()
	require.NoError(t, cli.Run([]string{"claude-desktop", "--binary", "/bin/true", "--log-level", "debug", "-y"}))
	config, err := LoadClaudeDesktopConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.MCPServers[ServerName].Env[EnvLoggingLevel])

	out.Reset()
	require.NoError(t, cli.Run([]string{"status"}))
	assert.Contains(t, out.String(), "Registered: yes (/bin/true)")

	out.Reset()
	require.NoError(t, cli.Run([]string{"remove"}))
	assert.Contains(t, out.String(), "Registration removed.")

	assert.Error(t, cli.Run([]string{"bogus"}))
}
