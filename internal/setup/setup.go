// Package setup registers the crisis triage MCP server with Claude Desktop.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ServerName is the key used in the desktop client's mcpServers map.
const ServerName = "crisis-triage"

// Environment variables forwarded to the server process.
const (
	EnvSentimentBaseURL = "TRIAGE_SENTIMENT_BASE_URL"
	EnvSentimentAPIKey  = "TRIAGE_SENTIMENT_API_KEY"
	EnvCacheRedisURL    = "TRIAGE_CACHE_REDIS_URL"
	EnvLoggingLevel     = "TRIAGE_LOGGING_LEVEL"
)

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Unknown top-level keys are preserved across a load and save.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls what gets written for the server entry.
type Options struct {
	BinaryPath       string
	SentimentBaseURL string
	SentimentAPIKey  string
	RedisURL         string
	LogLevel         string
}

// Status summarizes the current registration.
type Status struct {
	ConfigPath string
	Configured bool
	ServerPath string
	Env        map[string]string
	Issues     []string
}

// ClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func ClaudeDesktopConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Claude", "claude_desktop_config.json"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// LoadClaudeDesktopConfig loads the config file. A missing file yields an empty config.
func LoadClaudeDesktopConfig(path string) (*ClaudeDesktopConfig, error) {
	config := &ClaudeDesktopConfig{MCPServers: map[string]MCPServerConfig{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = map[string]MCPServerConfig{}
	}
	return config, nil
}

// SaveClaudeDesktopConfig writes the config, creating the directory if needed.
func SaveClaudeDesktopConfig(path string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or replaces the crisis-triage entry in the config at path.
func Configure(path string, opts Options) (*MCPServerConfig, error) {
	if opts.BinaryPath == "" {
		return nil, fmt.Errorf("binary path is required")
	}

	config, err := LoadClaudeDesktopConfig(path)
	if err != nil {
		return nil, err
	}

	entry := MCPServerConfig{
		Command: opts.BinaryPath,
		Env:     map[string]string{},
	}
	setEnv(entry.Env, EnvSentimentBaseURL, opts.SentimentBaseURL)
	setEnv(entry.Env, EnvSentimentAPIKey, opts.SentimentAPIKey)
	setEnv(entry.Env, EnvCacheRedisURL, opts.RedisURL)
	setEnv(entry.Env, EnvLoggingLevel, opts.LogLevel)

	config.MCPServers[ServerName] = entry
	if err := SaveClaudeDesktopConfig(path, config); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove deletes the crisis-triage entry. It reports whether one existed.
func Remove(path string) (bool, error) {
	config, err := LoadClaudeDesktopConfig(path)
	if err != nil {
		return false, err
	}
	if _, ok := config.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(config.MCPServers, ServerName)
	return true, SaveClaudeDesktopConfig(path, config)
}

// GetStatus inspects the registration at path.
func GetStatus(path string) (*Status, error) {
	status := &Status{ConfigPath: path, Issues: []string{}}

	config, err := LoadClaudeDesktopConfig(path)
	if err != nil {
		return nil, err
	}

	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "crisis-triage is not registered with Claude Desktop")
		return status, nil
	}

	status.Configured = true
	status.ServerPath = entry.Command
	status.Env = entry.Env

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if entry.Env[EnvSentimentBaseURL] == "" {
		status.Issues = append(status.Issues, "sentiment service not set, notes will score with the neutral fallback")
	}
	return status, nil
}

func setEnv(env map[string]string, key, value string) {
	if value != "" {
		env[key] = value
	}
}
