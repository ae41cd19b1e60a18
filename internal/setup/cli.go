package setup

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI provides command-line interface for setup operations.
type CLI struct {
	// ConfigPath overrides the detected Claude Desktop config location.
	ConfigPath string

	in  *bufio.Reader
	out io.Writer
}

// NewCLI creates a setup CLI bound to the given streams.
func NewCLI(in io.Reader, out io.Writer) *CLI {
	return &CLI{in: bufio.NewReader(in), out: out}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "claude-desktop":
		return c.configure(args[1:])
	case "remove":
		return c.remove()
	case "status":
		return c.showStatus()
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `
Crisis Triage MCP Server Setup

Usage:
  mcp-server setup <command> [options]

Commands:
  claude-desktop  Register the server with Claude Desktop
  remove          Remove the registration
  status          Show the current registration

Options for claude-desktop:
  --binary PATH         Server binary (defaults to this executable)
  --sentiment-url URL   Sentiment service base URL
  --sentiment-key KEY   Sentiment service API key
  --redis-url URL       Shared sentiment cache
  --log-level LEVEL     Server log level
  -y                    Skip the confirmation prompt
`)
}

func (c *CLI) configPath() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return ClaudeDesktopConfigPath()
}

func (c *CLI) configure(args []string) error {
	var opts Options
	var autoConfirm bool

	fs := flag.NewFlagSet("claude-desktop", flag.ContinueOnError)
	fs.SetOutput(c.out)
	fs.StringVar(&opts.BinaryPath, "binary", "", "server binary")
	fs.StringVar(&opts.SentimentBaseURL, "sentiment-url", "", "sentiment service base URL")
	fs.StringVar(&opts.SentimentAPIKey, "sentiment-key", "", "sentiment service API key")
	fs.StringVar(&opts.RedisURL, "redis-url", "", "shared sentiment cache")
	fs.StringVar(&opts.LogLevel, "log-level", "", "server log level")
	fs.BoolVar(&autoConfirm, "y", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.BinaryPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to resolve executable: %w", err)
		}
		opts.BinaryPath = execPath
	}

	path, err := c.configPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Claude Desktop Configuration")
	fmt.Fprintln(c.out, "============================")
	fmt.Fprintf(c.out, "Config file: %s\n", path)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	if opts.SentimentBaseURL != "" {
		fmt.Fprintf(c.out, "Sentiment service: %s\n", opts.SentimentBaseURL)
	}
	fmt.Fprintln(c.out)

	if !autoConfirm && !c.confirm("Proceed with configuration? [Y/n]: ") {
		fmt.Fprintln(c.out, "Configuration cancelled.")
		return nil
	}

	if _, err := Configure(path, opts); err != nil {
		return fmt.Errorf("failed to configure Claude Desktop: %w", err)
	}

	fmt.Fprintln(c.out, "Claude Desktop configured. Restart it to load the triage tools.")
	return nil
}

func (c *CLI) remove() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	removed, err := Remove(path)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintln(c.out, "Registration removed.")
	} else {
		fmt.Fprintln(c.out, "Nothing to remove.")
	}
	return nil
}

func (c *CLI) showStatus() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	status, err := GetStatus(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Crisis Triage MCP Server Status")
	fmt.Fprintln(c.out, "===============================")
	fmt.Fprintf(c.out, "Config path: %s\n", status.ConfigPath)
	if status.Configured {
		fmt.Fprintf(c.out, "Registered: yes (%s)\n", status.ServerPath)
	} else {
		fmt.Fprintln(c.out, "Registered: no")
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}

func (c *CLI) confirm(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	response, _ := c.in.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}
