package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file name inside the academy config directory.
	DefaultConfigFile = "config.yaml"
	// SessionFile holds the token and user slots, next to the config file.
	SessionFile = "session.yaml"
	// DemoFile holds demo-mode admissions and contacts.
	DemoFile = "demo.json"

	// ServerURLEnv overrides the default API location when the config file has none.
	ServerURLEnv     = "ACADEMY_API_URL"
	DefaultServerURL = "http://localhost:5000/api"

	configVersion = "0.1.0"
)

// Config is the CLI configuration file.
type Config struct {
	Version string `yaml:"version"`
	// ServerURL is the API base, including its path prefix.
	ServerURL string `yaml:"server_url,omitempty"`
	// Timeout bounds each request, e.g. "20s".
	Timeout string `yaml:"timeout,omitempty"`
	// Demo keeps admissions and contacts on this machine.
	Demo bool `yaml:"demo,omitempty"`

	path string
}

// GetDefaultConfigPath returns the config file location in the OS config
// directory, e.g. ~/.config/academy/config.yaml on Linux.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "academy", DefaultConfigFile), nil
}

// LoadConfig reads file. A missing file yields an empty configuration, so the
// CLI works against the default server without any setup.
func LoadConfig(file string) (*Config, error) {
	c := &Config{Version: configVersion, path: file}
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return nil, fmt.Errorf("invalid timeout %q in config file", c.Timeout)
		}
	}
	c.path = file
	return c, nil
}

// WriteConfig saves the configuration where it was loaded from.
func (cfg *Config) WriteConfig() error {
	if cfg.path == "" {
		return errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}
	if err := os.WriteFile(cfg.path, data, 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// Path is the config file location.
func (cfg *Config) Path() string { return cfg.path }

// SessionPath is the session slot file next to the config file.
func (cfg *Config) SessionPath() string {
	return filepath.Join(filepath.Dir(cfg.path), SessionFile)
}

// DemoPath is the demo store file next to the config file.
func (cfg *Config) DemoPath() string {
	return filepath.Join(filepath.Dir(cfg.path), DemoFile)
}

// GetServerURL resolves the API base: the config file, then ACADEMY_API_URL
// from the environment or a .env file, then the local default.
func (cfg *Config) GetServerURL() string {
	if cfg.ServerURL != "" {
		return MorphServer(cfg.ServerURL)
	}
	_ = godotenv.Load() // a missing .env is fine
	if v := strings.TrimSpace(os.Getenv(ServerURLEnv)); v != "" {
		return MorphServer(v)
	}
	return DefaultServerURL
}

// GetTimeout returns the configured request timeout, or zero for the default.
func (cfg *Config) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(cfg.Timeout)
	return d
}

// MorphServer trims trailing slashes and adds http:// when no scheme is given.
func MorphServer(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		return server
	}
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	return server
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `Manage CLI configuration settings: the API server, the request timeout and demo mode.

Examples:
  # Point the CLI at a server
  academyctl config --server http://localhost:5000/api

  # Keep admissions and contacts on this machine
  academyctl config --demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if !f.Changed("server") && !f.Changed("demo") && !f.Changed("timeout") {
				return cmd.Help()
			}
			cfg := a.cfg
			if f.Changed("server") {
				server, _ := f.GetString("server")
				if u, err := url.Parse(MorphServer(server)); server != "" && (err != nil || u.Host == "") {
					return fmt.Errorf("invalid server URL %q", server)
				}
				if MorphServer(server) != cfg.GetServerURL() {
					// a token from another server is meaningless
					if err := a.tokens().Clear(); err != nil {
						return err
					}
				}
				cfg.ServerURL = MorphServer(server)
			}
			if f.Changed("demo") {
				cfg.Demo, _ = f.GetBool("demo")
			}
			if f.Changed("timeout") {
				t, _ := f.GetString("timeout")
				if _, err := time.ParseDuration(t); err != nil {
					return fmt.Errorf("invalid timeout %q", t)
				}
				cfg.Timeout = t
			}
			if err := cfg.WriteConfig(); err != nil {
				return err
			}
			return a.printConfig(cmd)
		},
	}
	cmd.Flags().String("server", "", "API base URL, e.g. http://localhost:5000/api")
	cmd.Flags().Bool("demo", false, "Keep admissions and contacts locally instead of on the server")
	cmd.Flags().String("timeout", "", "Request timeout, e.g. 20s")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printConfig(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the server and sign out",
		Long: `Clear the configured server and the stored session. The CLI falls back to
ACADEMY_API_URL or the local default server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tokens().Clear(); err != nil {
				return err
			}
			a.cfg.ServerURL = ""
			a.cfg.Demo = false
			a.cfg.Timeout = ""
			if err := a.cfg.WriteConfig(); err != nil {
				return err
			}
			if a.out.format != formatTable {
				return a.out.printValue(map[string]string{"status": "cleared"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cleared.")
			return nil
		},
	})
	return cmd
}

func (a *app) printConfig(cmd *cobra.Command) error {
	s := a.tokens().Get()
	signedIn := ""
	if s.Present() {
		signedIn = s.User.Email
	}
	values := map[string]any{
		"server":      a.cfg.GetServerURL(),
		"timeout":     a.cfg.Timeout,
		"demo":        a.cfg.Demo,
		"config_file": a.cfg.Path(),
		"signed_in":   signedIn,
	}
	if a.out.format != formatTable {
		return a.out.printValue(values)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Server:      %s\n", values["server"])
	if a.cfg.Timeout != "" {
		fmt.Fprintf(w, "Timeout:     %s\n", a.cfg.Timeout)
	}
	fmt.Fprintf(w, "Demo mode:   %v\n", a.cfg.Demo)
	fmt.Fprintf(w, "Config file: %s\n", a.cfg.Path())
	if signedIn != "" {
		fmt.Fprintf(w, "Signed in:   %s\n", signedIn)
	}
	return nil
}
