// Package config loads the TOML configuration of the development API server.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// ConfigFormatVersion is the supported configuration file format.
const ConfigFormatVersion = "0.1.0"

// Seed account used when the configuration lists no users.
const (
	DefaultAdminEmail    = "admin@combatwarrior.com"
	DefaultAdminPassword = "admin123"
)

// AuthConfig holds token settings.
type AuthConfig struct {
	TokenExpiry string `toml:"token_expiry"` // e.g. "1d", "12h"
	SigningKey  string `toml:"signing_key"`  // HS256 secret; generated at startup when empty
}

// GetTokenExpiry returns the token lifetime.
func (a *AuthConfig) GetTokenExpiry() (time.Duration, error) {
	return ParseDuration(a.TokenExpiry)
}

// User is a back-office account. Either PasswordHash (bcrypt) or Password must
// be set; a plain Password is hashed on load.
type User struct {
	ID           string `toml:"id"`
	Email        string `toml:"email"`
	FirstName    string `toml:"first_name"`
	LastName     string `toml:"last_name"`
	Role         string `toml:"role"`
	Password     string `toml:"password"`
	PasswordHash string `toml:"password_hash"`
}

// ConfigParam holds all configuration of the development API.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`

	ServerHostName string `toml:"server_hostname"`
	ServerPort     string `toml:"server_port"`
	BasePath       string `toml:"base_path"` // prefix of every route, e.g. "/api"
	HandleCORS     bool   `toml:"handle_cors"`
	RequestTimeout string `toml:"request_timeout"` // Go duration, e.g. "30s"
	PageSize       int    `toml:"page_size"`       // used when a list request has no limit
	SeedDemoData   bool   `toml:"seed_demo_data"`

	Auth  AuthConfig `toml:"auth"`
	Users []User     `toml:"users"`
}

// DefaultConfig is a ready-to-run configuration on localhost:5000/api.
func DefaultConfig() *ConfigParam {
	return &ConfigParam{
		FormatVersion:  ConfigFormatVersion,
		ServerHostName: "localhost",
		ServerPort:     "5000",
		BasePath:       "/api",
		HandleCORS:     true,
		RequestTimeout: "30s",
		PageSize:       10,
		SeedDemoData:   true,
		Auth:           AuthConfig{TokenExpiry: "1d"},
	}
}

// Addr is the listen address.
func (c *ConfigParam) Addr() string {
	return c.ServerHostName + ":" + c.ServerPort
}

// GetRequestTimeout returns the per-request timeout, or 0 for none.
func (c *ConfigParam) GetRequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// ParseDuration parses "<number><unit>" where unit is y, d, h or m.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "y":
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks cfg and fills in defaults: the seed admin account, a
// random signing key, hashed passwords and a normalised base path.
func ValidateConfig(cfg *ConfigParam) error {
	if cfg.FormatVersion != ConfigFormatVersion {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.RequestTimeout != "" {
		if _, err := time.ParseDuration(cfg.RequestTimeout); err != nil {
			return fmt.Errorf("invalid request_timeout: %v", err)
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.BasePath != "" {
		cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	}

	if cfg.Auth.TokenExpiry == "" {
		return fmt.Errorf("auth.token_expiry is required")
	}
	if _, err := ParseDuration(cfg.Auth.TokenExpiry); err != nil {
		return fmt.Errorf("invalid auth.token_expiry: %v", err)
	}
	if cfg.Auth.SigningKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("error generating signing key: %v", err)
		}
		cfg.Auth.SigningKey = hex.EncodeToString(key)
	}

	if len(cfg.Users) == 0 {
		cfg.Users = []User{{
			ID:        "1",
			Email:     DefaultAdminEmail,
			FirstName: "Academy",
			LastName:  "Admin",
			Role:      "admin",
			Password:  DefaultAdminPassword,
		}}
	}
	seen := map[string]bool{}
	for i := range cfg.Users {
		u := &cfg.Users[i]
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if u.ID == "" || u.Email == "" {
			return fmt.Errorf("users[%d]: id and email are required", i)
		}
		if seen[u.Email] {
			return fmt.Errorf("users[%d]: duplicate email %s", i, u.Email)
		}
		seen[u.Email] = true
		if u.Role == "" {
			return fmt.Errorf("users[%d]: role is required", i)
		}
		if u.PasswordHash == "" {
			if u.Password == "" {
				return fmt.Errorf("users[%d]: password or password_hash is required", i)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("users[%d]: %v", i, err)
			}
			u.PasswordHash = string(hash)
		}
		u.Password = ""
	}
	return nil
}

// LoadConfig reads and validates the configuration at filename.
func LoadConfig(filename string) (*ConfigParam, error) {
	if filename == "" {
		return nil, fmt.Errorf("config filename is required")
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	return ParseConfig(string(content))
}

// ParseConfig decodes and validates a TOML document.
func ParseConfig(content string) (*ConfigParam, error) {
	cfg := &ConfigParam{}
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return cfg, nil
}
