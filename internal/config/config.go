// Package config - config.go holds the runtime configuration.
//
// DESIGN: Config is built once at startup from (lowest to highest
// precedence) defaults, an optional YAML file, environment variables,
// and CLI flags, then passed into the proxy constructor. Nothing reads
// configuration globally after startup.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Mode         string `yaml:"mode"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	AuditLogPath string `yaml:"audit_log"`
	Debug        bool   `yaml:"debug"`

	// Credential is resolved from the profile's env var at load time and
	// never read from the config file, so keys don't end up in YAML.
	Credential string `yaml:"-"`

	profile Profile
}

// Default returns a Config populated with defaults for the given mode.
func Default(mode string) *Config {
	return &Config{
		Mode:         mode,
		Host:         DefaultHost,
		Port:         DefaultPort,
		AuditLogPath: DefaultAuditLogPath,
	}
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnv substitutes ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnv(data string) string {
	return envPattern.ReplaceAllStringFunc(data, func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})
}

// LoadFile overlays a YAML config file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Finalize applies env overrides, resolves the profile and credential,
// and validates the result. Call after all sources are overlaid.
func (c *Config) Finalize() error {
	if v := strings.TrimSpace(os.Getenv(AuditLogPathEnv)); v != "" {
		c.AuditLogPath = v
	}

	p, err := ProfileFor(c.Mode)
	if err != nil {
		return err
	}
	c.profile = p
	c.Credential = p.Credential()

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AuditLogPath == "" {
		return fmt.Errorf("audit log path must not be empty")
	}
	return nil
}

// Profile returns the active mode profile. Valid after Finalize.
func (c *Config) Profile() Profile { return c.profile }

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
