// Package config handles persisted fabenv configuration.
//
// Config is stored at $XDG_CONFIG_HOME/fabenv/config.yaml (defaults to
// ~/.config/fabenv/config.yaml). It records the runtime directory, the
// assigned port window and script tuning; the generator and anyone
// needing current port values read it from here.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"fabenv"

	"gopkg.in/yaml.v3"
)

// DefaultBasePort is the start of the scan for a free port window.
const DefaultBasePort = 17050

// portWindow is the number of consecutive ports a runtime needs.
const portWindow = 7

// Config holds everything fabenv persists between runs.
type Config struct {
	// Directory is the runtime's working directory. Empty means the
	// default under the user config dir.
	Directory string `yaml:"directory,omitempty"`

	// Name identifies the runtime instance.
	Name string `yaml:"name,omitempty"`

	// DockerName is the compose project name.
	DockerName string `yaml:"docker-name,omitempty"`

	// Ports is the port window assigned at creation time.
	Ports fabenv.Ports `yaml:"ports"`

	// ChaincodeTimeoutSeconds is forwarded to lifecycle scripts.
	ChaincodeTimeoutSeconds int `yaml:"chaincode-timeout-seconds,omitempty"`

	// LogLevel is the daemon/CLI log level (debug, info, warn, error).
	LogLevel string `yaml:"log-level,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/fabenv/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "fabenv", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fabenv", "config.yaml")
}

// DefaultDirectory is the default runtime working directory.
func DefaultDirectory() string {
	return filepath.Join(filepath.Dir(Path()), "runtime")
}

// Load reads the config file. If the file does not exist, a Config with
// defaults is returned (not an error).
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withDefaults(&Config{}), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return withDefaults(&cfg), nil
}

func withDefaults(cfg *Config) *Config {
	if cfg.Directory == "" {
		cfg.Directory = DefaultDirectory()
	}
	if cfg.Name == "" {
		cfg.Name = "local"
	}
	if cfg.DockerName == "" {
		cfg.DockerName = "fabenv"
	}
	if cfg.ChaincodeTimeoutSeconds <= 0 {
		cfg.ChaincodeTimeoutSeconds = 300
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// AssignPorts scans upward from base for a window of free consecutive
// ports and records the assignment. Existing assignments are replaced;
// callers persist with Save.
func (c *Config) AssignPorts(base int) error {
	if base <= 0 {
		base = DefaultBasePort
	}
	start, err := freeWindow(base)
	if err != nil {
		return err
	}
	c.Ports = fabenv.Ports{
		Orderer:              start,
		PeerRequest:          start + 1,
		PeerChaincode:        start + 2,
		CertificateAuthority: start + 3,
		CouchDB:              start + 4,
		Logs:                 start + 5,
	}
	return nil
}

func freeWindow(base int) (int, error) {
	const attempts = 100
	for start := base; start < base+attempts*portWindow; start += portWindow {
		if windowFree(start) {
			return start, nil
		}
	}
	return 0, fmt.Errorf("no free port window found above %d", base)
}

func windowFree(start int) bool {
	for port := start; port < start+portWindow; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return false
		}
		_ = ln.Close()
	}
	return true
}
