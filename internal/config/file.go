package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/spconsole/internal/constants"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// FileConfig represents the configuration file structure
type FileConfig struct {
	// Backend selection
	Backend        string        `yaml:"backend,omitempty"` // "sim", "http"
	Endpoint       string        `yaml:"endpoint,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	Log     *LogConfig     `yaml:"log,omitempty"`
	Console *ConsoleConfig `yaml:"console,omitempty"`
	Sim     *SimConfig     `yaml:"sim,omitempty"`
	Audio   *AudioFile     `yaml:"audio,omitempty"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "text", "json"
	File   string `yaml:"file,omitempty"`
	HTTP   bool   `yaml:"http,omitempty"`
}

// ConsoleConfig holds main loop and shutdown settings
type ConsoleConfig struct {
	Render            bool          `yaml:"render,omitempty"`
	BackendLog        bool          `yaml:"backend_log,omitempty"`
	DrainTimeout      time.Duration `yaml:"drain_timeout,omitempty"`
	DrainInterval     time.Duration `yaml:"drain_interval,omitempty"`
	JoinTimeout       time.Duration `yaml:"join_timeout,omitempty"`
	MaxPumpIterations int           `yaml:"max_pump_iterations,omitempty"`
	PumpYield         time.Duration `yaml:"pump_yield,omitempty"`
}

// SimConfig holds simulated backend settings
type SimConfig struct {
	Latency   time.Duration     `yaml:"latency,omitempty"`
	Keepalive time.Duration     `yaml:"keepalive,omitempty"`
	Users     map[string]string `yaml:"users,omitempty"`
}

// AudioFile holds the playback format
type AudioFile struct {
	SampleRate  int `yaml:"sample_rate,omitempty"`
	Channels    int `yaml:"channels,omitempty"`
	FrameBuffer int `yaml:"frame_buffer,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", "."+constants.AppName, ConfigFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, constants.AppName, ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", constants.AppName, ConfigFileName))
	}

	return paths
}

// LoadConfigFile attempts to load configuration from a file
func LoadConfigFile() (*FileConfig, error) {
	paths := GetConfigPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}

	// No config file found, return empty config
	return &FileConfig{}, nil
}

// loadConfigFromPath loads config from a specific path
func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyFileConfig applies file configuration to the main Config
// File config has lower priority than environment variables and CLI flags
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	if c.Backend == "" && fc.Backend != "" {
		c.Backend = fc.Backend
	}
	if c.Endpoint == "" && fc.Endpoint != "" {
		c.Endpoint = fc.Endpoint
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = fc.RequestTimeout
	}

	if fc.Log != nil {
		if c.LogLevel == "" {
			c.LogLevel = fc.Log.Level
		}
		if c.LogFormat == "" {
			c.LogFormat = fc.Log.Format
		}
		if c.LogFile == "" {
			c.LogFile = fc.Log.File
		}
		// Booleans can only be switched on by the file; an unset flag and
		// a false flag look the same.
		if fc.Log.HTTP {
			c.LogHTTP = true
		}
	}

	if fc.Console != nil {
		if fc.Console.Render {
			c.Render = true
		}
		if fc.Console.BackendLog {
			c.BackendLog = true
		}
		if c.DrainTimeout == 0 {
			c.DrainTimeout = fc.Console.DrainTimeout
		}
		if c.DrainInterval == 0 {
			c.DrainInterval = fc.Console.DrainInterval
		}
		if c.JoinTimeout == 0 {
			c.JoinTimeout = fc.Console.JoinTimeout
		}
		if c.MaxPumpIterations == 0 {
			c.MaxPumpIterations = fc.Console.MaxPumpIterations
		}
		if c.PumpYield == 0 {
			c.PumpYield = fc.Console.PumpYield
		}
	}

	if fc.Sim != nil {
		if c.SimLatency == 0 {
			c.SimLatency = fc.Sim.Latency
		}
		if c.Keepalive == 0 {
			c.Keepalive = fc.Sim.Keepalive
		}
		if len(c.SimUsers) == 0 && len(fc.Sim.Users) > 0 {
			c.SimUsers = fc.Sim.Users
		}
	}

	if fc.Audio != nil {
		if c.Audio.SampleRate == 0 {
			c.Audio.SampleRate = fc.Audio.SampleRate
		}
		if c.Audio.Channels == 0 {
			c.Audio.Channels = fc.Audio.Channels
		}
		if c.Audio.FrameBuffer == 0 {
			c.Audio.FrameBuffer = fc.Audio.FrameBuffer
		}
	}
}

// CreateDefaultConfigFile creates a default config file at the user config directory
func CreateDefaultConfigFile() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, constants.AppName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	defaultConfig := `# spconsole configuration
# Location: ~/.config/spconsole/config.yaml
# Priority: command-line flags > SPCONSOLE_* environment > this file > defaults

# Session backend: "sim" (in-process) or "http" (REST service)
# backend: sim
# endpoint: http://localhost:8080
# request_timeout: 30s

# log:
#   level: warn      # debug, info, warn, error, none
#   format: text     # text or json
#   file: /var/log/spconsole/console.log   # rotated; stderr when unset
#   http: false      # log every backend request at debug

# console:
#   render: true           # render 'help' as markdown
#   backend_log: false     # start with 'log on'
#   drain_timeout: 10s     # wait for logout confirmation at exit
#   drain_interval: 1s
#   join_timeout: 2s       # wait for the input reader at exit
#   max_pump_iterations: 64
#   pump_yield: 10ms

# sim:
#   latency: 150ms
#   keepalive: 1s
#   users:
#     demo: demo

# audio:
#   sample_rate: 44100
#   channels: 2
#   frame_buffer: 2048
`

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
