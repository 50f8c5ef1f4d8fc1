package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quocvuong92/spconsole/internal/constants"
)

// Environment variable names
const (
	EnvBackend        = "SPCONSOLE_BACKEND"
	EnvEndpoint       = "SPCONSOLE_ENDPOINT"
	EnvRequestTimeout = "SPCONSOLE_REQUEST_TIMEOUT"

	EnvLogLevel  = "SPCONSOLE_LOG_LEVEL"
	EnvLogFormat = "SPCONSOLE_LOG_FORMAT"
	EnvLogFile   = "SPCONSOLE_LOG_FILE"

	EnvDrainTimeout = "SPCONSOLE_DRAIN_TIMEOUT"
	EnvJoinTimeout  = "SPCONSOLE_JOIN_TIMEOUT"

	// EnvSimUsers is a comma-separated list of user:password pairs
	EnvSimUsers   = "SPCONSOLE_SIM_USERS"
	EnvSimLatency = "SPCONSOLE_SIM_LATENCY"
)

// Supported backends
const (
	BackendSim  = "sim"
	BackendHTTP = "http"
)

// Defaults - re-exported from constants for convenience
const (
	DefaultBackend           = constants.DefaultBackend
	DefaultLogLevel          = constants.DefaultLogLevel
	DefaultLogFormat         = constants.DefaultLogFormat
	DefaultDrainTimeout      = constants.DefaultDrainTimeout
	DefaultDrainInterval     = constants.DefaultDrainInterval
	DefaultJoinTimeout       = constants.DefaultJoinTimeout
	DefaultMaxPumpIterations = constants.DefaultMaxPumpIterations
	DefaultPumpYield         = constants.DefaultPumpYield
	DefaultRequestTimeout    = constants.DefaultRequestTimeout
	DefaultKeepalive         = constants.DefaultKeepalive
	DefaultSimLatency        = constants.DefaultSimLatency
)

// Errors
var (
	ErrInvalidBackend   = errors.New("invalid backend. Use 'sim' or 'http'")
	ErrEndpointNotFound = errors.New("http backend requires an endpoint. Set SPCONSOLE_ENDPOINT or use --endpoint")
	ErrInvalidLogFormat = errors.New("invalid log format. Use 'text' or 'json'")
	ErrInvalidDuration  = errors.New("durations must not be negative")
	ErrInvalidAudio     = errors.New("audio sample rate, channels and frame buffer must be positive")
)

// AudioConfig holds the playback format negotiated at startup
type AudioConfig struct {
	SampleRate  int
	Channels    int
	FrameBuffer int
}

// Config holds the application configuration
type Config struct {
	// Backend selection
	Backend        string // "sim" or "http"
	Endpoint       string
	RequestTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
	LogFile   string // empty logs to stderr
	LogHTTP   bool

	// Console behaviour
	Render     bool // render help as markdown
	BackendLog bool // initial state of the 'log' toggle

	// Main loop and shutdown bounds
	DrainTimeout      time.Duration
	DrainInterval     time.Duration
	JoinTimeout       time.Duration
	MaxPumpIterations int
	PumpYield         time.Duration

	// Simulated backend
	SimLatency time.Duration
	Keepalive  time.Duration
	SimUsers   map[string]string

	Audio AudioConfig
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{}
}

// Validate loads unset values from the environment, then the config file,
// then the built-in defaults, and checks the result. Values already set
// (by flags) are never overwritten.
func (c *Config) Validate() error {
	if err := c.applyEnv(); err != nil {
		return err
	}

	fileConfig, err := LoadConfigFile()
	if err != nil {
		return err
	}
	c.ApplyFileConfig(fileConfig)

	c.applyDefaults()

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend != BackendSim && c.Backend != BackendHTTP {
		return ErrInvalidBackend
	}
	c.Endpoint = strings.TrimSuffix(strings.TrimSpace(c.Endpoint), "/")
	if c.Backend == BackendHTTP && c.Endpoint == "" {
		return ErrEndpointNotFound
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}

	for _, d := range []time.Duration{
		c.RequestTimeout, c.DrainTimeout, c.DrainInterval, c.JoinTimeout,
		c.PumpYield, c.SimLatency, c.Keepalive,
	} {
		if d < 0 {
			return ErrInvalidDuration
		}
	}
	if c.MaxPumpIterations < 0 {
		return fmt.Errorf("max pump iterations must not be negative: %d", c.MaxPumpIterations)
	}

	if c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0 || c.Audio.FrameBuffer <= 0 {
		return ErrInvalidAudio
	}

	return nil
}

func (c *Config) applyEnv() error {
	if c.Backend == "" {
		c.Backend = os.Getenv(EnvBackend)
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv(EnvEndpoint)
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv(EnvLogLevel)
	}
	if c.LogFormat == "" {
		c.LogFormat = os.Getenv(EnvLogFormat)
	}
	if c.LogFile == "" {
		c.LogFile = os.Getenv(EnvLogFile)
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvRequestTimeout, &c.RequestTimeout},
		{EnvDrainTimeout, &c.DrainTimeout},
		{EnvJoinTimeout, &c.JoinTimeout},
		{EnvSimLatency, &c.SimLatency},
	}
	for _, d := range durations {
		if *d.dst != 0 {
			continue
		}
		v, err := durationFromEnv(d.env)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	if len(c.SimUsers) == 0 {
		users, err := ParseUsers(os.Getenv(EnvSimUsers))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSimUsers, err)
		}
		c.SimUsers = users
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.DrainInterval == 0 {
		c.DrainInterval = DefaultDrainInterval
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.MaxPumpIterations == 0 {
		c.MaxPumpIterations = DefaultMaxPumpIterations
	}
	if c.PumpYield == 0 {
		c.PumpYield = DefaultPumpYield
	}
	if c.SimLatency == 0 {
		c.SimLatency = DefaultSimLatency
	}
	if c.Keepalive == 0 {
		c.Keepalive = DefaultKeepalive
	}
	if len(c.SimUsers) == 0 {
		c.SimUsers = map[string]string{constants.DefaultSimUser: constants.DefaultSimPassword}
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = constants.DefaultSampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = constants.DefaultChannels
	}
	if c.Audio.FrameBuffer == 0 {
		c.Audio.FrameBuffer = constants.DefaultFrameBuffer
	}
}

// durationFromEnv parses a Go duration ("10s") or a bare number of
// milliseconds.
func durationFromEnv(env string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return 0, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	return d, nil
}

// ParseUsers parses "user:pass,user2:pass2". Empty input yields nil.
func ParseUsers(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	users := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, pass, ok := strings.Cut(pair, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("expected user:password, got %q", pair)
		}
		users[user] = pass
	}
	return users, nil
}

// IsHTTP reports whether the REST backend is selected
func (c *Config) IsHTTP() bool {
	return c.Backend == BackendHTTP
}
