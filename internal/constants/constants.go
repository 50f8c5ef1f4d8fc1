// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// AppName names the binary, the config directory and the env prefix.
const AppName = "spconsole"

// Shutdown and main loop bounds
const (
	// DefaultDrainTimeout bounds the wait for logout confirmation at exit
	DefaultDrainTimeout = 10 * time.Second
	// DefaultDrainInterval is the event pump retry interval while draining
	DefaultDrainInterval = 1 * time.Second
	// DefaultJoinTimeout bounds the wait for the input goroutine at exit
	DefaultJoinTimeout = 2 * time.Second
	// DefaultMaxPumpIterations caps back-to-back zero-timeout pumps
	DefaultMaxPumpIterations = 64
	// DefaultPumpYield is waited after hitting DefaultMaxPumpIterations
	DefaultPumpYield = 10 * time.Millisecond
)

// Backend defaults
const (
	DefaultBackend        = "sim"
	DefaultRequestTimeout = 30 * time.Second
	DefaultKeepalive      = 1 * time.Second
	DefaultSimLatency     = 150 * time.Millisecond
	DefaultSimUser        = "demo"
	DefaultSimPassword    = "demo"
)

// Logging defaults
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Audio defaults
const (
	DefaultSampleRate  = 44100
	DefaultChannels    = 2
	DefaultFrameBuffer = 2048
)
