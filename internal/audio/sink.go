// Package audio negotiates playback parameters against a device's
// capabilities. It only computes the configuration; no samples are played.
package audio

import (
	"errors"
	"fmt"
)

// SampleFormat is the only PCM layout the sink negotiates.
const SampleFormat = "S16_LE"

// PeriodsPerBuffer is the ring buffer size in periods.
const PeriodsPerBuffer = 4

var (
	// ErrRateMismatch is returned when the device cannot play the exact
	// requested rate.
	ErrRateMismatch = errors.New("sample rate not supported")
	// ErrChannels is returned for a channel count the device cannot play.
	ErrChannels = errors.New("channel count not supported")
	// ErrPeriodSize is returned when the computed period is out of range.
	ErrPeriodSize = errors.New("period size not supported")
	// ErrInvalidFormat rejects non-positive format values.
	ErrInvalidFormat = errors.New("invalid audio format")
)

// RateMismatchError reports the nearest rate the device offered.
type RateMismatchError struct {
	Requested int
	Nearest   int
}

func (e *RateMismatchError) Error() string {
	return fmt.Sprintf("failed to set rate %d Hz, device offers %d Hz", e.Requested, e.Nearest)
}

func (e *RateMismatchError) Is(target error) bool { return target == ErrRateMismatch }

// Format describes the stream the caller wants to play.
type Format struct {
	SampleRate  int
	Channels    int
	FrameBuffer int
}

// Device describes what a playback device accepts.
type Device struct {
	Name        string
	Rates       []int
	MaxChannels int
	MinPeriod   int
	MaxPeriod   int
}

// DefaultDevice is a typical interleaved stereo output.
var DefaultDevice = Device{
	Name:        "plughw:0,0",
	Rates:       []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000},
	MaxChannels: 8,
	MinPeriod:   32,
	MaxPeriod:   1 << 16,
}

// Params is a negotiated configuration.
type Params struct {
	Device     string
	Format     string
	SampleRate int
	Channels   int
	PeriodSize int
	BufferSize int
}

// Sink configures a device.
type Sink struct {
	device Device
}

// NewSink returns a sink for d.
func NewSink(d Device) *Sink {
	return &Sink{device: d}
}

// Configure negotiates f against the device. The rate must be matched
// exactly; the period holds one frame buffer for every channel and the
// buffer holds PeriodsPerBuffer periods.
func (s *Sink) Configure(f Format) (Params, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.FrameBuffer <= 0 {
		return Params{}, fmt.Errorf("%w: %+v", ErrInvalidFormat, f)
	}

	rate := nearest(s.device.Rates, f.SampleRate)
	if rate != f.SampleRate {
		return Params{}, &RateMismatchError{Requested: f.SampleRate, Nearest: rate}
	}

	if f.Channels > s.device.MaxChannels {
		return Params{}, fmt.Errorf("%w: %d > %d", ErrChannels, f.Channels, s.device.MaxChannels)
	}

	period := f.Channels * f.FrameBuffer
	if period < s.device.MinPeriod || period > s.device.MaxPeriod {
		return Params{}, fmt.Errorf("%w: %d outside [%d, %d]", ErrPeriodSize, period, s.device.MinPeriod, s.device.MaxPeriod)
	}

	return Params{
		Device:     s.device.Name,
		Format:     SampleFormat,
		SampleRate: rate,
		Channels:   f.Channels,
		PeriodSize: period,
		BufferSize: period * PeriodsPerBuffer,
	}, nil
}

// nearest returns the supported rate closest to want; ties go to the lower
// rate. It returns 0 when rates is empty.
func nearest(rates []int, want int) int {
	best := 0
	for _, r := range rates {
		if best == 0 || abs(r-want) < abs(best-want) || (abs(r-want) == abs(best-want) && r < best) {
			best = r
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
