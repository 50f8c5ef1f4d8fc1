package audio

import (
	"errors"
	"testing"
)

func TestSink_Configure(t *testing.T) {
	sink := NewSink(DefaultDevice)

	tests := []struct {
		name    string
		format  Format
		want    Params
		wantErr error
	}{
		{
			name:   "cd quality stereo",
			format: Format{SampleRate: 44100, Channels: 2, FrameBuffer: 2048},
			want: Params{
				Device: "plughw:0,0", Format: SampleFormat, SampleRate: 44100,
				Channels: 2, PeriodSize: 4096, BufferSize: 16384,
			},
		},
		{
			name:   "mono",
			format: Format{SampleRate: 48000, Channels: 1, FrameBuffer: 512},
			want: Params{
				Device: "plughw:0,0", Format: SampleFormat, SampleRate: 48000,
				Channels: 1, PeriodSize: 512, BufferSize: 2048,
			},
		},
		{name: "rate not offered", format: Format{SampleRate: 44000, Channels: 2, FrameBuffer: 1024}, wantErr: ErrRateMismatch},
		{name: "too many channels", format: Format{SampleRate: 44100, Channels: 9, FrameBuffer: 1024}, wantErr: ErrChannels},
		{name: "period too small", format: Format{SampleRate: 44100, Channels: 1, FrameBuffer: 8}, wantErr: ErrPeriodSize},
		{name: "period too large", format: Format{SampleRate: 44100, Channels: 8, FrameBuffer: 1 << 14}, wantErr: ErrPeriodSize},
		{name: "zero rate", format: Format{Channels: 2, FrameBuffer: 1024}, wantErr: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sink.Configure(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Configure() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Configure() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Configure() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRateMismatchReportsNearest(t *testing.T) {
	_, err := NewSink(DefaultDevice).Configure(Format{SampleRate: 44000, Channels: 2, FrameBuffer: 1024})

	var rm *RateMismatchError
	if !errors.As(err, &rm) {
		t.Fatalf("Configure() error = %v, want *RateMismatchError", err)
	}
	if rm.Nearest != 44100 || rm.Requested != 44000 {
		t.Errorf("RateMismatchError = %+v", rm)
	}
}

func TestNearest(t *testing.T) {
	rates := []int{8000, 16000, 44100}
	tests := []struct {
		want, got int
	}{
		{12000, 8000},
		{12001, 16000},
		{40000, 44100},
		{1, 8000},
	}
	for _, tt := range tests {
		if got := nearest(rates, tt.want); got != tt.got {
			t.Errorf("nearest(%d) = %d, want %d", tt.want, got, tt.got)
		}
	}
	if got := nearest(nil, 44100); got != 0 {
		t.Errorf("nearest(nil) = %d, want 0", got)
	}
}
