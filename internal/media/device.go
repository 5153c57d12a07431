package media

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be opened.
	ErrDeviceUnavailable = errors.New("media: capture device unavailable")
)

// Format describes the PCM format of captured audio.
type Format struct {
	SampleRate int
	Channels   int
}

// Frame is one chunk of captured 16-bit PCM audio. Duration is the wall
// time the frame covers; metering advances by it, so a device is free to
// deliver frames faster than real time.
type Frame struct {
	Samples  []int16
	Duration time.Duration
}

// CaptureSession is a live capture. Frames is closed once the session
// stops; Err reports a mid-session failure after the channel closes.
type CaptureSession interface {
	Frames() <-chan Frame
	Stop()
	Err() error
}

// CaptureDevice opens capture sessions on the caller's microphone.
type CaptureDevice interface {
	Open(ctx context.Context, f Format) (CaptureSession, error)
}

// Cue identifies a short call-progress sound.
type Cue string

const (
	CueRingback Cue = "ringback"
	CueEndCall  Cue = "end_call"
)

// CuePlayer plays a progress cue. Play returns when the cue finishes or
// ctx is cancelled; cancellation stops playback immediately.
type CuePlayer interface {
	Play(ctx context.Context, cue Cue) error
}
