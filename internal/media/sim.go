package media

import (
	"context"
	"sync"
	"time"
)

// SimulatedDevice emits silent frames on a fixed cadence. It stands in for
// real microphone hardware in development deployments.
type SimulatedDevice struct {
	// FrameDuration is the audio time covered by each frame. Defaults to 1s.
	FrameDuration time.Duration
	// OpenErr, when set, makes Open fail. Used to exercise device-failure paths.
	OpenErr error
}

func (d *SimulatedDevice) Open(ctx context.Context, f Format) (CaptureSession, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	step := d.FrameDuration
	if step <= 0 {
		step = time.Second
	}
	s := &simSession{
		frames: make(chan Frame),
		done:   make(chan struct{}),
	}
	go s.run(ctx, f, step)
	return s, nil
}

type simSession struct {
	frames   chan Frame
	done     chan struct{}
	stopOnce sync.Once
}

func (s *simSession) run(ctx context.Context, f Format, step time.Duration) {
	defer close(s.frames)
	tick := time.NewTicker(step)
	defer tick.Stop()
	samples := int(float64(f.SampleRate*f.Channels) * step.Seconds())
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-tick.C:
			frame := Frame{Samples: make([]int16, samples), Duration: step}
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *simSession) Frames() <-chan Frame { return s.frames }

func (s *simSession) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *simSession) Err() error { return nil }

// SimulatedCuePlayer blocks for a fixed duration per cue instead of driving
// a sound card. Unknown cues return immediately.
type SimulatedCuePlayer struct {
	Durations map[Cue]time.Duration
}

func (p *SimulatedCuePlayer) Play(ctx context.Context, cue Cue) error {
	d := p.Durations[cue]
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
