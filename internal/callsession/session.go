package callsession

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"prepaid-telecom/internal/media"
)

// Session is the transient state of one outgoing call. The controller owns
// it for the session's lifetime and discards it once the record writer
// commits.
type Session struct {
	ID     string
	Caller string
	Callee string

	// RatePerSecond is resolved once at dial time and immutable after.
	RatePerSecond int64
	// CreditBudget snapshots the caller's balance at dial time. The
	// settlement debit never exceeds it.
	CreditBudget int64

	StartedAt time.Time

	state atomic.Int32
	cause atomic.Int32

	answerCh chan struct{}
	hangupCh chan hangupOrigin

	mu      sync.Mutex
	audio   []int16
	elapsed time.Duration

	settleOnce sync.Once
	settled    settlement
}

// settlement is the cached result of the single arbitration step: the
// accepted cause, the billed duration and the final cost.
type settlement struct {
	Cause           TerminationCause
	DurationSeconds int
	CostMinor       int64
}

func newSession(caller, callee string, rate, budget int64, startedAt time.Time) *Session {
	s := &Session{
		ID:            uuid.NewString(),
		Caller:        caller,
		Callee:        callee,
		RatePerSecond: rate,
		CreditBudget:  budget,
		StartedAt:     startedAt,
		answerCh:      make(chan struct{}, 1),
		hangupCh:      make(chan hangupOrigin, 1),
	}
	s.state.Store(int32(StateDialing))
	return s
}

func (s *Session) State() State            { return State(s.state.Load()) }
func (s *Session) setState(st State)       { s.state.Store(int32(st)) }
func (s *Session) Cause() TerminationCause { return TerminationCause(s.cause.Load()) }

// claimTermination is the settlement guard shared by every concurrent
// activity: the first caller to move the cause off CauseNone wins, and
// every later attempt is a no-op. Exactly one winner exists per session.
func (s *Session) claimTermination(c TerminationCause) bool {
	return s.cause.CompareAndSwap(int32(CauseNone), int32(c))
}

// SignalAnswer delivers the callee's answer. The slot holds one pending
// signal; duplicates are dropped.
func (s *Session) SignalAnswer() {
	select {
	case s.answerCh <- struct{}{}:
	default:
	}
}

// hangupOrigin records which side of the call asked to end it. During the
// ring phase the origin decides between a cancel and a rejection; once
// connected both sides end the call the same way.
type hangupOrigin int

const (
	hangupByCaller hangupOrigin = iota
	hangupByCallee
)

// SignalHangup delivers a hangup request from either party.
func (s *Session) SignalHangup(from hangupOrigin) {
	select {
	case s.hangupCh <- from:
	default:
	}
}

// appendAudio accumulates a captured frame and returns the total elapsed
// call time. Elapsed advances by the frame's own duration, not wall time,
// so metering follows the device cadence.
func (s *Session) appendAudio(f media.Frame) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, f.Samples...)
	s.elapsed += f.Duration
	return s.elapsed
}

// snapshot hands out the accumulated audio and elapsed time. Called once
// capture has stopped; ownership of the buffer moves to the record writer.
func (s *Session) snapshot() ([]int16, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio, s.elapsed
}

// settle caches the settlement on first call and returns the cached value
// on every call after, so re-running the transition cannot change what is
// owed.
func (s *Session) settle(st settlement) settlement {
	s.settleOnce.Do(func() { s.settled = st })
	return s.settled
}
