package callsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prepaid-telecom/internal/media"
	"prepaid-telecom/internal/subscriber"
)

// SubscriberStore is the slice of the subscriber service the engine consumes.
type SubscriberStore interface {
	GetByPhone(ctx context.Context, phone string) (subscriber.Subscriber, error)
	DebitCredit(ctx context.Context, phone string, amountMinor int64) error
}

// Rater resolves the immutable per-second price for a call.
type Rater interface {
	Rate(ctx context.Context, numberA, numberB string) (int64, error)
}

// CallOutcome is what PlaceCall reports back to the API layer.
type CallOutcome struct {
	Cause           TerminationCause `json:"-"`
	CauseLabel      string           `json:"cause"`
	DurationSeconds int              `json:"duration_seconds"`
	CostMinor       int64            `json:"cost_minor"`
	ArtifactRef     string           `json:"artifact_ref,omitempty"`
}

// ControllerOptions wires the controller's collaborators. Lock, Log, Clock
// and RingTimeout default when zero.
type ControllerOptions struct {
	Subscribers SubscriberStore
	Rater       Rater
	Device      media.CaptureDevice
	Cues        media.CuePlayer
	Writer      *RecordWriter
	Lock        CallLock
	Log         *slog.Logger
	RingTimeout time.Duration
	Format      media.Format
	Clock       func() time.Time
}

// Controller sequences a call through ring, connected and record-writing
// phases. It is the sole entry point for placing calls and the registry the
// answer/hangup endpoints signal through.
type Controller struct {
	subscribers SubscriberStore
	rater       Rater
	device      media.CaptureDevice
	cues        media.CuePlayer
	writer      *RecordWriter
	lock        CallLock
	log         *slog.Logger
	clock       func() time.Time
	ringTimeout time.Duration
	format      media.Format

	mu     sync.Mutex
	active map[string]*Session
}

func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		subscribers: opts.Subscribers,
		rater:       opts.Rater,
		device:      opts.Device,
		cues:        opts.Cues,
		writer:      opts.Writer,
		lock:        opts.Lock,
		log:         opts.Log,
		clock:       opts.Clock,
		ringTimeout: opts.RingTimeout,
		format:      opts.Format,
		active:      make(map[string]*Session),
	}
	if c.lock == nil {
		c.lock = NewMemoryCallLock()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.ringTimeout <= 0 {
		c.ringTimeout = 20 * time.Second
	}
	return c
}

// PlaceCall runs one outgoing call end to end and blocks until it settles.
// Pre-flight rejections carry distinct sentinels and create no session.
func (c *Controller) PlaceCall(ctx context.Context, caller, calleeNumber string) (CallOutcome, error) {
	if caller == calleeNumber {
		return CallOutcome{}, ErrSelfCall
	}
	if err := subscriber.ValidatePhone(calleeNumber); err != nil {
		return CallOutcome{}, ErrBadCalleeNumber
	}
	callerRec, err := c.subscribers.GetByPhone(ctx, caller)
	if err != nil {
		return CallOutcome{}, fmt.Errorf("load caller: %w", err)
	}
	if callerRec.CreditMinor <= 0 {
		return CallOutcome{}, ErrNoCredit
	}
	if _, err := c.subscribers.GetByPhone(ctx, calleeNumber); err != nil {
		if errors.Is(err, subscriber.ErrNotFound) {
			return CallOutcome{}, ErrUnknownCallee
		}
		return CallOutcome{}, fmt.Errorf("load callee: %w", err)
	}

	ok, err := c.lock.Acquire(ctx, caller)
	if err != nil {
		return CallOutcome{}, fmt.Errorf("acquire call lock: %w", err)
	}
	if !ok {
		return CallOutcome{}, ErrCallInProgress
	}
	defer func() {
		if err := c.lock.Release(context.WithoutCancel(ctx), caller); err != nil {
			c.log.Error("call lock release failed", "caller", caller, "err", err)
		}
	}()

	rate, err := c.rater.Rate(ctx, caller, calleeNumber)
	if err != nil {
		return CallOutcome{}, fmt.Errorf("resolve rate: %w", err)
	}

	sess := newSession(caller, calleeNumber, rate, callerRec.CreditMinor, c.clock())
	c.register(sess)
	defer c.unregister(sess)
	c.log.Info("call dialing",
		"session_id", sess.ID, "caller", caller, "callee", calleeNumber, "rate", rate)

	ring, err := c.runRing(ctx, sess)
	if ring != ringAnswered {
		cause := CauseUnanswered
		switch ring {
		case ringCancelled:
			cause = CauseCancelledSelf
		case ringRejected:
			cause = CauseRejected
		}
		sess.claimTermination(cause)
		sess.setState(StateTerminated)
		c.log.Info("call not connected", "session_id", sess.ID, "cause", sess.Cause().String())
		return c.outcome(sess.Cause(), settlement{}, ""), err
	}

	st, _, err := c.runConnected(ctx, sess)
	if st.Cause == CauseError {
		return c.outcome(CauseError, settlement{}, ""), err
	}
	if err != nil {
		// The debit failed; surface it with whatever was arbitrated.
		return c.outcome(st.Cause, st, ""), err
	}

	ref, werr := c.writer.Commit(context.WithoutCancel(ctx), sess, st)
	sess.setState(StateTerminated)
	out := c.outcome(st.Cause, st, ref)
	if werr != nil {
		return out, werr
	}
	c.log.Info("call settled",
		"session_id", sess.ID, "cause", st.Cause.String(),
		"duration_s", st.DurationSeconds, "cost_minor", st.CostMinor)
	return out, nil
}

// Answer signals the ringing session that phone is the callee of.
func (c *Controller) Answer(phone string) error {
	sess := c.lookup(phone)
	if sess == nil || sess.Callee != phone || sess.State() != StateRinging {
		return ErrNoActiveCall
	}
	sess.SignalAnswer()
	return nil
}

// Hangup signals the active session phone participates in. While ringing, a
// caller hangup cancels the call and a callee hangup rejects it; once
// connected either side ends the call.
func (c *Controller) Hangup(phone string) error {
	sess := c.lookup(phone)
	if sess == nil {
		return ErrNoActiveCall
	}
	from := hangupByCallee
	if phone == sess.Caller {
		from = hangupByCaller
	}
	sess.SignalHangup(from)
	return nil
}

func (c *Controller) outcome(cause TerminationCause, st settlement, ref string) CallOutcome {
	return CallOutcome{
		Cause:           cause,
		CauseLabel:      cause.String(),
		DurationSeconds: st.DurationSeconds,
		CostMinor:       st.CostMinor,
		ArtifactRef:     ref,
	}
}

func (c *Controller) register(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[sess.Caller] = sess
	if _, busy := c.active[sess.Callee]; !busy {
		c.active[sess.Callee] = sess
	}
}

func (c *Controller) unregister(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[sess.Caller] == sess {
		delete(c.active, sess.Caller)
	}
	if c.active[sess.Callee] == sess {
		delete(c.active, sess.Callee)
	}
}

func (c *Controller) lookup(phone string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[phone]
}
