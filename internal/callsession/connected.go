package callsession

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// runConnected meters the call against the caller's credit while recording
// audio, until exhaustion or a hangup arrives, then settles exactly once.
//
// Two activities run concurrently: the billing monitor rides the capture
// channel's frame cadence and raises EXHAUSTED when the affordable window
// is used up; the hangup wait blocks on the hangup signal with a wall-clock
// backstop equal to that window, treated as EXHAUSTED when it fires. Both
// funnel through the session's compare-and-set guard, so whichever fires
// first wins and the other becomes a no-op. Exactly one debit follows.
func (c *Controller) runConnected(ctx context.Context, sess *Session) (settlement, []int16, error) {
	sess.setState(StateConnected)

	capture, err := c.device.Open(ctx, c.format)
	if err != nil {
		sess.claimTermination(CauseError)
		sess.setState(StateTerminated)
		return settlement{Cause: CauseError}, nil, fmt.Errorf("open capture device: %w", err)
	}

	maxAffordableSeconds := sess.CreditBudget / sess.RatePerSecond
	affordableWindow := time.Duration(maxAffordableSeconds) * time.Second

	terminated := make(chan struct{})
	var termOnce sync.Once
	finish := func(cause TerminationCause) {
		sess.claimTermination(cause)
		capture.Stop()
		termOnce.Do(func() { close(terminated) })
	}

	var wg sync.WaitGroup

	// Billing monitor: consumes frames, advances elapsed time, raises
	// exhaustion at the affordable boundary.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for frame := range capture.Frames() {
			if sess.appendAudio(frame) >= affordableWindow {
				finish(CauseExhausted)
				return
			}
		}
	}()

	// Hangup wait: a single blocking point with a bounded wall-clock wait.
	wg.Add(1)
	go func() {
		defer wg.Done()
		backstop := time.NewTimer(affordableWindow)
		defer backstop.Stop()
		select {
		case <-sess.hangupCh:
			finish(CauseUserHangup)
		case <-backstop.C:
			finish(CauseExhausted)
		case <-ctx.Done():
			finish(CauseUserHangup)
		case <-terminated:
		}
	}()

	wg.Wait()

	sess.setState(StateSettling)
	audio, elapsed := sess.snapshot()

	st := settlement{Cause: sess.Cause()}
	switch st.Cause {
	case CauseExhausted:
		st.DurationSeconds = int(maxAffordableSeconds)
		st.CostMinor = sess.CreditBudget
	case CauseUserHangup:
		st.DurationSeconds = int(elapsed / time.Second)
		st.CostMinor = sess.RatePerSecond * int64(st.DurationSeconds)
	}
	if st.CostMinor > sess.CreditBudget {
		st.CostMinor = sess.CreditBudget
	}
	st = sess.settle(st)

	if st.CostMinor > 0 {
		// Settlement must land even when the caller's request context died.
		if err := c.subscribers.DebitCredit(context.WithoutCancel(ctx), sess.Caller, st.CostMinor); err != nil {
			return st, audio, fmt.Errorf("debit call cost: %w", err)
		}
	}
	return st, audio, nil
}
