package callsession

import (
	"context"
	"errors"
	"time"

	"prepaid-telecom/internal/media"
)

type ringOutcome int

const (
	ringAnswered ringOutcome = iota
	ringUnanswered
	ringCancelled
	ringRejected
)

// runRing races ringback playback, the callee's answer signal, a hangup
// from either side and the ring timeout. The first event wins; playback is
// cancelled and joined before return so no cue bleeds into the connected
// phase. Ringback finishing on its own counts as no answer.
func (c *Controller) runRing(ctx context.Context, sess *Session) (ringOutcome, error) {
	sess.setState(StateRinging)

	cueCtx, cancelCue := context.WithCancel(ctx)
	defer cancelCue()

	cueDone := make(chan error, 1)
	go func() { cueDone <- c.cues.Play(cueCtx, media.CueRingback) }()

	timer := time.NewTimer(c.ringTimeout)
	defer timer.Stop()

	outcome := ringUnanswered
	cueFinished := false
	var waitErr error
	select {
	case <-sess.answerCh:
		outcome = ringAnswered
	case from := <-sess.hangupCh:
		outcome = ringCancelled
		if from == hangupByCallee {
			outcome = ringRejected
		}
	case err := <-cueDone:
		cueFinished = true
		c.logCueErr(sess, err)
	case <-timer.C:
	case <-ctx.Done():
		outcome = ringCancelled
		waitErr = ctx.Err()
	}

	cancelCue()
	if !cueFinished {
		c.logCueErr(sess, <-cueDone)
	}

	if outcome == ringAnswered {
		return ringAnswered, nil
	}
	// No connection: close out with the end-of-call cue, played to
	// completion unless the caller's context is already gone.
	if ctx.Err() == nil {
		if err := c.cues.Play(ctx, media.CueEndCall); err != nil && waitErr == nil {
			waitErr = err
		}
	}
	return outcome, waitErr
}

// logCueErr surfaces a ringback playback failure. Cancellation is the normal
// way playback ends and is not worth a log line.
func (c *Controller) logCueErr(sess *Session, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.log.Warn("ringback playback failed", "session_id", sess.ID, "err", err)
}
