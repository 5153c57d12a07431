package callsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prepaid-telecom/internal/callrecord"
	"prepaid-telecom/internal/media"
	"prepaid-telecom/internal/subscriber"
)

// unknownCallerName is shown on the callee's record when the caller is not
// in the callee's contact book.
const unknownCallerName = "unknown"

// HistoryAppender appends finished-call records to a party's history.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, ownerPhone string, rec callrecord.CallRecord) error
}

// RecordWriter persists the audio artifact of a finished connected call and
// appends the two symmetric history entries.
type RecordWriter struct {
	artifacts   media.ArtifactStore
	format      media.Format
	subscribers SubscriberStore
	history     HistoryAppender
}

func NewRecordWriter(artifacts media.ArtifactStore, format media.Format, subscribers SubscriberStore, history HistoryAppender) *RecordWriter {
	return &RecordWriter{artifacts: artifacts, format: format, subscribers: subscribers, history: history}
}

// Commit writes the recording and appends one record per party. Both
// records share duration, cost, timestamp and artifact reference, with
// opposite directions. Display names come from each recipient's own contact
// book: the caller's view falls back to the bare number, the callee's view
// of an uncontacted caller reads "unknown". A missing callee record skips
// the callee-side append without failing the caller-side write.
func (w *RecordWriter) Commit(ctx context.Context, sess *Session, st settlement) (string, error) {
	audio, _ := sess.snapshot()
	ref, err := w.artifacts.SaveCallAudio(sess.Caller, sess.Callee, sess.StartedAt, w.format, audio)
	if err != nil {
		return "", fmt.Errorf("save call audio: %w", err)
	}

	caller, err := w.subscribers.GetByPhone(ctx, sess.Caller)
	if err != nil {
		return ref, fmt.Errorf("load caller for history: %w", err)
	}
	calleeName := caller.ContactName(sess.Callee)
	if calleeName == "" {
		calleeName = sess.Callee
	}
	out := w.record(callrecord.DirectionOutgoing, sess.Callee, calleeName, st, sess.StartedAt, ref)
	if err := w.history.AppendHistory(ctx, sess.Caller, out); err != nil {
		return ref, fmt.Errorf("append caller history: %w", err)
	}

	callee, err := w.subscribers.GetByPhone(ctx, sess.Callee)
	if err != nil {
		if errors.Is(err, subscriber.ErrNotFound) {
			// Callee record gone mid-call: the caller-side write stands.
			return ref, nil
		}
		return ref, fmt.Errorf("load callee for history: %w", err)
	}
	callerName := callee.ContactName(sess.Caller)
	if callerName == "" {
		callerName = unknownCallerName
	}
	in := w.record(callrecord.DirectionIncoming, sess.Caller, callerName, st, sess.StartedAt, ref)
	if err := w.history.AppendHistory(ctx, sess.Callee, in); err != nil {
		return ref, fmt.Errorf("append callee history: %w", err)
	}
	return ref, nil
}

func (w *RecordWriter) record(dir callrecord.Direction, peer, peerName string, st settlement, at time.Time, ref string) callrecord.CallRecord {
	return callrecord.CallRecord{
		Direction:        dir,
		PeerNumber:       peer,
		PeerDisplayName:  peerName,
		DurationSeconds:  st.DurationSeconds,
		CostMinor:        st.CostMinor,
		Timestamp:        at,
		AudioArtifactRef: ref,
	}
}
