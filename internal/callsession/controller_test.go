package callsession

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"prepaid-telecom/internal/callrecord"
	"prepaid-telecom/internal/media"
	"prepaid-telecom/internal/subscriber"
)

const (
	callerPhone = "770000001"
	calleePhone = "780000002"
)

type fixedRater struct{ rate int64 }

func (r fixedRater) Rate(_ context.Context, _, _ string) (int64, error) { return r.rate, nil }

// countingCues tracks how often each cue was played, with configurable
// playback durations.
type countingCues struct {
	mu        sync.Mutex
	counts    map[media.Cue]int
	durations map[media.Cue]time.Duration
}

func (c *countingCues) Play(ctx context.Context, cue media.Cue) error {
	c.mu.Lock()
	if c.counts == nil {
		c.counts = make(map[media.Cue]int)
	}
	c.counts[cue]++
	d := c.durations[cue]
	c.mu.Unlock()
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

func (c *countingCues) count(cue media.Cue) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[cue]
}

// scriptedDevice delivers a fixed number of frames as fast as the consumer
// takes them, each reporting frameDur of call time, then runs afterFrames
// and waits for Stop.
type scriptedDevice struct {
	frames      int
	frameDur    time.Duration
	afterFrames func()
	openErr     error
}

func (d *scriptedDevice) Open(_ context.Context, _ media.Format) (media.CaptureSession, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &scriptedSession{frames: make(chan media.Frame), stop: make(chan struct{})}
	go func() {
		defer close(s.frames)
		for i := 0; i < d.frames; i++ {
			select {
			case s.frames <- media.Frame{Samples: make([]int16, 8), Duration: d.frameDur}:
			case <-s.stop:
				return
			}
		}
		if d.afterFrames != nil {
			d.afterFrames()
		}
		<-s.stop
	}()
	return s, nil
}

type scriptedSession struct {
	frames chan media.Frame
	stop   chan struct{}
	once   sync.Once
}

func (s *scriptedSession) Frames() <-chan media.Frame { return s.frames }
func (s *scriptedSession) Stop()                      { s.once.Do(func() { close(s.stop) }) }
func (s *scriptedSession) Err() error                 { return nil }

type fixture struct {
	repo      *subscriber.MemoryRepo
	subs      *subscriber.Service
	records   *callrecord.Service
	artifacts *media.MemoryArtifactStore
	cues      *countingCues
	ctrl      *Controller
}

func newFixture(t *testing.T, dev media.CaptureDevice, callerCredit int64, ringTimeout time.Duration, cueDurations map[media.Cue]time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()

	if cueDurations == nil {
		// Ringback outlasts the test by default so an explicit answer or
		// timeout decides the ring phase, never cue completion.
		cueDurations = map[media.Cue]time.Duration{media.CueRingback: time.Minute}
	}

	repo := subscriber.NewMemoryRepo()
	subs := subscriber.NewService(repo)
	for _, p := range []struct{ phone, pin string }{{callerPhone, "1111"}, {calleePhone, "2222"}} {
		if err := subs.Create(ctx, p.phone, p.pin); err != nil {
			t.Fatalf("create subscriber %s: %v", p.phone, err)
		}
	}
	if callerCredit > 0 {
		if err := subs.AddCredit(ctx, callerPhone, callerCredit); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}

	records := callrecord.NewService(callrecord.NewMemoryRepo())
	artifacts := &media.MemoryArtifactStore{}
	cues := &countingCues{durations: cueDurations}
	format := media.Format{SampleRate: 8000, Channels: 1}

	ctrl := NewController(ControllerOptions{
		Subscribers: subs,
		Rater:       fixedRater{rate: 2},
		Device:      dev,
		Cues:        cues,
		Writer:      NewRecordWriter(artifacts, format, subs, records),
		RingTimeout: ringTimeout,
		Format:      format,
		Clock:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	return &fixture{repo: repo, subs: subs, records: records, artifacts: artifacts, cues: cues, ctrl: ctrl}
}

// answerWhenRinging keeps signalling until the session accepts the answer.
func answerWhenRinging(ctrl *Controller, phone string) {
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if ctrl.Answer(phone) == nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func credit(t *testing.T, f *fixture, phone string) int64 {
	t.Helper()
	s, err := f.subs.GetByPhone(context.Background(), phone)
	if err != nil {
		t.Fatalf("get %s: %v", phone, err)
	}
	return s.CreditMinor
}

func historyOf(t *testing.T, f *fixture, phone string) []callrecord.CallRecord {
	t.Helper()
	recs, err := f.records.List(context.Background(), phone)
	if err != nil {
		t.Fatalf("list history %s: %v", phone, err)
	}
	return recs
}

func TestPlaceCallExhaustsCredit(t *testing.T) {
	// Credit 500 at rate 2 affords 250 seconds; the device offers 300.
	dev := &scriptedDevice{frames: 300, frameDur: time.Second}
	f := newFixture(t, dev, 500, time.Minute, nil)
	answerWhenRinging(f.ctrl, calleePhone)

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseExhausted {
		t.Fatalf("cause = %s, want exhausted", out.Cause)
	}
	if out.DurationSeconds != 250 {
		t.Fatalf("duration = %d, want 250", out.DurationSeconds)
	}
	if out.CostMinor != 500 {
		t.Fatalf("cost = %d, want 500", out.CostMinor)
	}
	if got := credit(t, f, callerPhone); got != 0 {
		t.Fatalf("caller credit after = %d, want 0", got)
	}

	callerRecs := historyOf(t, f, callerPhone)
	calleeRecs := historyOf(t, f, calleePhone)
	if len(callerRecs) != 1 || len(calleeRecs) != 1 {
		t.Fatalf("history lengths = %d/%d, want 1/1", len(callerRecs), len(calleeRecs))
	}
	cr, ce := callerRecs[0], calleeRecs[0]
	if cr.Direction != callrecord.DirectionOutgoing || ce.Direction != callrecord.DirectionIncoming {
		t.Fatalf("directions = %s/%s", cr.Direction, ce.Direction)
	}
	if cr.DurationSeconds != ce.DurationSeconds || cr.CostMinor != ce.CostMinor || !cr.Timestamp.Equal(ce.Timestamp) {
		t.Fatalf("records not symmetric: %+v vs %+v", cr, ce)
	}
	if cr.AudioArtifactRef == "" || cr.AudioArtifactRef != ce.AudioArtifactRef {
		t.Fatalf("artifact refs = %q/%q", cr.AudioArtifactRef, ce.AudioArtifactRef)
	}
	// Neither party has the other saved as a contact.
	if cr.PeerDisplayName != calleePhone {
		t.Fatalf("caller-side peer name = %q, want bare number", cr.PeerDisplayName)
	}
	if ce.PeerDisplayName != "unknown" {
		t.Fatalf("callee-side peer name = %q, want unknown", ce.PeerDisplayName)
	}
	if saved := f.artifacts.Saved(); len(saved) != 1 {
		t.Fatalf("artifacts saved = %d, want 1", len(saved))
	}
}

func TestPlaceCallUserHangup(t *testing.T) {
	var f *fixture
	dev := &scriptedDevice{frames: 100, frameDur: time.Second}
	dev.afterFrames = func() { f.ctrl.Hangup(callerPhone) }
	f = newFixture(t, dev, 500, time.Minute, nil)
	answerWhenRinging(f.ctrl, calleePhone)

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseUserHangup {
		t.Fatalf("cause = %s, want user_hangup", out.Cause)
	}
	if out.DurationSeconds != 100 {
		t.Fatalf("duration = %d, want 100", out.DurationSeconds)
	}
	if out.CostMinor != 200 {
		t.Fatalf("cost = %d, want 200", out.CostMinor)
	}
	if got := credit(t, f, callerPhone); got != 300 {
		t.Fatalf("caller credit after = %d, want 300", got)
	}
	if len(historyOf(t, f, callerPhone)) != 1 || len(historyOf(t, f, calleePhone)) != 1 {
		t.Fatal("expected one record per party")
	}
}

func TestPlaceCallUnanswered(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, 10*time.Millisecond, map[media.Cue]time.Duration{
		media.CueRingback: time.Minute, // keeps ringing past the timeout
	})

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseUnanswered {
		t.Fatalf("cause = %s, want unanswered", out.Cause)
	}
	if out.CostMinor != 0 || out.DurationSeconds != 0 {
		t.Fatalf("unanswered call billed: cost=%d duration=%d", out.CostMinor, out.DurationSeconds)
	}
	if got := credit(t, f, callerPhone); got != 500 {
		t.Fatalf("caller credit changed: %d", got)
	}
	if len(historyOf(t, f, callerPhone)) != 0 || len(historyOf(t, f, calleePhone)) != 0 {
		t.Fatal("unanswered call wrote history")
	}
	if got := f.cues.count(media.CueEndCall); got != 1 {
		t.Fatalf("end cue played %d times, want exactly 1", got)
	}
	if len(f.artifacts.Saved()) != 0 {
		t.Fatal("unanswered call saved an artifact")
	}
}

func TestPlaceCallRingbackFinishedCountsAsUnanswered(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, time.Minute, map[media.Cue]time.Duration{
		media.CueRingback: 5 * time.Millisecond,
	})
	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseUnanswered {
		t.Fatalf("cause = %s, want unanswered", out.Cause)
	}
}

func TestPlaceCallCancelledByCaller(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, time.Minute, map[media.Cue]time.Duration{
		media.CueRingback: time.Minute,
	})
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if f.ctrl.Hangup(callerPhone) == nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseCancelledSelf {
		t.Fatalf("cause = %s, want cancelled_self", out.Cause)
	}
	if got := credit(t, f, callerPhone); got != 500 {
		t.Fatalf("cancelled call billed: credit=%d", got)
	}
	if len(historyOf(t, f, callerPhone)) != 0 {
		t.Fatal("cancelled call wrote history")
	}
}

func TestPlaceCallRejectedByCallee(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, time.Minute, nil)
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if f.ctrl.Hangup(calleePhone) == nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseRejected {
		t.Fatalf("cause = %s, want rejected", out.Cause)
	}
	if got := credit(t, f, callerPhone); got != 500 {
		t.Fatalf("rejected call billed: credit=%d", got)
	}
	if len(historyOf(t, f, callerPhone)) != 0 || len(historyOf(t, f, calleePhone)) != 0 {
		t.Fatal("rejected call wrote history")
	}
	if got := f.cues.count(media.CueEndCall); got != 1 {
		t.Fatalf("end cue played %d times, want 1", got)
	}
}

// failingCues breaks ringback playback while leaving other cues intact.
type failingCues struct {
	countingCues
	ringbackErr error
}

func (c *failingCues) Play(ctx context.Context, cue media.Cue) error {
	if cue == media.CueRingback {
		return c.ringbackErr
	}
	return c.countingCues.Play(ctx, cue)
}

func TestPlaceCallRingbackFailureLoggedAsUnanswered(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, time.Minute, nil)

	var logBuf bytes.Buffer
	f.ctrl.log = slog.New(slog.NewTextHandler(&logBuf, nil))
	f.ctrl.cues = &failingCues{ringbackErr: errors.New("tone generator offline")}

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseUnanswered {
		t.Fatalf("cause = %s, want unanswered", out.Cause)
	}
	if got := credit(t, f, callerPhone); got != 500 {
		t.Fatalf("failed ringback billed: credit=%d", got)
	}
	if !strings.Contains(logBuf.String(), "ringback playback failed") {
		t.Fatalf("playback failure not logged: %q", logBuf.String())
	}
}

func TestPlaceCallPreflightRejections(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 0, time.Minute, nil) // caller has zero credit

	tests := []struct {
		name    string
		caller  string
		callee  string
		wantErr error
	}{
		{"self call", callerPhone, callerPhone, ErrSelfCall},
		{"malformed number", callerPhone, "1234", ErrBadCalleeNumber},
		{"no credit", callerPhone, calleePhone, ErrNoCredit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ctrl.PlaceCall(context.Background(), tt.caller, tt.callee); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Unknown callee needs a funded caller.
	funded := newFixture(t, dev, 100, time.Minute, nil)
	if _, err := funded.ctrl.PlaceCall(context.Background(), callerPhone, "790000099"); !errors.Is(err, ErrUnknownCallee) {
		t.Fatalf("err = %v, want ErrUnknownCallee", err)
	}
	if len(historyOf(t, funded, callerPhone)) != 0 {
		t.Fatal("rejected call wrote history")
	}
}

func TestPlaceCallDeviceFailure(t *testing.T) {
	dev := &scriptedDevice{openErr: media.ErrDeviceUnavailable}
	f := newFixture(t, dev, 500, time.Minute, nil)
	answerWhenRinging(f.ctrl, calleePhone)

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if !errors.Is(err, media.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want device unavailable", err)
	}
	if out.Cause != CauseError {
		t.Fatalf("cause = %s, want error", out.Cause)
	}
	if got := credit(t, f, callerPhone); got != 500 {
		t.Fatalf("failed call billed: credit=%d", got)
	}
	if len(historyOf(t, f, callerPhone)) != 0 || len(f.artifacts.Saved()) != 0 {
		t.Fatal("failed call wrote history or artifact")
	}
}

func TestPlaceCallSecondCallRejected(t *testing.T) {
	connected := make(chan struct{})
	var f *fixture
	dev := &scriptedDevice{afterFrames: func() { close(connected) }}
	f = newFixture(t, dev, 500, time.Minute, nil)
	answerWhenRinging(f.ctrl, calleePhone)

	type result struct {
		out CallOutcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
		done <- result{out, err}
	}()
	<-connected

	if _, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone); !errors.Is(err, ErrCallInProgress) {
		t.Fatalf("second call err = %v, want ErrCallInProgress", err)
	}

	if err := f.ctrl.Hangup(callerPhone); err != nil {
		t.Fatalf("hangup: %v", err)
	}
	res := <-done
	if res.err != nil {
		t.Fatalf("first call: %v", res.err)
	}
	if res.out.Cause != CauseUserHangup || res.out.CostMinor != 0 {
		t.Fatalf("first call outcome = %+v", res.out)
	}

	// Lock released: a fresh call passes pre-flight again.
	answerWhenRinging(f.ctrl, calleePhone)
	dev2 := &scriptedDevice{frames: 1, frameDur: time.Second}
	dev2.afterFrames = func() { f.ctrl.Hangup(callerPhone) }
	f.ctrl.device = dev2
	if _, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone); err != nil {
		t.Fatalf("call after release: %v", err)
	}
}

func TestAnswerRequiresRingingCallee(t *testing.T) {
	dev := &scriptedDevice{}
	f := newFixture(t, dev, 500, time.Minute, nil)
	if err := f.ctrl.Answer(calleePhone); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("answer with no call: %v", err)
	}
	if err := f.ctrl.Hangup(calleePhone); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("hangup with no call: %v", err)
	}
}

// Exhaustion and hangup firing together must settle exactly once. A double
// debit would drive the balance negative and fail the second store write.
func TestSimultaneousExhaustionAndHangup(t *testing.T) {
	var f *fixture
	// Credit 4 at rate 2 affords exactly the 2 seconds the device delivers,
	// and a hangup lands at the same instant the affordable window closes.
	dev := &scriptedDevice{frames: 2, frameDur: time.Second}
	dev.afterFrames = func() { f.ctrl.Hangup(callerPhone) }
	f = newFixture(t, dev, 4, time.Minute, nil)
	answerWhenRinging(f.ctrl, calleePhone)

	out, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone)
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if out.Cause != CauseExhausted && out.Cause != CauseUserHangup {
		t.Fatalf("cause = %s", out.Cause)
	}
	if out.CostMinor != 4 {
		t.Fatalf("cost = %d, want 4", out.CostMinor)
	}
	if got := credit(t, f, callerPhone); got != 0 {
		t.Fatalf("caller credit after = %d, want 0 (exactly one debit)", got)
	}
	if len(historyOf(t, f, callerPhone)) != 1 || len(historyOf(t, f, calleePhone)) != 1 {
		t.Fatal("expected exactly one record per party")
	}
}

func TestTerminationClaimIsExclusive(t *testing.T) {
	sess := newSession(callerPhone, calleePhone, 2, 500, time.Unix(0, 0))

	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, cause := range []TerminationCause{CauseExhausted, CauseUserHangup} {
		wg.Add(1)
		go func(c TerminationCause) {
			defer wg.Done()
			if sess.claimTermination(c) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(cause)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if sess.Cause() == CauseNone {
		t.Fatal("no cause recorded")
	}
}

func TestSettlementCachedOnFirstCall(t *testing.T) {
	sess := newSession(callerPhone, calleePhone, 2, 500, time.Unix(0, 0))
	first := sess.settle(settlement{Cause: CauseUserHangup, DurationSeconds: 100, CostMinor: 200})
	second := sess.settle(settlement{Cause: CauseExhausted, DurationSeconds: 250, CostMinor: 500})
	if first != second {
		t.Fatalf("settlement changed on retry: %+v vs %+v", first, second)
	}
	if second.CostMinor != 200 {
		t.Fatalf("cached cost = %d, want 200", second.CostMinor)
	}
}

func TestCallRecordNamesFromContactBooks(t *testing.T) {
	var f *fixture
	dev := &scriptedDevice{frames: 1, frameDur: time.Second}
	dev.afterFrames = func() { f.ctrl.Hangup(callerPhone) }
	f = newFixture(t, dev, 500, time.Minute, nil)

	// Caller knows the callee as "bureau"; callee knows the caller as "amine".
	f.repo.SetContacts(callerPhone, []subscriber.Contact{{Name: "bureau", Number: calleePhone}})
	f.repo.SetContacts(calleePhone, []subscriber.Contact{{Name: "amine", Number: callerPhone}})

	answerWhenRinging(f.ctrl, calleePhone)
	if _, err := f.ctrl.PlaceCall(context.Background(), callerPhone, calleePhone); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if got := historyOf(t, f, callerPhone)[0].PeerDisplayName; got != "bureau" {
		t.Fatalf("caller-side name = %q, want bureau", got)
	}
	if got := historyOf(t, f, calleePhone)[0].PeerDisplayName; got != "amine" {
		t.Fatalf("callee-side name = %q, want amine", got)
	}
}
