package callsession

// State models the call session lifecycle. Sessions move strictly forward;
// nothing transitions out of StateTerminated.
type State int32

const (
	StateDialing State = iota
	StateRinging
	StateConnected
	StateSettling
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateRinging:
		return "ringing"
	case StateConnected:
		return "connected"
	case StateSettling:
		return "settling"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TerminationCause indicates why a session ended. It is written exactly
// once, through the session's compare-and-set guard.
type TerminationCause int32

const (
	// CauseNone indicates no termination has occurred yet.
	CauseNone TerminationCause = iota
	// CauseExhausted indicates the caller's credit ran out mid-call.
	CauseExhausted
	// CauseUserHangup indicates a party hung up a connected call.
	CauseUserHangup
	// CauseUnanswered indicates the ring window expired without an answer.
	CauseUnanswered
	// CauseCancelledSelf indicates the caller gave up before an answer.
	CauseCancelledSelf
	// CauseRejected indicates the callee declined the ringing call.
	CauseRejected
	// CauseError indicates a device or internal failure.
	CauseError
)

func (c TerminationCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseExhausted:
		return "exhausted"
	case CauseUserHangup:
		return "user_hangup"
	case CauseUnanswered:
		return "unanswered"
	case CauseCancelledSelf:
		return "cancelled_self"
	case CauseRejected:
		return "rejected"
	case CauseError:
		return "error"
	default:
		return "unknown"
	}
}
