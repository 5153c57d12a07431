package callsession

import "errors"

var (
	ErrSelfCall        = errors.New("cannot call own number")
	ErrNoCredit        = errors.New("caller has no credit")
	ErrBadCalleeNumber = errors.New("callee number is malformed")
	ErrUnknownCallee   = errors.New("callee number is not assigned")
	ErrCallInProgress  = errors.New("caller already has an active call")
	ErrNoActiveCall    = errors.New("no active call for this subscriber")
)
