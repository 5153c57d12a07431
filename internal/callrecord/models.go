package callrecord

import "time"

// CallRecord is one party's view of a completed call, kept in that party's
// history most-recent-first.
//
// Immutability: records are append-only; only Status may change, when the
// history viewer marks an entry read.
//
// Pairing invariant: a completed connected call produces exactly two records,
// one per party, sharing DurationSeconds, CostMinor, Timestamp and
// AudioArtifactRef, with opposite directions.
type CallRecord struct {
	ID         string `json:"id" db:"id"`
	OwnerPhone string `json:"-" db:"owner_phone"`

	Direction Direction `json:"direction" db:"direction"`

	PeerNumber string `json:"peer_number" db:"peer_number"`
	// PeerDisplayName is the owner's contact-book name for the peer,
	// falling back to the bare number (outgoing) or "unknown" (incoming).
	PeerDisplayName string `json:"peer_display_name" db:"peer_display_name"`

	Status Status `json:"status" db:"status"`

	DurationSeconds int   `json:"duration_seconds" db:"duration_seconds"`
	CostMinor       int64 `json:"cost_minor" db:"cost_minor"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// AudioArtifactRef points at the recorded-audio artifact shared by both
	// parties' records.
	AudioArtifactRef string `json:"audio_artifact_ref" db:"audio_artifact_ref"`
}

type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)
