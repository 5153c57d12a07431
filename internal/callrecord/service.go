package callrecord

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service manages per-party call history.
type Service struct {
	repo  Repository
	clock func() time.Time
}

// Repository abstracts history persistence.
//
// Append must be atomic per owner history; List returns most-recent-first.
type Repository interface {
	Append(ctx context.Context, rec CallRecord) error
	List(ctx context.Context, ownerPhone string) ([]CallRecord, error)
	MarkRead(ctx context.Context, ownerPhone, recordID string) error
}

var (
	ErrNotFound        = errors.New("callrecord: not found")
	ErrInvalidArgument = errors.New("callrecord: invalid argument")
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Append stores a record in the owner's history, assigning an ID if absent.
func (s *Service) Append(ctx context.Context, rec CallRecord) error {
	if rec.OwnerPhone == "" || rec.PeerNumber == "" {
		return ErrInvalidArgument
	}
	if rec.Direction != DirectionOutgoing && rec.Direction != DirectionIncoming {
		return ErrInvalidArgument
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusUnread
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.clock().UTC()
	}
	return s.repo.Append(ctx, rec)
}

// List returns the owner's history, most recent first.
func (s *Service) List(ctx context.Context, ownerPhone string) ([]CallRecord, error) {
	if ownerPhone == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, ownerPhone)
}

// MarkRead flips a record's status to read.
func (s *Service) MarkRead(ctx context.Context, ownerPhone, recordID string) error {
	if ownerPhone == "" || recordID == "" {
		return ErrInvalidArgument
	}
	return s.repo.MarkRead(ctx, ownerPhone, recordID)
}

// AppendHistory satisfies the call engine's history contract.
func (s *Service) AppendHistory(ctx context.Context, ownerPhone string, rec CallRecord) error {
	rec.OwnerPhone = ownerPhone
	return s.Append(ctx, rec)
}
