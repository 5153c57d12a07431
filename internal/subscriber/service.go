package subscriber

import (
	"context"
	"errors"
	"time"
)

// Service provides subscriber record operations.
//
// Money invariants:
//   - CreditMinor never goes below zero.
//   - Debits are applied as a single conditional update at the store; the
//     repository rejects a debit that would overdraw.
type Service struct {
	repo  Repository
	clock func() time.Time
}

// Repository abstracts subscriber persistence.
type Repository interface {
	GetByPhone(ctx context.Context, phone string) (Subscriber, bool, error)
	Insert(ctx context.Context, s Subscriber) error
	// ApplyCreditDelta adjusts the balance by delta (negative for debits).
	// Implementations must reject a delta that would make the balance negative
	// with ErrInsufficientCredit.
	ApplyCreditDelta(ctx context.Context, phone string, delta int64, now time.Time) error
	CountByPrefix(ctx context.Context, prefix string) (int, error)
}

var (
	ErrNotFound           = errors.New("subscriber: not found")
	ErrInvalidArgument    = errors.New("subscriber: invalid argument")
	ErrPhoneTaken         = errors.New("subscriber: phone already assigned")
	ErrBadPIN             = errors.New("subscriber: incorrect PIN")
	ErrInsufficientCredit = errors.New("subscriber: insufficient credit")
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create registers a new subscriber with zero credit.
func (s *Service) Create(ctx context.Context, phone, pin string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if _, ok, err := s.repo.GetByPhone(ctx, phone); err != nil {
		return err
	} else if ok {
		return ErrPhoneTaken
	}
	now := s.clock().UTC()
	return s.repo.Insert(ctx, Subscriber{
		Phone:     phone,
		PIN:       pin,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetByPhone fetches a subscriber record.
func (s *Service) GetByPhone(ctx context.Context, phone string) (Subscriber, error) {
	sub, ok, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return Subscriber{}, err
	}
	if !ok {
		return Subscriber{}, ErrNotFound
	}
	return sub, nil
}

// VerifyPIN authenticates a subscriber by phone and PIN.
func (s *Service) VerifyPIN(ctx context.Context, phone, pin string) (Subscriber, error) {
	sub, err := s.GetByPhone(ctx, phone)
	if err != nil {
		return Subscriber{}, err
	}
	if sub.PIN != pin {
		return Subscriber{}, ErrBadPIN
	}
	return sub, nil
}

// AddCredit tops up a subscriber's balance.
func (s *Service) AddCredit(ctx context.Context, phone string, amountMinor int64) error {
	if amountMinor <= 0 {
		return ErrInvalidArgument
	}
	if _, ok, err := s.repo.GetByPhone(ctx, phone); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	return s.repo.ApplyCreditDelta(ctx, phone, amountMinor, s.clock().UTC())
}

// DebitCredit charges a subscriber. The store enforces the non-negative bound.
func (s *Service) DebitCredit(ctx context.Context, phone string, amountMinor int64) error {
	if amountMinor < 0 {
		return ErrInvalidArgument
	}
	if amountMinor == 0 {
		return nil
	}
	if _, ok, err := s.repo.GetByPhone(ctx, phone); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	return s.repo.ApplyCreditDelta(ctx, phone, -amountMinor, s.clock().UTC())
}

// CountByPrefix reports how many subscribers hold numbers with the prefix.
// Used by the operator directory to guard index removal.
func (s *Service) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	return s.repo.CountByPrefix(ctx, prefix)
}

// CreateSubscriber satisfies the operator directory's number-sale contract.
func (s *Service) CreateSubscriber(ctx context.Context, phone, pin string) error {
	return s.Create(ctx, phone, pin)
}
