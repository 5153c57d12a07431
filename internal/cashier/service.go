package cashier

import (
	"context"
	"errors"
	"time"

	"prepaid-telecom/internal/operator"

	"github.com/google/uuid"
)

// Service sells prepaid credit and reports cash state.
//
// A sale is two effects: the subscriber top-up and the cashier ledger entry.
// The ledger is the source of truth for cash state; idempotency keys make
// retried sales safe.
type Service struct {
	repo      Repository
	credits   CreditAdder
	directory OperatorResolver
	clock     func() time.Time
}

// Repository abstracts ledger persistence. Append-only.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	FindByIdempotencyKey(ctx context.Context, managerName, key string) (Entry, bool, error)
	// ListSince returns a manager's entries created at or after from.
	ListSince(ctx context.Context, managerName string, from time.Time) ([]Entry, error)
}

// CreditAdder is the subscriber-store view needed to apply a top-up.
type CreditAdder interface {
	AddCredit(ctx context.Context, phone string, amountMinor int64) error
}

// OperatorResolver maps a phone number to its operator for ledger attribution.
type OperatorResolver interface {
	ResolveByPhone(ctx context.Context, phone string) (operator.Operator, bool, error)
}

var (
	ErrInvalidArgument = errors.New("cashier: invalid argument")
	ErrAmountBelowMin  = errors.New("cashier: amount below minimum sale")
	ErrUnknownOperator = errors.New("cashier: no operator for number prefix")
)

func NewService(repo Repository, credits CreditAdder, directory OperatorResolver) *Service {
	return &Service{repo: repo, credits: credits, directory: directory, clock: time.Now}
}

type SaleRequest struct {
	SubscriberPhone string `json:"subscriber_phone"`
	AmountMinor     int64  `json:"amount_minor"`
	IdempotencyKey  string `json:"idempotency_key"`
}

// SellCredit tops up a subscriber and records the sale under the manager's
// cash ledger, attributed to the operator owning the number's prefix.
func (s *Service) SellCredit(ctx context.Context, managerName string, req SaleRequest) (Entry, error) {
	if managerName == "" || req.SubscriberPhone == "" || req.IdempotencyKey == "" {
		return Entry{}, ErrInvalidArgument
	}
	if req.AmountMinor < MinSaleAmountMinor {
		return Entry{}, ErrAmountBelowMin
	}

	if existing, ok, err := s.repo.FindByIdempotencyKey(ctx, managerName, req.IdempotencyKey); err != nil {
		return Entry{}, err
	} else if ok {
		return existing, nil
	}

	op, ok, err := s.directory.ResolveByPhone(ctx, req.SubscriberPhone)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrUnknownOperator
	}

	if err := s.credits.AddCredit(ctx, req.SubscriberPhone, req.AmountMinor); err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:              uuid.NewString(),
		ManagerName:     managerName,
		OperatorName:    op.Name,
		SubscriberPhone: req.SubscriberPhone,
		AmountMinor:     req.AmountMinor,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// CashState aggregates a manager's sales per operator over the current day,
// month and year.
func (s *Service) CashState(ctx context.Context, managerName string) ([]OperatorTotals, error) {
	if managerName == "" {
		return nil, ErrInvalidArgument
	}

	now := s.clock().UTC()
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	entries, err := s.repo.ListSince(ctx, managerName, yearStart)
	if err != nil {
		return nil, err
	}

	byOp := map[string]*OperatorTotals{}
	var order []string
	for _, e := range entries {
		totals, ok := byOp[e.OperatorName]
		if !ok {
			totals = &OperatorTotals{OperatorName: e.OperatorName}
			byOp[e.OperatorName] = totals
			order = append(order, e.OperatorName)
		}
		totals.YearlyMinor += e.AmountMinor
		if !e.CreatedAt.Before(monthStart) {
			totals.MonthlyMinor += e.AmountMinor
		}
		if !e.CreatedAt.Before(dayStart) {
			totals.DailyMinor += e.AmountMinor
		}
	}

	out := make([]OperatorTotals, 0, len(order))
	for _, name := range order {
		out = append(out, *byOp[name])
	}
	return out, nil
}
