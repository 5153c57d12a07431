package rating

import (
	"context"

	"prepaid-telecom/internal/operator"
)

// FallbackRatePerSecond applies when either number resolves to no operator.
const FallbackRatePerSecond int64 = 2

// Directory is the narrow operator-lookup view the resolver needs.
type Directory interface {
	ResolveByPhone(ctx context.Context, phone string) (operator.Operator, bool, error)
}

// Resolver determines the per-second call price between two numbers from
// their owning operators' tariffs.
//
// Pure lookup + selection; no side effects.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Rate returns the per-second cost in minor units for a call from numberA
// to numberB. Same operator: its same-operator tariff. Different operators:
// the caller-side operator's cross-operator tariff. Either side unresolved:
// the fixed fallback rate.
func (r *Resolver) Rate(ctx context.Context, numberA, numberB string) (int64, error) {
	opA, okA, err := r.dir.ResolveByPhone(ctx, numberA)
	if err != nil {
		return 0, err
	}
	opB, okB, err := r.dir.ResolveByPhone(ctx, numberB)
	if err != nil {
		return 0, err
	}
	if !okA || !okB {
		return FallbackRatePerSecond, nil
	}
	if opA.Name == opB.Name {
		return opA.Rates.SameOperator, nil
	}
	return opA.Rates.DifferentOperator, nil
}
