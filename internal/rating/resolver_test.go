package rating

import (
	"context"
	"testing"

	"prepaid-telecom/internal/operator"
)

type fakeDirectory struct {
	byPrefix map[string]operator.Operator
}

func (d *fakeDirectory) ResolveByPhone(ctx context.Context, phone string) (operator.Operator, bool, error) {
	o, ok := d.byPrefix[phone[:2]]
	return o, ok, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{byPrefix: map[string]operator.Operator{
		"77": {Name: "Yas", Indexes: []string{"77"}, Rates: operator.Rates{SameOperator: 1, DifferentOperator: 3}},
		"78": {Name: "Moov", Indexes: []string{"78"}, Rates: operator.Rates{SameOperator: 2, DifferentOperator: 5}},
	}}
}

func TestRate_SameOperator(t *testing.T) {
	r := NewResolver(testDirectory())
	got, err := r.Rate(context.Background(), "770000001", "770000002")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected same-operator rate 1, got %d", got)
	}
}

func TestRate_DifferentOperators_UsesCallerSideTariff(t *testing.T) {
	r := NewResolver(testDirectory())

	got, err := r.Rate(context.Background(), "770000001", "780000001")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected caller-side cross rate 3, got %d", got)
	}

	// Reverse direction uses the other operator's tariff.
	got, err = r.Rate(context.Background(), "780000001", "770000001")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected caller-side cross rate 5, got %d", got)
	}
}

func TestRate_FallbackWhenUnresolved(t *testing.T) {
	r := NewResolver(testDirectory())

	got, err := r.Rate(context.Background(), "990000001", "770000001")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got != FallbackRatePerSecond {
		t.Fatalf("expected fallback %d, got %d", FallbackRatePerSecond, got)
	}

	got, _ = r.Rate(context.Background(), "770000001", "990000001")
	if got != FallbackRatePerSecond {
		t.Fatalf("expected fallback %d, got %d", FallbackRatePerSecond, got)
	}
}
