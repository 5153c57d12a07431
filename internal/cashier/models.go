package cashier

import "time"

// Entry is an immutable append-only record of one credit sale.
//
// Money invariant: any subscriber top-up sold by a manager MUST have a
// corresponding cashier entry; the cash state is derived from entries,
// never stored as mutable counters.
type Entry struct {
	ID string `json:"id" db:"id"`

	// ManagerName is the back-office user who made the sale.
	ManagerName string `json:"manager_name" db:"manager_name"`
	// OperatorName is the operator owning the topped-up number's prefix.
	OperatorName string `json:"operator_name" db:"operator_name"`

	SubscriberPhone string `json:"subscriber_phone" db:"subscriber_phone"`

	AmountMinor int64 `json:"amount_minor" db:"amount_minor"`

	// IdempotencyKey makes sale retries safe.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OperatorTotals is the cash state for one operator under one manager.
type OperatorTotals struct {
	OperatorName string `json:"operator_name"`
	DailyMinor   int64  `json:"daily_minor"`
	MonthlyMinor int64  `json:"monthly_minor"`
	YearlyMinor  int64  `json:"yearly_minor"`
}

// MinSaleAmountMinor is the smallest credit amount a manager may sell.
const MinSaleAmountMinor int64 = 100
