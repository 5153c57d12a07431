package operator

import "time"

// Operator is a mobile network operator owning number-prefix indexes.
//
// Invariants:
//   - Name is unique case-insensitively, 3..15 characters.
//   - Each index is a 2-digit prefix assigned to exactly one operator.
//   - An operator carries at most 3 indexes; removing the last one removes
//     the operator itself.
type Operator struct {
	Name string `json:"name" db:"name"`

	// Indexes are the 2-digit subscriber-number prefixes owned by this operator.
	Indexes []string `json:"indexes"`

	Rates Rates `json:"rates"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Rates are per-second call prices in minor units.
type Rates struct {
	SameOperator      int64 `json:"same_operator" db:"rate_same_operator"`
	DifferentOperator int64 `json:"different_operator" db:"rate_different_operator"`
}

// OwnsPrefix reports whether the given 2-digit prefix belongs to this operator.
func (o Operator) OwnsPrefix(prefix string) bool {
	for _, idx := range o.Indexes {
		if idx == prefix {
			return true
		}
	}
	return false
}

const (
	// MinNameLength and MaxNameLength bound operator names.
	MinNameLength = 3
	MaxNameLength = 15

	// IndexLength is the number of digits in a prefix index.
	IndexLength = 2

	// MaxIndexes is the maximum number of indexes per operator.
	MaxIndexes = 3

	// PhoneNumberLength is the full subscriber number length.
	PhoneNumberLength = 9

	// NumbersPerIndex is how many numbers are generated into the inventory
	// when an index is registered.
	NumbersPerIndex = 100
)

// Default per-second rates applied to newly created operators.
const (
	DefaultSameOperatorRate      int64 = 1
	DefaultDifferentOperatorRate int64 = 2
)
