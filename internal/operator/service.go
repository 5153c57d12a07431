package operator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Service manages the operator directory: creation, renaming, index and
// number-inventory management, and prefix resolution.
//
// Directory invariants:
//   - Index prefixes are globally unique (one owner per prefix).
//   - Selling a number removes it from the inventory and creates the subscriber
//     in the same operation; a number is never both available and assigned.
type Service struct {
	repo        Repository
	subscribers SubscriberDirectory
	clock       func() time.Time
}

// Repository abstracts operator persistence.
type Repository interface {
	GetByName(ctx context.Context, name string) (Operator, bool, error)
	GetAll(ctx context.Context) ([]Operator, error)
	Insert(ctx context.Context, o Operator, numbers []string) error
	Rename(ctx context.Context, oldName, newName string, now time.Time) error
	Delete(ctx context.Context, name string) error

	AddIndex(ctx context.Context, name, index string, numbers []string, now time.Time) error
	RemoveIndex(ctx context.Context, name, index string, now time.Time) error

	ListNumbers(ctx context.Context, name string) ([]string, error)
	// TakeNumber removes phone from the operator's inventory.
	// Returns false if the number is not available.
	TakeNumber(ctx context.Context, name, phone string) (bool, error)

	// FindByIndex returns the operator owning the given prefix index.
	FindByIndex(ctx context.Context, index string) (Operator, bool, error)
}

// SubscriberDirectory is the narrow view of the subscriber store the
// directory needs: prefix usage checks and subscriber creation on number sale.
type SubscriberDirectory interface {
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	CreateSubscriber(ctx context.Context, phone, pin string) error
}

var (
	ErrNotFound          = errors.New("operator: not found")
	ErrInvalidArgument   = errors.New("operator: invalid argument")
	ErrNameTaken         = errors.New("operator: name already in use")
	ErrIndexTaken        = errors.New("operator: index already assigned")
	ErrMaxIndexes        = errors.New("operator: index limit reached")
	ErrIndexInUse        = errors.New("operator: index still used by subscribers")
	ErrLastIndex         = errors.New("operator: removing the last index removes the operator; confirmation required")
	ErrNumberUnavailable = errors.New("operator: number not available")
)

func NewService(repo Repository, subscribers SubscriberDirectory) *Service {
	return &Service{repo: repo, subscribers: subscribers, clock: time.Now}
}

// Create registers a new operator with one index and default rates,
// generating the number inventory for the index.
func (s *Service) Create(ctx context.Context, name, index string) (Operator, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Operator{}, err
	}
	if err := ValidateIndex(index); err != nil {
		return Operator{}, err
	}

	if _, ok, err := s.repo.GetByName(ctx, name); err != nil {
		return Operator{}, err
	} else if ok {
		return Operator{}, ErrNameTaken
	}
	if _, ok, err := s.repo.FindByIndex(ctx, index); err != nil {
		return Operator{}, err
	} else if ok {
		return Operator{}, ErrIndexTaken
	}

	now := s.clock().UTC()
	o := Operator{
		Name:    name,
		Indexes: []string{index},
		Rates: Rates{
			SameOperator:      DefaultSameOperatorRate,
			DifferentOperator: DefaultDifferentOperatorRate,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, o, GenerateNumbers(index)); err != nil {
		return Operator{}, err
	}
	return o, nil
}

// Rename changes an operator's name. The new name must obey the same rules.
func (s *Service) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := ValidateName(newName); err != nil {
		return err
	}
	if _, ok, err := s.repo.GetByName(ctx, oldName); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	if other, ok, err := s.repo.GetByName(ctx, newName); err != nil {
		return err
	} else if ok && !strings.EqualFold(other.Name, oldName) {
		return ErrNameTaken
	}
	return s.repo.Rename(ctx, oldName, newName, s.clock().UTC())
}

// List returns every registered operator.
func (s *Service) List(ctx context.Context) ([]Operator, error) {
	return s.repo.GetAll(ctx)
}

// Get returns a single operator by name.
func (s *Service) Get(ctx context.Context, name string) (Operator, error) {
	o, ok, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return Operator{}, err
	}
	if !ok {
		return Operator{}, ErrNotFound
	}
	return o, nil
}

// ListNumbers returns the unsold number inventory of an operator.
func (s *Service) ListNumbers(ctx context.Context, name string) ([]string, error) {
	if _, ok, err := s.repo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	return s.repo.ListNumbers(ctx, name)
}

// AddIndex assigns an additional prefix index to an operator and generates
// the inventory for it.
func (s *Service) AddIndex(ctx context.Context, name, index string) error {
	if err := ValidateIndex(index); err != nil {
		return err
	}
	o, ok, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if len(o.Indexes) >= MaxIndexes {
		return ErrMaxIndexes
	}
	if _, ok, err := s.repo.FindByIndex(ctx, index); err != nil {
		return err
	} else if ok {
		return ErrIndexTaken
	}
	return s.repo.AddIndex(ctx, name, index, GenerateNumbers(index), s.clock().UTC())
}

// RemoveIndex removes a prefix index from an operator.
// Refused while any subscriber's phone number uses the prefix.
// Removing the operator's only index removes the operator itself; the caller
// must set confirmRemoveOperator to acknowledge that.
func (s *Service) RemoveIndex(ctx context.Context, name, index string, confirmRemoveOperator bool) error {
	o, ok, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if !o.OwnsPrefix(index) {
		return fmt.Errorf("%w: index %s not assigned to %s", ErrInvalidArgument, index, name)
	}

	n, err := s.subscribers.CountByPrefix(ctx, index)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrIndexInUse
	}

	if len(o.Indexes) == 1 {
		if !confirmRemoveOperator {
			return ErrLastIndex
		}
		return s.repo.Delete(ctx, name)
	}
	return s.repo.RemoveIndex(ctx, name, index, s.clock().UTC())
}

// SellNumber assigns an available number to a new subscriber with the given PIN.
func (s *Service) SellNumber(ctx context.Context, operatorName, phone, pin string) error {
	if len(phone) != PhoneNumberLength || !isDigits(phone) {
		return fmt.Errorf("%w: phone must be %d digits", ErrInvalidArgument, PhoneNumberLength)
	}
	if _, ok, err := s.repo.GetByName(ctx, operatorName); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}

	taken, err := s.repo.TakeNumber(ctx, operatorName, phone)
	if err != nil {
		return err
	}
	if !taken {
		return ErrNumberUnavailable
	}
	return s.subscribers.CreateSubscriber(ctx, phone, pin)
}

// ResolveByPhone finds the operator owning a number's leading prefix.
func (s *Service) ResolveByPhone(ctx context.Context, phone string) (Operator, bool, error) {
	if len(phone) < IndexLength {
		return Operator{}, false, nil
	}
	return s.repo.FindByIndex(ctx, phone[:IndexLength])
}

// GenerateNumbers builds the inventory for an index: NumbersPerIndex numbers
// of the form <index><zero-padded counter> with total length PhoneNumberLength.
func GenerateNumbers(index string) []string {
	width := PhoneNumberLength - len(index)
	out := make([]string, 0, NumbersPerIndex)
	for i := 0; i < NumbersPerIndex; i++ {
		out = append(out, fmt.Sprintf("%s%0*d", index, width, i))
	}
	return out
}

// ValidateName checks operator-name length bounds.
func ValidateName(name string) error {
	if len(name) < MinNameLength {
		return fmt.Errorf("%w: name must be at least %d characters", ErrInvalidArgument, MinNameLength)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidArgument, MaxNameLength)
	}
	return nil
}

// ValidateIndex checks the 2-digit prefix format.
func ValidateIndex(index string) error {
	if len(index) != IndexLength || !isDigits(index) {
		return fmt.Errorf("%w: index must be %d digits", ErrInvalidArgument, IndexLength)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
