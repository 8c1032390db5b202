package installment

import (
	"fmt"

	"github.com/fkhayef/feeledger/pkg/apperror"
)

// Policy defines how a total is divided into installments
type Policy string

const (
	PolicyEven          Policy = "EVEN"
	PolicyCleanHundreds Policy = "CLEAN_HUNDREDS"
)

const (
	MinCount = 1
	MaxCount = 12

	// RoundingUnit is the granularity of CLEAN_HUNDREDS installments, in minor units
	RoundingUnit int64 = 100
)

// Strategy is the interface that all installment policies must implement
type Strategy interface {
	// Calculate splits total into count ordered amounts
	Calculate(total int64, count int) ([]int64, error)

	// Policy returns the policy identifier for this strategy
	Policy() Policy

	// Validate checks if the inputs are valid for this strategy
	Validate(total int64, count int) error
}

// Factory creates installment strategies based on the requested policy
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for the policy
func (f *Factory) Create(policy Policy) (Strategy, error) {
	switch policy {
	case PolicyEven:
		return &EvenStrategy{}, nil
	case PolicyCleanHundreds:
		return &CleanHundredsStrategy{}, nil
	default:
		return nil, ErrUnknownPolicy.WithMessage("unknown installment policy: %q", string(policy))
	}
}

// CreateFromString creates a strategy from a string policy (useful for API requests)
func (f *Factory) CreateFromString(policy string) (Strategy, error) {
	return f.Create(Policy(policy))
}

// Generate splits total into count installments under policy
func Generate(total int64, count int, policy Policy) ([]int64, error) {
	strategy, err := NewFactory().Create(policy)
	if err != nil {
		return nil, err
	}
	return strategy.Calculate(total, count)
}

// Name returns the display name of the installment at 1-based position n
func Name(n int) string {
	return fmt.Sprintf("Installment %d", n)
}

var (
	ErrInvalidTotal  = apperror.Validation("INVALID_TOTAL", "total amount must be positive")
	ErrInvalidCount  = apperror.Validation("INVALID_INSTALLMENT_COUNT", fmt.Sprintf("installment count must be between %d and %d", MinCount, MaxCount))
	ErrUnknownPolicy = apperror.Validation("UNKNOWN_POLICY", "unknown installment policy")

	ErrInsufficientAmountForRounding = apperror.Invariant("INSUFFICIENT_AMOUNT_FOR_ROUNDING", "total is too small to round installments to clean hundreds")
)

// validateCommon checks the bounds shared by every policy
func validateCommon(total int64, count int) error {
	if total <= 0 {
		return ErrInvalidTotal.WithDetail("total", total)
	}
	if count < MinCount || count > MaxCount {
		return ErrInvalidCount.WithDetail("count", count)
	}
	return nil
}
