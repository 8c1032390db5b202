package installment

// =============================================================================
// EVEN POLICY
// Divides the total as evenly as integer units allow
// =============================================================================

// EvenStrategy implements the Strategy interface for even installments
type EvenStrategy struct{}

// Policy returns the policy identifier
func (s *EvenStrategy) Policy() Policy {
	return PolicyEven
}

// Validate checks if the inputs are valid for an even split
func (s *EvenStrategy) Validate(total int64, count int) error {
	return validateCommon(total, count)
}

// Calculate gives every installment total/count and hands the remainder,
// one unit each, to the earliest installments
func (s *EvenStrategy) Calculate(total int64, count int) ([]int64, error) {
	if err := s.Validate(total, count); err != nil {
		return nil, err
	}

	n := int64(count)
	base := total / n
	remainder := total - base*n

	amounts := make([]int64, count)
	for i := range amounts {
		amounts[i] = base
		if int64(i) < remainder {
			amounts[i]++
		}
	}

	return amounts, nil
}
