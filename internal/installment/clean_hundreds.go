package installment

// =============================================================================
// CLEAN HUNDREDS POLICY
// Every installment but the last is a multiple of RoundingUnit; the last absorbs the rest
// =============================================================================

// CleanHundredsStrategy implements the Strategy interface for round-number installments
type CleanHundredsStrategy struct{}

// Policy returns the policy identifier
func (s *CleanHundredsStrategy) Policy() Policy {
	return PolicyCleanHundreds
}

// Validate checks the bounds and that the last installment stays positive
func (s *CleanHundredsStrategy) Validate(total int64, count int) error {
	if err := validateCommon(total, count); err != nil {
		return err
	}
	if count == 1 {
		return nil
	}

	minimum := RoundingUnit * int64(count-1)
	if total < minimum {
		return ErrInsufficientAmountForRounding.
			WithMessage("total %d is below the minimum %d needed to split into %d clean-hundred installments", total, minimum, count).
			WithDetail("total", total).
			WithDetail("minimum_total", minimum).
			WithDetail("count", count)
	}
	return nil
}

// Calculate rounds the even share down to the unit and gives the remainder to the last installment
func (s *CleanHundredsStrategy) Calculate(total int64, count int) ([]int64, error) {
	if err := s.Validate(total, count); err != nil {
		return nil, err
	}
	if count == 1 {
		return []int64{total}, nil
	}

	n := int64(count)
	base := (total / n) / RoundingUnit * RoundingUnit

	amounts := make([]int64, count)
	for i := 0; i < count-1; i++ {
		amounts[i] = base
	}
	amounts[count-1] = total - base*(n-1)

	return amounts, nil
}
