package installment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}

func TestGenerateScenarios(t *testing.T) {
	tests := []struct {
		name   string
		total  int64
		count  int
		policy Policy
		want   []int64
	}{
		{"clean hundreds 1000/3", 1000, 3, PolicyCleanHundreds, []int64{300, 300, 400}},
		{"even 1000/3", 1000, 3, PolicyEven, []int64{334, 333, 333}},
		{"even exact", 1200, 4, PolicyEven, []int64{300, 300, 300, 300}},
		{"even single", 999, 1, PolicyEven, []int64{999}},
		{"clean hundreds single", 57, 1, PolicyCleanHundreds, []int64{57}},
		{"clean hundreds at minimum", 200, 3, PolicyCleanHundreds, []int64{0, 0, 200}},
		{"clean hundreds large", 25050, 4, PolicyCleanHundreds, []int64{6200, 6200, 6200, 6450}},
		{"even remainder spread", 10, 4, PolicyEven, []int64{3, 3, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.total, tt.count, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		count   int
		policy  Policy
		wantErr error
	}{
		{"zero total", 0, 3, PolicyEven, ErrInvalidTotal},
		{"negative total", -5, 3, PolicyCleanHundreds, ErrInvalidTotal},
		{"zero count", 100, 0, PolicyEven, ErrInvalidCount},
		{"too many", 100, 13, PolicyEven, ErrInvalidCount},
		{"unknown policy", 100, 2, Policy("HALVES"), ErrUnknownPolicy},
		{"below rounding minimum", 199, 3, PolicyCleanHundreds, ErrInsufficientAmountForRounding},
		{"far below rounding minimum", 50, 12, PolicyCleanHundreds, ErrInsufficientAmountForRounding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.total, tt.count, tt.policy)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestEvenProperties(t *testing.T) {
	for total := int64(1); total <= 2500; total += 7 {
		for count := MinCount; count <= MaxCount; count++ {
			amounts, err := Generate(total, count, PolicyEven)
			require.NoError(t, err)
			require.Len(t, amounts, count)
			assert.Equal(t, total, sum(amounts))

			lo, hi := amounts[0], amounts[0]
			for _, a := range amounts {
				if a < lo {
					lo = a
				}
				if a > hi {
					hi = a
				}
			}
			assert.LessOrEqual(t, hi-lo, int64(1), "total=%d count=%d", total, count)
		}
	}
}

func TestCleanHundredsProperties(t *testing.T) {
	for count := 2; count <= MaxCount; count++ {
		minimum := RoundingUnit * int64(count-1)
		for total := minimum; total <= minimum+5000; total += 37 {
			amounts, err := Generate(total, count, PolicyCleanHundreds)
			require.NoError(t, err, "total=%d count=%d", total, count)
			assert.Equal(t, total, sum(amounts))

			for _, a := range amounts[:count-1] {
				assert.Zero(t, a%RoundingUnit)
			}
			assert.Positive(t, amounts[count-1])
		}

		for total := int64(1); total < minimum; total += 13 {
			_, err := Generate(total, count, PolicyCleanHundreds)
			assert.ErrorIs(t, err, ErrInsufficientAmountForRounding, "total=%d count=%d", total, count)
		}
	}
}

func TestFactory(t *testing.T) {
	f := NewFactory()

	s, err := f.CreateFromString("EVEN")
	require.NoError(t, err)
	assert.Equal(t, PolicyEven, s.Policy())

	s, err = f.Create(PolicyCleanHundreds)
	require.NoError(t, err)
	assert.Equal(t, PolicyCleanHundreds, s.Policy())

	_, err = f.CreateFromString("even")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
