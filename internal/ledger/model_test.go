package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMethodRequiresReference(t *testing.T) {
	want := map[PaymentMethod]bool{
		MethodCash:         false,
		MethodCheque:       true,
		MethodBankTransfer: true,
		MethodOnline:       true,
		MethodOther:        false,
	}
	require.Len(t, PaymentMethods, len(want))
	for _, m := range PaymentMethods {
		assert.True(t, m.Valid())
		assert.Equal(t, want[m], m.RequiresReference(), string(m))
	}

	_, err := ParsePaymentMethod("CASH")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		paid, total int64
		want        Status
	}{
		{0, 1000, StatusPending},
		{400, 1000, StatusPartial},
		{1000, 1000, StatusPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.paid, tt.total))
	}
}

func TestInstallmentStatus(t *testing.T) {
	b := InstallmentBalance{Name: "Installment 1", Amount: 500}
	assert.Equal(t, InstallmentUnpaid, b.Status())
	b.PaidAmount = 200
	assert.Equal(t, InstallmentPartial, b.Status())
	assert.Equal(t, int64(300), b.Pending())
	b.PaidAmount = 500
	assert.Equal(t, InstallmentPaid, b.Status())
}

func TestCheckConsistencyDetectsDrift(t *testing.T) {
	rec := NewStudentFeeRecord(NewRecordInput{
		TotalAmount:  300,
		Installments: []InstallmentBalance{{Name: "a", Amount: 100}, {Name: "b", Amount: 200}},
	})
	require.NoError(t, rec.Apply(Payment{InstallmentName: "a", Amount: 60}))
	require.NoError(t, rec.CheckConsistency())

	drifted := rec.Clone()
	drifted.Installments[1].PaidAmount = 5
	assert.Error(t, drifted.CheckConsistency())

	overpaid := rec.Clone()
	overpaid.Installments[0].PaidAmount = 150
	assert.Error(t, overpaid.CheckConsistency())

	assert.Error(t, rec.Apply(Payment{InstallmentName: "a", Amount: 41}))
	assert.ErrorIs(t, rec.Apply(Payment{InstallmentName: "zzz", Amount: 1}), ErrUnknownInstallment)
}

func TestNewStudentFeeRecordCopiesSchedule(t *testing.T) {
	in := NewRecordInput{
		TotalAmount:  300,
		Installments: []InstallmentBalance{{Name: "a", Amount: 100, PaidAmount: 99}, {Name: "b", Amount: 200}},
	}
	rec := NewStudentFeeRecord(in)

	assert.Equal(t, 1, rec.Installments[0].Position)
	assert.Equal(t, 2, rec.Installments[1].Position)
	assert.Zero(t, rec.Installments[0].PaidAmount)
	assert.Equal(t, int64(99), in.Installments[0].PaidAmount, "input is not modified")
}
