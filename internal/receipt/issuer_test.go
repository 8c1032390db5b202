package receipt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/feeledger/internal/ledger"
	mw "github.com/fkhayef/feeledger/pkg/middleware"
)

func TestFormatAndParse(t *testing.T) {
	assert.Equal(t, "GHS-2026-000042", Format("ghs", 2026, 42))
	assert.Equal(t, "GHS-2026-1234567", Format("GHS", 2026, 1234567))

	code, year, seq, err := Parse("ghs-2026-000042")
	require.NoError(t, err)
	assert.Equal(t, "GHS", code)
	assert.Equal(t, 2026, year)
	assert.Equal(t, int64(42), seq)

	for _, bad := range []string{"", "GHS-26-000001", "GHS-2026-12", "GHS/2026/000001"} {
		_, _, _, err := Parse(bad)
		assert.ErrorIs(t, err, ledger.ErrReceiptNotFound, bad)
	}
}

func TestIssuerMint(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	// 22:00 UTC on new year's eve is already January in Nairobi
	now := func() time.Time { return time.Date(2025, time.December, 31, 22, 0, 0, 0, time.UTC) }
	issuer := NewIssuer(NewMemorySequencer(), eat, now)

	first, err := issuer.Mint(context.Background(), ledger.School{ID: 1, Code: "GHS"})
	require.NoError(t, err)
	second, err := issuer.Mint(context.Background(), ledger.School{ID: 1, Code: "GHS"})
	require.NoError(t, err)

	assert.Equal(t, "GHS-2026-000001", first)
	assert.Equal(t, "GHS-2026-000002", second)

	_, err = issuer.Mint(context.Background(), ledger.School{ID: 1})
	assert.ErrorIs(t, err, ErrMissingSchoolCode)
}

func TestIssuerMintRejectsUnparseableCodes(t *testing.T) {
	issuer := NewIssuer(NewMemorySequencer(), time.UTC, nil)

	for _, code := range []string{"ST-MARY", "st mary", "GHS/1"} {
		t.Run(code, func(t *testing.T) {
			number, err := issuer.Mint(context.Background(), ledger.School{ID: 1, Code: code})
			assert.Empty(t, number)
			assert.ErrorIs(t, err, ErrInvalidSchoolCode)
		})
	}

	// Every issued number can be parsed back to its code.
	number, err := issuer.Mint(context.Background(), ledger.School{ID: 1, Code: "stmary2"})
	require.NoError(t, err)
	code, _, _, err := Parse(number)
	require.NoError(t, err)
	assert.Equal(t, "STMARY2", code)
}

func TestRecordPaymentWithInvalidSchoolCodeLeavesRecordUntouched(t *testing.T) {
	svc, _, rec := newLedger(t)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, ledger.School{ID: 1, Code: "st-mary"}, rec.ID, "bursar", &ledger.RecordPaymentRequest{
		InstallmentName: "Installment 1",
		Amount:          100,
		PaymentMethod:   "cash",
		PaymentDate:     "2026-04-01",
	})
	assert.ErrorIs(t, err, ErrInvalidSchoolCode)

	got, err := svc.GetRecord(ctx, 1, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Payments)
}

func newLedger(t *testing.T) (*ledger.Service, *Issuer, *ledger.StudentFeeRecord) {
	t.Helper()
	now := func() time.Time { return time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC) }
	issuer := NewIssuer(NewMemorySequencer(), time.UTC, now)
	svc := ledger.NewService(ledger.NewMemoryStore(), issuer, ledger.Options{Now: now})
	issuer.SetFinder(svc)

	rec, err := svc.CreateRecord(context.Background(), ledger.NewRecordInput{
		SchoolID:         1,
		StudentID:        10,
		StudentName:      "Amani Otieno",
		Class:            "Grade 6",
		Section:          "B",
		FeeStructureID:   3,
		FeeStructureName: "Term fees",
		AcademicYear:     "2026",
		TotalAmount:      90000,
		Installments: []ledger.InstallmentBalance{
			{Name: "Installment 1", Amount: 30000},
			{Name: "Installment 2", Amount: 30000},
			{Name: "Installment 3", Amount: 30000},
		},
	})
	require.NoError(t, err)
	return svc, issuer, rec
}

func TestIssuerLookup(t *testing.T) {
	svc, issuer, rec := newLedger(t)
	ctx := context.Background()
	school := ledger.School{ID: 1, Code: "GHS"}

	issued, err := svc.RecordPayment(ctx, school, rec.ID, "bursar", &ledger.RecordPaymentRequest{
		InstallmentName: "Installment 2",
		Amount:          12000,
		PaymentMethod:   "cash",
		PaymentDate:     "2026-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "GHS-2026-000001", issued.ReceiptNumber)

	found, err := issuer.Lookup(ctx, school, "ghs-2026-000001")
	require.NoError(t, err)
	assert.Equal(t, issued.PaymentID, found.PaymentID)
	assert.Equal(t, "Amani Otieno", found.StudentName)
	assert.Equal(t, int64(18000), found.InstallmentPendingAfter)

	tests := []struct {
		name   string
		school ledger.School
		number string
	}{
		{"other school code", ledger.School{ID: 2, Code: "MHS"}, "GHS-2026-000001"},
		{"own code, other school's number", ledger.School{ID: 2, Code: "GHS"}, "GHS-2026-000001"},
		{"never issued", school, "GHS-2026-000002"},
		{"malformed", school, "receipt-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Lookup(ctx, tt.school, tt.number)
			assert.ErrorIs(t, err, ledger.ErrReceiptNotFound)
		})
	}
}

func TestRejectedPaymentBurnsNoNumber(t *testing.T) {
	svc, _, rec := newLedger(t)
	ctx := context.Background()
	school := ledger.School{ID: 1, Code: "GHS"}

	_, err := svc.RecordPayment(ctx, school, rec.ID, "", &ledger.RecordPaymentRequest{
		InstallmentName: "Installment 1", Amount: 40000, PaymentMethod: "cash", PaymentDate: "2026-04-01",
	})
	require.ErrorIs(t, err, ledger.ErrExceedsPending)

	issued, err := svc.RecordPayment(ctx, school, rec.ID, "", &ledger.RecordPaymentRequest{
		InstallmentName: "Installment 1", Amount: 100, PaymentMethod: "cash", PaymentDate: "2026-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "GHS-2026-000001", issued.ReceiptNumber)
}

func TestHandlerGetByNumber(t *testing.T) {
	svc, issuer, rec := newLedger(t)
	school := ledger.School{ID: 1, Code: "GHS"}
	_, err := svc.RecordPayment(context.Background(), school, rec.ID, "", &ledger.RecordPaymentRequest{
		InstallmentName: "Installment 1", Amount: 500, PaymentMethod: "online", PaymentReference: "MPESA-XYZ", PaymentDate: "2026-04-02",
	})
	require.NoError(t, err)

	h := NewHandler(issuer, nil)

	tests := []struct {
		name       string
		principal  mw.Principal
		number     string
		wantStatus int
	}{
		{"found", mw.Principal{SchoolID: 1, SchoolCode: "GHS"}, "GHS-2026-000001", http.StatusOK},
		{"other school", mw.Principal{SchoolID: 2, SchoolCode: "MHS"}, "GHS-2026-000001", http.StatusNotFound},
		{"unknown", mw.Principal{SchoolID: 1, SchoolCode: "GHS"}, "GHS-2026-000099", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.number, nil)
			req = req.WithContext(mw.WithPrincipal(req.Context(), tt.principal))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
