package feestructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/feeledger/internal/installment"
	"github.com/fkhayef/feeledger/internal/ledger"
	"github.com/fkhayef/feeledger/internal/student"
	"github.com/fkhayef/feeledger/pkg/apperror"
	"github.com/fkhayef/feeledger/pkg/validate"
)

const schoolID int64 = 1

type stubMinter struct{ n int }

func (m *stubMinter) Mint(ctx context.Context, school ledger.School) (string, error) {
	m.n++
	return fmt.Sprintf("%s-2026-%06d", school.Code, m.n), nil
}

type fixture struct {
	svc      *Service
	students *student.Service
	ledger   *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v := validate.New()
	students := student.NewService(student.NewMemoryStore(), v)
	records := ledger.NewService(ledger.NewMemoryStore(), &stubMinter{}, ledger.Options{})
	return &fixture{
		svc:      NewService(NewMemoryStore(), students, records, v, nil),
		students: students,
		ledger:   records,
	}
}

func (f *fixture) enroll(t *testing.T, admission, name, class, section string) *student.Student {
	t.Helper()
	st, err := f.students.Create(context.Background(), schoolID, &student.CreateStudentRequest{
		AdmissionNo: admission,
		FullName:    name,
		Class:       class,
		Section:     section,
	})
	require.NoError(t, err)
	return st
}

func explicitRequest(amounts ...int64) *CreateFeeStructureRequest {
	req := &CreateFeeStructureRequest{
		Name:         "Tuition",
		Class:        "Grade 4",
		Section:      "A",
		AcademicYear: "2026",
	}
	for i, a := range amounts {
		req.TotalAmount += a
		req.Installments = append(req.Installments, InstallmentSpecRequest{
			Name:    fmt.Sprintf("Term %d", i+1),
			Amount:  a,
			DueDate: fmt.Sprintf("2026-%02d-10", i+1),
		})
	}
	return req
}

func TestServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *CreateFeeStructureRequest)
		wantErr error
	}{
		{
			name:    "missing name",
			mutate:  func(req *CreateFeeStructureRequest) { req.Name = "" },
			wantErr: validate.ErrInvalidInput,
		},
		{
			name:    "zero total",
			mutate:  func(req *CreateFeeStructureRequest) { req.TotalAmount = 0 },
			wantErr: ErrInvalidFeeStructure,
		},
		{
			name:    "sum mismatch",
			mutate:  func(req *CreateFeeStructureRequest) { req.TotalAmount++ },
			wantErr: ErrSumMismatch,
		},
		{
			name: "overflowing installments",
			mutate: func(req *CreateFeeStructureRequest) {
				req.Installments = explicitRequest(math.MaxInt64, math.MaxInt64, 3).Installments
				req.TotalAmount = 1
			},
			wantErr: ErrSumMismatch,
		},
		{
			name:    "installment larger than total",
			mutate:  func(req *CreateFeeStructureRequest) { req.Installments[0].Amount = 5000 },
			wantErr: ErrSumMismatch,
		},
		{
			name:    "duplicate installment name",
			mutate:  func(req *CreateFeeStructureRequest) { req.Installments[1].Name = req.Installments[0].Name },
			wantErr: ErrInvalidFeeStructure,
		},
		{
			name:    "bad due date",
			mutate:  func(req *CreateFeeStructureRequest) { req.Installments[0].DueDate = "10/01/2026" },
			wantErr: ErrInvalidFeeStructure,
		},
		{
			name:    "non-positive installment",
			mutate:  func(req *CreateFeeStructureRequest) { req.Installments[0].Amount = 0 },
			wantErr: ErrInvalidFeeStructure,
		},
		{
			name: "plan and installments",
			mutate: func(req *CreateFeeStructureRequest) {
				req.Plan = &PlanRequest{Count: 2, Policy: installment.PolicyEven, FirstDueDate: "2026-01-10"}
			},
			wantErr: ErrScheduleSource,
		},
		{
			name:    "no schedule",
			mutate:  func(req *CreateFeeStructureRequest) { req.Installments = nil },
			wantErr: ErrInvalidFeeStructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := explicitRequest(1000, 2000)
			tt.mutate(req)

			fs, result, err := f.svc.Create(context.Background(), schoolID, "admin", req)
			assert.Nil(t, fs)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServiceCreateSumMismatchDetails(t *testing.T) {
	f := newFixture(t)
	req := explicitRequest(1000, 2000)
	req.TotalAmount = 3500

	_, _, err := f.svc.Create(context.Background(), schoolID, "admin", req)
	require.ErrorIs(t, err, ErrSumMismatch)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, int64(3000), appErr.Details["installments_sum"])
	assert.Equal(t, int64(3500), appErr.Details["total_amount"])
}

func TestServiceCreateFromPlan(t *testing.T) {
	tests := []struct {
		name        string
		total       int64
		plan        PlanRequest
		wantAmounts []int64
		wantDue     []string
		wantErr     error
	}{
		{
			name:        "even split with monthly dues",
			total:       100000,
			plan:        PlanRequest{Count: 3, Policy: installment.PolicyEven, FirstDueDate: "2026-01-31"},
			wantAmounts: []int64{33334, 33333, 33333},
			wantDue:     []string{"2026-01-31", "2026-02-28", "2026-03-31"},
		},
		{
			name:        "clean hundreds every term",
			total:       100000,
			plan:        PlanRequest{Count: 3, Policy: installment.PolicyCleanHundreds, FirstDueDate: "2026-01-10", IntervalMonths: 4},
			wantAmounts: []int64{33300, 33300, 33400},
			wantDue:     []string{"2026-01-10", "2026-05-10", "2026-09-10"},
		},
		{
			name:    "clean hundreds below minimum",
			total:   150,
			plan:    PlanRequest{Count: 3, Policy: installment.PolicyCleanHundreds, FirstDueDate: "2026-01-10"},
			wantErr: installment.ErrInsufficientAmountForRounding,
		},
		{
			name:    "clean hundreds leaves an empty installment",
			total:   200,
			plan:    PlanRequest{Count: 3, Policy: installment.PolicyCleanHundreds, FirstDueDate: "2026-01-10"},
			wantErr: ErrInvalidFeeStructure,
		},
		{
			name:    "too many installments",
			total:   100000,
			plan:    PlanRequest{Count: 13, Policy: installment.PolicyEven, FirstDueDate: "2026-01-10"},
			wantErr: installment.ErrInvalidCount,
		},
		{
			name:    "unknown policy",
			total:   100000,
			plan:    PlanRequest{Count: 2, Policy: "WEIGHTED", FirstDueDate: "2026-01-10"},
			wantErr: installment.ErrUnknownPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			plan := tt.plan
			req := &CreateFeeStructureRequest{
				Name:         "Tuition",
				Class:        "Grade 4",
				AcademicYear: "2026",
				TotalAmount:  tt.total,
				Plan:         &plan,
			}

			fs, _, err := f.svc.Create(context.Background(), schoolID, "admin", req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, fs.Installments, len(tt.wantAmounts))
			for i, inst := range fs.Installments {
				assert.Equal(t, i+1, inst.Position)
				assert.Equal(t, installment.Name(i+1), inst.Name)
				assert.Equal(t, tt.wantAmounts[i], inst.Amount)
				assert.Equal(t, tt.wantDue[i], inst.DueDate.Format(dateLayout))
			}
		})
	}
}

func TestServiceCreateVersionsAndSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.svc.Create(ctx, schoolID, "admin", explicitRequest(1000, 2000))
	require.NoError(t, err)
	second, _, err := f.svc.Create(ctx, schoolID, "admin", explicitRequest(1500, 2000))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.NotEqual(t, first.ID, second.ID)

	// The original version is untouched.
	stored, err := f.svc.GetByID(ctx, schoolID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), stored.TotalAmount)

	wide := explicitRequest(500)
	wide.Section = ""
	all, _, err := f.svc.Create(ctx, schoolID, "admin", wide)
	require.NoError(t, err)
	assert.Equal(t, student.AllSections, all.Section)
	assert.Equal(t, 1, all.Version)

	listed, total, err := f.svc.List(ctx, schoolID, ListFilter{Class: "Grade 4", Section: "A"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 3)
	assert.Equal(t, all.ID, listed[0].ID, "newest first")

	_, err = f.svc.GetByID(ctx, 2, first.ID)
	assert.ErrorIs(t, err, ErrFeeStructureNotFound)
}

func TestServiceApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amina := f.enroll(t, "ADM-1", "Amina Otieno", "Grade 4", "A")
	f.enroll(t, "ADM-2", "Brian Kamau", "Grade 4", "A")
	f.enroll(t, "ADM-3", "Chebet Kiprop", "Grade 4", "B")
	f.enroll(t, "ADM-4", "Daudi Mwangi", "Grade 5", "A")
	gone := f.enroll(t, "ADM-5", "Esther Wanjiru", "Grade 4", "A")
	inactive := false
	_, err := f.students.Update(ctx, schoolID, gone.ID, &student.UpdateStudentRequest{Active: &inactive})
	require.NoError(t, err)

	req := explicitRequest(1000, 2000)
	req.ApplyToStudents = true
	fs, result, err := f.svc.Create(ctx, schoolID, "admin", req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Targeted)
	assert.Equal(t, 2, result.AppliedToStudents)
	assert.Zero(t, result.Skipped)
	assert.Empty(t, result.Failed)

	records, _, err := f.ledger.ListRecords(ctx, schoolID, ledger.RecordFilter{StudentID: amina.ID}, 1, 20)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, fs.ID, records[0].FeeStructureID)
	assert.Equal(t, int64(3000), records[0].TotalAmount)
	assert.Equal(t, int64(3000), records[0].TotalPending())
	require.Len(t, records[0].Installments, 2)
	assert.Equal(t, "Term 2", records[0].Installments[1].Name)

	again, err := f.svc.Apply(ctx, schoolID, fs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Targeted)
	assert.Zero(t, again.AppliedToStudents)
	assert.Equal(t, 2, again.Skipped)

	_, err = f.svc.Apply(ctx, schoolID, 999)
	assert.ErrorIs(t, err, ErrFeeStructureNotFound)
}

func TestServiceApplyAllSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.enroll(t, "ADM-1", "Amina Otieno", "Grade 4", "A")
	f.enroll(t, "ADM-2", "Chebet Kiprop", "Grade 4", "B")

	req := explicitRequest(1000)
	req.Section = "all"
	fs, _, err := f.svc.Create(ctx, schoolID, "admin", req)
	require.NoError(t, err)

	result, err := f.svc.Apply(ctx, schoolID, fs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AppliedToStudents)
}

type flakyCreator struct {
	failFor int64
	created []int64
}

func (c *flakyCreator) CreateRecord(ctx context.Context, in ledger.NewRecordInput) (*ledger.StudentFeeRecord, error) {
	if in.StudentID == c.failFor {
		return nil, errors.New("disk full")
	}
	c.created = append(c.created, in.StudentID)
	return ledger.NewStudentFeeRecord(in), nil
}

func TestServiceApplyPartialFailure(t *testing.T) {
	v := validate.New()
	students := student.NewService(student.NewMemoryStore(), v)
	creator := &flakyCreator{}
	svc := NewService(NewMemoryStore(), students, creator, v, nil)
	f := &fixture{svc: svc, students: students}
	ctx := context.Background()

	first := f.enroll(t, "ADM-1", "Amina Otieno", "Grade 4", "A")
	broken := f.enroll(t, "ADM-2", "Brian Kamau", "Grade 4", "A")
	last := f.enroll(t, "ADM-3", "Chebet Kiprop", "Grade 4", "A")
	creator.failFor = broken.ID

	fs, _, err := svc.Create(ctx, schoolID, "admin", explicitRequest(1000))
	require.NoError(t, err)

	result, err := svc.Apply(ctx, schoolID, fs.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Targeted)
	assert.Equal(t, 2, result.AppliedToStudents)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, broken.ID, result.Failed[0].StudentID)
	assert.Equal(t, "Brian Kamau", result.Failed[0].StudentName)
	assert.Contains(t, result.Failed[0].Reason, "disk full")
	assert.ElementsMatch(t, []int64{first.ID, last.ID}, creator.created)
}

type downRoster struct {
	Roster
	down bool
}

func (r *downRoster) ListEnrolled(ctx context.Context, schoolID int64, class, section string) ([]*student.Student, error) {
	if r.down {
		return nil, errors.New("connection refused")
	}
	return r.Roster.ListEnrolled(ctx, schoolID, class, section)
}

func TestServiceCreateKeepsStructureWhenRosterFails(t *testing.T) {
	v := validate.New()
	students := student.NewService(student.NewMemoryStore(), v)
	records := ledger.NewService(ledger.NewMemoryStore(), &stubMinter{}, ledger.Options{})
	roster := &downRoster{Roster: students, down: true}
	svc := NewService(NewMemoryStore(), roster, records, v, nil)
	f := &fixture{svc: svc, students: students, ledger: records}
	ctx := context.Background()

	f.enroll(t, "ADM-1", "Amina Otieno", "Grade 4", "A")

	req := explicitRequest(1000, 2000)
	req.ApplyToStudents = true
	fs, result, err := svc.Create(ctx, schoolID, "admin", req)
	require.NoError(t, err)
	require.NotNil(t, fs)
	require.NotNil(t, result)
	assert.Equal(t, fs.ID, result.FeeStructureID)
	assert.Zero(t, result.AppliedToStudents)
	assert.Contains(t, result.Error, "connection refused")

	stored, err := svc.GetByID(ctx, schoolID, fs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	roster.down = false
	applied, err := svc.Apply(ctx, schoolID, fs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.AppliedToStudents)
	assert.Empty(t, applied.Error)
}
