package feequery

import (
	"context"
	"sort"
	"time"

	"github.com/fkhayef/feeledger/internal/ledger"
	"github.com/fkhayef/feeledger/pkg/apperror"
	"github.com/fkhayef/feeledger/pkg/money"
)

const dateLayout = "2006-01-02"

// Common errors
var (
	ErrNoRecords        = apperror.NotFound("STUDENT_RECORDS_NOT_FOUND", "student has no fee records")
	ErrClassRequired    = apperror.Validation("CLASS_REQUIRED", "class is required")
	ErrInvalidDateRange = apperror.Validation("INVALID_DATE_RANGE", "date range is invalid")
)

// RecordSource reads ledger state
type RecordSource interface {
	AllRecords(ctx context.Context, schoolID int64, filter ledger.RecordFilter) ([]*ledger.StudentFeeRecord, error)
}

// Service computes read-only reports over the ledger. Every call reads fresh state.
type Service struct {
	records   RecordSource
	formatter *money.Formatter
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a new report service
func NewService(records RecordSource, formatter *money.Formatter, loc *time.Location, now func() time.Time) *Service {
	if formatter == nil {
		formatter = money.NewFormatter("KES", 2)
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{records: records, formatter: formatter, loc: loc, now: now}
}

// Formatter returns the money formatter used for display strings
func (s *Service) Formatter() *money.Formatter {
	return s.formatter
}

func (s *Service) totals(due, paid int64) Totals {
	return Totals{
		Due:            due,
		Paid:           paid,
		Pending:        due - paid,
		DueDisplay:     s.formatter.Format(due),
		PaidDisplay:    s.formatter.Format(paid),
		PendingDisplay: s.formatter.Format(due - paid),
	}
}

// StudentSummary totals all of a student's fee records
func (s *Service) StudentSummary(ctx context.Context, schoolID, studentID int64) (*StudentSummary, error) {
	records, err := s.records.AllRecords(ctx, schoolID, ledger.RecordFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords.WithMessage("student %d has no fee records", studentID)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	// The most recent record carries the student's current placement.
	latest := records[len(records)-1]
	summary := &StudentSummary{
		StudentID:   studentID,
		StudentName: latest.StudentName,
		AdmissionNo: latest.AdmissionNo,
		Class:       latest.Class,
		Section:     latest.Section,
		Records:     make([]RecordStatus, 0, len(records)),
	}

	var due, paid int64
	for _, rec := range records {
		recPaid := rec.TotalPaid()
		due += rec.TotalAmount
		paid += recPaid
		summary.Records = append(summary.Records, RecordStatus{
			RecordID:         rec.ID,
			FeeStructureID:   rec.FeeStructureID,
			FeeStructureName: rec.FeeStructureName,
			AcademicYear:     rec.AcademicYear,
			Status:           rec.Status(),
			Totals:           s.totals(rec.TotalAmount, recPaid),
		})
	}
	summary.Totals = s.totals(due, paid)
	summary.Status = ledger.DeriveStatus(paid, due)
	return summary, nil
}

// ClassSummary aggregates the records of a class, optionally narrowed to one section
func (s *Service) ClassSummary(ctx context.Context, schoolID int64, class, section string) (*ClassSummary, error) {
	if class == "" {
		return nil, ErrClassRequired
	}

	records, err := s.records.AllRecords(ctx, schoolID, ledger.RecordFilter{Class: class, Section: section})
	if err != nil {
		return nil, err
	}

	summary := &ClassSummary{
		Class:       class,
		Section:     section,
		RecordCount: len(records),
		Structures:  []StructureBreakdown{},
	}

	type acc struct {
		breakdown StructureBreakdown
		due, paid int64
	}
	students := make(map[int64]struct{})
	byStructure := make(map[int64]*acc)
	var due, paid int64

	for _, rec := range records {
		students[rec.StudentID] = struct{}{}
		recPaid := rec.TotalPaid()
		status := rec.Status()

		due += rec.TotalAmount
		paid += recPaid
		summary.StatusCounts.add(status)

		a, ok := byStructure[rec.FeeStructureID]
		if !ok {
			a = &acc{breakdown: StructureBreakdown{
				FeeStructureID:   rec.FeeStructureID,
				FeeStructureName: rec.FeeStructureName,
				AcademicYear:     rec.AcademicYear,
			}}
			byStructure[rec.FeeStructureID] = a
		}
		a.breakdown.RecordCount++
		a.breakdown.StatusCounts.add(status)
		a.due += rec.TotalAmount
		a.paid += recPaid
	}

	for _, a := range byStructure {
		a.breakdown.Totals = s.totals(a.due, a.paid)
		summary.Structures = append(summary.Structures, a.breakdown)
	}
	sort.Slice(summary.Structures, func(i, j int) bool {
		return summary.Structures[i].FeeStructureID < summary.Structures[j].FeeStructureID
	})

	summary.StudentCount = len(students)
	summary.Totals = s.totals(due, paid)
	return summary, nil
}

// today returns the current calendar date in the school's timezone
func (s *Service) today() time.Time {
	return civil(s.now().In(s.loc))
}

// civil strips a timestamp to its calendar date so dates from any source compare equal
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OutstandingDues lists every installment with a pending balance, ordered by due date,
// then student name, then installment position
func (s *Service) OutstandingDues(ctx context.Context, schoolID int64, filter OutstandingFilter) (*OutstandingReport, error) {
	records, err := s.records.AllRecords(ctx, schoolID, ledger.RecordFilter{Class: filter.Class, Section: filter.Section})
	if err != nil {
		return nil, err
	}

	asOf := s.today()
	if !filter.AsOf.IsZero() {
		asOf = civil(filter.AsOf)
	}

	report := &OutstandingReport{AsOf: asOf.Format(dateLayout), Items: []OutstandingDue{}}
	for _, rec := range records {
		for _, inst := range rec.Installments {
			pending := inst.Pending()
			if pending <= 0 {
				continue
			}

			due := civil(inst.DueDate)
			item := OutstandingDue{
				RecordID:            rec.ID,
				StudentID:           rec.StudentID,
				StudentName:         rec.StudentName,
				AdmissionNo:         rec.AdmissionNo,
				Class:               rec.Class,
				Section:             rec.Section,
				FeeStructureID:      rec.FeeStructureID,
				FeeStructureName:    rec.FeeStructureName,
				InstallmentPosition: inst.Position,
				InstallmentName:     inst.Name,
				Amount:              inst.Amount,
				Paid:                inst.PaidAmount,
				Pending:             pending,
				DueDate:             due.Format(dateLayout),
				due:                 due,
			}
			if due.Before(asOf) {
				item.Overdue = true
				item.DaysOverdue = int(asOf.Sub(due).Hours() / 24)
				report.OverdueCount++
			}
			report.TotalPending += pending
			report.Items = append(report.Items, item)
		}
	}

	sort.SliceStable(report.Items, func(i, j int) bool {
		a, b := report.Items[i], report.Items[j]
		if !a.due.Equal(b.due) {
			return a.due.Before(b.due)
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		if a.InstallmentPosition != b.InstallmentPosition {
			return a.InstallmentPosition < b.InstallmentPosition
		}
		return a.RecordID < b.RecordID
	})

	report.PendingDisplay = s.formatter.Format(report.TotalPending)
	return report, nil
}

// Collections totals accepted payments dated within [from, to], per method and per day.
// A zero to means today; a zero from means the first day of to's month.
func (s *Service) Collections(ctx context.Context, schoolID int64, from, to time.Time) (*CollectionsReport, error) {
	if to.IsZero() {
		to = s.today()
	}
	to = civil(to)
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	from = civil(from)
	if from.After(to) {
		return nil, ErrInvalidDateRange.
			WithMessage("from %s is after to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	records, err := s.records.AllRecords(ctx, schoolID, ledger.RecordFilter{})
	if err != nil {
		return nil, err
	}

	methods := make(map[ledger.PaymentMethod]*MethodTotal, len(ledger.PaymentMethods))
	report := &CollectionsReport{
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		ByMethod: make([]MethodTotal, len(ledger.PaymentMethods)),
		ByDay:    []DayTotal{},
	}
	for i, m := range ledger.PaymentMethods {
		report.ByMethod[i].Method = m
		methods[m] = &report.ByMethod[i]
	}

	days := make(map[string]*DayTotal)
	for _, rec := range records {
		for _, p := range rec.Payments {
			day := civil(p.PaymentDate)
			if day.Before(from) || day.After(to) {
				continue
			}

			report.PaymentCount++
			report.Total += p.Amount

			if mt, ok := methods[p.Method]; ok {
				mt.Count++
				mt.Amount += p.Amount
			}

			key := day.Format(dateLayout)
			dt, ok := days[key]
			if !ok {
				dt = &DayTotal{Date: key}
				days[key] = dt
			}
			dt.Count++
			dt.Amount += p.Amount
		}
	}

	for i := range report.ByMethod {
		report.ByMethod[i].Display = s.formatter.Format(report.ByMethod[i].Amount)
	}
	for _, dt := range days {
		dt.Display = s.formatter.Format(dt.Amount)
		report.ByDay = append(report.ByDay, *dt)
	}
	sort.Slice(report.ByDay, func(i, j int) bool { return report.ByDay[i].Date < report.ByDay[j].Date })

	report.TotalDisplay = s.formatter.Format(report.Total)
	return report, nil
}
