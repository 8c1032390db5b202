package feequery

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const outstandingSheet = "Outstanding"

var outstandingHeaders = []string{
	"Admission No", "Student", "Class", "Section", "Fee Structure", "Installment",
	"Due Date", "Amount", "Paid", "Pending", "Overdue", "Days Overdue",
}

// OutstandingWorkbook renders the outstanding dues report as a spreadsheet.
// Money columns hold major-unit values.
func (s *Service) OutstandingWorkbook(report *OutstandingReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", outstandingSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range outstandingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(outstandingSheet, cell, header)
	}

	for i, item := range report.Items {
		row := i + 2
		overdue := "no"
		if item.Overdue {
			overdue = "yes"
		}
		values := []interface{}{
			item.AdmissionNo,
			item.StudentName,
			item.Class,
			item.Section,
			item.FeeStructureName,
			item.InstallmentName,
			item.DueDate,
			s.formatter.Decimal(item.Amount).InexactFloat64(),
			s.formatter.Decimal(item.Paid).InexactFloat64(),
			s.formatter.Decimal(item.Pending).InexactFloat64(),
			overdue,
			item.DaysOverdue,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(outstandingSheet, cell, v)
		}
	}

	totalRow := len(report.Items) + 3
	f.SetCellValue(outstandingSheet, fmt.Sprintf("I%d", totalRow), fmt.Sprintf("Total pending as of %s", report.AsOf))
	f.SetCellValue(outstandingSheet, fmt.Sprintf("J%d", totalRow), s.formatter.Decimal(report.TotalPending).InexactFloat64())

	_ = f.SetColWidth(outstandingSheet, "A", "A", 14)
	_ = f.SetColWidth(outstandingSheet, "B", "B", 28)
	_ = f.SetColWidth(outstandingSheet, "E", "F", 22)
	return f, nil
}

// ExportOutstanding writes the outstanding dues spreadsheet to w
func (s *Service) ExportOutstanding(ctx context.Context, w io.Writer, schoolID int64, filter OutstandingFilter) error {
	report, err := s.OutstandingDues(ctx, schoolID, filter)
	if err != nil {
		return err
	}

	f, err := s.OutstandingWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}
