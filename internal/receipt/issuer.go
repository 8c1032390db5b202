package receipt

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fkhayef/feeledger/internal/ledger"
	"github.com/fkhayef/feeledger/pkg/apperror"
)

// Issuing errors
var (
	ErrMissingSchoolCode = apperror.Validation("MISSING_SCHOOL_CODE", "school code is required to issue receipts")
	ErrInvalidSchoolCode = apperror.Validation("INVALID_SCHOOL_CODE", "school code may only contain letters and digits")
)

var (
	codePattern   = regexp.MustCompile(`^[A-Z0-9]+$`)
	numberPattern = regexp.MustCompile(`^([A-Z0-9]+)-(\d{4})-(\d{6,})$`)
)

// Format renders a receipt number as {schoolCode}-{year}-{sequence}
func Format(schoolCode string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", strings.ToUpper(schoolCode), year, seq)
}

// Parse splits a receipt number into its parts
func Parse(number string) (schoolCode string, year int, seq int64, err error) {
	m := numberPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(number)))
	if m == nil {
		return "", 0, 0, ledger.ErrReceiptNotFound.WithMessage("receipt %q not found", number)
	}
	year, _ = strconv.Atoi(m[2])
	seq, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return "", 0, 0, ledger.ErrReceiptNotFound.WithMessage("receipt %q not found", number)
	}
	return m[1], year, seq, nil
}

// Finder resolves a receipt number to its receipt view
type Finder interface {
	LookupReceipt(ctx context.Context, schoolID int64, number string) (*ledger.Receipt, error)
}

// Issuer mints receipt numbers and looks receipts up
type Issuer struct {
	seq    Sequencer
	finder Finder
	loc    *time.Location
	now    func() time.Time
}

// NewIssuer creates an issuer. Years are taken from now in loc.
func NewIssuer(seq Sequencer, loc *time.Location, now func() time.Time) *Issuer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{seq: seq, loc: loc, now: now}
}

// SetFinder wires the lookup side once the ledger exists
func (i *Issuer) SetFinder(finder Finder) {
	i.finder = finder
}

// Mint reserves the next receipt number for school
func (i *Issuer) Mint(ctx context.Context, school ledger.School) (string, error) {
	if strings.TrimSpace(school.Code) == "" {
		return "", ErrMissingSchoolCode
	}
	// Only numbers that Parse accepts may be issued.
	if !codePattern.MatchString(strings.ToUpper(school.Code)) {
		return "", ErrInvalidSchoolCode.WithMessage("school code %q may only contain letters and digits", school.Code)
	}

	year := i.now().In(i.loc).Year()
	seq, err := i.seq.Next(ctx, school.ID, year)
	if err != nil {
		return "", err
	}
	return Format(school.Code, year, seq), nil
}

// Lookup returns the receipt for number if it belongs to school
func (i *Issuer) Lookup(ctx context.Context, school ledger.School, number string) (*ledger.Receipt, error) {
	code, year, seq, err := Parse(number)
	if err != nil {
		return nil, err
	}
	if code != strings.ToUpper(school.Code) {
		return nil, ledger.ErrReceiptNotFound.WithMessage("receipt %s not found", number)
	}
	return i.finder.LookupReceipt(ctx, school.ID, Format(code, year, seq))
}
