// Package money formats integer minor-unit amounts for display.
// Nothing in here participates in ledger arithmetic.
package money

import (
	"fmt"
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

// Formatter renders amounts stored in the smallest currency unit
type Formatter struct {
	Currency string
	Exponent int32
}

// NewFormatter creates a formatter for currency with exponent minor digits
func NewFormatter(currency string, exponent int32) *Formatter {
	if exponent < 0 {
		exponent = 0
	}
	return &Formatter{Currency: strings.ToUpper(currency), Exponent: exponent}
}

// Decimal converts a minor-unit amount to its major-unit decimal value
func (f *Formatter) Decimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -f.Exponent)
}

// Format renders amount as "KES 1,234.50"
func (f *Formatter) Format(amount int64) string {
	d := f.Decimal(amount)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(f.Exponent)
	whole, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		whole, frac = fixed[:i], fixed[i:]
	}

	return fmt.Sprintf("%s %s%s%s", f.Currency, sign, group(whole), frac)
}

// Words renders amount in English words, e.g. "one thousand two hundred KES and 50/100"
func (f *Formatter) Words(amount int64) string {
	d := f.Decimal(amount).Abs()
	major := d.Truncate(0)
	minor := d.Sub(major).Shift(f.Exponent).IntPart()

	words := num2words.Convert(int(major.IntPart()))
	if f.Exponent == 0 {
		return fmt.Sprintf("%s %s only", words, f.Currency)
	}
	return fmt.Sprintf("%s %s and %0*d/1%s", words, f.Currency, int(f.Exponent), minor, strings.Repeat("0", int(f.Exponent)))
}

// group inserts thousands separators into a string of digits
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
