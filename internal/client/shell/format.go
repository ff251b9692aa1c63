package shell

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is how timestamps are shown.
const DateLayout = "Jan 2, 2006 15:04"

// Money formats d as $1,234.56, with a leading minus when negative.
func Money(d decimal.Decimal) string {
	s := "$" + group(d.Abs().StringFixed(2))
	if d.IsNegative() {
		return "-" + s
	}
	return s
}

// SignedMoney is Money with an explicit plus on positive amounts.
func SignedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + Money(d)
	}
	return Money(d)
}

// group inserts thousands separators into a non-negative fixed-point string.
func group(fixed string) string {
	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Date formats t, or "-" for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateLayout)
}
