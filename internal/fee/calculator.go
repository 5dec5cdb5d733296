package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calculator derives the amount owed for a finished borrowing. It is pure:
// no I/O, no clock access.
type Calculator struct {
	fineMultiplier decimal.Decimal
}

// NewCalculator takes the per-overdue-day penalty.
func NewCalculator(fineMultiplier decimal.Decimal) Calculator {
	return Calculator{fineMultiplier: fineMultiplier}
}

// Amount computes daysPlanned*dailyFee, plus overdueDays*fineMultiplier when
// the actual return is past the expected date. A return on or before the
// expected date charges the base fee only. The returned flag reports whether
// the borrowing was overdue.
func (c Calculator) Amount(borrowDate, expectedReturnDate, actualReturnDate time.Time, dailyFee decimal.Decimal) (decimal.Decimal, bool) {
	daysPlanned := daysBetween(borrowDate, expectedReturnDate)
	amount := dailyFee.Mul(decimal.NewFromInt(int64(daysPlanned)))

	overdueDays := daysBetween(expectedReturnDate, actualReturnDate)
	if overdueDays <= 0 {
		return amount, false
	}
	return amount.Add(c.fineMultiplier.Mul(decimal.NewFromInt(int64(overdueDays)))), true
}

func daysBetween(from, to time.Time) int {
	return int(toMidnightUTC(to).Sub(toMidnightUTC(from)).Hours() / 24)
}

func toMidnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
