package depreciation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Defaults applied by callers when an asset leaves them blank.
var (
	DefaultPercentage        = decimal.NewFromInt(20)
	DefaultFiscalCoefficient = decimal.NewFromFloat(1.75)
)

// DeriveStopDate returns the last day of the lifetime implied by an annual
// percentage: 100/percentage years, expressed as whole months plus a
// remainder in 30-day months. Regressive lifetimes start at the beginning of
// the start month. Method none has no lifetime and returns ok=false.
func DeriveStopDate(started Date, method Method, percentage decimal.Decimal) (stop Date, ok bool, err error) {
	if started.IsZero() {
		return Date{}, false, &InvalidArgumentError{Argument: "started_on", Reason: "is required"}
	}

	anchor := started
	switch method {
	case MethodNone:
		return Date{}, false, nil
	case MethodLinear:
	case MethodRegressive:
		anchor = started.BeginningOfMonth()
	default:
		return Date{}, false, &InvalidArgumentError{Argument: "method", Reason: fmt.Sprintf("unrecognized method %q", method)}
	}

	if !percentage.IsPositive() {
		return Date{}, false, &InvalidArgumentError{Argument: "percentage", Reason: fmt.Sprintf("must be > 0, got %s", percentage)}
	}

	months := decimal.NewFromInt(12).Mul(hundred).Div(percentage)
	whole := months.Floor()
	extraDays := months.Sub(whole).Mul(decimal.NewFromInt(daysPerMonth)).Floor()

	stop = anchor.AddMonths(int(whole.IntPart())).AddDays(int(extraDays.IntPart()) - 1)
	return stop, true, nil
}
