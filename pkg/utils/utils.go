package utils

import (
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	monthsInYear  = decimal.NewFromInt(12)
	currencyPlace = int32(2)
)

// RoundCurrency rounds half-up to the minor currency unit (2 decimals).
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlace)
}

// CalculateFlatInterest returns the total interest for a flat-rate loan.
// Formula: Principal × (AnnualRate / 100) × (Months / 12)
func CalculateFlatInterest(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) decimal.Decimal {
	interest := principal.
		Mul(annualRatePercent).
		Div(hundred).
		Mul(decimal.NewFromInt(int64(months))).
		Div(monthsInYear)
	return RoundCurrency(interest)
}

// InstallmentSplit is the principal and interest portion of one installment.
type InstallmentSplit struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
}

// SplitInstallments divides principal and interest across n equal
// installments. Each installment is (principal+interest)/n rounded to cents
// and the last one absorbs the remainder. Interest is split by cumulative
// rounding against the amount scheduled so far: after installment i the
// interest booked is round(I × paid_i / total). Both parts of every
// installment stay non-negative as long as the last installment is positive,
// and the sums match the loan totals exactly.
func SplitInstallments(principal, interest decimal.Decimal, n int) []InstallmentSplit {
	if n <= 0 {
		return nil
	}
	total := principal.Add(interest)
	installment := RoundCurrency(total.Div(decimal.NewFromInt(int64(n))))

	splits := make([]InstallmentSplit, n)
	var scheduled, bookedInterest decimal.Decimal
	for i := 0; i < n; i++ {
		scheduled = scheduled.Add(installment)
		if i == n-1 {
			scheduled = total
		}
		cumulative := interest
		if i < n-1 && !total.IsZero() {
			cumulative = RoundCurrency(interest.Mul(scheduled).Div(total))
		}
		amount := installment
		if i == n-1 {
			amount = total.Sub(installment.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		in := cumulative.Sub(bookedInterest)
		splits[i] = InstallmentSplit{Principal: amount.Sub(in), Interest: in}
		bookedInterest = cumulative
	}
	return splits
}

// PartitionIndex maps an id onto one of n buckets. The same id always lands
// in the same bucket.
func PartitionIndex(id uuid.UUID, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % uint32(n))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
