package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ratePolicy(rate string, frequency int) *ProductPolicy {
	return &ProductPolicy{
		ProductCode:          "STD",
		LateFeeType:          LateFeeTypeRate,
		LateFeeRate:          decimal.RequireFromString(rate),
		LateFeeFrequencyDays: frequency,
		LateFeeBase:          LateFeeBaseInstallment,
	}
}

func TestProductPolicy_AppliesOn(t *testing.T) {
	weekly := ratePolicy("0.01", 7)
	applies := []int{}
	for day := -1; day <= 21; day++ {
		if weekly.AppliesOn(day) {
			applies = append(applies, day)
		}
	}
	assert.Equal(t, []int{1, 7, 14, 21}, applies)

	daily := ratePolicy("0.01", 1)
	for day := 1; day <= 5; day++ {
		assert.True(t, daily.AppliesOn(day))
	}
	assert.False(t, daily.AppliesOn(0))
}

func TestProductPolicy_FeeFor(t *testing.T) {
	repayment := func(principal, interest, fee, paid string) *Repayment {
		return &Repayment{
			PrincipalDue: decimal.RequireFromString(principal),
			InterestDue:  decimal.RequireFromString(interest),
			FeeDue:       decimal.RequireFromString(fee),
			AmountPaid:   decimal.RequireFromString(paid),
		}
	}

	tests := []struct {
		name     string
		policy   *ProductPolicy
		r        *Repayment
		expected string
	}{
		{
			name:     "rate rounds half up to two decimals",
			policy:   ratePolicy("0.0133", 1),
			r:        repayment("900", "100", "0", "0"),
			expected: "13.30",
		},
		{
			name:     "rate ignores accrued fees by default",
			policy:   ratePolicy("0.01", 1),
			r:        repayment("450", "50", "20", "0"),
			expected: "5.00",
		},
		{
			name: "rate compounds when base includes fees",
			policy: func() *ProductPolicy {
				p := ratePolicy("0.01", 1)
				p.LateFeeBase = LateFeeBaseWithFees
				return p
			}(),
			r:        repayment("450", "50", "5", "0"),
			expected: "5.05",
		},
		{
			name:     "partial payment lowers the base",
			policy:   ratePolicy("0.02", 1),
			r:        repayment("450", "50", "0", "200"),
			expected: "6.00",
		},
		{
			name: "fixed amount",
			policy: &ProductPolicy{
				LateFeeType:          LateFeeTypeFixed,
				LateFeeFixedAmount:   decimal.RequireFromString("15"),
				LateFeeFrequencyDays: 1,
			},
			r:        repayment("450", "50", "0", "0"),
			expected: "15.00",
		},
		{
			name: "cap limits cumulative fees",
			policy: func() *ProductPolicy {
				p := ratePolicy("0.01", 1)
				p.LateFeeCap = decimal.NewNullDecimal(decimal.RequireFromString("12"))
				return p
			}(),
			r:        repayment("450", "50", "10", "0"),
			expected: "2.00",
		},
		{
			name: "cap reached yields zero",
			policy: func() *ProductPolicy {
				p := ratePolicy("0.01", 1)
				p.LateFeeCap = decimal.NewNullDecimal(decimal.RequireFromString("10"))
				return p
			}(),
			r:        repayment("450", "50", "10", "0"),
			expected: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := tt.policy.FeeFor(tt.r)
			assert.Equal(t, tt.expected, amount.StringFixed(2))
		})
	}
}

func TestProductPolicy_Validate(t *testing.T) {
	assert.NoError(t, ratePolicy("0.01", 1).Validate())

	zeroFrequency := ratePolicy("0.01", 0)
	assert.Error(t, zeroFrequency.Validate())

	unknownType := ratePolicy("0.01", 1)
	unknownType.LateFeeType = "TIERED"
	assert.Error(t, unknownType.Validate())

	badRebate := ratePolicy("0.01", 1)
	badRebate.EarlySettlementRebateRate = decimal.NewNullDecimal(decimal.NewFromInt(2))
	assert.Error(t, badRebate.Validate())
}

func TestProductPolicy_RebateRate(t *testing.T) {
	var nilPolicy *ProductPolicy
	assert.True(t, nilPolicy.RebateRate().IsZero())

	p := ratePolicy("0.01", 1)
	assert.True(t, p.RebateRate().IsZero())

	p.EarlySettlementRebateRate = decimal.NewNullDecimal(decimal.RequireFromString("0.5"))
	assert.Equal(t, "0.5", p.RebateRate().String())
}
