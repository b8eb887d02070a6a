package domain

import (
	"fmt"

	"github.com/segyhp/repayment-ledger/pkg/utils"
	"github.com/shopspring/decimal"
)

const (
	LateFeeTypeRate  = "RATE"
	LateFeeTypeFixed = "FIXED"

	// LateFeeBaseInstallment charges the rate on unpaid principal and interest only.
	LateFeeBaseInstallment = "INSTALLMENT"
	// LateFeeBaseWithFees also charges the rate on fees already accrued.
	LateFeeBaseWithFees = "INSTALLMENT_WITH_FEES"
)

// ProductPolicy is the read-only product configuration that drives late fee
// accrual and early settlement rebates for every loan of a product.
type ProductPolicy struct {
	ProductCode               string              `json:"product_code" db:"product_code"`
	LateFeeType               string              `json:"late_fee_type" db:"late_fee_type"`
	LateFeeRate               decimal.Decimal     `json:"late_fee_rate" db:"late_fee_rate"` // fraction, 0.01 means 1%
	LateFeeFixedAmount        decimal.Decimal     `json:"late_fee_fixed_amount" db:"late_fee_fixed_amount"`
	LateFeeFrequencyDays      int                 `json:"late_fee_frequency_days" db:"late_fee_frequency_days"`
	LateFeeCap                decimal.NullDecimal `json:"late_fee_cap" db:"late_fee_cap"`
	LateFeeBase               string              `json:"late_fee_base" db:"late_fee_base"`
	EarlySettlementRebateRate decimal.NullDecimal `json:"early_settlement_rebate_rate" db:"early_settlement_rebate_rate"`
}

// Validate rejects policies the accrual job cannot apply.
func (p *ProductPolicy) Validate() error {
	if p.LateFeeFrequencyDays <= 0 {
		return fmt.Errorf("late fee frequency must be positive, got %d", p.LateFeeFrequencyDays)
	}
	switch p.LateFeeType {
	case LateFeeTypeRate:
		if p.LateFeeRate.IsNegative() {
			return fmt.Errorf("late fee rate must not be negative")
		}
	case LateFeeTypeFixed:
		if p.LateFeeFixedAmount.IsNegative() {
			return fmt.Errorf("late fee fixed amount must not be negative")
		}
	default:
		return fmt.Errorf("unknown late fee type %q", p.LateFeeType)
	}
	switch p.LateFeeBase {
	case "", LateFeeBaseInstallment, LateFeeBaseWithFees:
	default:
		return fmt.Errorf("unknown late fee base %q", p.LateFeeBase)
	}
	if p.LateFeeCap.Valid && p.LateFeeCap.Decimal.IsNegative() {
		return fmt.Errorf("late fee cap must not be negative")
	}
	if p.EarlySettlementRebateRate.Valid {
		r := p.EarlySettlementRebateRate.Decimal
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("rebate rate must be within [0, 1]")
		}
	}
	return nil
}

// AppliesOn reports whether a fee is due on the given overdue day: on the
// first day and then on every multiple of the frequency.
func (p *ProductPolicy) AppliesOn(daysOverdue int) bool {
	if daysOverdue <= 0 {
		return false
	}
	return daysOverdue == 1 || daysOverdue%p.LateFeeFrequencyDays == 0
}

// FeeFor computes the fee for one accrual on r, rounded half-up to cents and
// clamped so that the installment's accrued fees never exceed the cap. It
// returns the rate recorded on the LateFee row (zero for fixed fees).
func (p *ProductPolicy) FeeFor(r *Repayment) (amount, rate decimal.Decimal) {
	switch p.LateFeeType {
	case LateFeeTypeFixed:
		amount = p.LateFeeFixedAmount
	default:
		base := r.ScheduledAmount().Sub(r.AmountPaid)
		if p.LateFeeBase == LateFeeBaseWithFees {
			base = base.Add(r.FeeDue)
		}
		if base.IsNegative() {
			base = decimal.Zero
		}
		rate = p.LateFeeRate
		amount = base.Mul(rate)
	}

	if p.LateFeeCap.Valid {
		room := p.LateFeeCap.Decimal.Sub(r.FeeDue)
		if room.IsNegative() {
			room = decimal.Zero
		}
		if amount.GreaterThan(room) {
			amount = room
		}
	}
	return utils.RoundCurrency(amount), rate
}

// RebateRate is the early settlement rebate fraction, zero when unset.
func (p *ProductPolicy) RebateRate() decimal.Decimal {
	if p == nil || !p.EarlySettlementRebateRate.Valid {
		return decimal.Zero
	}
	return p.EarlySettlementRebateRate.Decimal
}
