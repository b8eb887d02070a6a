package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

type policyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) GetPolicy(ctx context.Context, productCode string) (*domain.ProductPolicy, error) {
	query := `
		SELECT product_code, late_fee_type, late_fee_rate, late_fee_fixed_amount, late_fee_frequency_days,
			late_fee_cap, late_fee_base, early_settlement_rebate_rate
		FROM product_policies
		WHERE product_code = ?
	`

	var policy domain.ProductPolicy
	if err := r.db.GetContext(ctx, &policy, r.db.Rebind(query), productCode); err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) UpsertPolicy(ctx context.Context, policy *domain.ProductPolicy) error {
	query := `
		INSERT INTO product_policies (product_code, late_fee_type, late_fee_rate, late_fee_fixed_amount,
			late_fee_frequency_days, late_fee_cap, late_fee_base, early_settlement_rebate_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_code) DO UPDATE SET
			late_fee_type = excluded.late_fee_type,
			late_fee_rate = excluded.late_fee_rate,
			late_fee_fixed_amount = excluded.late_fee_fixed_amount,
			late_fee_frequency_days = excluded.late_fee_frequency_days,
			late_fee_cap = excluded.late_fee_cap,
			late_fee_base = excluded.late_fee_base,
			early_settlement_rebate_rate = excluded.early_settlement_rebate_rate
	`

	base := policy.LateFeeBase
	if base == "" {
		base = domain.LateFeeBaseInstallment
	}
	_, err := exec(ctx, r.db, query,
		policy.ProductCode,
		policy.LateFeeType,
		policy.LateFeeRate,
		policy.LateFeeFixedAmount,
		policy.LateFeeFrequencyDays,
		policy.LateFeeCap,
		base,
		policy.EarlySettlementRebateRate,
	)
	return err
}
