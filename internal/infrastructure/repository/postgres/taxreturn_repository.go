package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

type TaxReturnRepository struct {
	db querier
}

func NewTaxReturnRepository(db *sql.DB) *TaxReturnRepository {
	return &TaxReturnRepository{db: db}
}

const taxReturnColumns = `id, user_id, tax_year, filing_status, first_name, last_name, ssn, address, city, state, zip_code,
total_income, total_withholdings, adjusted_gross_income, standard_deduction, itemized_deduction, taxable_income,
tax_liability, total_credits, refund_amount, amount_owed,
state_tax_liability, state_standard_deduction, state_itemized_deduction, state_taxable_income, state_effective_rate,
detected_state, state_confidence, state_source, created_at, updated_at`

func (r *TaxReturnRepository) GetByID(ctx context.Context, id string) (*domain.TaxReturn, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taxReturnColumns+`
FROM tax_returns
WHERE id = $1
`, id)
	return scanTaxReturn(row, "fetch tax return")
}

func (r *TaxReturnRepository) GetOwned(ctx context.Context, id, userID string) (*domain.TaxReturn, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taxReturnColumns+`
FROM tax_returns
WHERE id = $1 AND user_id = $2
`, id, userID)
	return scanTaxReturn(row, "fetch owned tax return")
}

func (r *TaxReturnRepository) LockForUpdate(ctx context.Context, id string) (*domain.TaxReturn, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taxReturnColumns+`
FROM tax_returns
WHERE id = $1
FOR UPDATE
`, id)
	return scanTaxReturn(row, "lock tax return")
}

func (r *TaxReturnRepository) SaveAggregates(ctx context.Context, ret *domain.TaxReturn) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tax_returns
SET total_income = $2, total_withholdings = $3, adjusted_gross_income = $4,
    standard_deduction = $5, itemized_deduction = $6, taxable_income = $7,
    tax_liability = $8, total_credits = $9, refund_amount = $10, amount_owed = $11,
    state_tax_liability = $12, state_standard_deduction = $13, state_itemized_deduction = $14,
    state_taxable_income = $15, state_effective_rate = $16,
    updated_at = $17
WHERE id = $1
`,
		ret.ID,
		ret.TotalIncome, ret.TotalWithholdings, ret.AdjustedGrossIncome,
		ret.StandardDeduction, ret.ItemizedDeduction, ret.TaxableIncome,
		ret.TaxLiability, ret.TotalCredits, ret.RefundAmount, ret.AmountOwed,
		ret.StateTaxLiability, ret.StateStandardDeduction, ret.StateItemizedDeduction,
		ret.StateTaxableIncome, ret.StateEffectiveRate,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save tax return aggregates: %w", err)
	}
	return requireReturnRow(res, "save tax return aggregates", ret.ID)
}

func (r *TaxReturnRepository) SaveStateDetection(ctx context.Context, id string, result domain.StateDetectionResult) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tax_returns
SET detected_state = $2, state_confidence = $3, state_source = $4, updated_at = $5
WHERE id = $1
`, id, result.State, result.Confidence, string(result.Source), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save state detection: %w", err)
	}
	return requireReturnRow(res, "save state detection", id)
}

// MergePersonalInfo fills only blanks: a field already on the return wins over
// whatever a later document extracted.
func (r *TaxReturnRepository) MergePersonalInfo(ctx context.Context, id string, info domain.PersonalInfo) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tax_returns
SET first_name = CASE WHEN first_name = '' THEN $2 ELSE first_name END,
    last_name  = CASE WHEN last_name  = '' THEN $3 ELSE last_name  END,
    ssn        = CASE WHEN ssn        = '' THEN $4 ELSE ssn        END,
    address    = CASE WHEN address    = '' THEN $5 ELSE address    END,
    city       = CASE WHEN city       = '' THEN $6 ELSE city       END,
    state      = CASE WHEN state      = '' THEN $7 ELSE state      END,
    zip_code   = CASE WHEN zip_code   = '' THEN $8 ELSE zip_code   END,
    updated_at = $9
WHERE id = $1
`, id, info.FirstName, info.LastName, info.SSN, info.Address, info.City, info.State, info.ZipCode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("merge personal info: %w", err)
	}
	return requireReturnRow(res, "merge personal info", id)
}

func (r *TaxReturnRepository) ListDependents(ctx context.Context, taxReturnID string) ([]domain.Dependent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tax_return_id, name, relationship, qualifies_child_credit, qualifies_eic
FROM dependents
WHERE tax_return_id = $1
ORDER BY name
`, taxReturnID)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	defer rows.Close()

	var deps []domain.Dependent
	for rows.Next() {
		var dep domain.Dependent
		err := rows.Scan(&dep.ID, &dep.TaxReturnID, &dep.Name, &dep.Relationship,
			&dep.QualifiesChildCredit, &dep.QualifiesEIC)
		if err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependents: %w", err)
	}
	return deps, nil
}

func requireReturnRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("tax return %s", id))
	}
	return nil
}

func scanTaxReturn(row *sql.Row, operation string) (*domain.TaxReturn, error) {
	var ret domain.TaxReturn
	var filingStatus, stateSource string

	err := row.Scan(
		&ret.ID, &ret.UserID, &ret.TaxYear, &filingStatus,
		&ret.FirstName, &ret.LastName, &ret.SSN, &ret.Address, &ret.City, &ret.State, &ret.ZipCode,
		&ret.TotalIncome, &ret.TotalWithholdings, &ret.AdjustedGrossIncome,
		&ret.StandardDeduction, &ret.ItemizedDeduction, &ret.TaxableIncome,
		&ret.TaxLiability, &ret.TotalCredits, &ret.RefundAmount, &ret.AmountOwed,
		&ret.StateTaxLiability, &ret.StateStandardDeduction, &ret.StateItemizedDeduction,
		&ret.StateTaxableIncome, &ret.StateEffectiveRate,
		&ret.DetectedState, &ret.StateConfidence, &stateSource,
		&ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, operation, err)
		}
		return nil, fmt.Errorf("scan tax return: %w", err)
	}

	ret.FilingStatus = domain.ParseFilingStatus(filingStatus)
	ret.StateSource = domain.StateSource(stateSource)
	return &ret, nil
}
