package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

type IncomeEntryRepository struct {
	db querier
}

func NewIncomeEntryRepository(db *sql.DB) *IncomeEntryRepository {
	return &IncomeEntryRepository{db: db}
}

func (r *IncomeEntryRepository) Create(ctx context.Context, entry *domain.IncomeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO income_entries (id, tax_return_id, document_id, income_type, amount, federal_tax_withheld, employer_name, employer_ein, payer_name, payer_tin, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		entry.ID, entry.TaxReturnID, entry.DocumentID, string(entry.Type),
		entry.Amount, entry.FederalTaxWithheld,
		entry.EmployerName, entry.EmployerEIN, entry.PayerName, entry.PayerTIN,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert income entry: %w", err)
	}
	return nil
}

func (r *IncomeEntryRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM income_entries WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete income entries by document: %w", err)
	}
	return nil
}

// DeleteOrphans purges entries whose document reference dangles. The FK
// cascade keeps this empty in normal operation; data imported before the
// cascade rule existed still needs the sweep.
func (r *IncomeEntryRepository) DeleteOrphans(ctx context.Context, taxReturnID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM income_entries
WHERE tax_return_id = $1
  AND document_id NOT IN (SELECT id FROM documents WHERE tax_return_id = $1)
`, taxReturnID)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned income entries: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("orphan purge rows affected: %w", err)
	}
	return purged, nil
}

func (r *IncomeEntryRepository) ListValid(ctx context.Context, taxReturnID string) ([]domain.IncomeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT e.id, e.tax_return_id, e.document_id, e.income_type, e.amount, e.federal_tax_withheld, e.employer_name, e.employer_ein, e.payer_name, e.payer_tin, e.created_at
FROM income_entries e
JOIN documents d ON d.id = e.document_id
WHERE e.tax_return_id = $1
ORDER BY e.created_at
`, taxReturnID)
	if err != nil {
		return nil, fmt.Errorf("list valid income entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IncomeEntry
	for rows.Next() {
		var entry domain.IncomeEntry
		var incomeType string
		err := rows.Scan(
			&entry.ID, &entry.TaxReturnID, &entry.DocumentID, &incomeType,
			&entry.Amount, &entry.FederalTaxWithheld,
			&entry.EmployerName, &entry.EmployerEIN, &entry.PayerName, &entry.PayerTIN,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan income entry: %w", err)
		}
		entry.Type = domain.IncomeType(incomeType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate income entries: %w", err)
	}
	return entries, nil
}

func (r *IncomeEntryRepository) CountOrphans(ctx context.Context, taxReturnID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM income_entries
WHERE tax_return_id = $1
  AND document_id NOT IN (SELECT id FROM documents WHERE tax_return_id = $1)
`, taxReturnID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orphaned income entries: %w", err)
	}
	return count, nil
}
