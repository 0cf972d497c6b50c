package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

// ReturnServiceUseCase covers the read model and the corrective operations:
// listing documents and valid income, deleting documents, explicit cleanup +
// recalculation, and duplicate-warning resolution.
type ReturnServiceUseCase struct {
	uow     ports.UnitOfWork
	docs    ports.DocumentRepository
	income  ports.IncomeEntryRepository
	returns ports.TaxReturnRepository
	recalc  *Recalculator
	proc    *ProcessDocumentUseCase
	logger  *slog.Logger
}

func NewReturnServiceUseCase(
	uow ports.UnitOfWork,
	docs ports.DocumentRepository,
	income ports.IncomeEntryRepository,
	returns ports.TaxReturnRepository,
	recalc *Recalculator,
	proc *ProcessDocumentUseCase,
	logger *slog.Logger,
) *ReturnServiceUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReturnServiceUseCase{
		uow:     uow,
		docs:    docs,
		income:  income,
		returns: returns,
		recalc:  recalc,
		proc:    proc,
		logger:  logger,
	}
}

func (uc *ReturnServiceUseCase) GetReturn(ctx context.Context, userID, taxReturnID string) (*domain.TaxReturn, error) {
	return uc.returns.GetOwned(ctx, taxReturnID, userID)
}

func (uc *ReturnServiceUseCase) ListDocuments(ctx context.Context, userID, taxReturnID string) ([]domain.Document, error) {
	if _, err := uc.returns.GetOwned(ctx, taxReturnID, userID); err != nil {
		return nil, fmt.Errorf("verify return ownership: %w", err)
	}
	return uc.docs.ListByReturn(ctx, taxReturnID)
}

// ListValidIncome returns only entries whose source document still exists,
// plus a count of orphans found so callers can surface data problems.
func (uc *ReturnServiceUseCase) ListValidIncome(ctx context.Context, userID, taxReturnID string) (*ports.IncomeOverview, error) {
	if _, err := uc.returns.GetOwned(ctx, taxReturnID, userID); err != nil {
		return nil, fmt.Errorf("verify return ownership: %w", err)
	}

	entries, err := uc.income.ListValid(ctx, taxReturnID)
	if err != nil {
		return nil, fmt.Errorf("list valid income entries: %w", err)
	}
	orphans, err := uc.income.CountOrphans(ctx, taxReturnID)
	if err != nil {
		return nil, fmt.Errorf("count orphaned income entries: %w", err)
	}

	totalIncome := decimal.Zero
	totalWithheld := decimal.Zero
	for _, entry := range entries {
		totalIncome = totalIncome.Add(entry.Amount)
		totalWithheld = totalWithheld.Add(entry.FederalTaxWithheld)
	}

	return &ports.IncomeOverview{
		Entries:       entries,
		OrphanCount:   orphans,
		TotalIncome:   domain.RoundCents(totalIncome).StringFixed(2),
		TotalWithheld: domain.RoundCents(totalWithheld).StringFixed(2),
	}, nil
}

// DeleteDocument removes the document, cascades its income entries, and
// re-derives the owning return's aggregates from whatever remains.
func (uc *ReturnServiceUseCase) DeleteDocument(ctx context.Context, userID, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	if _, err := uc.returns.GetOwned(ctx, doc.TaxReturnID, userID); err != nil {
		return fmt.Errorf("verify return ownership: %w", err)
	}

	err = uc.uow.Do(ctx, func(ctx context.Context, s ports.Stores) error {
		// The FK cascade removes the entries; the explicit delete keeps the
		// invariant even against schemas missing the cascade rule.
		if err := s.Income.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete income entries: %w", err)
		}
		if err := s.Documents.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if _, _, err := uc.recalc.Rederive(ctx, s, doc.TaxReturnID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "delete document", err)
	}
	return nil
}

// CleanupAndRecalculate is the explicit orphan cleanup + full recalculation
// pass, in one transaction.
func (uc *ReturnServiceUseCase) CleanupAndRecalculate(ctx context.Context, userID, taxReturnID string) (*ports.CleanupReport, error) {
	if _, err := uc.returns.GetOwned(ctx, taxReturnID, userID); err != nil {
		return nil, fmt.Errorf("verify return ownership: %w", err)
	}

	var report ports.CleanupReport
	err := uc.uow.Do(ctx, func(ctx context.Context, s ports.Stores) error {
		calc, purged, err := uc.recalc.Rederive(ctx, s, taxReturnID)
		if err != nil {
			return err
		}
		ret, err := s.Returns.GetByID(ctx, taxReturnID)
		if err != nil {
			return fmt.Errorf("reload tax return: %w", err)
		}
		report = ports.CleanupReport{
			OrphansRemoved: purged,
			Return:         ret,
			Calculation:    calc,
		}
		return nil
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrCalculation) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrPersistence, "cleanup and recalculate", err)
	}
	return &report, nil
}

// ResolveDuplicate records the user's answer to a duplicate warning. Proceed
// and replace keep the previously computed data with no recomputation;
// cancel abandons the upload, deleting the document and its entries.
func (uc *ReturnServiceUseCase) ResolveDuplicate(ctx context.Context, userID, documentID string, action domain.DuplicateResolution) (*domain.ProcessingResult, error) {
	if !action.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve duplicate", fmt.Errorf("unknown action %q", action))
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	ret, err := uc.returns.GetOwned(ctx, doc.TaxReturnID, userID)
	if err != nil {
		return nil, fmt.Errorf("verify return ownership: %w", err)
	}
	if doc.Status != domain.StatusCompleted {
		return nil, domain.WrapError(domain.ErrConflict, "resolve duplicate",
			errors.New("duplicate resolution requires a completed document"))
	}

	if action == domain.ResolutionCancel {
		if err := uc.DeleteDocument(ctx, userID, documentID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// proceed / replace: the stored results stand as-is.
	return uc.proc.persistedResult(doc, ret), nil
}
