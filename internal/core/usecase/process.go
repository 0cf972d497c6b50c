package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

const stateConfidenceReviewThreshold = 0.8

// ProcessDocumentUseCase coordinates the per-document pipeline:
// claim → extract → detect state → duplicate check → map income →
// recalculate → persist. Enrichment stages are fault-isolated; extraction
// and final persistence are fatal.
type ProcessDocumentUseCase struct {
	uow        ports.UnitOfWork
	docs       ports.DocumentRepository
	returns    ports.TaxReturnRepository
	income     ports.IncomeEntryRepository
	extractor  ports.FieldExtractor
	sniffer    ports.FullTextSniffer
	detector   *StateDetector
	duplicates ports.DuplicateChecker
	mapper     *TaxMapper
	recalc     *Recalculator
	logger     *slog.Logger
}

func NewProcessDocumentUseCase(
	uow ports.UnitOfWork,
	docs ports.DocumentRepository,
	returns ports.TaxReturnRepository,
	income ports.IncomeEntryRepository,
	extractor ports.FieldExtractor,
	sniffer ports.FullTextSniffer,
	detector *StateDetector,
	duplicates ports.DuplicateChecker,
	mapper *TaxMapper,
	recalc *Recalculator,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		uow:        uow,
		docs:       docs,
		returns:    returns,
		income:     income,
		extractor:  extractor,
		sniffer:    sniffer,
		detector:   detector,
		duplicates: duplicates,
		mapper:     mapper,
		recalc:     recalc,
		logger:     logger,
	}
}

// Process runs the pipeline for one document. Idempotent when the document
// is already COMPLETED; a conflict when it is already PROCESSING.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, userID, documentID string) (*domain.ProcessingResult, error) {
	doc, ret, err := uc.authorize(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if doc.Status == domain.StatusCompleted {
		return uc.persistedResult(doc, ret), nil
	}

	// Atomic conditional transition; two racing requests cannot both claim.
	if err := uc.docs.ClaimProcessing(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("claim document for processing: %w", err)
	}

	result, err := uc.pipeline(ctx, doc, ret)
	if err != nil {
		uc.markFailed(ctx, doc.ID, err)
		return nil, err
	}
	return result, nil
}

// authorize resolves the document and its owning return, failing closed with
// not-found on any ownership mismatch to avoid existence leakage.
func (uc *ProcessDocumentUseCase) authorize(ctx context.Context, userID, documentID string) (*domain.Document, *domain.TaxReturn, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch document: %w", err)
	}

	var ret *domain.TaxReturn
	if userID == "" {
		// Worker context: the caller is the system itself.
		ret, err = uc.returns.GetByID(ctx, doc.TaxReturnID)
	} else {
		ret, err = uc.returns.GetOwned(ctx, doc.TaxReturnID, userID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify return ownership: %w", err)
	}
	return doc, ret, nil
}

func (uc *ProcessDocumentUseCase) pipeline(ctx context.Context, doc *domain.Document, ret *domain.TaxReturn) (*domain.ProcessingResult, error) {
	extraction, err := uc.extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	// A corrected type overwrites the declared one before any downstream
	// stage runs; later stages key off the corrected type.
	if extraction.CorrectedType != "" && extraction.CorrectedType != doc.Type {
		doc.Type = extraction.CorrectedType
		if err := uc.docs.UpdateType(ctx, doc.ID, doc.Type); err != nil {
			uc.logger.Warn("persist_corrected_type_failed", "document_id", doc.ID, "error", err)
		}
	}

	fields := extraction.Fields
	if fields == nil {
		fields = &domain.ExtractedFields{}
	}
	fields.FullText = uc.fullText(ctx, doc, extraction)

	detection := uc.detector.Detect(ctx, doc.Type, fields)

	verdict := uc.checkDuplicate(ctx, doc, fields)

	mapping := uc.mapper.Map(doc.Type, fields)

	doc.Extracted = fields
	doc.FullText = fields.FullText
	doc.Status = domain.StatusCompleted
	doc.IsVerified = false

	calc, err := uc.persist(ctx, doc, detection, mapping)
	if err != nil {
		return nil, err
	}

	result := &domain.ProcessingResult{
		Document:             doc,
		StateDetection:       detection,
		TaxCalculation:       calc,
		Mapping:              mapping,
		Duplicate:            verdict,
		RequiresManualReview: verdict != nil && verdict.IsDuplicate,
	}
	result.SuggestedActions = suggestedActions(result, mapping)
	return result, nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document) (*ports.ExtractionResult, error) {
	extraction, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "ocr extraction", err)
	}
	return extraction, nil
}

// fullText prefers the OCR text and falls back to local sniffing so tier-3
// state detection still has material when the service omits it.
func (uc *ProcessDocumentUseCase) fullText(ctx context.Context, doc *domain.Document, extraction *ports.ExtractionResult) string {
	if text := strings.TrimSpace(extraction.FullText); text != "" {
		return text
	}
	if extraction.Fields != nil && strings.TrimSpace(extraction.Fields.FullText) != "" {
		return strings.TrimSpace(extraction.Fields.FullText)
	}
	if uc.sniffer == nil {
		return ""
	}
	text, err := uc.sniffer.Sniff(ctx, doc)
	if err != nil {
		uc.logger.Warn("full_text_sniff_failed", "document_id", doc.ID, "error", err)
		return ""
	}
	return text
}

func (uc *ProcessDocumentUseCase) checkDuplicate(ctx context.Context, doc *domain.Document, fields *domain.ExtractedFields) *domain.DuplicateVerdict {
	if uc.duplicates == nil {
		return nil
	}
	probe := *doc
	probe.Extracted = fields
	verdict, err := uc.duplicates.Check(ctx, &probe)
	if err != nil {
		uc.logger.Warn("duplicate_check_failed", "document_id", doc.ID, "error", err)
		return nil
	}
	return &verdict
}

// persist writes the completed document, its income entry, the state
// snapshot and the re-derived aggregates in one transaction. Failure here is
// fatal and rolls everything back.
func (uc *ProcessDocumentUseCase) persist(
	ctx context.Context,
	doc *domain.Document,
	detection domain.StateDetectionResult,
	mapping *domain.MappingResult,
) (*domain.TaxCalculation, error) {
	var calc *domain.TaxCalculation

	err := uc.uow.Do(ctx, func(ctx context.Context, s ports.Stores) error {
		if err := s.Documents.MarkCompleted(ctx, doc); err != nil {
			return fmt.Errorf("mark document completed: %w", err)
		}

		if mapping != nil && mapping.Income != nil {
			entry := &domain.IncomeEntry{
				TaxReturnID:        doc.TaxReturnID,
				DocumentID:         doc.ID,
				Type:               mapping.Income.Type,
				Amount:             mapping.Income.Amount,
				FederalTaxWithheld: mapping.Income.FederalTaxWithheld,
				EmployerName:       mapping.Income.EmployerName,
				EmployerEIN:        mapping.Income.EmployerEIN,
				PayerName:          mapping.Income.PayerName,
				PayerTIN:           mapping.Income.PayerTIN,
			}
			if err := s.Income.Create(ctx, entry); err != nil {
				return fmt.Errorf("create income entry: %w", err)
			}
		}

		if mapping != nil {
			if err := s.Returns.MergePersonalInfo(ctx, doc.TaxReturnID, mapping.PersonalInfo); err != nil {
				return fmt.Errorf("merge personal info: %w", err)
			}
		}

		// Only a successful detection overwrites the snapshot; a miss must
		// not erase a previously known state.
		if detection.Found() {
			if err := s.Returns.SaveStateDetection(ctx, doc.TaxReturnID, detection); err != nil {
				return fmt.Errorf("save state detection: %w", err)
			}
		}

		result, _, err := uc.recalc.Rederive(ctx, s, doc.TaxReturnID)
		if err != nil {
			return err
		}
		calc = result
		return nil
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrCalculation) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrPersistence, "persist processing results", err)
	}
	return calc, nil
}

// markFailed is best-effort; a secondary failure to record FAILED is logged
// and swallowed so the original error surfaces.
func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, cause error) {
	if err := uc.docs.MarkFailed(ctx, documentID, cause.Error()); err != nil {
		uc.logger.Error("mark_failed_status_error", "document_id", documentID, "error", err)
	}
}

// persistedResult rebuilds the comprehensive payload from stored state for
// an already-COMPLETED document: no recomputation, no external calls.
func (uc *ProcessDocumentUseCase) persistedResult(doc *domain.Document, ret *domain.TaxReturn) *domain.ProcessingResult {
	detection := domain.StateDetectionResult{
		State:      ret.DetectedState,
		Confidence: ret.StateConfidence,
		Source:     ret.StateSource,
	}
	if detection.Source == "" {
		detection.Source = domain.SourceUnknown
	}

	calc := &domain.TaxCalculation{
		Federal: domain.FederalCalculation{
			AdjustedGrossIncome: ret.AdjustedGrossIncome,
			StandardDeduction:   ret.StandardDeduction,
			ItemizedDeduction:   ret.ItemizedDeduction,
			TaxableIncome:       ret.TaxableIncome,
			TaxLiability:        ret.TaxLiability,
			Credits:             ret.TotalCredits,
		},
		TotalIncome:       ret.TotalIncome,
		TotalWithholdings: ret.TotalWithholdings,
		TotalTaxLiability: ret.TaxLiability.Add(ret.StateTaxLiability),
		RefundAmount:      ret.RefundAmount,
		AmountOwed:        ret.AmountOwed,
	}
	if ret.StateTaxLiability.IsPositive() || ret.StateTaxableIncome.IsPositive() {
		calc.State = &domain.StateCalculation{
			StateCode:         ret.DetectedState,
			HasIncomeTax:      true,
			StandardDeduction: ret.StateStandardDeduction,
			TaxableIncome:     ret.StateTaxableIncome,
			TaxLiability:      ret.StateTaxLiability,
			EffectiveRate:     ret.StateEffectiveRate,
		}
	}

	return &domain.ProcessingResult{
		Document:         doc,
		StateDetection:   detection,
		TaxCalculation:   calc,
		SuggestedActions: []string{"Document already processed; showing stored results."},
	}
}

func suggestedActions(result *domain.ProcessingResult, mapping *domain.MappingResult) []string {
	var actions []string
	if result.Duplicate != nil && result.Duplicate.IsDuplicate {
		actions = append(actions, "Review possible duplicate documents before filing.")
	}
	if result.StateDetection.Confidence < stateConfidenceReviewThreshold {
		actions = append(actions, "Verify the detected state; confidence was low.")
	}
	if mapping != nil && mapping.AmbiguousAmounts {
		actions = append(actions, "Multiple 1099-MISC income boxes were reported; verify the selected amount.")
	}
	if result.TaxCalculation != nil && len(result.TaxCalculation.Suggestions) > 0 {
		actions = append(actions, "Review tax optimization suggestions.")
	}
	if len(actions) == 0 {
		actions = append(actions, "Document processed successfully; review the extracted data.")
	}
	return actions
}
