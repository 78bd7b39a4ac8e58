package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/repositories"
)

// CaseService implements the case store: creation, bulk import, filtered
// listing, the labelling queue and status management.
type CaseService struct {
	cases       repositories.CaseRepository
	labels      repositories.LabelRepository
	calibration repositories.CalibrationRepository
	logger      *zap.Logger
}

// NewCaseService creates a new CaseService.
func NewCaseService(
	cases repositories.CaseRepository,
	labels repositories.LabelRepository,
	calibration repositories.CalibrationRepository,
	logger *zap.Logger,
) *CaseService {
	return &CaseService{
		cases:       cases,
		labels:      labels,
		calibration: calibration,
		logger:      logger.Named("case-service"),
	}
}

// Create validates and stores a single new case with status NEW.
func (s *CaseService) Create(ctx context.Context, creatorID uuid.UUID, in *models.CreateCaseInput) (*models.Case, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c := &models.Case{
		Text:      in.Text,
		Language:  in.Language,
		Source:    in.Source,
		Status:    models.CaseStatusNew,
		Metadata:  in.Metadata,
		CreatedBy: creatorID,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Case created",
		zap.String("case_id", c.ID.String()),
		zap.String("source", string(c.Source)))

	return c, nil
}

// Import bulk-inserts up to MaxImportBatch cases best-effort: invalid or
// failing items are reported per index without aborting the batch. The
// error strings keep the portal's established "Fall N" format.
func (s *CaseService) Import(ctx context.Context, creatorID uuid.UUID, items []models.ImportCaseItem) (*models.ImportResult, error) {
	return s.importWithSource(ctx, creatorID, items, models.CaseSourceImport)
}

func (s *CaseService) importWithSource(ctx context.Context, creatorID uuid.UUID, items []models.ImportCaseItem, source models.CaseSource) (*models.ImportResult, error) {
	if len(items) == 0 {
		return nil, models.ValidationErrors{{Field: "cases", Message: "at least one case is required"}}
	}
	if len(items) > models.MaxImportBatch {
		return nil, models.ValidationErrors{{Field: "cases", Message: fmt.Sprintf("at most %d cases per import", models.MaxImportBatch)}}
	}

	result := &models.ImportResult{Errors: []string{}}

	// Validate up front; only valid items reach the database batch.
	var valid []*models.Case
	var validIdx []int
	for i := range items {
		item := items[i]
		if err := item.Validate(); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Fall %d: %s", i+1, err.Error()))
			continue
		}
		valid = append(valid, &models.Case{
			Text:      item.Text,
			Language:  item.Language,
			Source:    source,
			Status:    models.CaseStatusNew,
			Metadata:  item.Metadata,
			CreatedBy: creatorID,
		})
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		itemErrs, err := s.cases.ImportBatch(ctx, valid)
		if err != nil {
			return nil, fmt.Errorf("failed to import cases: %w", err)
		}
		for j, itemErr := range itemErrs {
			if itemErr != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("Fall %d: %s", validIdx[j]+1, itemErr.Error()))
				continue
			}
			result.Imported++
		}
	}

	s.logger.Info("Cases imported",
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))

	return result, nil
}

// List returns one page of cases matching the filters, each decorated with
// its current labels and calibration pool membership, plus the unpaginated
// total.
func (s *CaseService) List(ctx context.Context, filters *models.CaseFilters) (*models.CaseList, error) {
	if filters == nil {
		filters = &models.CaseFilters{}
	}
	if err := filters.Normalize(); err != nil {
		return nil, err
	}

	cases, total, err := s.cases.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	withLabels, err := s.decorate(ctx, cases)
	if err != nil {
		return nil, err
	}

	return &models.CaseList{Cases: withLabels, Total: total}, nil
}

// Get returns one case with its current labels and pool membership.
func (s *CaseService) Get(ctx context.Context, id uuid.UUID) (*models.CaseWithLabels, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.ErrNotFound
	}

	decorated, err := s.decorate(ctx, []*models.Case{c})
	if err != nil {
		return nil, err
	}
	return decorated[0], nil
}

// Delete removes a case; its labels and pool entry cascade.
func (s *CaseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.cases.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Case deleted", zap.String("case_id", id.String()))
	return nil
}

// NextUnlabeled dequeues the oldest NEW case the rater has never labelled,
// superseded labels included so reworked cases do not reappear. Returns nil
// when the queue is empty.
func (s *CaseService) NextUnlabeled(ctx context.Context, raterID uuid.UUID) (*models.CaseWithLabels, error) {
	c, err := s.cases.NextUnlabeled(ctx, raterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	decorated, err := s.decorate(ctx, []*models.Case{c})
	if err != nil {
		return nil, err
	}
	return decorated[0], nil
}

// UpdateStatus sets the case status directly without re-deriving it from
// labels. Used by admins to park cases in REVIEW and release them again.
func (s *CaseService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	if !models.ValidCaseStatus(status) {
		return models.ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown status: %s", status)}}
	}
	return s.cases.UpdateStatus(ctx, id, status)
}

func (s *CaseService) decorate(ctx context.Context, cases []*models.Case) ([]*models.CaseWithLabels, error) {
	ids := make([]uuid.UUID, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}

	labelsByCase, err := s.labels.CurrentForCases(ctx, ids)
	if err != nil {
		return nil, err
	}
	members, err := s.calibration.ActiveMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.CaseWithLabels, len(cases))
	for i, c := range cases {
		labels := labelsByCase[c.ID]
		if labels == nil {
			labels = []*models.Label{}
		}
		out[i] = &models.CaseWithLabels{
			Case:          *c,
			Labels:        labels,
			InCalibration: members[c.ID],
		}
	}
	return out, nil
}
