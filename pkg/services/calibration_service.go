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

// CalibrationService manages the calibration pool and derives inter-rater
// agreement for its members.
type CalibrationService struct {
	pool   repositories.CalibrationRepository
	cases  repositories.CaseRepository
	labels repositories.LabelRepository
	logger *zap.Logger
}

// NewCalibrationService creates a new CalibrationService.
func NewCalibrationService(
	pool repositories.CalibrationRepository,
	cases repositories.CaseRepository,
	labels repositories.LabelRepository,
	logger *zap.Logger,
) *CalibrationService {
	return &CalibrationService{
		pool:   pool,
		cases:  cases,
		labels: labels,
		logger: logger.Named("calibration-service"),
	}
}

// Add puts a case into the calibration pool. Idempotent: re-adding an
// active or previously removed case reactivates it.
func (s *CalibrationService) Add(ctx context.Context, caseID uuid.UUID) error {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return apperrors.ErrNotFound
	}

	if err := s.pool.Upsert(ctx, caseID); err != nil {
		return err
	}

	s.logger.Info("Case added to calibration pool", zap.String("case_id", caseID.String()))
	return nil
}

// Remove deactivates a pool entry. Agreement history on the case survives.
func (s *CalibrationService) Remove(ctx context.Context, caseID uuid.UUID) error {
	if err := s.pool.Deactivate(ctx, caseID); err != nil {
		return err
	}

	s.logger.Info("Case removed from calibration pool", zap.String("case_id", caseID.String()))
	return nil
}

// Cases returns the active pool, newest first, each member with its case,
// current labels and agreement metrics.
func (s *CalibrationService) Cases(ctx context.Context) ([]*models.CalibrationCaseView, error) {
	entries, err := s.pool.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*models.CalibrationCaseView, 0, len(entries))
	for _, entry := range entries {
		c, err := s.cases.GetByID(ctx, entry.CaseID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			// Pool entry survived a case deletion race; skip it.
			continue
		}

		labels, err := s.labels.CurrentForCase(ctx, entry.CaseID)
		if err != nil {
			return nil, err
		}

		views = append(views, &models.CalibrationCaseView{
			Case:      c,
			Labels:    labels,
			AddedAt:   entry.AddedAt,
			Agreement: ComputeAgreement(entry.CaseID, labels),
		})
	}

	return views, nil
}

// Agreement computes agreement metrics for one pool member.
func (s *CalibrationService) Agreement(ctx context.Context, caseID uuid.UUID) (*models.AgreementMetrics, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, apperrors.ErrNotFound
	}

	labels, err := s.labels.CurrentForCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	return ComputeAgreement(caseID, labels), nil
}

// Stats aggregates the pool: size, members with two or more raters, mean
// similarity over those members and the number of conflicts. Mean similarity
// is nil while no member has multiple raters.
func (s *CalibrationService) Stats(ctx context.Context) (*models.CalibrationStats, error) {
	entries, err := s.pool.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.CalibrationStats{PoolSize: len(entries)}

	totalSimilarity := 0.0
	for _, entry := range entries {
		labels, err := s.labels.CurrentForCase(ctx, entry.CaseID)
		if err != nil {
			return nil, err
		}
		if len(labels) < 2 {
			continue
		}

		stats.MultiRater++
		metrics := ComputeAgreement(entry.CaseID, labels)
		totalSimilarity += metrics.JaccardSimilarity
		if metrics.HasConflict {
			stats.Conflicts++
		}
	}

	if stats.MultiRater > 0 {
		mean := totalSimilarity / float64(stats.MultiRater)
		stats.MeanSimilarity = &mean
	}

	return stats, nil
}
