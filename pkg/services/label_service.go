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

// LabelService implements the append-only label ledger: creating, updating
// (superseding) and reading annotations.
type LabelService struct {
	labels   repositories.LabelRepository
	cases    repositories.CaseRepository
	taxonomy *TaxonomyService
	logger   *zap.Logger
}

// NewLabelService creates a new LabelService.
func NewLabelService(
	labels repositories.LabelRepository,
	cases repositories.CaseRepository,
	taxonomy *TaxonomyService,
	logger *zap.Logger,
) *LabelService {
	return &LabelService{
		labels:   labels,
		cases:    cases,
		taxonomy: taxonomy,
		logger:   logger.Named("label-service"),
	}
}

// Create records the rater's first label on a case and promotes the case
// from NEW to LABELED in the same transaction. Returns ErrAlreadyLabelled if
// the rater already has a current label on the case; racing duplicates lose
// at commit time on the partial unique index.
func (s *LabelService) Create(ctx context.Context, raterID uuid.UUID, in *models.LabelInput) (*models.Label, error) {
	c, err := s.cases.GetByID(ctx, in.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, apperrors.ErrNotFound
	}

	tv, err := s.taxonomy.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}

	if errs := ValidateLabel(in, &tv.Schema, len([]rune(c.Text))); len(errs) > 0 {
		return nil, errs
	}

	existing, err := s.labels.CurrentForRater(ctx, in.CaseID, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing label: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrAlreadyLabelled
	}

	label := labelFromInput(in, raterID, tv.ID)
	if err := s.labels.CreateWithPromotion(ctx, label); err != nil {
		return nil, err
	}

	s.logger.Info("Label created",
		zap.String("label_id", label.ID.String()),
		zap.String("case_id", in.CaseID.String()),
		zap.String("rater_id", raterID.String()))

	return label, nil
}

// Update supersedes the rater's existing label with a replacement. Only the
// owning rater may update, and a superseded label is terminal: updating it
// again fails with ErrAlreadySuperseded, enforced once here for a friendly
// error and again at commit via the repository's guarded update.
func (s *LabelService) Update(ctx context.Context, raterID, labelID uuid.UUID, in *models.LabelInput) (*models.Label, error) {
	old, err := s.labels.GetByID(ctx, labelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load label: %w", err)
	}
	if old == nil {
		return nil, apperrors.ErrNotFound
	}
	if old.RaterID != raterID {
		return nil, apperrors.ErrForbidden
	}
	if !old.Current() {
		return nil, apperrors.ErrAlreadySuperseded
	}

	c, err := s.cases.GetByID(ctx, old.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, apperrors.ErrNotFound
	}

	tv, err := s.taxonomy.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}

	in.CaseID = old.CaseID
	if errs := ValidateLabel(in, &tv.Schema, len([]rune(c.Text))); len(errs) > 0 {
		return nil, errs
	}

	replacement := labelFromInput(in, raterID, tv.ID)
	if err := s.labels.Supersede(ctx, labelID, replacement); err != nil {
		return nil, err
	}

	s.logger.Info("Label superseded",
		zap.String("old_label_id", labelID.String()),
		zap.String("new_label_id", replacement.ID.String()),
		zap.String("rater_id", raterID.String()))

	return replacement, nil
}

// ForCase returns the case's current labels, oldest first.
func (s *LabelService) ForCase(ctx context.Context, caseID uuid.UUID) ([]*models.Label, error) {
	labels, err := s.labels.CurrentForCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	return labels, nil
}

// MineForCase returns the rater's current label on the case, nil if none.
func (s *LabelService) MineForCase(ctx context.Context, raterID, caseID uuid.UUID) (*models.Label, error) {
	label, err := s.labels.CurrentForRater(ctx, caseID, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load label: %w", err)
	}
	return label, nil
}

// MyStats summarizes the rater's labelling activity from their current
// labels.
func (s *LabelService) MyStats(ctx context.Context, raterID uuid.UUID) (*models.RaterStats, error) {
	labels, err := s.labels.CurrentByRater(ctx, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rater labels: %w", err)
	}

	stats := &models.RaterStats{
		RaterID:              raterID,
		TotalLabels:          len(labels),
		CategoryDistribution: make(map[string]int),
	}

	cases := make(map[uuid.UUID]struct{})
	for _, l := range labels {
		cases[l.CaseID] = struct{}{}
		for _, pc := range l.PrimaryCategories {
			stats.CategoryDistribution[pc.Key]++
		}
		if stats.LastLabeledAt == nil || l.CreatedAt.After(*stats.LastLabeledAt) {
			t := l.CreatedAt
			stats.LastLabeledAt = &t
		}
	}
	stats.CasesLabeled = len(cases)

	return stats, nil
}

func labelFromInput(in *models.LabelInput, raterID, taxonomyVersionID uuid.UUID) *models.Label {
	subs := in.Subcategories
	if subs == nil {
		subs = models.SubcategoryMap{}
	}
	intensity := in.Intensity
	if intensity == nil {
		intensity = models.IntensityMap{}
	}

	return &models.Label{
		CaseID:            in.CaseID,
		RaterID:           raterID,
		TaxonomyVersionID: taxonomyVersionID,
		PrimaryCategories: in.PrimaryCategories,
		Subcategories:     subs,
		Intensity:         intensity,
		RelatedTopics:     in.RelatedTopics,
		EvidenceSnippets:  in.EvidenceSnippets,
		Uncertain:         in.Uncertain,
	}
}
