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

// TaxonomyService manages taxonomy version snapshots.
type TaxonomyService struct {
	repo   repositories.TaxonomyRepository
	logger *zap.Logger
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(repo repositories.TaxonomyRepository, logger *zap.Logger) *TaxonomyService {
	return &TaxonomyService{
		repo:   repo,
		logger: logger.Named("taxonomy-service"),
	}
}

// ActiveVersion returns the active taxonomy version, bootstrapping the
// built-in default tree under the well-known version identifier on first
// use. Concurrent first callers converge on a single row through the
// repository's atomic upsert.
func (s *TaxonomyService) ActiveVersion(ctx context.Context) (*models.TaxonomyVersion, error) {
	tv, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active taxonomy version: %w", err)
	}
	if tv != nil {
		return tv, nil
	}

	s.logger.Info("No active taxonomy version found, bootstrapping default",
		zap.String("version", models.DefaultTaxonomyVersion))

	schema := DefaultTaxonomySchema(models.DefaultTaxonomyVersion)
	tv, err = s.repo.EnsureVersion(ctx, models.DefaultTaxonomyVersion,
		"Initial taxonomy from built-in topic tree", schema, true)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap taxonomy version: %w", err)
	}

	return tv, nil
}

// GetVersion returns one taxonomy version by id.
func (s *TaxonomyService) GetVersion(ctx context.Context, id uuid.UUID) (*models.TaxonomyVersion, error) {
	tv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get taxonomy version: %w", err)
	}
	if tv == nil {
		return nil, apperrors.ErrNotFound
	}
	return tv, nil
}

// ListVersions returns all taxonomy versions, newest first.
func (s *TaxonomyService) ListVersions(ctx context.Context) ([]*models.TaxonomyVersion, error) {
	versions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list taxonomy versions: %w", err)
	}
	return versions, nil
}
