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

// ModelRunService records baseline-training runs. Execution happens in a
// separate training pipeline; this service only validates and persists the
// pending job record so runs stay auditable.
type ModelRunService struct {
	runs   repositories.ModelRunRepository
	logger *zap.Logger
}

// NewModelRunService creates a new ModelRunService.
func NewModelRunService(runs repositories.ModelRunRepository, logger *zap.Logger) *ModelRunService {
	return &ModelRunService{
		runs:   runs,
		logger: logger.Named("modelrun-service"),
	}
}

// Trigger validates the request and inserts a pending run.
func (s *ModelRunService) Trigger(ctx context.Context, adminID uuid.UUID, in *models.TriggerModelRunInput) (*models.ModelRun, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	run := &models.ModelRun{
		Method:      in.Method,
		Parameters:  in.Parameters,
		Status:      models.ModelRunPending,
		TriggeredBy: adminID,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("Model run triggered",
		zap.String("run_id", run.ID.String()),
		zap.String("method", string(run.Method)))

	return run, nil
}

// List returns all runs, newest first.
func (s *ModelRunService) List(ctx context.Context) ([]*models.ModelRun, error) {
	runs, err := s.runs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list model runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by id.
func (s *ModelRunService) Get(ctx context.Context, id uuid.UUID) (*models.ModelRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get model run: %w", err)
	}
	if run == nil {
		return nil, apperrors.ErrNotFound
	}
	return run, nil
}
