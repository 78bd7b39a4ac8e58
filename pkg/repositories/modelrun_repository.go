package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumara-health/labelling-engine/pkg/database"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// ModelRunRepository provides data access for baseline-training run records.
type ModelRunRepository interface {
	Create(ctx context.Context, run *models.ModelRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRun, error)
	List(ctx context.Context) ([]*models.ModelRun, error)
}

type modelRunRepository struct {
	db *database.DB
}

// NewModelRunRepository creates a new ModelRunRepository.
func NewModelRunRepository(db *database.DB) ModelRunRepository {
	return &modelRunRepository{db: db}
}

var _ ModelRunRepository = (*modelRunRepository)(nil)

const modelRunColumns = `id, method, parameters, status, metrics, error, started_at, completed_at, triggered_by, created_at`

func (r *modelRunRepository) Create(ctx context.Context, run *models.ModelRun) error {
	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal model run parameters: %w", err)
	}

	query := `
		INSERT INTO model_runs (method, parameters, status, triggered_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		run.Method,
		params,
		run.Status,
		run.TriggeredBy,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create model run: %w", err)
	}

	return nil
}

func (r *modelRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModelRun, error) {
	query := `SELECT ` + modelRunColumns + ` FROM model_runs WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	run, err := scanModelRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Run not found
		}
		return nil, err
	}

	return run, nil
}

func (r *modelRunRepository) List(ctx context.Context) ([]*models.ModelRun, error) {
	query := `SELECT ` + modelRunColumns + ` FROM model_runs ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ModelRun
	for rows.Next() {
		run, err := scanModelRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model runs: %w", err)
	}

	return runs, nil
}

func scanModelRun(row pgx.Row) (*models.ModelRun, error) {
	var run models.ModelRun
	var params, metrics []byte
	var runErr *string

	err := row.Scan(
		&run.ID,
		&run.Method,
		&params,
		&run.Status,
		&metrics,
		&runErr,
		&run.StartedAt,
		&run.CompletedAt,
		&run.TriggeredBy,
		&run.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan model run: %w", err)
	}

	if runErr != nil {
		run.Error = *runErr
	}
	if len(params) > 0 && string(params) != "null" {
		if err := jsonUnmarshal(params, &run.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model run parameters: %w", err)
		}
	}
	if len(metrics) > 0 && string(metrics) != "null" {
		if err := jsonUnmarshal(metrics, &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model run metrics: %w", err)
		}
	}

	return &run, nil
}
