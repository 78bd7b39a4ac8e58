package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/database"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// CalibrationRepository provides data access for the calibration pool.
// Membership is soft: removal deactivates the entry so agreement history on
// former pool cases stays queryable.
type CalibrationRepository interface {
	// Upsert adds the case to the pool, reactivating a previously removed
	// entry. Idempotent.
	Upsert(ctx context.Context, caseID uuid.UUID) error
	// Deactivate removes the case from the active pool. Returns ErrNotFound
	// if the case was never a member.
	Deactivate(ctx context.Context, caseID uuid.UUID) error
	IsActiveMember(ctx context.Context, caseID uuid.UUID) (bool, error)
	// ActiveMembers reports, for each given case id, whether it is an active
	// pool member. Absent ids are simply missing from the map.
	ActiveMembers(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// ListActive returns the active pool newest first.
	ListActive(ctx context.Context) ([]*models.CalibrationPoolEntry, error)
}

type calibrationRepository struct {
	db *database.DB
}

// NewCalibrationRepository creates a new CalibrationRepository.
func NewCalibrationRepository(db *database.DB) CalibrationRepository {
	return &calibrationRepository{db: db}
}

var _ CalibrationRepository = (*calibrationRepository)(nil)

func (r *calibrationRepository) Upsert(ctx context.Context, caseID uuid.UUID) error {
	query := `
		INSERT INTO calibration_pool (case_id, is_active)
		VALUES ($1, TRUE)
		ON CONFLICT (case_id) DO UPDATE SET is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, caseID); err != nil {
		return fmt.Errorf("failed to upsert calibration pool entry: %w", err)
	}
	return nil
}

func (r *calibrationRepository) Deactivate(ctx context.Context, caseID uuid.UUID) error {
	query := `UPDATE calibration_pool SET is_active = FALSE WHERE case_id = $1`

	result, err := r.db.Exec(ctx, query, caseID)
	if err != nil {
		return fmt.Errorf("failed to deactivate calibration pool entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *calibrationRepository) IsActiveMember(ctx context.Context, caseID uuid.UUID) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx,
		`SELECT is_active FROM calibration_pool WHERE case_id = $1`, caseID).Scan(&active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query calibration membership: %w", err)
	}
	return active, nil
}

func (r *calibrationRepository) ActiveMembers(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	members := make(map[uuid.UUID]bool, len(caseIDs))
	if len(caseIDs) == 0 {
		return members, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT case_id FROM calibration_pool WHERE case_id = ANY($1) AND is_active`, caseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan calibration member: %w", err)
		}
		members[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calibration members: %w", err)
	}

	return members, nil
}

func (r *calibrationRepository) ListActive(ctx context.Context) ([]*models.CalibrationPoolEntry, error) {
	query := `
		SELECT case_id, is_active, added_at
		FROM calibration_pool
		WHERE is_active
		ORDER BY added_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration pool: %w", err)
	}
	defer rows.Close()

	var entries []*models.CalibrationPoolEntry
	for rows.Next() {
		var e models.CalibrationPoolEntry
		if err := rows.Scan(&e.CaseID, &e.IsActive, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calibration pool entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calibration pool: %w", err)
	}

	return entries, nil
}
