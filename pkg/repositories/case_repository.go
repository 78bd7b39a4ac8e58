package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/database"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// CaseRepository provides data access for labelling cases.
type CaseRepository interface {
	Create(ctx context.Context, c *models.Case) error
	// ImportBatch inserts cases best-effort inside one transaction, using a
	// savepoint per item so a bad row rolls back only itself. The returned
	// slice holds one error (or nil) per input index.
	ImportBatch(ctx context.Context, cases []*models.Case) ([]error, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, filters *models.CaseFilters) ([]*models.Case, int, error)
	// NextUnlabeled returns the oldest NEW case the rater has never labelled,
	// superseded labels included. Returns nil when the queue is empty.
	NextUnlabeled(ctx context.Context, raterID uuid.UUID) (*models.Case, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ForEachLabelled streams cases with status LABELED or REVIEW within the
	// optional created_at bounds, ordered by created_at, to fn.
	ForEachLabelled(ctx context.Context, from, to *time.Time, fn func(*models.Case) error) error
}

type caseRepository struct {
	db *database.DB
}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository(db *database.DB) CaseRepository {
	return &caseRepository{db: db}
}

var _ CaseRepository = (*caseRepository)(nil)

const caseColumns = `id, text, language, source, status, metadata, created_by, created_at, updated_at`

func (r *caseRepository) Create(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cases (text, language, source, status, metadata, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.Text,
		c.Language,
		c.Source,
		c.Status,
		jsonbValue(c.Metadata),
		c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	return nil
}

func (r *caseRepository) ImportBatch(ctx context.Context, cases []*models.Case) ([]error, error) {
	itemErrs := make([]error, len(cases))

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for i, c := range cases {
			// pgx nests Begin as SAVEPOINT inside an open transaction.
			sp, err := tx.Begin(ctx)
			if err != nil {
				return fmt.Errorf("failed to create savepoint: %w", err)
			}

			insertErr := sp.QueryRow(ctx, `
				INSERT INTO cases (text, language, source, status, metadata, created_by)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at, updated_at`,
				c.Text, c.Language, c.Source, c.Status, jsonbValue(c.Metadata), c.CreatedBy,
			).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

			if insertErr != nil {
				itemErrs[i] = insertErr
				if err := sp.Rollback(ctx); err != nil {
					return fmt.Errorf("failed to roll back savepoint: %w", err)
				}
				continue
			}

			if err := sp.Commit(ctx); err != nil {
				return fmt.Errorf("failed to release savepoint: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return itemErrs, nil
}

func (r *caseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	c, err := scanCase(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Case not found
		}
		return nil, err
	}

	return c, nil
}

func (r *caseRepository) List(ctx context.Context, filters *models.CaseFilters) ([]*models.Case, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != "" {
		where += " AND c.status = " + arg(filters.Status)
	}
	if filters.Source != "" {
		where += " AND c.source = " + arg(filters.Source)
	}
	if filters.CreatedBy != nil {
		where += " AND c.created_by = " + arg(*filters.CreatedBy)
	}
	if filters.Language != "" {
		where += " AND c.language = " + arg(filters.Language)
	}
	if filters.Search != "" {
		where += " AND c.text ILIKE " + arg("%"+filters.Search+"%")
	}
	if filters.CalibrationOnly {
		where += " AND EXISTS (SELECT 1 FROM calibration_pool cp WHERE cp.case_id = c.id AND cp.is_active)"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM cases c` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	query := `SELECT ` + caseColumnsPrefixed("c") + ` FROM cases c` + where +
		` ORDER BY c.created_at DESC, c.id DESC LIMIT ` + arg(filters.Limit) + ` OFFSET ` + arg(filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating cases: %w", err)
	}

	return cases, total, nil
}

func (r *caseRepository) NextUnlabeled(ctx context.Context, raterID uuid.UUID) (*models.Case, error) {
	query := `
		SELECT ` + caseColumnsPrefixed("c") + `
		FROM cases c
		WHERE c.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM labels l WHERE l.case_id = c.id AND l.rater_id = $2
		  )
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, models.CaseStatusNew, raterID)
	c, err := scanCase(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Queue empty
		}
		return nil, err
	}

	return c, nil
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	query := `UPDATE cases SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *caseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Labels and pool entries cascade via FK constraints.
	query := `DELETE FROM cases WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *caseRepository) ForEachLabelled(ctx context.Context, from, to *time.Time, fn func(*models.Case) error) error {
	where := ` WHERE c.status IN ($1, $2)`
	args := []any{models.CaseStatusLabeled, models.CaseStatusReview}
	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(" AND c.created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(" AND c.created_at <= $%d", len(args))
	}

	query := `SELECT ` + caseColumnsPrefixed("c") + ` FROM cases c` + where +
		` ORDER BY c.created_at ASC, c.id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query labelled cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating labelled cases: %w", err)
	}

	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func caseColumnsPrefixed(alias string) string {
	return fmt.Sprintf("%s.id, %s.text, %s.language, %s.source, %s.status, %s.metadata, %s.created_by, %s.created_at, %s.updated_at",
		alias, alias, alias, alias, alias, alias, alias, alias, alias)
}

func scanCase(row pgx.Row) (*models.Case, error) {
	var c models.Case
	var metadata []byte

	err := row.Scan(
		&c.ID,
		&c.Text,
		&c.Language,
		&c.Source,
		&c.Status,
		&metadata,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan case: %w", err)
	}

	if len(metadata) > 0 && string(metadata) != "null" {
		if err := jsonUnmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &c, nil
}
