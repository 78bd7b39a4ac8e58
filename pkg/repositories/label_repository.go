package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/database"
	"github.com/lumara-health/labelling-engine/pkg/models"
)

// LabelRepository provides data access for the append-only label ledger.
// A label row is never updated in place except for the one-time stamping of
// superseded_by_id; the partial unique index ux_labels_current keeps at most
// one current label per (case, rater).
type LabelRepository interface {
	// CreateWithPromotion inserts a label and promotes the case from NEW to
	// LABELED in the same transaction.
	CreateWithPromotion(ctx context.Context, label *models.Label) error
	// Supersede inserts the replacement label and stamps the old one's
	// superseded_by_id in one transaction. Returns ErrAlreadySuperseded if
	// the old label was no longer current at commit time.
	Supersede(ctx context.Context, oldID uuid.UUID, replacement *models.Label) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Label, error)
	// CurrentForCase returns the case's current labels ordered oldest first.
	CurrentForCase(ctx context.Context, caseID uuid.UUID) ([]*models.Label, error)
	// CurrentForCases returns current labels grouped by case id.
	CurrentForCases(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID][]*models.Label, error)
	// CurrentForRater returns the rater's current label on the case, nil if none.
	CurrentForRater(ctx context.Context, caseID, raterID uuid.UUID) (*models.Label, error)
	// CurrentByRater returns all current labels by the rater, newest first.
	CurrentByRater(ctx context.Context, raterID uuid.UUID) ([]*models.Label, error)
}

type labelRepository struct {
	db *database.DB
}

// NewLabelRepository creates a new LabelRepository.
func NewLabelRepository(db *database.DB) LabelRepository {
	return &labelRepository{db: db}
}

var _ LabelRepository = (*labelRepository)(nil)

const labelColumns = `id, case_id, rater_id, taxonomy_version_id, primary_categories,
	subcategories, intensity, related_topics, evidence_snippets, uncertain,
	superseded_by_id, created_at`

const insertLabelQuery = `
	INSERT INTO labels (
		id, case_id, rater_id, taxonomy_version_id, primary_categories,
		subcategories, intensity, related_topics, evidence_snippets, uncertain
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING created_at`

func insertLabel(ctx context.Context, tx pgx.Tx, l *models.Label) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	related, err := json.Marshal(l.RelatedTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal related topics: %w", err)
	}
	snippets, err := json.Marshal(l.EvidenceSnippets)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence snippets: %w", err)
	}
	primaries, err := json.Marshal(l.PrimaryCategories)
	if err != nil {
		return fmt.Errorf("failed to marshal primary categories: %w", err)
	}
	subs, err := json.Marshal(l.Subcategories)
	if err != nil {
		return fmt.Errorf("failed to marshal subcategories: %w", err)
	}
	intensity, err := json.Marshal(l.Intensity)
	if err != nil {
		return fmt.Errorf("failed to marshal intensity: %w", err)
	}

	err = tx.QueryRow(ctx, insertLabelQuery,
		l.ID,
		l.CaseID,
		l.RaterID,
		l.TaxonomyVersionID,
		primaries,
		subs,
		intensity,
		related,
		snippets,
		l.Uncertain,
	).Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert label: %w", err)
	}

	return nil
}

func (r *labelRepository) CreateWithPromotion(ctx context.Context, label *models.Label) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := insertLabel(ctx, tx, label); err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrAlreadyLabelled
			}
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE cases SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
			label.CaseID, models.CaseStatusLabeled, models.CaseStatusNew)
		if err != nil {
			return fmt.Errorf("failed to promote case status: %w", err)
		}

		return nil
	})
}

func (r *labelRepository) Supersede(ctx context.Context, oldID uuid.UUID, replacement *models.Label) error {
	replacement.ID = uuid.New()

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		// Stamp the old label first so the partial unique index frees the
		// (case, rater) slot before the replacement is inserted. The
		// superseded_by_id FK is deferred, so pointing at the not-yet-inserted
		// replacement id is checked at commit.
		result, err := tx.Exec(ctx,
			`UPDATE labels SET superseded_by_id = $2 WHERE id = $1 AND superseded_by_id IS NULL`,
			oldID, replacement.ID)
		if err != nil {
			return fmt.Errorf("failed to stamp superseded label: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperrors.ErrAlreadySuperseded
		}

		return insertLabel(ctx, tx, replacement)
	})
}

func (r *labelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Label, error) {
	query := `SELECT ` + labelColumns + ` FROM labels WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	label, err := scanLabel(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Label not found
		}
		return nil, err
	}

	return label, nil
}

func (r *labelRepository) CurrentForCase(ctx context.Context, caseID uuid.UUID) ([]*models.Label, error) {
	query := `SELECT ` + labelColumns + `
		FROM labels
		WHERE case_id = $1 AND superseded_by_id IS NULL
		ORDER BY created_at ASC, id ASC`

	return r.queryLabels(ctx, query, caseID)
}

func (r *labelRepository) CurrentForCases(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID][]*models.Label, error) {
	byCase := make(map[uuid.UUID][]*models.Label, len(caseIDs))
	if len(caseIDs) == 0 {
		return byCase, nil
	}

	query := `SELECT ` + labelColumns + `
		FROM labels
		WHERE case_id = ANY($1) AND superseded_by_id IS NULL
		ORDER BY created_at ASC, id ASC`

	labels, err := r.queryLabels(ctx, query, caseIDs)
	if err != nil {
		return nil, err
	}

	for _, l := range labels {
		byCase[l.CaseID] = append(byCase[l.CaseID], l)
	}
	return byCase, nil
}

func (r *labelRepository) CurrentForRater(ctx context.Context, caseID, raterID uuid.UUID) (*models.Label, error) {
	query := `SELECT ` + labelColumns + `
		FROM labels
		WHERE case_id = $1 AND rater_id = $2 AND superseded_by_id IS NULL`

	row := r.db.QueryRow(ctx, query, caseID, raterID)
	label, err := scanLabel(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No current label by this rater
		}
		return nil, err
	}

	return label, nil
}

func (r *labelRepository) CurrentByRater(ctx context.Context, raterID uuid.UUID) ([]*models.Label, error) {
	query := `SELECT ` + labelColumns + `
		FROM labels
		WHERE rater_id = $1 AND superseded_by_id IS NULL
		ORDER BY created_at DESC, id DESC`

	return r.queryLabels(ctx, query, raterID)
}

// ============================================================================
// Helper Functions
// ============================================================================

func (r *labelRepository) queryLabels(ctx context.Context, query string, args ...any) ([]*models.Label, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []*models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}

	return labels, nil
}

func scanLabel(row pgx.Row) (*models.Label, error) {
	var l models.Label
	var primaries, subs, intensity, related, snippets []byte

	err := row.Scan(
		&l.ID,
		&l.CaseID,
		&l.RaterID,
		&l.TaxonomyVersionID,
		&primaries,
		&subs,
		&intensity,
		&related,
		&snippets,
		&l.Uncertain,
		&l.SupersededByID,
		&l.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan label: %w", err)
	}

	if err := jsonUnmarshal(primaries, &l.PrimaryCategories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal primary categories: %w", err)
	}
	if err := jsonUnmarshal(subs, &l.Subcategories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subcategories: %w", err)
	}
	if err := jsonUnmarshal(intensity, &l.Intensity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intensity: %w", err)
	}
	if len(related) > 0 && string(related) != "null" {
		if err := jsonUnmarshal(related, &l.RelatedTopics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal related topics: %w", err)
		}
	}
	if len(snippets) > 0 && string(snippets) != "null" {
		if err := jsonUnmarshal(snippets, &l.EvidenceSnippets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence snippets: %w", err)
		}
	}

	return &l, nil
}
