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

// TaxonomyRepository provides data access for taxonomy version snapshots.
type TaxonomyRepository interface {
	// EnsureVersion atomically creates the version if absent and returns the
	// persisted row. Concurrent callers converge on one row via the unique
	// constraint on version.
	EnsureVersion(ctx context.Context, version, description string, schema *models.TaxonomySchema, active bool) (*models.TaxonomyVersion, error)
	// GetActive returns the active version, nil if none exists yet.
	GetActive(ctx context.Context) (*models.TaxonomyVersion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.TaxonomyVersion, error)
	List(ctx context.Context) ([]*models.TaxonomyVersion, error)
}

type taxonomyRepository struct {
	db *database.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(db *database.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

var _ TaxonomyRepository = (*taxonomyRepository)(nil)

const taxonomyColumns = `id, version, description, schema, is_active, created_at`

func (r *taxonomyRepository) EnsureVersion(ctx context.Context, version, description string, schema *models.TaxonomySchema, active bool) (*models.TaxonomyVersion, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal taxonomy schema: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO taxonomy_versions (version, description, schema, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (version) DO NOTHING`,
		version, description, schemaJSON, active)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure taxonomy version: %w", err)
	}

	row := r.db.QueryRow(ctx,
		`SELECT `+taxonomyColumns+` FROM taxonomy_versions WHERE version = $1`, version)
	tv, err := scanTaxonomyVersion(row)
	if err != nil {
		return nil, err
	}
	return tv, nil
}

func (r *taxonomyRepository) GetActive(ctx context.Context) (*models.TaxonomyVersion, error) {
	query := `SELECT ` + taxonomyColumns + `
		FROM taxonomy_versions
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query)
	tv, err := scanTaxonomyVersion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // No active version yet
		}
		return nil, err
	}

	return tv, nil
}

func (r *taxonomyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TaxonomyVersion, error) {
	query := `SELECT ` + taxonomyColumns + ` FROM taxonomy_versions WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	tv, err := scanTaxonomyVersion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Version not found
		}
		return nil, err
	}

	return tv, nil
}

func (r *taxonomyRepository) List(ctx context.Context) ([]*models.TaxonomyVersion, error) {
	query := `SELECT ` + taxonomyColumns + ` FROM taxonomy_versions ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.TaxonomyVersion
	for rows.Next() {
		tv, err := scanTaxonomyVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating taxonomy versions: %w", err)
	}

	return versions, nil
}

func scanTaxonomyVersion(row pgx.Row) (*models.TaxonomyVersion, error) {
	var tv models.TaxonomyVersion
	var description *string
	var schema []byte

	err := row.Scan(
		&tv.ID,
		&tv.Version,
		&description,
		&schema,
		&tv.IsActive,
		&tv.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan taxonomy version: %w", err)
	}

	if description != nil {
		tv.Description = *description
	}
	if err := jsonUnmarshal(schema, &tv.Schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taxonomy schema: %w", err)
	}

	return &tv, nil
}
