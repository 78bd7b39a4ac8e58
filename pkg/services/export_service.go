package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/apperrors"
	"github.com/lumara-health/labelling-engine/pkg/models"
	"github.com/lumara-health/labelling-engine/pkg/repositories"
)

// ExportService produces training data from labelled cases. Preview and
// Export share one collection pass so their counts always agree on
// identical data.
type ExportService struct {
	cases    repositories.CaseRepository
	labels   repositories.LabelRepository
	pool     repositories.CalibrationRepository
	taxonomy repositories.TaxonomyRepository
	logger   *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	cases repositories.CaseRepository,
	labels repositories.LabelRepository,
	pool repositories.CalibrationRepository,
	taxonomy repositories.TaxonomyRepository,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		cases:    cases,
		labels:   labels,
		pool:     pool,
		taxonomy: taxonomy,
		logger:   logger.Named("export-service"),
	}
}

// collection is the outcome of one filter pass over the labelled corpus.
type collection struct {
	total     int
	records   []*models.ExportedRecord
	conflicts []models.ConflictCase
	// distribution counts exported primary categories.
	distribution map[string]int
	// version is the taxonomy version the export is reported under.
	version string
}

// collect streams all LABELED/REVIEW cases within the date bounds and applies
// the shared export filter: every streamed case counts toward the total, but
// zero-label cases are not exported, conflicted calibration cases are excluded
// (recording the disagreement), and uncertain labels are dropped unless
// included. The exported label is the case's oldest current one, which keeps
// the choice deterministic for multi-rater cases.
func (s *ExportService) collect(ctx context.Context, opts *models.ExportOptions) (*collection, error) {
	reportVersion, err := s.reportVersion(ctx, opts)
	if err != nil {
		return nil, err
	}

	versionByID, err := s.versionIndex(ctx)
	if err != nil {
		return nil, err
	}

	poolEntries, err := s.pool.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	inPool := make(map[uuid.UUID]bool, len(poolEntries))
	for _, e := range poolEntries {
		inPool[e.CaseID] = true
	}

	col := &collection{
		distribution: make(map[string]int),
		conflicts:    []models.ConflictCase{},
		version:      reportVersion,
	}

	err = s.cases.ForEachLabelled(ctx, opts.FromDate, opts.ToDate, func(c *models.Case) error {
		col.total++

		labels, err := s.labels.CurrentForCase(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			return nil
		}

		if inPool[c.ID] && len(labels) > 1 {
			if categories, conflicted := ConflictingCategories(labels); conflicted {
				col.conflicts = append(col.conflicts, models.ConflictCase{
					CaseID:                 c.ID,
					RaterCount:             len(labels),
					DisagreementCategories: categories,
				})
				return nil
			}
		}

		// CurrentForCase orders oldest first.
		label := labels[0]
		if !opts.IncludeUncertain && label.Uncertain {
			return nil
		}

		for _, pc := range label.PrimaryCategories {
			col.distribution[pc.Key]++
		}

		related := label.RelatedTopics
		if related == nil {
			related = []models.RelatedTopic{}
		}

		col.records = append(col.records, &models.ExportedRecord{
			ID:              c.ID.String(),
			Text:            c.Text,
			TaxonomyVersion: versionByID[label.TaxonomyVersionID],
			LabelsMain:      label.PrimaryCategories,
			LabelsSub:       label.Subcategories,
			Intensity:       label.Intensity,
			RelatedTopics:   related,
			Uncertain:       label.Uncertain,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return col, nil
}

// Preview returns the counts and conflicts an export with these options
// would produce, without serializing anything.
func (s *ExportService) Preview(ctx context.Context, opts *models.ExportOptions) (*models.ExportPreview, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	col, err := s.collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &models.ExportPreview{
		TotalCases:    col.total,
		ExportedCases: len(col.records),
		ExcludedCases: col.total - len(col.records) - len(col.conflicts),
		Conflicts:     col.conflicts,
	}, nil
}

// Export runs the shared collection pass, serializes to the requested
// format and returns the payload with its provenance report.
func (s *ExportService) Export(ctx context.Context, opts *models.ExportOptions) (*models.ExportResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	col, err := s.collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var content string
	var contentType, extension string
	switch opts.Format {
	case models.ExportFormatCSV:
		content, err = generateCSV(col.records)
		contentType = "text/csv"
		extension = "csv"
	default:
		content, err = generateJSONL(col.records)
		contentType = "application/x-ndjson"
		extension = "jsonl"
	}
	if err != nil {
		return nil, err
	}

	report := &models.ExportReport{
		TaxonomyVersion:      col.version,
		ExportedAt:           now.Format(time.RFC3339),
		TotalCases:           col.total,
		ExportedCases:        len(col.records),
		ExcludedCases:        col.total - len(col.records) - len(col.conflicts),
		Conflicts:            col.conflicts,
		CategoryDistribution: col.distribution,
	}

	s.logger.Info("Export generated",
		zap.String("format", string(opts.Format)),
		zap.Int("total", col.total),
		zap.Int("exported", len(col.records)),
		zap.Int("conflicts", len(col.conflicts)))

	return &models.ExportResult{
		ContentType: contentType,
		Filename:    fmt.Sprintf("labels_export_%s.%s", now.Format("20060102_150405"), extension),
		Content:     []byte(content),
		Report:      report,
	}, nil
}

// reportVersion resolves the taxonomy version the export report is stamped
// with: the requested one, or the active version.
func (s *ExportService) reportVersion(ctx context.Context, opts *models.ExportOptions) (string, error) {
	if opts.TaxonomyVersionID != nil {
		tv, err := s.taxonomy.GetByID(ctx, *opts.TaxonomyVersionID)
		if err != nil {
			return "", err
		}
		if tv == nil {
			return "", apperrors.ErrNotFound
		}
		return tv.Version, nil
	}

	tv, err := s.taxonomy.GetActive(ctx)
	if err != nil {
		return "", err
	}
	if tv == nil {
		return "", fmt.Errorf("no taxonomy version exists: %w", apperrors.ErrNotFound)
	}
	return tv.Version, nil
}

func (s *ExportService) versionIndex(ctx context.Context) (map[uuid.UUID]string, error) {
	versions, err := s.taxonomy.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]string, len(versions))
	for _, tv := range versions {
		byID[tv.ID] = tv.Version
	}
	return byID, nil
}

// generateJSONL serializes one record per line; field order is fixed by the
// ExportedRecord struct tags.
func generateJSONL(records []*models.ExportedRecord) (string, error) {
	var b strings.Builder
	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("failed to marshal export record: %w", err)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.Write(line)
	}
	return b.String(), nil
}

// generateCSV serializes records with the fixed header; the text cell is
// always quoted with doubled quotes and newlines collapsed to spaces, nested
// values are embedded as quoted JSON.
func generateCSV(records []*models.ExportedRecord) (string, error) {
	var b strings.Builder
	b.WriteString("id,text,taxonomy_version,category_1,category_2,category_3,subcategories,intensity,related_topics,uncertain")

	for _, rec := range records {
		cats := make([]string, 3)
		for _, pc := range rec.LabelsMain {
			if pc.Rank >= 1 && pc.Rank <= 3 {
				cats[pc.Rank-1] = pc.Key
			}
		}

		subs, err := json.Marshal(rec.LabelsSub)
		if err != nil {
			return "", fmt.Errorf("failed to marshal subcategories: %w", err)
		}
		intensity, err := json.Marshal(rec.Intensity)
		if err != nil {
			return "", fmt.Errorf("failed to marshal intensity: %w", err)
		}
		related, err := json.Marshal(rec.RelatedTopics)
		if err != nil {
			return "", fmt.Errorf("failed to marshal related topics: %w", err)
		}

		uncertain := "false"
		if rec.Uncertain {
			uncertain = "true"
		}

		b.WriteByte('\n')
		b.WriteString(strings.Join([]string{
			rec.ID,
			csvQuote(strings.ReplaceAll(rec.Text, "\n", " ")),
			rec.TaxonomyVersion,
			cats[0],
			cats[1],
			cats[2],
			csvQuote(string(subs)),
			csvQuote(string(intensity)),
			csvQuote(string(related)),
			uncertain,
		}, ","))
	}

	return b.String(), nil
}

// csvQuote wraps s in double quotes, doubling embedded quotes.
func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
