package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportFormat selects the training-data serialization.
type ExportFormat string

const (
	ExportFormatJSONL ExportFormat = "jsonl"
	ExportFormatCSV   ExportFormat = "csv"
)

// ExportOptions narrows which labelled cases go into an export.
type ExportOptions struct {
	Format            ExportFormat `json:"format"`
	TaxonomyVersionID *uuid.UUID   `json:"taxonomy_version_id,omitempty"`
	FromDate          *time.Time   `json:"from_date,omitempty"`
	ToDate            *time.Time   `json:"to_date,omitempty"`
	IncludeUncertain  bool         `json:"include_uncertain"`
}

// Validate checks the format enum.
func (o *ExportOptions) Validate() error {
	if o.Format != ExportFormatJSONL && o.Format != ExportFormatCSV {
		return ValidationErrors{{Field: "format", Message: fmt.Sprintf("unknown format: %s", o.Format)}}
	}
	return nil
}

// ConflictCase records why a calibration case was excluded from export.
type ConflictCase struct {
	CaseID                 uuid.UUID `json:"caseId"`
	RaterCount             int       `json:"raterCount"`
	DisagreementCategories []string  `json:"disagreementCategories"`
}

// ExportPreview is the dry-run summary shown before downloading.
type ExportPreview struct {
	TotalCases    int            `json:"total_cases"`
	ExportedCases int            `json:"exported_cases"`
	ExcludedCases int            `json:"excluded_cases"`
	Conflicts     []ConflictCase `json:"conflicts"`
}

// ExportedRecord is one training example. Field order is fixed by the struct
// tags; downstream pipelines key on these names.
type ExportedRecord struct {
	ID              string            `json:"id"`
	Text            string            `json:"text"`
	TaxonomyVersion string            `json:"taxonomy_version"`
	LabelsMain      []PrimaryCategory `json:"labels_main"`
	LabelsSub       SubcategoryMap    `json:"labels_sub"`
	Intensity       IntensityMap      `json:"intensity"`
	RelatedTopics   []RelatedTopic    `json:"related_topics"`
	Uncertain       bool              `json:"uncertain"`
}

// ExportReport is the provenance sheet accompanying every export.
type ExportReport struct {
	TaxonomyVersion      string         `json:"taxonomyVersion"`
	ExportedAt           string         `json:"exportedAt"`
	TotalCases           int            `json:"totalCases"`
	ExportedCases        int            `json:"exportedCases"`
	ExcludedCases        int            `json:"excludedCases"`
	Conflicts            []ConflictCase `json:"conflicts"`
	CategoryDistribution map[string]int `json:"categoryDistribution"`
}

// ExportResult is the finished export: an in-memory payload tagged with its
// media type, never a filesystem path.
type ExportResult struct {
	ContentType string        `json:"content_type"`
	Filename    string        `json:"filename"`
	Content     []byte        `json:"content"`
	Report      *ExportReport `json:"report"`
}
