package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CaseSource indicates how a case entered the corpus.
type CaseSource string

const (
	CaseSourceManual   CaseSource = "MANUAL"
	CaseSourceImport   CaseSource = "IMPORT"
	CaseSourceAISeeded CaseSource = "AI_SEEDED"
)

// ValidCaseSource reports whether s is a known case source.
func ValidCaseSource(s CaseSource) bool {
	switch s {
	case CaseSourceManual, CaseSourceImport, CaseSourceAISeeded:
		return true
	}
	return false
}

// CaseStatus is the case state machine. NEW promotes to LABELED automatically
// on the first accepted label; REVIEW is set manually by admins.
type CaseStatus string

const (
	CaseStatusNew     CaseStatus = "NEW"
	CaseStatusLabeled CaseStatus = "LABELED"
	CaseStatusReview  CaseStatus = "REVIEW"
)

// ValidCaseStatus reports whether s is a known case status.
func ValidCaseStatus(s CaseStatus) bool {
	switch s {
	case CaseStatusNew, CaseStatusLabeled, CaseStatusReview:
		return true
	}
	return false
}

// Case is a unit of text awaiting annotation.
type Case struct {
	ID        uuid.UUID      `json:"id"`
	Text      string         `json:"text"`
	Language  string         `json:"language"`
	Source    CaseSource     `json:"source"`
	Status    CaseStatus     `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy uuid.UUID      `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CaseWithLabels is the read model for case detail views: the case plus its
// current (non-superseded) labels and calibration pool membership.
type CaseWithLabels struct {
	Case
	Labels        []*Label `json:"labels"`
	InCalibration bool     `json:"in_calibration"`
}

// CaseList is one page of filtered cases with the unpaginated total.
type CaseList struct {
	Cases []*CaseWithLabels `json:"cases"`
	Total int               `json:"total"`
}

const (
	minCaseTextLen = 10
	maxCaseTextLen = 10000

	// MaxImportBatch bounds a single bulk import request.
	MaxImportBatch = 1000
)

// CreateCaseInput carries the fields for a new case.
type CreateCaseInput struct {
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Source   CaseSource     `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate applies structural checks and fills defaults (language "de",
// source MANUAL).
func (in *CreateCaseInput) Validate() error {
	var errs ValidationErrors
	errs = append(errs, validateCaseText(in.Text)...)
	if in.Language == "" {
		in.Language = "de"
	}
	if len(in.Language) != 2 {
		errs = append(errs, ValidationError{Field: "language", Message: "language must be a 2-letter code"})
	}
	if in.Source == "" {
		in.Source = CaseSourceManual
	}
	if !ValidCaseSource(in.Source) {
		errs = append(errs, ValidationError{Field: "source", Message: fmt.Sprintf("unknown source: %s", in.Source)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateCaseText(text string) ValidationErrors {
	var errs ValidationErrors
	if len([]rune(text)) < minCaseTextLen {
		errs = append(errs, ValidationError{Field: "text", Message: fmt.Sprintf("text must be at least %d characters", minCaseTextLen)})
	}
	if len([]rune(text)) > maxCaseTextLen {
		errs = append(errs, ValidationError{Field: "text", Message: fmt.Sprintf("text must be at most %d characters", maxCaseTextLen)})
	}
	return errs
}

// ImportCaseItem is one entry of a bulk import; source is forced to IMPORT.
type ImportCaseItem struct {
	Text     string         `json:"text"`
	Language string         `json:"language"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate applies the same structural checks as CreateCaseInput.
func (it *ImportCaseItem) Validate() error {
	var errs ValidationErrors
	errs = append(errs, validateCaseText(it.Text)...)
	if it.Language == "" {
		it.Language = "de"
	}
	if len(it.Language) != 2 {
		errs = append(errs, ValidationError{Field: "language", Message: "language must be a 2-letter code"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ImportResult reports a best-effort bulk import: failed items do not abort
// the batch.
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// CaseFilters narrows case listings. Zero values mean "no filter".
type CaseFilters struct {
	Status          CaseStatus `json:"status,omitempty"`
	Source          CaseSource `json:"source,omitempty"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty"`
	Search          string     `json:"search,omitempty"`
	Language        string     `json:"language,omitempty"`
	CalibrationOnly bool       `json:"calibration_only,omitempty"`
	Limit           int        `json:"limit,omitempty"`
	Offset          int        `json:"offset,omitempty"`
}

// Normalize validates enum filters and clamps pagination (limit 1..100,
// default 50; offset >= 0).
func (f *CaseFilters) Normalize() error {
	var errs ValidationErrors
	if f.Status != "" && !ValidCaseStatus(f.Status) {
		errs = append(errs, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status: %s", f.Status)})
	}
	if f.Source != "" && !ValidCaseSource(f.Source) {
		errs = append(errs, ValidationError{Field: "source", Message: fmt.Sprintf("unknown source: %s", f.Source)})
	}
	if f.Language != "" && len(f.Language) != 2 {
		errs = append(errs, ValidationError{Field: "language", Message: "language must be a 2-letter code"})
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
