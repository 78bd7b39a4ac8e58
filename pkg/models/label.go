package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxPrimaryCategories caps how many main topics one label may carry.
	MaxPrimaryCategories = 3
	// MaxEvidenceSnippets caps the supporting text ranges per label.
	MaxEvidenceSnippets = 5
)

// PrimaryCategory is a ranked main-topic assignment. Rank 1 is the dominant
// topic; ranks within a label are unique and consecutive from 1.
type PrimaryCategory struct {
	Key  string `json:"key"`
	Rank int    `json:"rank"`
}

// RelatedTopicStrength grades how strongly a secondary topic co-occurs.
type RelatedTopicStrength string

const (
	StrengthOften     RelatedTopicStrength = "OFTEN"
	StrengthSometimes RelatedTopicStrength = "SOMETIMES"
)

// RelatedTopic is a secondary topic that is present but not a primary
// category of the case.
type RelatedTopic struct {
	Key      string               `json:"key"`
	Strength RelatedTopicStrength `json:"strength"`
}

// EvidenceSnippet is a half-open [Start, End) rune range into the case text
// that supports the labelling decision.
type EvidenceSnippet struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SubcategoryMap holds selected subtopic keys per primary category key.
type SubcategoryMap map[string][]string

// IntensityMap holds selected intensity statement ids per primary category key.
type IntensityMap map[string][]string

// Label is one rater's annotation of one case. Labels are append-only: an
// update inserts a new row and stamps the old one's SupersededByID, so the
// full chain stays queryable. A label is "current" while SupersededByID is
// nil.
type Label struct {
	ID                uuid.UUID         `json:"id"`
	CaseID            uuid.UUID         `json:"case_id"`
	RaterID           uuid.UUID         `json:"rater_id"`
	TaxonomyVersionID uuid.UUID         `json:"taxonomy_version_id"`
	PrimaryCategories []PrimaryCategory `json:"primary_categories"`
	Subcategories     SubcategoryMap    `json:"subcategories"`
	Intensity         IntensityMap      `json:"intensity"`
	RelatedTopics     []RelatedTopic    `json:"related_topics,omitempty"`
	EvidenceSnippets  []EvidenceSnippet `json:"evidence_snippets,omitempty"`
	Uncertain         bool              `json:"uncertain"`
	SupersededByID    *uuid.UUID        `json:"superseded_by_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Current reports whether this label is the rater's live annotation.
func (l *Label) Current() bool {
	return l.SupersededByID == nil
}

// PrimaryKeySet returns the set of primary category keys, ignoring rank.
// Agreement math compares these sets.
func (l *Label) PrimaryKeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.PrimaryCategories))
	for _, pc := range l.PrimaryCategories {
		set[pc.Key] = struct{}{}
	}
	return set
}

// LabelInput carries a new or replacement annotation.
type LabelInput struct {
	CaseID            uuid.UUID         `json:"case_id"`
	PrimaryCategories []PrimaryCategory `json:"primary_categories"`
	Subcategories     SubcategoryMap    `json:"subcategories"`
	Intensity         IntensityMap      `json:"intensity"`
	RelatedTopics     []RelatedTopic    `json:"related_topics,omitempty"`
	EvidenceSnippets  []EvidenceSnippet `json:"evidence_snippets,omitempty"`
	Uncertain         bool              `json:"uncertain"`
}

// ValidateStructure checks everything that needs no taxonomy: category count,
// rank shape, duplicate keys, related-topic strengths, snippet ranges against
// textLength. Taxonomy membership checks live in the label service where the
// active schema is at hand.
func (in *LabelInput) ValidateStructure(textLength int) ValidationErrors {
	var errs ValidationErrors

	if len(in.PrimaryCategories) == 0 {
		errs = append(errs, ValidationError{Field: "primary_categories", Message: "at least one primary category is required"})
	}
	if len(in.PrimaryCategories) > MaxPrimaryCategories {
		errs = append(errs, ValidationError{Field: "primary_categories", Message: fmt.Sprintf("at most %d primary categories allowed", MaxPrimaryCategories)})
	}

	seenKeys := make(map[string]bool, len(in.PrimaryCategories))
	seenRanks := make(map[int]bool, len(in.PrimaryCategories))
	dupKey, dupRank := false, false
	for _, pc := range in.PrimaryCategories {
		if seenKeys[pc.Key] {
			dupKey = true
		}
		seenKeys[pc.Key] = true
		if seenRanks[pc.Rank] {
			dupRank = true
		}
		seenRanks[pc.Rank] = true
	}
	if dupKey {
		errs = append(errs, ValidationError{Field: "primary_categories", Message: "duplicate category key"})
	}
	if dupRank {
		errs = append(errs, ValidationError{Field: "primary_categories", Message: "ranks must be unique"})
	}
	// Consecutive from 1: with unique ranks this reduces to every rank
	// landing in [1, n].
	if !dupRank {
		for _, pc := range in.PrimaryCategories {
			if pc.Rank < 1 || pc.Rank > len(in.PrimaryCategories) {
				errs = append(errs, ValidationError{Field: "primary_categories", Message: "ranks must be consecutive starting at 1"})
				break
			}
		}
	}

	for _, rt := range in.RelatedTopics {
		if rt.Strength != StrengthOften && rt.Strength != StrengthSometimes {
			errs = append(errs, ValidationError{Field: "related_topics", Message: fmt.Sprintf("unknown strength: %s", rt.Strength)})
		}
	}
	seenRelated := make(map[string]bool, len(in.RelatedTopics))
	for _, rt := range in.RelatedTopics {
		if seenRelated[rt.Key] {
			errs = append(errs, ValidationError{Field: "related_topics", Message: "duplicate related topic"})
			break
		}
		seenRelated[rt.Key] = true
	}

	if len(in.EvidenceSnippets) > MaxEvidenceSnippets {
		errs = append(errs, ValidationError{Field: "evidence_snippets", Message: fmt.Sprintf("at most %d evidence snippets allowed", MaxEvidenceSnippets)})
	}
	for i, s := range in.EvidenceSnippets {
		if s.Start < 0 {
			errs = append(errs, ValidationError{Field: "evidence_snippets", Message: fmt.Sprintf("snippet %d: start must be >= 0", i+1)})
		}
		if s.End > textLength {
			errs = append(errs, ValidationError{Field: "evidence_snippets", Message: fmt.Sprintf("snippet %d: end (%d) exceeds text length (%d)", i+1, s.End, textLength)})
		}
		if s.End <= s.Start {
			errs = append(errs, ValidationError{Field: "evidence_snippets", Message: fmt.Sprintf("snippet %d: end must be greater than start", i+1)})
		}
	}

	return errs
}

// RaterStats summarizes one rater's labelling activity.
type RaterStats struct {
	RaterID              uuid.UUID      `json:"rater_id"`
	TotalLabels          int            `json:"total_labels"`
	CasesLabeled         int            `json:"cases_labeled"`
	LastLabeledAt        *time.Time     `json:"last_labeled_at,omitempty"`
	CategoryDistribution map[string]int `json:"category_distribution"`
}
