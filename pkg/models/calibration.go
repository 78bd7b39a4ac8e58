package models

import (
	"time"

	"github.com/google/uuid"
)

// CalibrationPoolEntry marks a case every rater should label independently.
// Removal deactivates instead of deleting, so agreement history survives.
type CalibrationPoolEntry struct {
	CaseID   uuid.UUID `json:"case_id"`
	IsActive bool      `json:"is_active"`
	AddedAt  time.Time `json:"added_at"`
}

// CategoryAgreement records, for one category, which ranks every rater
// assigned identically and which diverged.
type CategoryAgreement struct {
	Category       string `json:"category"`
	AgreedRanks    []int  `json:"agreedRanks"`
	DisagreedRanks []int  `json:"disagreedRanks"`
}

// AgreementMetrics is the inter-rater agreement summary for one case.
// CohensKappa is reserved and currently always null.
type AgreementMetrics struct {
	CaseID            uuid.UUID           `json:"caseId"`
	RaterCount        int                 `json:"raterCount"`
	CohensKappa       *float64            `json:"cohensKappa"`
	JaccardSimilarity float64             `json:"jaccardSimilarity"`
	CategoryAgreement []CategoryAgreement `json:"categoryAgreement"`
	HasConflict       bool                `json:"hasConflict"`
}

// CalibrationCaseView is the review model for one pool member: case, all
// current labels, and agreement.
type CalibrationCaseView struct {
	Case      *Case             `json:"case"`
	Labels    []*Label          `json:"labels"`
	AddedAt   time.Time         `json:"added_at"`
	Agreement *AgreementMetrics `json:"agreement,omitempty"`
}

// CalibrationStats aggregates the pool for the dashboard.
type CalibrationStats struct {
	PoolSize       int      `json:"pool_size"`
	MultiRater     int      `json:"multi_rater"`
	MeanSimilarity *float64 `json:"mean_similarity,omitempty"`
	Conflicts      int      `json:"conflicts"`
}
