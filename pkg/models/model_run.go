package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelRunMethod selects the baseline classifier.
type ModelRunMethod string

const (
	ModelRunKNN    ModelRunMethod = "knn"
	ModelRunLogReg ModelRunMethod = "logreg"
)

// ModelRunStatus is the lifecycle of a training job record.
type ModelRunStatus string

const (
	ModelRunPending   ModelRunStatus = "pending"
	ModelRunRunning   ModelRunStatus = "running"
	ModelRunCompleted ModelRunStatus = "completed"
	ModelRunFailed    ModelRunStatus = "failed"
)

// ModelRunParameters are the hyperparameters recorded with a run.
type ModelRunParameters struct {
	K          int     `json:"k,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
	TestSplit  float64 `json:"testSplit,omitempty"`
	RandomSeed int     `json:"randomSeed,omitempty"`
}

// ModelRunMetrics are evaluation results filled in once a run completes.
type ModelRunMetrics struct {
	Top3Accuracy   float64            `json:"top3Accuracy"`
	MacroF1        float64            `json:"macroF1"`
	PerLabelRecall map[string]float64 `json:"perLabelRecall"`
	TotalSamples   int                `json:"totalSamples"`
	TrainSamples   int                `json:"trainSamples"`
	TestSamples    int                `json:"testSamples"`
}

// ModelRun is a baseline-training job record. Execution happens out of band;
// this service only records and lists runs.
type ModelRun struct {
	ID          uuid.UUID           `json:"id"`
	Method      ModelRunMethod      `json:"method"`
	Parameters  *ModelRunParameters `json:"parameters,omitempty"`
	Status      ModelRunStatus      `json:"status"`
	Metrics     *ModelRunMetrics    `json:"metrics,omitempty"`
	Error       string              `json:"error,omitempty"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	TriggeredBy uuid.UUID           `json:"triggered_by"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TriggerModelRunInput requests a new run.
type TriggerModelRunInput struct {
	Method     ModelRunMethod      `json:"method"`
	Parameters *ModelRunParameters `json:"parameters,omitempty"`
}

// Validate checks the method enum and hyperparameter bounds, filling the
// default random seed.
func (in *TriggerModelRunInput) Validate() error {
	var errs ValidationErrors
	if in.Method != ModelRunKNN && in.Method != ModelRunLogReg {
		errs = append(errs, ValidationError{Field: "method", Message: fmt.Sprintf("unknown method: %s", in.Method)})
	}
	if p := in.Parameters; p != nil {
		if in.Method == ModelRunKNN && p.K != 0 && (p.K < 1 || p.K > 50) {
			errs = append(errs, ValidationError{Field: "parameters.k", Message: "k must be between 1 and 50"})
		}
		if p.Threshold != 0 && (p.Threshold < 0 || p.Threshold > 1) {
			errs = append(errs, ValidationError{Field: "parameters.threshold", Message: "threshold must be between 0 and 1"})
		}
		if p.TestSplit != 0 && (p.TestSplit < 0.1 || p.TestSplit > 0.5) {
			errs = append(errs, ValidationError{Field: "parameters.testSplit", Message: "testSplit must be between 0.1 and 0.5"})
		}
		if p.RandomSeed == 0 {
			p.RandomSeed = 42
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
