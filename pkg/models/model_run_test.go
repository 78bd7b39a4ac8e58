package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerModelRunInput_Validate(t *testing.T) {
	in := &TriggerModelRunInput{
		Method:     ModelRunKNN,
		Parameters: &ModelRunParameters{K: 10, Threshold: 0.3, TestSplit: 0.2},
	}
	require.NoError(t, in.Validate())
	assert.Equal(t, 42, in.Parameters.RandomSeed)

	// An explicit seed survives.
	in = &TriggerModelRunInput{
		Method:     ModelRunLogReg,
		Parameters: &ModelRunParameters{RandomSeed: 7},
	}
	require.NoError(t, in.Validate())
	assert.Equal(t, 7, in.Parameters.RandomSeed)

	// Parameters are optional altogether.
	assert.NoError(t, (&TriggerModelRunInput{Method: ModelRunKNN}).Validate())
}

func TestTriggerModelRunInput_Validate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input TriggerModelRunInput
		field string
	}{
		{
			name:  "unknown method",
			input: TriggerModelRunInput{Method: "svm"},
			field: "method",
		},
		{
			name: "k too large",
			input: TriggerModelRunInput{
				Method:     ModelRunKNN,
				Parameters: &ModelRunParameters{K: 51},
			},
			field: "parameters.k",
		},
		{
			name: "threshold too large",
			input: TriggerModelRunInput{
				Method:     ModelRunLogReg,
				Parameters: &ModelRunParameters{Threshold: 1.1},
			},
			field: "parameters.threshold",
		},
		{
			name: "test split too small",
			input: TriggerModelRunInput{
				Method:     ModelRunKNN,
				Parameters: &ModelRunParameters{TestSplit: 0.05},
			},
			field: "parameters.testSplit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			verrs, ok := AsValidationErrors(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}
