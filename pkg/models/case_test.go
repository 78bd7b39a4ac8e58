package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCaseInput_Validate(t *testing.T) {
	in := &CreateCaseInput{Text: "Ein ausreichend langer Beispieltext."}
	require.NoError(t, in.Validate())

	assert.Equal(t, "de", in.Language)
	assert.Equal(t, CaseSourceManual, in.Source)
}

func TestCreateCaseInput_Validate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input CreateCaseInput
		field string
	}{
		{
			name:  "text too short",
			input: CreateCaseInput{Text: "zu kurz"},
			field: "text",
		},
		{
			name:  "text too long",
			input: CreateCaseInput{Text: strings.Repeat("a", maxCaseTextLen+1)},
			field: "text",
		},
		{
			name:  "bad language code",
			input: CreateCaseInput{Text: "Ein ausreichend langer Beispieltext.", Language: "deu"},
			field: "language",
		},
		{
			name:  "unknown source",
			input: CreateCaseInput{Text: "Ein ausreichend langer Beispieltext.", Source: "SCRAPED"},
			field: "source",
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

func TestCreateCaseInput_Validate_RuneLength(t *testing.T) {
	// Ten runes, more than ten bytes. Length limits count runes.
	in := &CreateCaseInput{Text: "zehn Wörtä"}
	assert.NoError(t, in.Validate())
}

func TestImportCaseItem_Validate(t *testing.T) {
	it := &ImportCaseItem{Text: "Ein ausreichend langer Beispieltext."}
	require.NoError(t, it.Validate())
	assert.Equal(t, "de", it.Language)

	bad := &ImportCaseItem{Text: "kurz"}
	_, ok := AsValidationErrors(bad.Validate())
	assert.True(t, ok)
}

func TestCaseFilters_Normalize(t *testing.T) {
	f := &CaseFilters{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = &CaseFilters{Limit: 500, Offset: -3}
	require.NoError(t, f.Normalize())
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, 0, f.Offset)
}

func TestCaseFilters_Normalize_Errors(t *testing.T) {
	f := &CaseFilters{Status: "ARCHIVED"}
	verrs, ok := AsValidationErrors(f.Normalize())
	require.True(t, ok)
	assert.Equal(t, "status", verrs[0].Field)

	f = &CaseFilters{Source: "SCRAPED"}
	_, ok = AsValidationErrors(f.Normalize())
	assert.True(t, ok)

	f = &CaseFilters{Language: "deu"}
	_, ok = AsValidationErrors(f.Normalize())
	assert.True(t, ok)
}
