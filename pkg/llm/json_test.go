package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "plain object",
			response: `{"key":"value"}`,
			want:     `{"key":"value"}`,
		},
		{
			name:     "surrounding whitespace",
			response: "\n  {\"key\":\"value\"}  \n",
			want:     `{"key":"value"}`,
		},
		{
			name:     "fenced with language hint",
			response: "```json\n{\"key\":\"value\"}\n```",
			want:     `{"key":"value"}`,
		},
		{
			name:     "fenced without language hint",
			response: "```\n{\"key\":\"value\"}\n```",
			want:     `{"key":"value"}`,
		},
		{
			name:     "think tags stripped",
			response: "<think>let me reason\nabout this</think>{\"key\":\"value\"}",
			want:     `{"key":"value"}`,
		},
		{
			name:     "embedded in prose",
			response: `Here is the result: {"key":"value"} as requested.`,
			want:     `{"key":"value"}`,
		},
		{
			name:     "nested objects",
			response: `prefix {"outer":{"inner":1}} suffix`,
			want:     `{"outer":{"inner":1}}`,
		},
		{
			name:     "braces inside strings",
			response: `{"text":"ein } in der Mitte","more":"{"}`,
			want:     `{"text":"ein } in der Mitte","more":"{"}`,
		},
		{
			name:     "escaped quote inside string",
			response: `noise {"text":"sie sagte \"nein\""} noise`,
			want:     `{"text":"sie sagte \"nein\""}`,
		},
		{
			name:     "no object",
			response: "Entschuldigung, das kann ich nicht beantworten.",
			want:     "",
		},
		{
			name:     "unbalanced object",
			response: `{"key":"value"`,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.response))
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	}

	got, err := ParseJSONResponse[payload]("```json\n{\"key\":\"a\",\"count\":2}\n```")
	require.NoError(t, err)
	assert.Equal(t, payload{Key: "a", Count: 2}, got)

	_, err = ParseJSONResponse[payload]("no json here")
	assert.Error(t, err)

	_, err = ParseJSONResponse[payload](`{"count":"not a number"}`)
	assert.Error(t, err)
}
