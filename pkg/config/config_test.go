package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, []string{InferenceStepDescriptionClean, InferenceStepTagInference}, cfg.InferenceOrder)
	assert.Equal(t, 10, cfg.GoogleBooksMaxResults)
}

func TestNewInferenceOrderFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("INFERENCE_ORDER", "tag_inference_Romance, description_clean")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, []string{"tag_inference_Romance", "description_clean"}, cfg.InferenceOrder)
}

func TestParseInferenceOrder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty entries dropped", "a,,b", []string{"a", "b"}},
		{"whitespace trimmed", " description_clean , tag_inference ", []string{"description_clean", "tag_inference"}},
		{"single", "tag_inference", []string{"tag_inference"}},
		{"only commas", ",,,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInferenceOrder(tt.input))
		})
	}
}
