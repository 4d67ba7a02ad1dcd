package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/maxent"
)

func writeParams(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/params.yaml", []byte(content), 0o644))
	return fs
}

func TestLoadApply(t *testing.T) {
	fs := writeParams(t, `
algorithm: qn
iterations: 250
cutoff: 1
sort_and_merge: false
l1_cost: 0.5
memory: 7
`)
	p, err := Load(fs, "/params.yaml")
	require.NoError(t, err)

	cfg := maxent.DefaultTrainConfig()
	p.Apply(&cfg)
	assert.Equal(t, maxent.QN, cfg.Algorithm)
	assert.Equal(t, 250, cfg.Iterations)
	assert.Equal(t, 1, cfg.Cutoff)
	assert.False(t, cfg.SortAndMerge)
	assert.Equal(t, 0.5, cfg.L1Cost)
	assert.Equal(t, 7, cfg.Memory)

	// Untouched fields keep their defaults.
	def := maxent.DefaultTrainConfig()
	assert.Equal(t, def.Threads, cfg.Threads)
	assert.Equal(t, def.LLThreshold, cfg.LLThreshold)
	assert.Equal(t, def.MaxFunctionEvaluations, cfg.MaxFunctionEvaluations)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "iteratons: 10\n"},
		{"bad type", "cutoff: many\n"},
		{"unknown algorithm", "algorithm: svm\n"},
		{"negative", "threads: -2\n"},
		{"negative cost", "l2_cost: -0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeParams(t, tt.content), "/params.yaml")
			assert.Error(t, err)
		})
	}

	_, err := Load(afero.NewMemMapFs(), "/missing.yaml")
	assert.Error(t, err)
}
