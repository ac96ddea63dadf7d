package runtime

import (
	"strings"
	"testing"
)

func TestDefaultExecutorConfig(t *testing.T) {
	cfg := DefaultExecutorConfig()

	if !cfg.StopOnError {
		t.Error("StopOnError default = false, want true")
	}
	if cfg.MaxIterations != 10000 {
		t.Errorf("MaxIterations default = %d, want 10000", cfg.MaxIterations)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers default = %d, want 4", cfg.MaxWorkers)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidateConfig_Violations(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ExecutorConfig
		field string
	}{
		{
			name:  "zero iterations",
			cfg:   ExecutorConfig{MaxIterations: 0, MaxWorkers: 4},
			field: "MaxIterations",
		},
		{
			name:  "iterations above cap",
			cfg:   ExecutorConfig{MaxIterations: 200000, MaxWorkers: 4},
			field: "MaxIterations",
		},
		{
			name:  "too many workers",
			cfg:   ExecutorConfig{MaxIterations: 100, MaxWorkers: 64},
			field: "MaxWorkers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error = %v, want mention of %s", err, tt.field)
			}
		})
	}
}
