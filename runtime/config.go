package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ExecutorConfig tunes a run. Defaults come from struct tags; bounds are
// enforced before the executor accepts the config.
type ExecutorConfig struct {
	// StopOnError terminates the run as Failed on the first block failure.
	// When false the failure is recorded and the cursor advances past it.
	StopOnError bool `yaml:"stop_on_error" default:"true"`
	// MaxIterations caps loop and while repetition so a pathological
	// condition cannot stall a run.
	MaxIterations int `yaml:"max_iterations" default:"10000" validate:"gte=1,lte=100000"`
	// MaxWorkers bounds the worker pool used for parallel regions.
	MaxWorkers int `yaml:"max_workers" default:"4" validate:"gte=1,lte=16"`
}

// DefaultExecutorConfig returns a config with all defaults applied.
func DefaultExecutorConfig() ExecutorConfig {
	var cfg ExecutorConfig
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("executor config defaults: %v", err))
	}
	return cfg
}

// ValidateConfig checks a config against its declared bounds, formatting
// violations for readability.
func ValidateConfig(cfg ExecutorConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("executor config invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("executor config invalid: %w", err)
	}
	return nil
}
