package selection

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Mode picks the winner direction
type Mode string

const (
	ModeMax Mode = "max" // greatest score wins
	ModeMin Mode = "min" // least score wins
)

// Config holds the selector parameters.
// Zero values are replaced by defaults before validation.
type Config struct {
	TrainLen int    `json:"train_len" yaml:"train_len" default:"30" validate:"gt=0"`
	TestLen  int    `json:"test_len" yaml:"test_len" default:"20" validate:"gt=0"`
	Mode     Mode   `json:"mode" yaml:"mode" default:"max" validate:"oneof=max min"`
	Metric   string `json:"metric" yaml:"metric" default:"ending_equity" validate:"required"`
	Parallel bool   `json:"parallel" yaml:"parallel"`
	Workers  int    `json:"workers" yaml:"workers" default:"4" validate:"gte=1,lte=256"`
}

// DefaultConfig returns the default configuration (30/20, max, ending equity).
// It panics if the default tags on Config cannot be applied.
func DefaultConfig() Config {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("selection: bad default tags: %v", err))
	}
	return cfg
}

// Normalize applies defaults and validates
func (c *Config) Normalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// better reports whether a beats b under the mode
func (m Mode) better(a, b float64) bool {
	if m == ModeMin {
		return a < b
	}
	return a > b
}
