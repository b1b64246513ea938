package strategyconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/optimal-selector/internal/contracts"
)

var validate = validator.New()

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{fe.Namespace(), fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())}
		}
		return err
	}

	// === Query ===
	if cfg.Query.Last > 0 && cfg.Query.Start != "" {
		return ValidationError{"query", "last and start are mutually exclusive"}
	}
	start, err := parseOptionalDate(cfg.Query.Start)
	if err != nil {
		return ValidationError{"query.start", err.Error()}
	}
	end, err := parseOptionalDate(cfg.Query.End)
	if err != nil {
		return ValidationError{"query.end", err.Error()}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return ValidationError{"query", "start must be before end"}
	}

	// === Data ===
	if _, err := time.Parse(contracts.DateLayout, cfg.Data.From); err != nil {
		return ValidationError{"data.from", "must be YYYY-MM-DD"}
	}

	// === Candidates ===
	names := make(map[string]int)
	for i, c := range cfg.Candidates {
		field := fmt.Sprintf("candidates[%d]", i)

		fast, okFast := c.Params["fast"]
		slow, okSlow := c.Params["slow"]
		if !okFast || !okSlow {
			return ValidationError{field + ".params", "fast and slow are required"}
		}
		if fast < 1 || slow <= fast {
			return ValidationError{field + ".params", "need 1 <= fast < slow"}
		}
		if comm := c.Params["commission"]; comm < 0 || comm >= 1 {
			return ValidationError{field + ".params.commission", "must be in [0, 1)"}
		}

		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d_%d", c.Kind, int(fast), int(slow))
		}
		if prev, dup := names[name]; dup {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate of candidates[%d]", prev)}
		}
		names[name] = i
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	for i, c := range cfg.Candidates {
		// 종목 미지정 후보가 하나라도 있으면 계산 결과가 비어 있음
		if c.Instrument == "" {
			warnings = append(warnings, Warning{
				Code:    "INCOMPLETE_CANDIDATE",
				Message: fmt.Sprintf("candidates[%d] has no instrument: calculate will produce no windows", i),
			})
		}

		// 학습 구간이 느린 이평보다 짧으면 모든 평가가 실패
		if slow := c.Params["slow"]; int(slow) >= cfg.Selector.TrainLen {
			warnings = append(warnings, Warning{
				Code:    "TRAIN_SHORTER_THAN_SLOW",
				Message: fmt.Sprintf("candidates[%d] slow=%d needs more than train_len=%d sessions", i, int(slow), cfg.Selector.TrainLen),
			})
		}
	}

	if cfg.Selector.Parallel && cfg.Selector.Workers == 1 {
		warnings = append(warnings, Warning{
			Code:    "PARALLEL_SINGLE_WORKER",
			Message: "parallel with workers=1 evaluates sequentially",
		})
	}

	if cfg.Data.Source == "synthetic" && cfg.Data.Sessions <= cfg.Selector.TrainLen {
		warnings = append(warnings, Warning{
			Code:    "SHORT_CALENDAR",
			Message: "data.sessions <= train_len: no window can be planned",
		})
	}

	return warnings
}

// === Helper Functions ===

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("must be YYYY-MM-DD")
	}
	return t, nil
}
