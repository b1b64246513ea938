package strategyconfig

import (
	"fmt"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/selection"
)

// Config는 walk-forward 후보 선택 전략 파일의 전체 설정
type Config struct {
	Selector   Selector    `yaml:"selector" json:"selector"`
	Query      Query       `yaml:"query" json:"query"`
	Data       Data        `yaml:"data" json:"data"`
	Candidates []Candidate `yaml:"candidates" json:"candidates" validate:"required,min=1,dive"`
}

// Selector 선택기 파라미터
type Selector struct {
	Name     string `yaml:"name" json:"name" default:"default" validate:"required,max=64"`
	TrainLen int    `yaml:"train_len" json:"train_len" default:"30" validate:"gt=0"`
	TestLen  int    `yaml:"test_len" json:"test_len" default:"20" validate:"gt=0"`
	Mode     string `yaml:"mode" json:"mode" default:"max" validate:"oneof=max min"`
	Metric   string `yaml:"metric" json:"metric" default:"ending_equity" validate:"required"`
	Parallel bool   `yaml:"parallel" json:"parallel"`
	Workers  int    `yaml:"workers" json:"workers" default:"4" validate:"gte=1,lte=256"`
}

// Query 평가 구간 (last 또는 start/end 중 하나)
type Query struct {
	Last  int    `yaml:"last" json:"last" validate:"gte=0"`
	Start string `yaml:"start" json:"start"` // YYYY-MM-DD, inclusive
	End   string `yaml:"end" json:"end"`     // YYYY-MM-DD, exclusive
}

// Data 가격/거래일 소스
type Data struct {
	Source       string `yaml:"source" json:"source" default:"synthetic" validate:"oneof=synthetic postgres"`
	CalendarCode string `yaml:"calendar_code" json:"calendar_code"` // empty: all instruments
	From         string `yaml:"from" json:"from" default:"2024-01-01"`
	Sessions     int    `yaml:"sessions" json:"sessions" default:"250" validate:"gt=0"` // synthetic only
}

// Candidate 후보 시스템 정의
type Candidate struct {
	Kind       string             `yaml:"kind" json:"kind" default:"ma_cross" validate:"oneof=ma_cross"`
	Name       string             `yaml:"name" json:"name"`
	Instrument string             `yaml:"instrument" json:"instrument"`
	Params     map[string]float64 `yaml:"params" json:"params"`
}

// SelectorConfig converts to the selector configuration
func (c *Config) SelectorConfig() selection.Config {
	return selection.Config{
		TrainLen: c.Selector.TrainLen,
		TestLen:  c.Selector.TestLen,
		Mode:     selection.Mode(c.Selector.Mode),
		Metric:   c.Selector.Metric,
		Parallel: c.Selector.Parallel,
		Workers:  c.Selector.Workers,
	}
}

// CalendarQuery converts the query block
func (c *Config) CalendarQuery() (contracts.Query, error) {
	q := contracts.Query{Last: c.Query.Last}
	var err error
	if c.Query.Start != "" {
		if q.Start, err = time.Parse(contracts.DateLayout, c.Query.Start); err != nil {
			return q, fmt.Errorf("query.start: %w", err)
		}
	}
	if c.Query.End != "" {
		if q.End, err = time.Parse(contracts.DateLayout, c.Query.End); err != nil {
			return q, fmt.Errorf("query.end: %w", err)
		}
	}
	return q, nil
}

// FromDate parses data.from
func (c *Config) FromDate() (time.Time, error) {
	return time.Parse(contracts.DateLayout, c.Data.From)
}

// Specs returns candidate descriptions in file order
func (c *Config) Specs() []contracts.SystemSpec {
	specs := make([]contracts.SystemSpec, len(c.Candidates))
	for i, cand := range c.Candidates {
		specs[i] = contracts.SystemSpec{
			Kind:       cand.Kind,
			Name:       cand.Name,
			Instrument: cand.Instrument,
			Params:     cand.Params,
		}
	}
	return specs
}

// Instruments returns distinct candidate instruments in first-seen order
func (c *Config) Instruments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, cand := range c.Candidates {
		if cand.Instrument == "" || seen[cand.Instrument] {
			continue
		}
		seen[cand.Instrument] = true
		out = append(out, cand.Instrument)
	}
	return out
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	Selector   string    `json:"selector"`
	GitCommit  string    `json:"git_commit"`
	CreatedAt  time.Time `json:"created_at"`
}
