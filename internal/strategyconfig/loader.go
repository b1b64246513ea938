package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/wonny/optimal-selector/pkg/config"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	return LoadWithDefaults(path, Selector{})
}

// LoadWithDefaults is Load with base selector values that the file overrides
func LoadWithDefaults(path string, base Selector) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := ParseWithDefaults(data, base)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes, applies defaults and validates YAML bytes
func Parse(data []byte) (*Config, error) {
	return ParseWithDefaults(data, Selector{})
}

// ParseWithDefaults seeds the selector block with base before decoding.
// 우선순위: YAML > base (환경변수) > default 태그
func ParseWithDefaults(data []byte, base Selector) (*Config, error) {
	cfg := Config{Selector: base}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvDefaults converts the env selector defaults into a base selector block
func EnvDefaults(c config.SelectorConfig) Selector {
	return Selector{
		TrainLen: c.TrainLen,
		TestLen:  c.TestLen,
		Mode:     c.Mode,
		Metric:   c.Metric,
		Parallel: c.Parallel,
		Workers:  c.Workers,
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: params map은 json.Marshal이 키 정렬하므로 재현 가능
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot creates a snapshot for audit
func NewDecisionSnapshot(cfg *Config, yamlData []byte, gitCommit string) (*DecisionSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &DecisionSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		Selector:   cfg.Selector.Name,
		GitCommit:  gitCommit,
		CreatedAt:  time.Now(),
	}, nil
}
