package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// Factory errors
var (
	ErrUnknownKind   = errors.New("unknown system kind")
	ErrInvalidParams = errors.New("invalid system params")
)

// FromSpec creates a System from its persisted description.
// Validates required parameters per kind.
func FromSpec(spec contracts.SystemSpec, prices contracts.PriceSource, log *logger.Logger) (contracts.System, error) {
	switch spec.Kind {
	case KindMACross:
		return fromMACrossSpec(spec, prices, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

// NewFactory binds a price source and logger into a contracts.SystemFactory
func NewFactory(prices contracts.PriceSource, log *logger.Logger) contracts.SystemFactory {
	return func(spec contracts.SystemSpec) (contracts.System, error) {
		return FromSpec(spec, prices, log)
	}
}

func fromMACrossSpec(spec contracts.SystemSpec, prices contracts.PriceSource, log *logger.Logger) (*MACross, error) {
	fast, err := intParam(spec.Params, "fast")
	if err != nil {
		return nil, err
	}
	slow, err := intParam(spec.Params, "slow")
	if err != nil {
		return nil, err
	}

	return NewMACross(MACrossConfig{
		Name:       spec.Name,
		Instrument: spec.Instrument,
		Fast:       fast,
		Slow:       slow,
		Capital:    spec.Params["capital"],
		Commission: spec.Params["commission"],
	}, prices, log)
}

func intParam(params map[string]float64, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParams, key)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParams, key, v)
	}
	return int(v), nil
}
