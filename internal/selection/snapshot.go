package selection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// Snapshot is the persistable state of a selector: configuration and pool.
// The computed table is never persisted; restoring and recalculating over
// the same calendar reproduces it.
type Snapshot struct {
	Name       string                 `json:"name" yaml:"name"`
	Config     Config                 `json:"config" yaml:"config"`
	Candidates []contracts.SystemSpec `json:"candidates" yaml:"candidates"`
	Hash       string                 `json:"hash" yaml:"hash"`
	CreatedAt  time.Time              `json:"created_at" yaml:"created_at"`
}

// SnapshotStore persists snapshots by name
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, name string) (*Snapshot, error)
}

// ComputeHash returns the SHA-256 of the canonical JSON of config and candidates
func (s *Snapshot) ComputeHash() (string, error) {
	payload := struct {
		Config     Config                 `json:"config"`
		Candidates []contracts.SystemSpec `json:"candidates"`
	}{s.Config, s.Candidates}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Verify checks the stored hash
func (s *Snapshot) Verify() error {
	hash, err := s.ComputeHash()
	if err != nil {
		return err
	}
	if hash != s.Hash {
		return fmt.Errorf("%w: %s: stored %s, computed %s", ErrSnapshotMismatch, s.Name, s.Hash, hash)
	}
	return nil
}

// Snapshot captures config and pool. The table must be empty: a populated
// selector has to be Reset first.
func (s *Selector) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table != nil {
		return nil, fmt.Errorf("%w: reset before snapshot", ErrInvalidState)
	}

	snap := &Snapshot{
		Name:       s.name,
		Config:     s.cfg,
		Candidates: make([]contracts.SystemSpec, len(s.pool)),
		CreatedAt:  time.Now().UTC(),
	}
	for i, c := range s.pool {
		snap.Candidates[i] = c.System.Spec()
	}

	hash, err := snap.ComputeHash()
	if err != nil {
		return nil, err
	}
	snap.Hash = hash
	return snap, nil
}

// Restore rebuilds a selector from a verified snapshot. Candidates are
// recreated in their original order; the table starts empty.
func Restore(snap *Snapshot, factory contracts.SystemFactory, cal contracts.TradingCalendar, log *logger.Logger, opts ...Option) (*Selector, error) {
	if snap == nil || factory == nil {
		return nil, fmt.Errorf("%w: snapshot and factory are required", ErrInvalidArgument)
	}
	if err := snap.Verify(); err != nil {
		return nil, err
	}

	opts = append([]Option{WithName(snap.Name)}, opts...)
	sel, err := New(snap.Config, cal, log, opts...)
	if err != nil {
		return nil, err
	}

	for i, spec := range snap.Candidates {
		sys, err := factory(spec)
		if err != nil {
			return nil, fmt.Errorf("restore candidate %d (%s): %w", i, spec.Name, err)
		}
		if err := sel.AddCandidate(sys); err != nil {
			return nil, fmt.Errorf("restore candidate %d (%s): %w", i, spec.Name, err)
		}
	}
	return sel, nil
}
