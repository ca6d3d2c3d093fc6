// Package collection makes sure every content kind has its collection before it is used.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// NewSpec builds the collection spec of a kind with its filterable fields.
func NewSpec(k kind.Kind, name string, dim int) point.CollectionSpec {
	return point.CollectionSpec{
		Name:      name,
		Kind:      k,
		Dimension: dim,
		Fields:    entity.Fields(k),
	}
}

// Manager creates missing collections and remembers which ones are ready.
type Manager struct {
	index  Index
	specs  map[kind.Kind]point.CollectionSpec
	order  []kind.Kind
	logger *zap.Logger

	mu      sync.RWMutex
	ensured map[string]bool
}

// New creates a Manager for the given specs, one per kind.
func New(index Index, specs []point.CollectionSpec, logger *zap.Logger) *Manager {
	m := &Manager{
		index:   index,
		specs:   make(map[kind.Kind]point.CollectionSpec, len(specs)),
		logger:  logger,
		ensured: make(map[string]bool),
	}
	for _, s := range specs {
		if _, dup := m.specs[s.Kind]; !dup {
			m.order = append(m.order, s.Kind)
		}
		m.specs[s.Kind] = s
	}
	return m
}

// Spec returns the configured spec of a kind.
func (m *Manager) Spec(k kind.Kind) (point.CollectionSpec, error) {
	s, ok := m.specs[k]
	if !ok {
		return point.CollectionSpec{}, fmt.Errorf("%w: %q has no collection", domain.ErrUnknownKind, k)
	}
	return s, nil
}

// Kinds returns the configured kinds in configuration order.
func (m *Manager) Kinds() []kind.Kind {
	return append([]kind.Kind(nil), m.order...)
}

// EnsureCollections ensures every configured collection. Failures are joined.
func (m *Manager) EnsureCollections(ctx context.Context) error {
	var errs []error
	for _, k := range m.order {
		if _, err := m.Ensure(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure creates the collection of k if it does not exist yet and returns its spec.
// Failures wrap domain.ErrCollectionUnavailable; the next call retries.
func (m *Manager) Ensure(ctx context.Context, k kind.Kind) (point.CollectionSpec, error) {
	spec, err := m.Spec(k)
	if err != nil {
		return point.CollectionSpec{}, err
	}
	if m.isEnsured(spec.Name) {
		return spec, nil
	}

	if err := m.ensure(ctx, spec); err != nil {
		m.logger.Error("Collection not ready",
			zap.String("collection", spec.Name),
			zap.String("kind", string(k)),
			zap.Error(err),
		)
		return point.CollectionSpec{}, err
	}

	m.mu.Lock()
	m.ensured[spec.Name] = true
	m.mu.Unlock()
	return spec, nil
}

// Check reports an error while any configured collection is not ensured.
func (m *Manager) Check(ctx context.Context) error {
	return m.EnsureCollections(ctx)
}

// Reset forgets which collections were ensured.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.ensured = make(map[string]bool)
	m.mu.Unlock()
}

func (m *Manager) isEnsured(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ensured[name]
}

func (m *Manager) ensure(ctx context.Context, spec point.CollectionSpec) error {
	info, err := m.index.Collection(ctx, spec.Name)
	switch {
	case err == nil:
		if info.Dimension != 0 && info.Dimension != spec.Dimension {
			return fmt.Errorf("collection %s: %w", spec.Name, domain.NewVectorDimError(spec.Dimension, info.Dimension))
		}
		return m.ensureFields(ctx, spec)
	case !errors.Is(err, db.ErrCollectionNotFound):
		return fmt.Errorf("inspect %s: %w: %w", spec.Name, domain.ErrCollectionUnavailable, err)
	}

	if err := m.index.CreateCollection(ctx, spec); err != nil {
		if !errors.Is(err, db.ErrCollectionExists) {
			return fmt.Errorf("create %s: %w: %w", spec.Name, domain.ErrCollectionUnavailable, err)
		}
		return m.ensureFields(ctx, spec)
	}
	m.logger.Info("Collection created",
		zap.String("collection", spec.Name),
		zap.String("kind", string(spec.Kind)),
		zap.Int("dimension", spec.Dimension),
	)
	return nil
}

// ensureFields repairs payload indexes of a collection that already exists,
// e.g. one whose creation was interrupted after the collection itself was made.
func (m *Manager) ensureFields(ctx context.Context, spec point.CollectionSpec) error {
	fi, ok := m.index.(FieldIndexer)
	if !ok {
		return nil
	}
	if err := fi.EnsureFieldIndexes(ctx, spec); err != nil {
		return fmt.Errorf("index fields of %s: %w: %w", spec.Name, domain.ErrCollectionUnavailable, err)
	}
	return nil
}
