package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz/dsl"
)

// Limiter admits or rejects a request identified by key before the Service
// reaches the evaluator. A nil Limiter (the default) admits everything.
// internal/ratelimit's Local and Redis implementations satisfy this
// interface structurally.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

var tracer = otel.Tracer("github.com/Mindburn-Labs/zanzibar/pkg/authz")

// Service is the thin coordinator holding the namespace config map and a
// store, per spec.md §4.5. Check/Expand take the read lock over configs;
// AddDSL/AddConfig take the write lock — mirroring the teacher engine's
// sync.RWMutex convention (pkg/authz/engine.go).
type Service struct {
	mu      sync.RWMutex
	configs map[string]*NamespaceConfig
	store   Store

	// Limiter is consulted before Check/Expand/WriteTuple/DeleteTuple when non-nil. It
	// governs request admission only — it is never consulted for, nor does
	// it ever cache, a check/expand answer.
	Limiter Limiter

	logger *slog.Logger
}

// NewService returns a Service with an empty config set, backed by store.
func NewService(store Store) *Service {
	return &Service{
		configs: make(map[string]*NamespaceConfig),
		store:   store,
		logger:  slog.Default().With("component", "authz"),
	}
}

// AddDSL parses text and installs every resulting NamespaceConfig,
// last-writer-wins per name.
func (s *Service) AddDSL(text string) error {
	configs, err := dsl.Parse(text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range configs {
		s.installLocked(cfg)
	}
	return nil
}

// AddConfig installs cfg directly, replacing any existing config of the
// same name.
func (s *Service) AddConfig(cfg *NamespaceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installLocked(cfg)
}

// installLocked replaces the named config, logging a diagnostic when the
// incoming SchemaVersion is semver-lower than the one it replaces. This is
// advisory only — comparison never blocks or validates the replacement; the
// Non-goal on write-time schema validation is preserved.
func (s *Service) installLocked(cfg *NamespaceConfig) {
	if prev, ok := s.configs[cfg.Name]; ok && prev.SchemaVersion != "" && cfg.SchemaVersion != "" {
		if cmp, err := compareSchemaVersions(prev.SchemaVersion, cfg.SchemaVersion); err == nil && cmp > 0 {
			s.logger.Warn("namespace config replaced by an older schema version",
				"namespace", cfg.Name, "previous_version", prev.SchemaVersion, "new_version", cfg.SchemaVersion)
		}
	}
	s.configs[cfg.Name] = cfg
	s.logger.Debug("namespace config installed", "namespace", cfg.Name, "relations", len(cfg.Relations))
}

// compareSchemaVersions returns -1, 0, or 1 as old is less than, equal to,
// or greater than new, per semver precedence.
func compareSchemaVersions(old, new string) (int, error) {
	oldVer, err := semver.NewVersion(old)
	if err != nil {
		return 0, fmt.Errorf("parse old schema version %q: %w", old, err)
	}
	newVer, err := semver.NewVersion(new)
	if err != nil {
		return 0, fmt.Errorf("parse new schema version %q: %w", new, err)
	}
	return oldVer.Compare(newVer), nil
}

// WriteTuple persists tuple via the underlying store.
func (s *Service) WriteTuple(ctx context.Context, tuple RelationTuple) error {
	if err := s.admit(ctx, "write:"+tuple.Object.Namespace); err != nil {
		return err
	}
	correlationID := uuid.New().String()
	if err := s.store.Write(ctx, tuple); err != nil {
		return NewStorageError("writing tuple", err)
	}
	s.logger.Debug("tuple written", "correlation_id", correlationID, "tuple", tuple.String())
	return nil
}

// DeleteTuple removes tuple via the underlying store.
func (s *Service) DeleteTuple(ctx context.Context, tuple RelationTuple) error {
	if err := s.admit(ctx, "write:"+tuple.Object.Namespace); err != nil {
		return err
	}
	correlationID := uuid.New().String()
	if err := s.store.Delete(ctx, tuple); err != nil {
		return NewStorageError("deleting tuple", err)
	}
	s.logger.Debug("tuple deleted", "correlation_id", correlationID, "tuple", tuple.String())
	return nil
}

// Check answers whether user holds relation on object.
func (s *Service) Check(ctx context.Context, object Object, relation Relation, user User) (bool, error) {
	if err := s.admit(ctx, "check:"+object.Namespace); err != nil {
		return false, err
	}

	correlationID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "authz.check", trace.WithAttributes(
		attribute.String("authz.correlation_id", correlationID),
		attribute.String("authz.namespace", object.Namespace),
		attribute.String("authz.relation", string(relation)),
	))
	defer span.End()
	logger := s.logger.With("correlation_id", correlationID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed, peak, err := checkWithPeak(ctx, s.configs, s.store, object, relation, user)
	span.SetAttributes(attribute.Int("authz.visited_peak", peak))
	if err != nil {
		span.RecordError(err)
		logger.Debug("check failed", "object", object.String(), "relation", relation, "error", err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("authz.allowed", allowed))
	logger.Debug("check evaluated", "object", object.String(), "relation", relation, "allowed", allowed, "visited_peak", peak)
	return allowed, nil
}

// Expand returns the structural tree of usersets contributing to relation on
// object.
func (s *Service) Expand(ctx context.Context, object Object, relation Relation) (ExpandedUserset, error) {
	if err := s.admit(ctx, "expand:"+object.Namespace); err != nil {
		return ExpandedUserset{}, err
	}

	correlationID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "authz.expand", trace.WithAttributes(
		attribute.String("authz.correlation_id", correlationID),
		attribute.String("authz.namespace", object.Namespace),
		attribute.String("authz.relation", string(relation)),
	))
	defer span.End()
	logger := s.logger.With("correlation_id", correlationID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, err := Expand(ctx, s.configs, s.store, object, relation)
	if err != nil {
		span.RecordError(err)
		logger.Debug("expand failed", "object", object.String(), "relation", relation, "error", err)
		return ExpandedUserset{}, err
	}
	nodeCount := countExpandNodes(tree)
	span.SetAttributes(attribute.Int("authz.expand_node_count", nodeCount))
	logger.Debug("expand evaluated", "object", object.String(), "relation", relation, "node_count", nodeCount)
	return tree, nil
}

// admit consults Limiter, if set, returning its error unwrapped (callers
// distinguish ratelimit.ErrRateLimited from *Error via errors.Is, since
// admission control is not one of the four authz.Error kinds).
func (s *Service) admit(ctx context.Context, key string) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Allow(ctx, key)
}
