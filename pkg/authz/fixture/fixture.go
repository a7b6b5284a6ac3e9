// Package fixture loads a declarative YAML test/demo format — DSL schema
// text, a list of tuples, and a list of check assertions — modeled on the
// "validation file" pattern used across the Zanzibar-family corpus
// (SpiceDB's validationfile, Keto's namespace+tuple test registries). It is
// a convenience for tests and the demo CLI, not a wire protocol.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

// TupleSpec is one line of the relation_tuples list: "doc:1#owner@alice"
// split across three YAML fields for readability.
type TupleSpec struct {
	Object   string `yaml:"object"`
	Relation string `yaml:"relation"`
	User     string `yaml:"user"`
}

// AssertionSpec is one check assertion: the expected boolean outcome for
// (object, relation, user).
type AssertionSpec struct {
	Object   string `yaml:"object"`
	Relation string `yaml:"relation"`
	User     string `yaml:"user"`
	Expect   bool   `yaml:"expect"`
}

// File is the parsed fixture document.
type File struct {
	Schema     string          `yaml:"schema"`
	Tuples     []TupleSpec     `yaml:"relation_tuples"`
	Assertions []AssertionSpec `yaml:"assertions"`
}

// Load parses raw YAML fixture data.
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: parse yaml: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a fixture file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Load(data)
}

// ParseObject parses "namespace:id" into an authz.Object.
func ParseObject(s string) (authz.Object, error) {
	namespace, id, ok := strings.Cut(s, ":")
	if !ok || namespace == "" || id == "" {
		return authz.Object{}, fmt.Errorf("fixture: invalid object %q, expected namespace:id", s)
	}
	return authz.Object{Namespace: namespace, ID: id}, nil
}

// ParseUser parses either a bare principal id ("alice") or a userset
// indirection ("group:eng#member") into an authz.User.
func ParseUser(s string) (authz.User, error) {
	objectPart, relation, ok := strings.Cut(s, "#")
	if !ok {
		return authz.UserID(s), nil
	}
	object, err := ParseObject(objectPart)
	if err != nil {
		return authz.User{}, fmt.Errorf("fixture: invalid userset %q: %w", s, err)
	}
	return authz.UsersetUser(object, authz.Relation(relation)), nil
}

func (t TupleSpec) toTuple() (authz.RelationTuple, error) {
	object, err := ParseObject(t.Object)
	if err != nil {
		return authz.RelationTuple{}, err
	}
	user, err := ParseUser(t.User)
	if err != nil {
		return authz.RelationTuple{}, err
	}
	return authz.RelationTuple{Object: object, Relation: authz.Relation(t.Relation), User: user}, nil
}

// Apply installs f's schema and writes every tuple into svc.
func (f *File) Apply(ctx context.Context, svc *authz.Service) error {
	if f.Schema != "" {
		if err := svc.AddDSL(f.Schema); err != nil {
			return err
		}
	}
	for i, spec := range f.Tuples {
		tuple, err := spec.toTuple()
		if err != nil {
			return fmt.Errorf("fixture: relation_tuples[%d]: %w", i, err)
		}
		if err := svc.WriteTuple(ctx, tuple); err != nil {
			return fmt.Errorf("fixture: relation_tuples[%d]: %w", i, err)
		}
	}
	return nil
}

// AssertionResult pairs an AssertionSpec with its actual evaluated outcome.
type AssertionResult struct {
	AssertionSpec
	Actual bool
}

// Passed reports whether the assertion's expected and actual outcomes match.
func (r AssertionResult) Passed() bool {
	return r.Expect == r.Actual
}

// RunAssertions evaluates every assertion in f against svc and returns the
// full result set; callers decide how to report failures (see cmd/zanzibar).
func (f *File) RunAssertions(ctx context.Context, svc *authz.Service) ([]AssertionResult, error) {
	results := make([]AssertionResult, 0, len(f.Assertions))
	for i, spec := range f.Assertions {
		object, err := ParseObject(spec.Object)
		if err != nil {
			return nil, fmt.Errorf("fixture: assertions[%d]: %w", i, err)
		}
		user, err := ParseUser(spec.User)
		if err != nil {
			return nil, fmt.Errorf("fixture: assertions[%d]: %w", i, err)
		}
		actual, err := svc.Check(ctx, object, authz.Relation(spec.Relation), user)
		if err != nil {
			return nil, fmt.Errorf("fixture: assertions[%d]: %w", i, err)
		}
		results = append(results, AssertionResult{AssertionSpec: spec, Actual: actual})
	}
	return results, nil
}
