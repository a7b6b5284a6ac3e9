// Package authz implements a Zanzibar-style relationship-based
// authorization engine: a tuple data model, a rewrite-expression DSL and
// interpreter, and a Service facade binding them to a pluggable Store.
package authz

import (
	"encoding/json"
	"fmt"
)

// Object is a namespaced digital resource, e.g. doc:readme.
type Object struct {
	Namespace string
	ID        string
}

func (o Object) String() string {
	return fmt.Sprintf("%s:%s", o.Namespace, o.ID)
}

// Relation names an edge kind defined within a namespace's config.
type Relation string

// User is either a terminal principal id or an indirection to a userset
// (object#relation). Go has no sum types, so the two cases are modeled as a
// single comparable struct tagged by IsUserset — this keeps User usable
// directly as a map key, which the evaluator's visited set relies on.
type User struct {
	IsUserset bool
	ID        string // valid when !IsUserset
	Object    Object // valid when IsUserset
	Relation  Relation
}

// UserID builds a terminal principal User.
func UserID(id string) User {
	return User{ID: id}
}

// UsersetUser builds an indirection User pointing at object#relation.
func UsersetUser(object Object, relation Relation) User {
	return User{IsUserset: true, Object: object, Relation: relation}
}

func (u User) String() string {
	if u.IsUserset {
		return fmt.Sprintf("%s#%s", u.Object, u.Relation)
	}
	return u.ID
}

// RelationTuple is the atomic unit of authorization data: (object, relation, user).
type RelationTuple struct {
	Object   Object
	Relation Relation
	User     User
}

func (t RelationTuple) String() string {
	return fmt.Sprintf("%s#%s@%s", t.Object, t.Relation, t.User)
}

// ExprKind tags the variant of a UsersetExpression.
type ExprKind int

const (
	ExprThis ExprKind = iota
	ExprComputedUserset
	ExprTupleToUserset
	ExprUnion
	ExprIntersection
	ExprExclusion
)

// UsersetExpression is the rewrite-rule tree attached to a relation. Only the
// fields relevant to Kind are populated; see the constructors below.
type UsersetExpression struct {
	Kind ExprKind

	// ExprComputedUserset
	Relation Relation

	// ExprTupleToUserset
	Tupleset Relation
	Computed Relation

	// ExprUnion / ExprIntersection
	Children []UsersetExpression

	// ExprExclusion
	Base    *UsersetExpression
	Exclude *UsersetExpression
}

// This returns the base "direct tuples plus stored userset indirection" term.
func This() UsersetExpression {
	return UsersetExpression{Kind: ExprThis}
}

// ComputedUserset returns "users who hold relation on the same object".
func ComputedUserset(relation Relation) UsersetExpression {
	return UsersetExpression{Kind: ExprComputedUserset, Relation: relation}
}

// TupleToUserset returns the tupleset -> computed-userset indirection.
func TupleToUserset(tupleset, computed Relation) UsersetExpression {
	return UsersetExpression{Kind: ExprTupleToUserset, Tupleset: tupleset, Computed: computed}
}

// Union returns the union of the given sub-expressions.
func Union(children ...UsersetExpression) UsersetExpression {
	return UsersetExpression{Kind: ExprUnion, Children: children}
}

// Intersection returns the intersection of the given sub-expressions.
func Intersection(children ...UsersetExpression) UsersetExpression {
	return UsersetExpression{Kind: ExprIntersection, Children: children}
}

// Exclusion returns base-minus-exclude.
func Exclusion(base, exclude UsersetExpression) UsersetExpression {
	return UsersetExpression{Kind: ExprExclusion, Base: &base, Exclude: &exclude}
}

// RelationConfig defines a relation within a namespace. A nil Rewrite is
// semantically equivalent to This.
type RelationConfig struct {
	Name    Relation
	Rewrite *UsersetExpression
}

// effectiveRewrite returns the relation's rewrite, defaulting to This.
func (rc RelationConfig) effectiveRewrite() UsersetExpression {
	if rc.Rewrite == nil {
		return This()
	}
	return *rc.Rewrite
}

// NamespaceConfig is the schema and policy for one object namespace.
type NamespaceConfig struct {
	Name string
	// SchemaVersion is an optional advisory semver string; see fingerprint.go.
	// It is never enforced or validated against tuple data — purely
	// diagnostic, per the Non-goal on write-time schema validation.
	SchemaVersion string
	Relations     map[Relation]RelationConfig
}

// NewNamespaceConfig returns an empty, named config ready to have relations added.
func NewNamespaceConfig(name string) *NamespaceConfig {
	return &NamespaceConfig{Name: name, Relations: make(map[Relation]RelationConfig)}
}

// ExpandKind tags the variant of an ExpandedUserset.
type ExpandKind int

const (
	ExpandUser ExpandKind = iota
	ExpandUserset
	ExpandUnion
	ExpandIntersection
	ExpandExclusion
)

// ExpandedUserset is the structural tree returned by Expand.
type ExpandedUserset struct {
	Kind ExpandKind `json:"kind"`

	// ExpandUser
	UserID string `json:"user_id,omitempty"`

	// ExpandUserset
	Object   Object   `json:"object,omitzero"`
	Relation Relation `json:"relation,omitempty"`

	// ExpandUnion / ExpandIntersection
	Children []ExpandedUserset `json:"children,omitempty"`

	// ExpandExclusion
	Base    *ExpandedUserset `json:"base,omitempty"`
	Exclude *ExpandedUserset `json:"exclude,omitempty"`
}

// MarshalJSON adds Kind's lowercase name as "kind_name" alongside the
// integer "kind" field.
func (e ExpandedUserset) MarshalJSON() ([]byte, error) {
	type alias ExpandedUserset
	return json.Marshal(struct {
		KindName string `json:"kind_name"`
		alias
	}{KindName: e.Kind.String(), alias: alias(e)})
}

// String names the expand tree variant.
func (k ExpandKind) String() string {
	switch k {
	case ExpandUser:
		return "user"
	case ExpandUserset:
		return "userset"
	case ExpandUnion:
		return "union"
	case ExpandIntersection:
		return "intersection"
	case ExpandExclusion:
		return "exclusion"
	default:
		return "unknown"
	}
}
