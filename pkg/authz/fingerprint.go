package authz

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"
)

// canonicalExpr is the JSON-serializable, order-stable mirror of
// UsersetExpression used only for fingerprinting.
type canonicalExpr struct {
	Kind     string          `json:"kind"`
	Relation string          `json:"relation,omitempty"`
	Tupleset string          `json:"tupleset,omitempty"`
	Computed string          `json:"computed,omitempty"`
	Children []canonicalExpr `json:"children,omitempty"`
	Base     *canonicalExpr  `json:"base,omitempty"`
	Exclude  *canonicalExpr  `json:"exclude,omitempty"`
}

func toCanonicalExpr(e UsersetExpression) canonicalExpr {
	c := canonicalExpr{Kind: exprKindName(e.Kind)}
	switch e.Kind {
	case ExprComputedUserset:
		c.Relation = string(e.Relation)
	case ExprTupleToUserset:
		c.Tupleset = string(e.Tupleset)
		c.Computed = string(e.Computed)
	case ExprUnion, ExprIntersection:
		c.Children = make([]canonicalExpr, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = toCanonicalExpr(child)
		}
	case ExprExclusion:
		base := toCanonicalExpr(*e.Base)
		exclude := toCanonicalExpr(*e.Exclude)
		c.Base = &base
		c.Exclude = &exclude
	}
	return c
}

func exprKindName(k ExprKind) string {
	switch k {
	case ExprThis:
		return "this"
	case ExprComputedUserset:
		return "computed_userset"
	case ExprTupleToUserset:
		return "tuple_to_userset"
	case ExprUnion:
		return "union"
	case ExprIntersection:
		return "intersection"
	case ExprExclusion:
		return "exclusion"
	default:
		return "unknown"
	}
}

type canonicalRelation struct {
	Name    string         `json:"name"`
	Rewrite *canonicalExpr `json:"rewrite,omitempty"`
}

type canonicalNamespace struct {
	Name          string              `json:"name"`
	SchemaVersion string              `json:"schema_version,omitempty"`
	Relations     []canonicalRelation `json:"relations"`
}

func toCanonicalNamespace(cfg *NamespaceConfig) canonicalNamespace {
	names := make([]string, 0, len(cfg.Relations))
	for name := range cfg.Relations {
		names = append(names, string(name))
	}
	sort.Strings(names)

	relations := make([]canonicalRelation, 0, len(names))
	for _, name := range names {
		rc := cfg.Relations[Relation(name)]
		cr := canonicalRelation{Name: name}
		if rc.Rewrite != nil {
			expr := toCanonicalExpr(*rc.Rewrite)
			cr.Rewrite = &expr
		}
		relations = append(relations, cr)
	}

	return canonicalNamespace{
		Name:          cfg.Name,
		SchemaVersion: cfg.SchemaVersion,
		Relations:     relations,
	}
}

// Fingerprint returns a deterministic content hash of cfg: RFC 8785 JSON
// canonicalization (gowebpki/jcs) followed by BLAKE2b-256. Map iteration
// order never affects the result — relations are sorted by name first. This
// operationalizes I6 (parse/pretty-print/re-parse yields an equal config):
// two configs are equal iff their fingerprints match.
func Fingerprint(cfg *NamespaceConfig) (string, error) {
	raw, err := json.Marshal(toCanonicalNamespace(cfg))
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ConfigSetFingerprint fingerprints an entire namespace map, sorted by name,
// so the whole-Service config state can be compared for equality regardless
// of add_dsl/add_config ordering.
func ConfigSetFingerprint(configs map[string]*NamespaceConfig) (string, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		fp, err := Fingerprint(configs[name])
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s:%s", name, fp))
	}

	raw, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal set: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize set: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
