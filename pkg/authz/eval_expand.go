package authz

import "context"

// Expand returns the structural tree of usersets contributing to relation on
// object. Unlike Check, it does not descend into specific users' membership
// and does not use a visited set — its output is structural and bounded by
// the rewrite tree plus one level of tuple fan-out per This/TupleToUserset.
func Expand(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation) (ExpandedUserset, error) {
	cfg, ok := configs[object.Namespace]
	if !ok {
		return ExpandedUserset{}, NewNamespaceNotFound(object.Namespace)
	}
	relCfg, ok := cfg.Relations[relation]
	if !ok {
		return ExpandedUserset{}, NewRelationNotFound(string(relation), object.Namespace)
	}

	return evalExpandExpr(ctx, configs, store, object, relation, relCfg.effectiveRewrite())
}

func evalExpandExpr(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, expr UsersetExpression) (ExpandedUserset, error) {
	switch expr.Kind {
	case ExprThis:
		tuples, err := store.Read(ctx, object, &relation, nil)
		if err != nil {
			return ExpandedUserset{}, NewStorageError("reading direct tuples", err)
		}
		children := make([]ExpandedUserset, 0, len(tuples))
		for _, t := range tuples {
			if t.User.IsUserset {
				// The stored userset is preserved verbatim — not recursively expanded.
				children = append(children, ExpandedUserset{
					Kind:     ExpandUserset,
					Object:   t.User.Object,
					Relation: t.User.Relation,
				})
			} else {
				children = append(children, ExpandedUserset{Kind: ExpandUser, UserID: t.User.ID})
			}
		}
		return ExpandedUserset{Kind: ExpandUnion, Children: children}, nil

	case ExprComputedUserset:
		// A fresh expand: the result tree of expr.Relation is substituted inline.
		return Expand(ctx, configs, store, object, expr.Relation)

	case ExprTupleToUserset:
		parents, err := store.Read(ctx, object, &expr.Tupleset, nil)
		if err != nil {
			return ExpandedUserset{}, NewStorageError("reading tupleset", err)
		}
		children := make([]ExpandedUserset, 0, len(parents))
		for _, t := range parents {
			if !t.User.IsUserset {
				continue
			}
			sub, err := Expand(ctx, configs, store, t.User.Object, expr.Computed)
			if err != nil {
				return ExpandedUserset{}, err
			}
			children = append(children, sub)
		}
		return ExpandedUserset{Kind: ExpandUnion, Children: children}, nil

	case ExprUnion:
		children := make([]ExpandedUserset, 0, len(expr.Children))
		for _, c := range expr.Children {
			sub, err := evalExpandExpr(ctx, configs, store, object, relation, c)
			if err != nil {
				return ExpandedUserset{}, err
			}
			children = append(children, sub)
		}
		return ExpandedUserset{Kind: ExpandUnion, Children: children}, nil

	case ExprIntersection:
		children := make([]ExpandedUserset, 0, len(expr.Children))
		for _, c := range expr.Children {
			sub, err := evalExpandExpr(ctx, configs, store, object, relation, c)
			if err != nil {
				return ExpandedUserset{}, err
			}
			children = append(children, sub)
		}
		return ExpandedUserset{Kind: ExpandIntersection, Children: children}, nil

	case ExprExclusion:
		base, err := evalExpandExpr(ctx, configs, store, object, relation, *expr.Base)
		if err != nil {
			return ExpandedUserset{}, err
		}
		exclude, err := evalExpandExpr(ctx, configs, store, object, relation, *expr.Exclude)
		if err != nil {
			return ExpandedUserset{}, err
		}
		return ExpandedUserset{Kind: ExpandExclusion, Base: &base, Exclude: &exclude}, nil

	default:
		return ExpandedUserset{}, nil
	}
}

// countExpandNodes counts the nodes in tree, the traversal-cost signal
// Service.Expand surfaces on its span — Expand has no visited set (it never
// descends into specific users, see the doc comment above), so node count
// stands in for the visited-set peak Check reports.
func countExpandNodes(tree ExpandedUserset) int {
	n := 1
	for _, c := range tree.Children {
		n += countExpandNodes(c)
	}
	if tree.Base != nil {
		n += countExpandNodes(*tree.Base)
	}
	if tree.Exclude != nil {
		n += countExpandNodes(*tree.Exclude)
	}
	return n
}
