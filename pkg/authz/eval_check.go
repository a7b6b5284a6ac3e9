package authz

import "context"

// Check answers "does user have relation on object?" against configs and
// store. It allocates a fresh visited set for this single top-level call —
// visited sets must never be shared across requests.
func Check(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, user User) (bool, error) {
	allowed, _, err := checkWithPeak(ctx, configs, store, object, relation, user)
	return allowed, err
}

// checkWithPeak is Check plus the visited-set high-water mark reached during
// evaluation — Service.Check surfaces this as a traversal-cost span
// attribute. Unexported: callers outside the package get the plain Check.
func checkWithPeak(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, user User) (bool, int, error) {
	visited := newVisitedSet()
	allowed, err := checkInternal(ctx, configs, store, object, relation, user, visited)
	return allowed, visited.peak, err
}

// checkInternal is check's cycle-safe recursive core. visited is threaded by
// reference; each triple is entered on recursion-entry and removed on exit.
func checkInternal(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, user User, visited *visitedSet) (bool, error) {
	key := visitKey{Object: object, Relation: relation, User: user}
	if !visited.enter(key) {
		// Cycle detected. This is not an error: the cyclic branch is simply
		// false so sibling branches can still succeed.
		return false, nil
	}
	defer visited.leave(key)

	cfg, ok := configs[object.Namespace]
	if !ok {
		return false, NewNamespaceNotFound(object.Namespace)
	}
	relCfg, ok := cfg.Relations[relation]
	if !ok {
		return false, NewRelationNotFound(string(relation), object.Namespace)
	}

	return evalCheckExpr(ctx, configs, store, object, relation, user, visited, relCfg.effectiveRewrite())
}

func evalCheckExpr(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, user User, visited *visitedSet, expr UsersetExpression) (bool, error) {
	switch expr.Kind {
	case ExprThis:
		return evalThisCheck(ctx, configs, store, object, relation, user, visited)

	case ExprComputedUserset:
		// Fresh top-level check: must re-enter so expr.Relation's own rewrite
		// (and cycle accounting) applies, not a plain expression evaluation.
		return checkInternal(ctx, configs, store, object, expr.Relation, user, visited)

	case ExprTupleToUserset:
		return evalTupleToUsersetCheck(ctx, configs, store, object, expr, user, visited)

	case ExprUnion:
		for _, child := range expr.Children {
			ok, err := evalCheckExpr(ctx, configs, store, object, relation, user, visited, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case ExprIntersection:
		for _, child := range expr.Children {
			ok, err := evalCheckExpr(ctx, configs, store, object, relation, user, visited, child)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case ExprExclusion:
		excluded, err := evalCheckExpr(ctx, configs, store, object, relation, user, visited, *expr.Exclude)
		if err != nil {
			return false, err
		}
		if excluded {
			return false, nil
		}
		return evalCheckExpr(ctx, configs, store, object, relation, user, visited, *expr.Base)

	default:
		return false, nil
	}
}

func evalThisCheck(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, relation Relation, user User, visited *visitedSet) (bool, error) {
	direct, err := store.Read(ctx, object, &relation, &user)
	if err != nil {
		return false, NewStorageError("reading direct tuples", err)
	}
	if len(direct) > 0 {
		return true, nil
	}

	indirect, err := store.Read(ctx, object, &relation, nil)
	if err != nil {
		return false, NewStorageError("reading indirect tuples", err)
	}
	for _, t := range indirect {
		if !t.User.IsUserset {
			continue
		}
		// The new object may live in a different namespace with its own
		// rewrite rules; checkInternal re-resolves the config by
		// t.User.Object.Namespace on entry.
		ok, err := checkInternal(ctx, configs, store, t.User.Object, t.User.Relation, user, visited)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func evalTupleToUsersetCheck(ctx context.Context, configs map[string]*NamespaceConfig, store Store, object Object, expr UsersetExpression, user User, visited *visitedSet) (bool, error) {
	parents, err := store.Read(ctx, object, &expr.Tupleset, nil)
	if err != nil {
		return false, NewStorageError("reading tupleset", err)
	}
	for _, t := range parents {
		if !t.User.IsUserset {
			// A stored parent tuple whose user is a plain UserId (not a
			// userset) is skipped — there is no related object to traverse.
			continue
		}
		// The stored userset's own relation is discarded in favor of
		// expr.Computed — this is intentional ttu semantics (spec §9).
		ok, err := checkInternal(ctx, configs, store, t.User.Object, expr.Computed, user, visited)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
