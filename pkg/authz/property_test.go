//go:build property
// +build property

// Package authz_test property-based tests for monotonicity (I2) and
// cycle termination (I4), mirroring the teacher's own gopter convention
// (pkg/kernel/addenda_property_test.go) so these stay opt-in via the
// "property" build tag and don't slow the default test run.
package authz_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/zanzibar/internal/store/memstore"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

func viewerUnionConfig() map[string]*authz.NamespaceConfig {
	cfg := authz.NewNamespaceConfig("doc")
	cfg.Relations["viewer"] = authz.RelationConfig{Name: "viewer", Rewrite: unionPtr(authz.This())}
	return map[string]*authz.NamespaceConfig{"doc": cfg}
}

func unionPtr(e authz.UsersetExpression) *authz.UsersetExpression {
	u := authz.Union(e)
	return &u
}

// TestUnionGrowthIsMonotonic is I2: adding a direct grant for a user never
// removes another user's existing grant of the same relation.
func TestUnionGrowthIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("adding a tuple never revokes an unrelated user's check", prop.ForAll(
		func(existingUsers []string, newUser string) bool {
			if newUser == "" {
				return true
			}
			configs := viewerUnionConfig()
			store := memstore.New()
			ctx := context.Background()
			object := authz.Object{Namespace: "doc", ID: "1"}

			seen := make(map[string]bool)
			for i, u := range existingUsers {
				if u == "" || u == newUser || seen[u] {
					continue
				}
				seen[u] = true
				_ = store.Write(ctx, authz.RelationTuple{
					Object: object, Relation: "viewer", User: authz.UserID(fmt.Sprintf("%s-%d", u, i)),
				})
			}

			before := make(map[string]bool)
			tuples, _ := store.Read(ctx, object, nil, nil)
			for _, tup := range tuples {
				ok, err := authz.Check(ctx, configs, store, object, "viewer", tup.User)
				if err != nil {
					return false
				}
				before[tup.User.ID] = ok
			}

			if err := store.Write(ctx, authz.RelationTuple{Object: object, Relation: "viewer", User: authz.UserID(newUser)}); err != nil {
				return true // duplicate of an existing user, skip
			}

			for userID, wasAllowed := range before {
				if !wasAllowed {
					continue
				}
				allowed, err := authz.Check(ctx, configs, store, object, "viewer", authz.UserID(userID))
				if err != nil || !allowed {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestCheckTerminatesUnderCycles is I4: check must always terminate, even
// when the tuple graph contains a cycle of userset indirections.
func TestCheckTerminatesUnderCycles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("check terminates on a cyclic userset graph", prop.ForAll(
		func(cycleLength int, probeUser string) bool {
			if cycleLength < 1 {
				cycleLength = 1
			}
			if cycleLength > 20 {
				cycleLength = 20
			}

			cfg := authz.NewNamespaceConfig("group")
			cfg.Relations["member"] = authz.RelationConfig{Name: "member"}
			configs := map[string]*authz.NamespaceConfig{"group": cfg}

			store := memstore.New()
			ctx := context.Background()

			for i := 0; i < cycleLength; i++ {
				from := authz.Object{Namespace: "group", ID: fmt.Sprintf("g%d", i)}
				to := authz.Object{Namespace: "group", ID: fmt.Sprintf("g%d", (i+1)%cycleLength)}
				_ = store.Write(ctx, authz.RelationTuple{
					Object: from, Relation: "member", User: authz.UsersetUser(to, "member"),
				})
			}

			// Check is synchronous; if the visited-set cycle break is broken,
			// this call never returns and `go test -timeout` fails the run.
			_, _ = authz.Check(ctx, configs, store, authz.Object{Namespace: "group", ID: "g0"}, "member", authz.UserID(probeUser))
			return true
		},
		gen.IntRange(1, 20),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
