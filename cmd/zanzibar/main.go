// Command zanzibar is a thin demo binary: it loads a DSL schema file and an
// optional YAML tuple fixture, runs a single check or expand, and prints the
// result. It opens no network listener — network transport is out of scope.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/zanzibar/internal/ratelimit"
	"github.com/Mindburn-Labs/zanzibar/internal/store/memstore"
	"github.com/Mindburn-Labs/zanzibar/internal/store/sqlstore"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz/fixture"
	"github.com/Mindburn-Labs/zanzibar/pkg/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("zanzibar: " + err.Error())
		os.Exit(1)
	}
}

func run() error {
	dslPath := flag.String("dsl", "", "path to a DSL schema file (required unless -fixture carries an inline schema)")
	fixturePath := flag.String("fixture", "", "path to a YAML tuple fixture; its assertions run if -op is unset")
	op := flag.String("op", "", "operation to run: check or expand")
	objectFlag := flag.String("object", "", "namespace:id, e.g. doc:1")
	relationFlag := flag.String("relation", "", "relation name")
	userFlag := flag.String("user", "", "bare user id or namespace:id#relation userset")
	flag.Parse()

	cfg := config.Load()
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	svc := authz.NewService(store)
	if cfg.RateLimitRPS > 0 {
		svc.Limiter = buildLimiter(cfg)
	}

	ctx := context.Background()

	if *dslPath != "" {
		text, err := os.ReadFile(*dslPath)
		if err != nil {
			return fmt.Errorf("reading dsl file: %w", err)
		}
		if err := svc.AddDSL(string(text)); err != nil {
			return fmt.Errorf("parsing dsl: %w", err)
		}
	}

	var f *fixture.File
	if *fixturePath != "" {
		f, err = fixture.LoadFile(*fixturePath)
		if err != nil {
			return fmt.Errorf("loading fixture: %w", err)
		}
		if err := f.Apply(ctx, svc); err != nil {
			return fmt.Errorf("applying fixture: %w", err)
		}
	}

	switch *op {
	case "check":
		return runCheck(ctx, svc, *objectFlag, *relationFlag, *userFlag)
	case "expand":
		return runExpand(ctx, svc, *objectFlag, *relationFlag)
	case "":
		if f == nil {
			return fmt.Errorf("nothing to do: pass -op check|expand, or -fixture with assertions")
		}
		return runAssertions(ctx, svc, f)
	default:
		return fmt.Errorf("unknown -op %q, expected check or expand", *op)
	}
}

func buildStore(cfg *config.Config) (authz.Store, error) {
	switch cfg.Store {
	case "memory", "":
		return memstore.New(), nil
	case "sqlite":
		db, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return sqlstore.New(context.Background(), db, sqlstore.DialectSQLite)
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return sqlstore.New(context.Background(), db, sqlstore.DialectPostgres)
	default:
		return nil, fmt.Errorf("unknown ZANZIBAR_STORE backend %q", cfg.Store)
	}
}

func buildLimiter(cfg *config.Config) authz.Limiter {
	policy := ratelimit.Policy{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return ratelimit.NewRedis(client, policy)
	}
	return ratelimit.NewLocal(policy)
}

func runCheck(ctx context.Context, svc *authz.Service, objectStr, relation, userStr string) error {
	object, err := fixture.ParseObject(objectStr)
	if err != nil {
		return err
	}
	user, err := fixture.ParseUser(userStr)
	if err != nil {
		return err
	}
	allowed, err := svc.Check(ctx, object, authz.Relation(relation), user)
	if err != nil {
		return err
	}
	fmt.Println(allowed)
	return nil
}

func runExpand(ctx context.Context, svc *authz.Service, objectStr, relation string) error {
	object, err := fixture.ParseObject(objectStr)
	if err != nil {
		return err
	}
	tree, err := svc.Expand(ctx, object, authz.Relation(relation))
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAssertions(ctx context.Context, svc *authz.Service, f *fixture.File) error {
	results, err := f.RunAssertions(ctx, svc)
	if err != nil {
		return err
	}
	failures := 0
	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			failures++
		}
		fmt.Printf("%s %s#%s@%s expect=%v actual=%v\n", status, r.Object, r.Relation, r.User, r.Expect, r.Actual)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d assertions failed", failures, len(results))
	}
	return nil
}
