package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz/dsl"
)

func TestParseEmptyNamespace(t *testing.T) {
	configs, err := dsl.Parse(`namespace doc {}`)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "doc", configs[0].Name)
	assert.Empty(t, configs[0].Relations)
}

func TestParseRelationWithoutRewriteDefaultsToNil(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation owner {}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["owner"]
	assert.Nil(t, rc.Rewrite)
}

func TestParseThis(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite this
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	require.NotNil(t, rc.Rewrite)
	assert.Equal(t, authz.This(), *rc.Rewrite)
}

func TestParseComputedUserset(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite computed_userset(relation: "editor")
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	assert.Equal(t, authz.ComputedUserset("editor"), *rc.Rewrite)
}

func TestParseTupleToUserset(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite tuple_to_userset(tupleset: "parent", computed_userset: "viewer")
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	assert.Equal(t, authz.TupleToUserset("parent", "viewer"), *rc.Rewrite)
}

func TestParseUnionRequiresOnlyOneOperand(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite union(this)
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	assert.Equal(t, authz.Union(authz.This()), *rc.Rewrite)
}

func TestParseUnionMultipleOperands(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite union(this, computed_userset(relation: "editor"), computed_userset(relation: "owner"))
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	expected := authz.Union(authz.This(), authz.ComputedUserset("editor"), authz.ComputedUserset("owner"))
	assert.Equal(t, expected, *rc.Rewrite)
}

func TestParseIntersectionRequiresOnlyOneOperand(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite intersection(this)
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	assert.Equal(t, authz.Intersection(authz.This()), *rc.Rewrite)
}

func TestParseExclusion(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite exclusion(this, computed_userset(relation: "banned"))
			}
		}
	`)
	require.NoError(t, err)
	rc := configs[0].Relations["viewer"]
	expected := authz.Exclusion(authz.This(), authz.ComputedUserset("banned"))
	assert.Equal(t, expected, *rc.Rewrite)
}

func TestParseExclusionRejectsThirdOperand(t *testing.T) {
	_, err := dsl.Parse(`
		namespace doc {
			relation viewer {
				rewrite exclusion(this, this, this)
			}
		}
	`)
	require.Error(t, err)
	assert.True(t, authz.IsKind(err, authz.KindParseError))
}

func TestParseMultipleNamespaces(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace doc {
			relation viewer { rewrite this }
		}
		namespace folder {
			relation viewer { rewrite this }
		}
	`)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "doc", configs[0].Name)
	assert.Equal(t, "folder", configs[1].Name)
}

func TestParseIgnoresLineComments(t *testing.T) {
	configs, err := dsl.Parse(`
		// a leading comment
		namespace doc { // trailing comment
			relation viewer { rewrite this } // another
		}
	`)
	require.NoError(t, err)
	require.Len(t, configs, 1)
}

func TestParseUnknownKeywordIsParseError(t *testing.T) {
	_, err := dsl.Parse(`namespace doc { relation viewer { rewrite bogus } }`)
	require.Error(t, err)
	assert.True(t, authz.IsKind(err, authz.KindParseError))
}

func TestParseUnmatchedBraceIsParseError(t *testing.T) {
	_, err := dsl.Parse(`namespace doc { relation viewer { rewrite this }`)
	require.Error(t, err)
	assert.True(t, authz.IsKind(err, authz.KindParseError))
}

func TestParseMissingUnionOperandIsParseError(t *testing.T) {
	_, err := dsl.Parse(`namespace doc { relation viewer { rewrite union() } }`)
	require.Error(t, err)
	assert.True(t, authz.IsKind(err, authz.KindParseError))
}

func TestParseWholeWorkedExample(t *testing.T) {
	configs, err := dsl.Parse(`
		namespace folder {
			relation viewer {}
		}
		namespace doc {
			relation parent {}
			relation owner {}
			relation editor {
				rewrite union(this, computed_userset(relation: "owner"))
			}
			relation viewer {
				rewrite union(
					this,
					computed_userset(relation: "editor"),
					tuple_to_userset(tupleset: "parent", computed_userset: "viewer")
				)
			}
		}
	`)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	docCfg := configs[1]
	assert.Equal(t, "doc", docCfg.Name)

	viewer := docCfg.Relations["viewer"]
	expected := authz.Union(
		authz.This(),
		authz.ComputedUserset("editor"),
		authz.TupleToUserset("parent", "viewer"),
	)
	assert.Equal(t, expected, *viewer.Rewrite)
}
