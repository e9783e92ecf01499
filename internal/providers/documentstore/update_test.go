package documentstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func applyUpdateSrc(t *testing.T, item Item, src string, values map[string]Value) Item {
	t.Helper()
	expr, err := ParseUpdateExpression(src)
	require.NoError(t, err)
	out, err := ApplyUpdate(item, expr, ExprContext{Values: values})
	require.NoError(t, err)
	return out
}

func TestUpdate_ArithmeticScenario(t *testing.T) {
	// spec §8 scenario 3.
	item := Item{"pk": NewS("1"), "count": NewN("10")}
	out := applyUpdateSrc(t, item, "SET count = count + :v", map[string]Value{":v": NewN("5")})
	require.Equal(t, "15", out["count"].N)
	require.Equal(t, "1", out["pk"].S)
}

func TestUpdate_SetWithIfNotExists(t *testing.T) {
	item := Item{"pk": NewS("1")}
	out := applyUpdateSrc(t, item, "SET hits = if_not_exists(hits, :z)", map[string]Value{":z": NewN("0")})
	require.Equal(t, "0", out["hits"].N)
}

func TestUpdate_ListAppend(t *testing.T) {
	item := Item{"tags": NewList(NewS("a"))}
	out := applyUpdateSrc(t, item, "SET tags = list_append(tags, :more)", map[string]Value{
		":more": NewList(NewS("b"), NewS("c")),
	})
	require.Len(t, out["tags"].L, 3)
	require.Equal(t, "c", out["tags"].L[2].S)
}

func TestUpdate_RemoveIsNoOpWhenMissing(t *testing.T) {
	item := Item{"pk": NewS("1")}
	out := applyUpdateSrc(t, item, "REMOVE ghost", nil)
	require.Equal(t, item, out)
}

func TestUpdate_AddNumberCreatesWhenAbsent(t *testing.T) {
	item := Item{}
	out := applyUpdateSrc(t, item, "ADD hits :v", map[string]Value{":v": NewN("3")})
	require.Equal(t, "3", out["hits"].N)
}

func TestUpdate_AddSetUnion(t *testing.T) {
	item := Item{"tags": NewStringSet("a", "b")}
	out := applyUpdateSrc(t, item, "ADD tags :v", map[string]Value{":v": NewStringSet("b", "c")})
	require.ElementsMatch(t, []string{"a", "b", "c"}, out["tags"].SS)
}

func TestUpdate_DeleteSetDifference(t *testing.T) {
	item := Item{"tags": NewStringSet("a", "b", "c")}
	out := applyUpdateSrc(t, item, "DELETE tags :v", map[string]Value{":v": NewStringSet("b")})
	require.ElementsMatch(t, []string{"a", "c"}, out["tags"].SS)
}

func TestUpdate_AllFourClausesInOneExpression(t *testing.T) {
	item := Item{
		"count": NewN("1"),
		"ghost": NewS("bye"),
		"tags":  NewStringSet("x"),
	}
	expr, err := ParseUpdateExpression("SET count = count + :one REMOVE ghost ADD hits :h DELETE tags :x")
	require.NoError(t, err)
	out, err := ApplyUpdate(item, expr, ExprContext{Values: map[string]Value{
		":one": NewN("1"), ":h": NewN("5"), ":x": NewStringSet("x"),
	}})
	require.NoError(t, err)
	require.Equal(t, "2", out["count"].N)
	_, hasGhost := out["ghost"]
	require.False(t, hasGhost)
	require.Equal(t, "5", out["hits"].N)
	require.Empty(t, out["tags"].SS)
}

func TestUpdate_DisjointSetActionsCommute(t *testing.T) {
	item := Item{}
	out1 := applyUpdateSrc(t, item, "SET a = :a, b = :b", map[string]Value{":a": NewN("1"), ":b": NewN("2")})
	out2 := applyUpdateSrc(t, item, "SET b = :b, a = :a", map[string]Value{":a": NewN("1"), ":b": NewN("2")})
	require.Equal(t, out1, out2)
}
