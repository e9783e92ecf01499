package documentstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Node {
	t.Helper()
	n, err := ParseFilterExpression(src)
	require.NoError(t, err)
	return n
}

func TestFilterEvaluation_StatusAndAgeScenario(t *testing.T) {
	// spec §8 scenario 2.
	expr := mustParse(t, "status = :s AND age > :n")
	values := map[string]Value{":s": NewS("active"), ":n": NewN("28")}

	items := map[string]Item{
		"A": {"age": NewN("30"), "status": NewS("active")},
		"B": {"age": NewN("25"), "status": NewS("inactive")},
		"C": {"age": NewN("35")},
	}
	expected := map[string]bool{"A": true, "B": false, "C": false}

	for name, item := range items {
		got, err := EvalFilter(expr, ExprContext{Values: values, Item: item})
		require.NoError(t, err)
		require.Equalf(t, expected[name], got, "item %s", name)
	}
}

func TestFilterEvaluation_MissingAttributeIsFalseNeverError(t *testing.T) {
	expr := mustParse(t, "nope = :x")
	ok, err := EvalFilter(expr, ExprContext{Values: map[string]Value{":x": NewS("y")}, Item: Item{}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFilterEvaluation_NumericStringCoercion(t *testing.T) {
	expr := mustParse(t, "count = :v")
	item := Item{"count": NewN("5")}
	ok, err := EvalFilter(expr, ExprContext{Values: map[string]Value{":v": NewS("5")}, Item: item})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFilterEvaluation_Between(t *testing.T) {
	expr := mustParse(t, "age BETWEEN :lo AND :hi")
	values := map[string]Value{":lo": NewN("10"), ":hi": NewN("20")}
	for _, tc := range []struct {
		age  string
		want bool
	}{{"10", true}, {"20", true}, {"9", false}, {"21", false}} {
		ok, err := EvalFilter(expr, ExprContext{Values: values, Item: Item{"age": NewN(tc.age)}})
		require.NoError(t, err)
		require.Equalf(t, tc.want, ok, "age=%s", tc.age)
	}
}

func TestFilterEvaluation_InWithNoMatchingValueIsFalse(t *testing.T) {
	// The grammar requires at least one operand inside IN (...), so an
	// empty list cannot be written; this checks the nearest case, a list
	// whose only value resolves but matches nothing.
	expr := mustParse(t, "status IN (:a)")
	ok, err := EvalFilter(expr, ExprContext{
		Values: map[string]Value{":a": NewS("nonexistent-sentinel-value")},
		Item:   Item{"status": NewS("active")},
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFilterEvaluation_SizeOnMissingIsZero(t *testing.T) {
	expr := mustParse(t, "size(tags) = :z")
	ok, err := EvalFilter(expr, ExprContext{Values: map[string]Value{":z": NewN("0")}, Item: Item{}})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFilterEvaluation_BeginsWithAndContains(t *testing.T) {
	item := Item{"name": NewS("order-42"), "tags": NewList(NewS("urgent"), NewS("gift"))}

	ok, err := EvalFilter(mustParse(t, `begins_with(name, :p)`), ExprContext{
		Values: map[string]Value{":p": NewS("order-")}, Item: item,
	})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = EvalFilter(mustParse(t, `contains(tags, :t)`), ExprContext{
		Values: map[string]Value{":t": NewS("gift")}, Item: item,
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFilterEvaluation_NameRefSubstitution(t *testing.T) {
	expr := mustParse(t, "#st = :s")
	ok, err := EvalFilter(expr, ExprContext{
		Names:  map[string]string{"#st": "status"},
		Values: map[string]Value{":s": NewS("active")},
		Item:   Item{"status": NewS("active")},
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeyCondition_PartitionEqualityAndSortBetween(t *testing.T) {
	kc, err := ParseKeyCondition(
		"pk = :pk AND sk BETWEEN :lo AND :hi",
		ExprContext{Values: map[string]Value{
			":pk": NewS("o1"), ":lo": NewN("1"), ":hi": NewN("10"),
		}},
		"pk", "sk",
	)
	require.NoError(t, err)
	require.Equal(t, "pk", kc.PartitionAttr)
	require.True(t, kc.MatchesSortKey(Item{"sk": NewN("5")}))
	require.False(t, kc.MatchesSortKey(Item{"sk": NewN("11")}))
}

func TestKeyCondition_RejectsNonEqualityOnPartitionKey(t *testing.T) {
	_, err := ParseKeyCondition("pk > :pk", ExprContext{Values: map[string]Value{":pk": NewS("o1")}}, "pk", "sk")
	require.Error(t, err)
}

func TestKeyCondition_RejectsMoreThanOneSortCondition(t *testing.T) {
	_, err := ParseKeyCondition(
		"pk = :pk AND sk > :a AND sk < :b",
		ExprContext{Values: map[string]Value{":pk": NewS("x"), ":a": NewN("1"), ":b": NewN("2")}},
		"pk", "sk",
	)
	require.Error(t, err)
}
