package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateChoices_FirstMatchWins(t *testing.T) {
	def := &StateDef{
		Choices: []ChoiceRule{
			{Variable: "$.status", Operator: "StringEquals", ComparisonValue: "pending", Next: "WaitForIt"},
			{Variable: "$.status", Operator: "StringEquals", ComparisonValue: "shipped", Next: "Notify"},
		},
		Default: "Unknown",
	}
	next, err := EvaluateChoices(def, map[string]any{"status": "shipped"})
	require.NoError(t, err)
	require.Equal(t, "Notify", next)
}

func TestEvaluateChoices_FallsBackToDefault(t *testing.T) {
	def := &StateDef{
		Choices: []ChoiceRule{{Variable: "$.status", Operator: "StringEquals", ComparisonValue: "pending", Next: "WaitForIt"}},
		Default: "Unknown",
	}
	next, err := EvaluateChoices(def, map[string]any{"status": "cancelled"})
	require.NoError(t, err)
	require.Equal(t, "Unknown", next)
}

func TestEvaluateChoices_NoMatchNoDefaultIsError(t *testing.T) {
	def := &StateDef{Choices: []ChoiceRule{{Variable: "$.status", Operator: "StringEquals", ComparisonValue: "pending", Next: "X"}}}
	_, err := EvaluateChoices(def, map[string]any{"status": "other"})
	require.Error(t, err)
}

func TestEvaluateChoices_MissingVariableIsFalseNotError(t *testing.T) {
	def := &StateDef{
		Choices: []ChoiceRule{{Variable: "$.missing", Operator: "StringEquals", ComparisonValue: "x", Next: "A"}},
		Default: "B",
	}
	next, err := EvaluateChoices(def, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "B", next)
}

func TestEvaluateChoices_AndOrNot(t *testing.T) {
	input := map[string]any{"age": 30.0, "vip": true}
	and := ChoiceRule{
		And: []ChoiceRule{
			{Variable: "$.age", Operator: "NumericGreaterThanEquals", ComparisonValue: 18.0},
			{Variable: "$.vip", Operator: "BooleanEquals", ComparisonValue: true},
		},
		Next: "Eligible",
	}
	require.True(t, evaluateRule(and, input))

	not := ChoiceRule{Not: &ChoiceRule{Variable: "$.vip", Operator: "BooleanEquals", ComparisonValue: false}}
	require.True(t, evaluateRule(not, input))

	or := ChoiceRule{Or: []ChoiceRule{
		{Variable: "$.age", Operator: "NumericLessThan", ComparisonValue: 10.0},
		{Variable: "$.vip", Operator: "BooleanEquals", ComparisonValue: true},
	}}
	require.True(t, evaluateRule(or, input))
}

func TestEvaluateChoices_IsPresentAndTypePredicates(t *testing.T) {
	input := map[string]any{"name": "widget", "count": 3.0}
	truth := true
	require.True(t, evaluateRule(ChoiceRule{Variable: "$.name", Operator: "IsPresent", BooleanValue: &truth}, input))
	require.True(t, evaluateRule(ChoiceRule{Variable: "$.missing", Operator: "IsPresent", BooleanValue: &[]bool{false}[0]}, input))
	require.True(t, evaluateRule(ChoiceRule{Variable: "$.name", Operator: "IsString", BooleanValue: &truth}, input))
	require.True(t, evaluateRule(ChoiceRule{Variable: "$.count", Operator: "IsNumeric", BooleanValue: &truth}, input))
}

func TestEvaluateChoices_TimestampComparison(t *testing.T) {
	rule := ChoiceRule{Variable: "$.at", Operator: "TimestampGreaterThan", ComparisonValue: "2020-01-01T00:00:00Z"}
	require.True(t, evaluateRule(rule, map[string]any{"at": "2021-06-01T00:00:00Z"}))
	require.False(t, evaluateRule(rule, map[string]any{"at": "2019-06-01T00:00:00Z"}))
}
