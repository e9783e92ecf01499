package workflow

import (
	"time"

	"lwsgo/internal/apierrors"
)

// EvaluateChoices returns the Next state of the first matching rule, or
// def.Default if none match, or an error if neither matches (spec §4.5.3:
// "States.NoChoiceMatched").
func EvaluateChoices(def *StateDef, input any) (string, error) {
	for _, rule := range def.Choices {
		if evaluateRule(rule, input) {
			return rule.Next, nil
		}
	}
	if def.Default != "" {
		return def.Default, nil
	}
	return "", apierrors.NewValidationError("States.NoChoiceMatched", "no Choice rule matched and no Default was set")
}

// evaluateRule resolves a single ChoiceRule against input. A missing
// variable or a type mismatch between the resolved value and the
// operator's expected type evaluates to false, never an error (spec
// §4.5.3).
func evaluateRule(rule ChoiceRule, input any) bool {
	switch {
	case len(rule.And) > 0:
		for _, sub := range rule.And {
			if !evaluateRule(sub, input) {
				return false
			}
		}
		return true
	case len(rule.Or) > 0:
		for _, sub := range rule.Or {
			if evaluateRule(sub, input) {
				return true
			}
		}
		return false
	case rule.Not != nil:
		return !evaluateRule(*rule.Not, input)
	}

	value, err := Get(rule.Variable, input)
	if err != nil {
		// IsPresent false is the one operator that is meaningful even
		// when the variable is absent.
		if rule.Operator == "IsPresent" && rule.BooleanValue != nil {
			return !*rule.BooleanValue
		}
		return false
	}

	switch rule.Operator {
	case "IsPresent":
		return *rule.BooleanValue
	case "IsNull":
		return (value == nil) == *rule.BooleanValue
	case "IsString":
		_, ok := value.(string)
		return ok == *rule.BooleanValue
	case "IsNumeric":
		_, ok := asFloat(value)
		return ok == *rule.BooleanValue
	case "IsBoolean":
		_, ok := value.(bool)
		return ok == *rule.BooleanValue

	case "StringEquals":
		s, ok := value.(string)
		return ok && s == rule.ComparisonValue
	case "StringLessThan":
		s, ok := value.(string)
		return ok && s < rule.ComparisonValue.(string)
	case "StringGreaterThan":
		s, ok := value.(string)
		return ok && s > rule.ComparisonValue.(string)
	case "StringLessThanEquals":
		s, ok := value.(string)
		return ok && s <= rule.ComparisonValue.(string)
	case "StringGreaterThanEquals":
		s, ok := value.(string)
		return ok && s >= rule.ComparisonValue.(string)

	case "NumericEquals":
		v, ok := asFloat(value)
		return ok && v == rule.ComparisonValue.(float64)
	case "NumericLessThan":
		v, ok := asFloat(value)
		return ok && v < rule.ComparisonValue.(float64)
	case "NumericGreaterThan":
		v, ok := asFloat(value)
		return ok && v > rule.ComparisonValue.(float64)
	case "NumericLessThanEquals":
		v, ok := asFloat(value)
		return ok && v <= rule.ComparisonValue.(float64)
	case "NumericGreaterThanEquals":
		v, ok := asFloat(value)
		return ok && v >= rule.ComparisonValue.(float64)

	case "BooleanEquals":
		b, ok := value.(bool)
		return ok && b == rule.ComparisonValue.(bool)

	case "TimestampEquals", "TimestampLessThan", "TimestampGreaterThan", "TimestampLessThanEquals", "TimestampGreaterThanEquals":
		a, ok := asTime(value)
		if !ok {
			return false
		}
		b, ok := asTime(rule.ComparisonValue)
		if !ok {
			return false
		}
		switch rule.Operator {
		case "TimestampEquals":
			return a.Equal(b)
		case "TimestampLessThan":
			return a.Before(b)
		case "TimestampGreaterThan":
			return a.After(b)
		case "TimestampLessThanEquals":
			return a.Before(b) || a.Equal(b)
		case "TimestampGreaterThanEquals":
			return a.After(b) || a.Equal(b)
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
