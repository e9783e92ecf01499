package workflow

import (
	"encoding/json"
	"fmt"

	"lwsgo/internal/apierrors"
)

// Parse decodes an ASL-style JSON document into a StateMachine (spec
// §4.5.1). Parser errors are structural: unknown type, missing required
// field.
func Parse(raw []byte) (*StateMachine, error) {
	var doc struct {
		Comment string                     `json:"Comment"`
		StartAt string                     `json:"StartAt"`
		States  map[string]json.RawMessage `json:"States"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("malformed workflow document: %v", err))
	}
	if doc.StartAt == "" {
		return nil, apierrors.NewValidationError("InvalidDefinition", "StartAt is required")
	}
	if len(doc.States) == 0 {
		return nil, apierrors.NewValidationError("InvalidDefinition", "States must be non-empty")
	}

	sm := &StateMachine{Comment: doc.Comment, StartAt: doc.StartAt, States: make(map[string]*StateDef, len(doc.States))}
	for name, raw := range doc.States {
		def, err := parseState(raw)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", name, err)
		}
		sm.States[name] = def
	}
	if _, ok := sm.States[sm.StartAt]; !ok {
		return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("StartAt %q names no state", sm.StartAt))
	}
	return sm, nil
}

// wireState is the JSON shape of a State; fields not relevant to a given
// Type are simply left zero.
type wireState struct {
	Type    string `json:"Type"`
	Comment string `json:"Comment"`

	Next string `json:"Next"`
	End  bool   `json:"End"`

	Parameters     map[string]any `json:"Parameters"`
	ResultSelector map[string]any `json:"ResultSelector"`

	Resource       string        `json:"Resource"`
	TimeoutSeconds float64       `json:"TimeoutSeconds"`
	Retry          []wireRetry   `json:"Retry"`
	Catch          []wireCatch   `json:"Catch"`

	Choices []wireChoiceRule `json:"Choices"`
	Default string           `json:"Default"`

	Seconds       *float64 `json:"Seconds"`
	Timestamp     *string  `json:"Timestamp"`
	SecondsPath   *string  `json:"SecondsPath"`
	TimestampPath *string  `json:"TimestampPath"`

	Branches []json.RawMessage `json:"Branches"`

	ItemsPath      string          `json:"ItemsPath"`
	MaxConcurrency int             `json:"MaxConcurrency"`
	Iterator       json.RawMessage `json:"Iterator"`

	Result any `json:"Result"`

	Error string `json:"Error"`
	Cause string `json:"Cause"`
}

type wireRetry struct {
	ErrorEquals     []string `json:"ErrorEquals"`
	IntervalSeconds float64  `json:"IntervalSeconds"`
	MaxAttempts     int      `json:"MaxAttempts"`
	BackoffRate     float64  `json:"BackoffRate"`
}

type wireCatch struct {
	ErrorEquals []string `json:"ErrorEquals"`
	Next        string   `json:"Next"`
	ResultPath  string   `json:"ResultPath"`
}

type wireChoiceRule struct {
	Variable        string           `json:"Variable"`
	Next            string           `json:"Next"`
	And             []wireChoiceRule `json:"And"`
	Or              []wireChoiceRule `json:"Or"`
	Not             *wireChoiceRule  `json:"Not"`
	StringEquals    *string          `json:"StringEquals"`
	StringLessThan  *string          `json:"StringLessThan"`
	StringGreaterThan *string        `json:"StringGreaterThan"`
	StringLessThanEquals *string     `json:"StringLessThanEquals"`
	StringGreaterThanEquals *string  `json:"StringGreaterThanEquals"`
	NumericEquals             *float64 `json:"NumericEquals"`
	NumericLessThan           *float64 `json:"NumericLessThan"`
	NumericGreaterThan        *float64 `json:"NumericGreaterThan"`
	NumericLessThanEquals     *float64 `json:"NumericLessThanEquals"`
	NumericGreaterThanEquals  *float64 `json:"NumericGreaterThanEquals"`
	BooleanEquals  *bool   `json:"BooleanEquals"`
	TimestampEquals            *string `json:"TimestampEquals"`
	TimestampLessThan           *string `json:"TimestampLessThan"`
	TimestampGreaterThan        *string `json:"TimestampGreaterThan"`
	TimestampLessThanEquals     *string `json:"TimestampLessThanEquals"`
	TimestampGreaterThanEquals  *string `json:"TimestampGreaterThanEquals"`
	IsPresent *bool `json:"IsPresent"`
	IsNull    *bool `json:"IsNull"`
	IsString  *bool `json:"IsString"`
	IsNumeric *bool `json:"IsNumeric"`
	IsBoolean *bool `json:"IsBoolean"`
}

// pathPresence distinguishes "field absent" (defaults to "$") from
// "field explicitly null" (empty-map for Input/OutputPath, discard for
// ResultPath) — a distinction *string alone can't make after a single
// json.Unmarshal, since both leave the pointer nil.
func pathPresence(raw json.RawMessage, key string) (*string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fieldRaw, present := fields[key]
	if !present {
		return nil, nil
	}
	if string(fieldRaw) == "null" {
		empty := ""
		return &empty, nil
	}
	var s string
	if err := json.Unmarshal(fieldRaw, &s); err != nil {
		return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("%s must be a string or null", key))
	}
	return &s, nil
}

func parseState(raw json.RawMessage) (*StateDef, error) {
	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("malformed state: %v", err))
	}
	if w.Type == "" {
		return nil, apierrors.NewValidationError("InvalidDefinition", "Type is required")
	}

	inputPath, err := pathPresence(raw, "InputPath")
	if err != nil {
		return nil, err
	}
	outputPath, err := pathPresence(raw, "OutputPath")
	if err != nil {
		return nil, err
	}
	resultPath, err := pathPresence(raw, "ResultPath")
	if err != nil {
		return nil, err
	}

	def := &StateDef{
		Type: StateType(w.Type), Comment: w.Comment, Next: w.Next, End: w.End,
		InputPath: inputPath, OutputPath: outputPath, Parameters: w.Parameters,
		ResultPath: resultPath, ResultSelector: w.ResultSelector,
		Resource: w.Resource, TimeoutSeconds: w.TimeoutSeconds,
		Default: w.Default,
		Seconds: w.Seconds, Timestamp: w.Timestamp, SecondsPath: w.SecondsPath, TimestampPath: w.TimestampPath,
		ItemsPath: w.ItemsPath, MaxConcurrency: w.MaxConcurrency,
		Result: w.Result, Error: w.Error, Cause: w.Cause,
	}

	for _, r := range w.Retry {
		def.Retry = append(def.Retry, RetryConfig{
			ErrorEquals: r.ErrorEquals, IntervalSecs: orDefault(r.IntervalSeconds, 1.0),
			MaxAttempts: orDefaultInt(r.MaxAttempts, 3), BackoffRate: orDefault(r.BackoffRate, 2.0),
		})
	}
	for _, c := range w.Catch {
		def.Catch = append(def.Catch, CatchConfig{ErrorEquals: c.ErrorEquals, Next: c.Next, ResultPath: orDefaultStr(c.ResultPath, "$.Error")})
	}
	for _, c := range w.Choices {
		rule, err := parseChoiceRule(c)
		if err != nil {
			return nil, err
		}
		def.Choices = append(def.Choices, rule)
	}
	for _, b := range w.Branches {
		branch, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("branch: %w", err)
		}
		def.Branches = append(def.Branches, branch)
	}
	if len(w.Iterator) > 0 {
		iter, err := Parse(w.Iterator)
		if err != nil {
			return nil, fmt.Errorf("iterator: %w", err)
		}
		def.Iterator = iter
	}

	switch def.Type {
	case StateTask, StateWait, StateChoice, StateParallel, StateMap, StatePass, StateSucceed, StateFail:
	default:
		return nil, apierrors.NewValidationError("InvalidDefinition", fmt.Sprintf("unknown state type %q", w.Type))
	}
	if def.Type == StateTask && def.Resource == "" {
		return nil, apierrors.NewValidationError("InvalidDefinition", "Task state requires Resource")
	}
	if def.Type == StateMap && def.ItemsPath == "" {
		return nil, apierrors.NewValidationError("InvalidDefinition", "Map state requires ItemsPath")
	}
	return def, nil
}

func parseChoiceRule(w wireChoiceRule) (ChoiceRule, error) {
	rule := ChoiceRule{Variable: w.Variable, Next: w.Next}
	for _, sub := range w.And {
		parsed, err := parseChoiceRule(sub)
		if err != nil {
			return ChoiceRule{}, err
		}
		rule.And = append(rule.And, parsed)
	}
	for _, sub := range w.Or {
		parsed, err := parseChoiceRule(sub)
		if err != nil {
			return ChoiceRule{}, err
		}
		rule.Or = append(rule.Or, parsed)
	}
	if w.Not != nil {
		parsed, err := parseChoiceRule(*w.Not)
		if err != nil {
			return ChoiceRule{}, err
		}
		rule.Not = &parsed
	}

	switch {
	case w.StringEquals != nil:
		rule.Operator, rule.ComparisonValue = "StringEquals", *w.StringEquals
	case w.StringLessThan != nil:
		rule.Operator, rule.ComparisonValue = "StringLessThan", *w.StringLessThan
	case w.StringGreaterThan != nil:
		rule.Operator, rule.ComparisonValue = "StringGreaterThan", *w.StringGreaterThan
	case w.StringLessThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "StringLessThanEquals", *w.StringLessThanEquals
	case w.StringGreaterThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "StringGreaterThanEquals", *w.StringGreaterThanEquals
	case w.NumericEquals != nil:
		rule.Operator, rule.ComparisonValue = "NumericEquals", *w.NumericEquals
	case w.NumericLessThan != nil:
		rule.Operator, rule.ComparisonValue = "NumericLessThan", *w.NumericLessThan
	case w.NumericGreaterThan != nil:
		rule.Operator, rule.ComparisonValue = "NumericGreaterThan", *w.NumericGreaterThan
	case w.NumericLessThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "NumericLessThanEquals", *w.NumericLessThanEquals
	case w.NumericGreaterThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "NumericGreaterThanEquals", *w.NumericGreaterThanEquals
	case w.BooleanEquals != nil:
		rule.Operator, rule.ComparisonValue = "BooleanEquals", *w.BooleanEquals
	case w.TimestampEquals != nil:
		rule.Operator, rule.ComparisonValue = "TimestampEquals", *w.TimestampEquals
	case w.TimestampLessThan != nil:
		rule.Operator, rule.ComparisonValue = "TimestampLessThan", *w.TimestampLessThan
	case w.TimestampGreaterThan != nil:
		rule.Operator, rule.ComparisonValue = "TimestampGreaterThan", *w.TimestampGreaterThan
	case w.TimestampLessThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "TimestampLessThanEquals", *w.TimestampLessThanEquals
	case w.TimestampGreaterThanEquals != nil:
		rule.Operator, rule.ComparisonValue = "TimestampGreaterThanEquals", *w.TimestampGreaterThanEquals
	case w.IsPresent != nil:
		rule.Operator, rule.BooleanValue = "IsPresent", w.IsPresent
	case w.IsNull != nil:
		rule.Operator, rule.BooleanValue = "IsNull", w.IsNull
	case w.IsString != nil:
		rule.Operator, rule.BooleanValue = "IsString", w.IsString
	case w.IsNumeric != nil:
		rule.Operator, rule.BooleanValue = "IsNumeric", w.IsNumeric
	case w.IsBoolean != nil:
		rule.Operator, rule.BooleanValue = "IsBoolean", w.IsBoolean
	}
	return rule, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
