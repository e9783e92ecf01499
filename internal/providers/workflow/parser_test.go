package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const simpleMachine = `{
	"Comment": "order pipeline",
	"StartAt": "Validate",
	"States": {
		"Validate": {
			"Type": "Task",
			"Resource": "validate-order",
			"Retry": [{"ErrorEquals": ["States.ALL"], "MaxAttempts": 2}],
			"Catch": [{"ErrorEquals": ["States.TaskFailed"], "Next": "Reject"}],
			"Next": "Decide"
		},
		"Decide": {
			"Type": "Choice",
			"Choices": [{"Variable": "$.valid", "BooleanEquals": true, "Next": "Ship"}],
			"Default": "Reject"
		},
		"Ship": {
			"Type": "Pass",
			"Result": {"shipped": true},
			"End": true
		},
		"Reject": {
			"Type": "Fail",
			"Error": "States.ValidationFailed",
			"Cause": "order failed validation"
		}
	}
}`

func TestParse_SimpleMachine(t *testing.T) {
	sm, err := Parse([]byte(simpleMachine))
	require.NoError(t, err)
	require.Equal(t, "Validate", sm.StartAt)
	require.Len(t, sm.States, 4)

	validate := sm.States["Validate"]
	require.Equal(t, StateTask, validate.Type)
	require.Equal(t, "validate-order", validate.Resource)
	require.Len(t, validate.Retry, 1)
	require.Equal(t, 2, validate.Retry[0].MaxAttempts)
	require.Equal(t, 1.0, validate.Retry[0].IntervalSecs, "default interval is 1.0")
	require.Equal(t, 2.0, validate.Retry[0].BackoffRate, "default backoff rate is 2.0")
	require.Len(t, validate.Catch, 1)
	require.Equal(t, "$.Error", validate.Catch[0].ResultPath, "default catch ResultPath is $.Error")

	decide := sm.States["Decide"]
	require.Equal(t, StateChoice, decide.Type)
	require.Len(t, decide.Choices, 1)
	require.Equal(t, "BooleanEquals", decide.Choices[0].Operator)
	require.Equal(t, true, decide.Choices[0].ComparisonValue)

	ship := sm.States["Ship"]
	require.Equal(t, StatePass, ship.Type)
	require.True(t, ship.End)
}

func TestParse_MissingStartAtIsError(t *testing.T) {
	_, err := Parse([]byte(`{"States": {"A": {"Type": "Pass", "End": true}}}`))
	require.Error(t, err)
}

func TestParse_UnknownTypeIsError(t *testing.T) {
	_, err := Parse([]byte(`{"StartAt": "A", "States": {"A": {"Type": "Bogus", "End": true}}}`))
	require.Error(t, err)
}

func TestParse_TaskWithoutResourceIsError(t *testing.T) {
	_, err := Parse([]byte(`{"StartAt": "A", "States": {"A": {"Type": "Task", "End": true}}}`))
	require.Error(t, err)
}

func TestParse_StartAtNamesNoStateIsError(t *testing.T) {
	_, err := Parse([]byte(`{"StartAt": "Missing", "States": {"A": {"Type": "Pass", "End": true}}}`))
	require.Error(t, err)
}

func TestParse_InputPathNullVsAbsent(t *testing.T) {
	sm, err := Parse([]byte(`{
		"StartAt": "A",
		"States": {
			"A": {"Type": "Pass", "InputPath": null, "Next": "B"},
			"B": {"Type": "Pass", "End": true}
		}
	}`))
	require.NoError(t, err)
	a := sm.States["A"]
	require.NotNil(t, a.InputPath)
	require.Equal(t, "", *a.InputPath, "explicit null is represented as a pointer to empty string")

	b := sm.States["B"]
	require.Nil(t, b.InputPath, "absent InputPath is nil")
}

func TestParse_ParallelBranchesAndMapIterator(t *testing.T) {
	sm, err := Parse([]byte(`{
		"StartAt": "Fan",
		"States": {
			"Fan": {
				"Type": "Parallel",
				"Branches": [
					{"StartAt": "A", "States": {"A": {"Type": "Pass", "End": true}}},
					{"StartAt": "B", "States": {"B": {"Type": "Pass", "End": true}}}
				],
				"End": true
			}
		}
	}`))
	require.NoError(t, err)
	require.Len(t, sm.States["Fan"].Branches, 2)

	sm2, err := Parse([]byte(`{
		"StartAt": "Each",
		"States": {
			"Each": {
				"Type": "Map",
				"ItemsPath": "$.items",
				"MaxConcurrency": 3,
				"Iterator": {"StartAt": "Process", "States": {"Process": {"Type": "Pass", "End": true}}},
				"End": true
			}
		}
	}`))
	require.NoError(t, err)
	each := sm2.States["Each"]
	require.Equal(t, "$.items", each.ItemsPath)
	require.Equal(t, 3, each.MaxConcurrency)
	require.NotNil(t, each.Iterator)
	require.Equal(t, "Process", each.Iterator.StartAt)
}
