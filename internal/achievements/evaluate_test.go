package achievements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountDef(field string, target float64) *Definition {
	return &Definition{
		Code:     "TEST_AMOUNT",
		Points:   10,
		Criteria: AmountThreshold{Field: field, Target: target},
		Triggers: []TriggerEvent{TriggerSavingsDeposit},
		Active:   true,
	}
}

func TestEvaluate_AmountThresholdBoundary(t *testing.T) {
	def := amountDef(FieldTotalSaved, 10)

	t.Run("exactly at target is satisfied", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{FieldTotalSaved: 10}}, def, nil)
		assert.True(t, res.Satisfied)
		assert.Equal(t, 10.0, res.Measure)
	})

	t.Run("just below target is not satisfied", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{FieldTotalSaved: 9.99}}, def, nil)
		assert.False(t, res.Satisfied)
		assert.Equal(t, 9.99, res.Measure)
	})

	t.Run("above target is satisfied", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{FieldTotalSaved: 250}}, def, nil)
		assert.True(t, res.Satisfied)
	})

	t.Run("zero target is trivially satisfied", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{FieldTotalSaved: 0}}, amountDef(FieldTotalSaved, 0), nil)
		assert.True(t, res.Satisfied)
	})
}

func TestEvaluate_MissingMeasureField(t *testing.T) {
	def := amountDef("no_such_field", 10)

	t.Run("absent field reads as zero", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{FieldTotalSaved: 50}}, def, nil)
		assert.False(t, res.Satisfied)
		assert.Equal(t, 0.0, res.Measure)
	})

	t.Run("nil measures map reads as zero", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, nil)
		assert.False(t, res.Satisfied)
		assert.Equal(t, 0.0, res.Measure)
	})
}

func TestEvaluate_SingleAction(t *testing.T) {
	def := &Definition{
		Code:     "TEST_SINGLE",
		Criteria: SingleAction{Fact: "first_deposit"},
		Triggers: []TriggerEvent{TriggerSavingsDeposit},
		Active:   true,
	}

	t.Run("fact true", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, Payload{"first_deposit": true})
		assert.True(t, res.Satisfied)
		assert.Equal(t, 1.0, res.Measure)
	})

	t.Run("fact false", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, Payload{"first_deposit": false})
		assert.False(t, res.Satisfied)
	})

	t.Run("fact absent", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, Payload{})
		assert.False(t, res.Satisfied)
	})

	t.Run("nil payload", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, nil)
		assert.False(t, res.Satisfied)
	})

	t.Run("non-boolean fact reads as false", func(t *testing.T) {
		res := Evaluate(ChildState{}, def, Payload{"first_deposit": "yes"})
		assert.False(t, res.Satisfied)
	})
}

func TestEvaluate_CountAndStreak(t *testing.T) {
	countDef := &Definition{
		Code:     "TEST_COUNT",
		Criteria: CountThreshold{Field: FieldTaskCount, Target: 10},
		Triggers: []TriggerEvent{TriggerTaskApproved},
		Active:   true,
	}
	streakDef := &Definition{
		Code:     "TEST_STREAK",
		Criteria: StreakCount{Field: FieldApprovedTaskStreak, Target: 5},
		Triggers: []TriggerEvent{TriggerStreakUpdated},
		Active:   true,
	}

	res := Evaluate(ChildState{Measures: map[string]float64{FieldTaskCount: 7}}, countDef, nil)
	assert.False(t, res.Satisfied)
	assert.Equal(t, 7.0, res.Measure)

	res = Evaluate(ChildState{Measures: map[string]float64{FieldTaskCount: 10}}, countDef, nil)
	assert.True(t, res.Satisfied)

	res = Evaluate(ChildState{Measures: map[string]float64{FieldApprovedTaskStreak: 5}}, streakDef, nil)
	assert.True(t, res.Satisfied)

	// A reset streak reads as the lower absolute value, never an error.
	res = Evaluate(ChildState{Measures: map[string]float64{FieldApprovedTaskStreak: 1}}, streakDef, nil)
	assert.False(t, res.Satisfied)
	assert.Equal(t, 1.0, res.Measure)
}

func TestEvaluate_PercentageTarget(t *testing.T) {
	def := &Definition{
		Code:     "TEST_PCT",
		Criteria: PercentageTarget{Field: FieldMonthlySavingsRate, Target: 50},
		Triggers: []TriggerEvent{TriggerStreakUpdated},
		Active:   true,
	}

	res := Evaluate(ChildState{Measures: map[string]float64{FieldMonthlySavingsRate: 49.9}}, def, nil)
	assert.False(t, res.Satisfied)

	res = Evaluate(ChildState{Measures: map[string]float64{FieldMonthlySavingsRate: 50}}, def, nil)
	assert.True(t, res.Satisfied)
}

func TestEvaluate_GoalCompletion(t *testing.T) {
	def := &Definition{
		Code:     "TEST_GOAL",
		Criteria: GoalCompletion{Target: 1},
		Triggers: []TriggerEvent{TriggerGoalCompleted},
		Active:   true,
	}

	t.Run("first completed goal satisfies target one", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{GoalsCompletedField: 1}}, def, nil)
		assert.True(t, res.Satisfied)
		assert.Equal(t, 1.0, res.Measure)
	})

	t.Run("no completed goals", func(t *testing.T) {
		res := Evaluate(ChildState{Measures: map[string]float64{}}, def, nil)
		assert.False(t, res.Satisfied)
		assert.Equal(t, 0.0, res.Measure)
	})
}

func TestEvaluate_TimeBasedAction(t *testing.T) {
	def := &Definition{
		Code:     "TEST_TIME",
		Criteria: TimeBasedAction{Condition: "same_day_as_allowance"},
		Triggers: []TriggerEvent{TriggerSavingsDeposit},
		Active:   true,
	}

	res := Evaluate(ChildState{}, def, Payload{"same_day_as_allowance": true})
	assert.True(t, res.Satisfied)

	res = Evaluate(ChildState{}, def, Payload{"same_day_as_allowance": false})
	assert.False(t, res.Satisfied)
}

func TestPayload_Number(t *testing.T) {
	p := Payload{"a": 3.5, "b": 2, "c": int64(7), "d": "nope"}
	assert.Equal(t, 3.5, p.Number("a"))
	assert.Equal(t, 2.0, p.Number("b"))
	assert.Equal(t, 7.0, p.Number("c"))
	assert.Equal(t, 0.0, p.Number("d"))
	assert.Equal(t, 0.0, p.Number("missing"))
}

func TestTarget(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	def, ok := catalog.ByCode("PENNY_PINCHER")
	require.True(t, ok)
	assert.Equal(t, 10.0, Target(def))

	def, ok = catalog.ByCode("FIRST_DEPOSIT")
	require.True(t, ok)
	assert.Equal(t, 1.0, Target(def))

	def, ok = catalog.ByCode("GOAL_CRUSHER")
	require.True(t, ok)
	assert.Equal(t, 1.0, Target(def))
}
