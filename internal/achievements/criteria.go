package achievements

import "fmt"

// CriteriaType tags the rule family a badge uses to decide whether it has
// been earned.
type CriteriaType string

const (
	CriteriaSingleAction     CriteriaType = "single_action"
	CriteriaAmountThreshold  CriteriaType = "amount_threshold"
	CriteriaCountThreshold   CriteriaType = "count_threshold"
	CriteriaStreakCount      CriteriaType = "streak_count"
	CriteriaPercentageTarget CriteriaType = "percentage_target"
	CriteriaGoalCompletion   CriteriaType = "goal_completion"
	CriteriaTimeBasedAction  CriteriaType = "time_based_action"
)

// Criteria is the typed configuration of a badge rule. Each variant carries
// only the fields its rule family needs; the dynamic JSON blob the original
// seed data used is replaced by this tagged union.
type Criteria interface {
	Type() CriteriaType
	// Validate checks the configuration shape at catalog load time.
	Validate() error
}

// SingleAction is satisfied when a named boolean fact in the event payload
// is true (e.g. "first_deposit").
type SingleAction struct {
	Fact string `json:"fact"`
}

func (c SingleAction) Type() CriteriaType { return CriteriaSingleAction }

func (c SingleAction) Validate() error {
	if c.Fact == "" {
		return fmt.Errorf("single_action criteria requires a fact name")
	}
	return nil
}

// AmountThreshold is satisfied when a named running total on the child
// aggregate reaches the target amount.
type AmountThreshold struct {
	Field  string  `json:"field"`
	Target float64 `json:"target"`
}

func (c AmountThreshold) Type() CriteriaType { return CriteriaAmountThreshold }

func (c AmountThreshold) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("amount_threshold criteria requires a measure field")
	}
	if c.Target < 0 {
		return fmt.Errorf("amount_threshold target must not be negative")
	}
	return nil
}

// CountThreshold is satisfied when a named running count reaches the target.
type CountThreshold struct {
	Field  string `json:"field"`
	Target int    `json:"target"`
}

func (c CountThreshold) Type() CriteriaType { return CriteriaCountThreshold }

func (c CountThreshold) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("count_threshold criteria requires a measure field")
	}
	if c.Target < 0 {
		return fmt.Errorf("count_threshold target must not be negative")
	}
	return nil
}

// StreakCount is satisfied when a named streak length reaches the target.
type StreakCount struct {
	Field  string `json:"field"`
	Target int    `json:"target"`
}

func (c StreakCount) Type() CriteriaType { return CriteriaStreakCount }

func (c StreakCount) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("streak_count criteria requires a measure field")
	}
	if c.Target < 0 {
		return fmt.Errorf("streak_count target must not be negative")
	}
	return nil
}

// PercentageTarget is satisfied when a named computed percentage reaches
// the target (e.g. monthly savings rate).
type PercentageTarget struct {
	Field  string  `json:"field"`
	Target float64 `json:"target"`
}

func (c PercentageTarget) Type() CriteriaType { return CriteriaPercentageTarget }

func (c PercentageTarget) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("percentage_target criteria requires a measure field")
	}
	if c.Target < 0 || c.Target > 100 {
		return fmt.Errorf("percentage_target must be between 0 and 100, got %v", c.Target)
	}
	return nil
}

// GoalCompletion is satisfied when the child's completed savings goal count
// reaches the target. The measure is always read from the goals_completed
// aggregate field.
type GoalCompletion struct {
	Target int `json:"target"`
}

// GoalsCompletedField is the child aggregate field GoalCompletion reads.
const GoalsCompletedField = "goals_completed"

func (c GoalCompletion) Type() CriteriaType { return CriteriaGoalCompletion }

func (c GoalCompletion) Validate() error {
	if c.Target < 0 {
		return fmt.Errorf("goal_completion target must not be negative")
	}
	return nil
}

// TimeBasedAction is satisfied when a named temporal condition computed by
// the event producer is true in the payload (e.g. "same_day_as_allowance").
type TimeBasedAction struct {
	Condition string `json:"condition"`
}

func (c TimeBasedAction) Type() CriteriaType { return CriteriaTimeBasedAction }

func (c TimeBasedAction) Validate() error {
	if c.Condition == "" {
		return fmt.Errorf("time_based_action criteria requires a condition tag")
	}
	return nil
}
