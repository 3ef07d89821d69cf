package achievements

// ChildState is the read-only snapshot of a child's named running totals,
// counts, streaks and percentages, keyed by measure field name. It is
// supplied by the child aggregate; the evaluator never reads storage itself.
type ChildState struct {
	Measures map[string]float64
}

// Measure returns the named measure, or zero when the field is absent.
// Missing data means "not yet", never a fault.
func (s ChildState) Measure(field string) float64 {
	if s.Measures == nil {
		return 0
	}
	return s.Measures[field]
}

// Payload carries the event-specific named facts attached to a trigger.
// Values are numeric or boolean.
type Payload map[string]any

// Bool returns the named boolean fact; absent or non-boolean facts read
// as false.
func (p Payload) Bool(name string) bool {
	if p == nil {
		return false
	}
	v, ok := p[name].(bool)
	return ok && v
}

// Number returns the named numeric fact; absent or non-numeric facts read
// as zero. JSON decoding produces float64, but int values from in-process
// producers are accepted too.
func (p Payload) Number(name string) float64 {
	if p == nil {
		return 0
	}
	switch v := p[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Result is the outcome of evaluating one badge for one child.
type Result struct {
	Satisfied bool    `json:"satisfied"`
	Measure   float64 `json:"measure"`
}

// Evaluate computes the current measure for a badge definition against the
// child's aggregate state and the triggering payload, and decides whether
// the criteria is satisfied. Pure function of its inputs; all threshold
// comparisons are inclusive, so a target of exactly zero is trivially
// satisfied.
func Evaluate(state ChildState, def *Definition, payload Payload) Result {
	switch c := def.Criteria.(type) {
	case SingleAction:
		if payload.Bool(c.Fact) {
			return Result{Satisfied: true, Measure: 1}
		}
		return Result{}

	case AmountThreshold:
		measure := state.Measure(c.Field)
		return Result{Satisfied: measure >= c.Target, Measure: measure}

	case CountThreshold:
		measure := state.Measure(c.Field)
		return Result{Satisfied: measure >= float64(c.Target), Measure: measure}

	case StreakCount:
		measure := state.Measure(c.Field)
		return Result{Satisfied: measure >= float64(c.Target), Measure: measure}

	case PercentageTarget:
		measure := state.Measure(c.Field)
		return Result{Satisfied: measure >= c.Target, Measure: measure}

	case GoalCompletion:
		measure := state.Measure(GoalsCompletedField)
		return Result{Satisfied: measure >= float64(c.Target), Measure: measure}

	case TimeBasedAction:
		if payload.Bool(c.Condition) {
			return Result{Satisfied: true, Measure: 1}
		}
		return Result{}

	default:
		// Unknown criteria shapes are rejected at catalog load; treat a
		// stray one as not satisfied rather than failing the pipeline.
		return Result{}
	}
}

// Target returns the numeric target of a definition's criteria, used by
// UIs to render "X of Y" progress. SingleAction and TimeBasedAction report
// a target of one.
func Target(def *Definition) float64 {
	switch c := def.Criteria.(type) {
	case SingleAction:
		return 1
	case AmountThreshold:
		return c.Target
	case CountThreshold:
		return float64(c.Target)
	case StreakCount:
		return float64(c.Target)
	case PercentageTarget:
		return c.Target
	case GoalCompletion:
		return float64(c.Target)
	case TimeBasedAction:
		return 1
	default:
		return 0
	}
}
