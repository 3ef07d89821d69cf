package achievements

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ===============================
// CATALOG TYPES
// ===============================

// Category groups badges for display purposes.
type Category string

const (
	CategorySaving     Category = "saving"
	CategorySpending   Category = "spending"
	CategoryGoals      Category = "goals"
	CategoryChores     Category = "chores"
	CategoryStreaks    Category = "streaks"
	CategoryMilestones Category = "milestones"
	CategorySpecial    Category = "special"
)

// Rarity is the ordered scarcity tier of a badge.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// String returns the display name for a rarity tier.
func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// TriggerEvent identifies a domain occurrence that causes interested
// badges to be re-evaluated.
type TriggerEvent string

const (
	TriggerSavingsDeposit     TriggerEvent = "savings_deposit"
	TriggerGoalCreated        TriggerEvent = "goal_created"
	TriggerGoalCompleted      TriggerEvent = "goal_completed"
	TriggerTaskCompleted      TriggerEvent = "task_completed"
	TriggerTaskApproved       TriggerEvent = "task_approved"
	TriggerStreakUpdated      TriggerEvent = "streak_updated"
	TriggerTransactionCreated TriggerEvent = "transaction_created"
	TriggerBalanceChanged     TriggerEvent = "balance_changed"
	TriggerBudgetChecked      TriggerEvent = "budget_checked"
	TriggerAccountCreated     TriggerEvent = "account_created"
)

// KnownTriggers lists every trigger event the catalog understands.
var KnownTriggers = []TriggerEvent{
	TriggerSavingsDeposit,
	TriggerGoalCreated,
	TriggerGoalCompleted,
	TriggerTaskCompleted,
	TriggerTaskApproved,
	TriggerStreakUpdated,
	TriggerTransactionCreated,
	TriggerBalanceChanged,
	TriggerBudgetChecked,
	TriggerAccountCreated,
}

// IsKnownTrigger reports whether ev is one of the supported trigger events.
func IsKnownTrigger(ev TriggerEvent) bool {
	return slices.Contains(KnownTriggers, ev)
}

// Definition is an immutable catalog entry for a single badge. The code is
// the stable identity used across seed/reseed; it never changes once a badge
// has shipped.
type Definition struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Rarity      Rarity         `json:"rarity"`
	Points      int            `json:"points"`
	Criteria    Criteria       `json:"criteria"`
	Triggers    []TriggerEvent `json:"triggers"`
	Secret      bool           `json:"secret"`
	Active      bool           `json:"active"`
	SortOrder   int            `json:"sort_order"`
}

// ListensTo reports whether the definition declares interest in ev.
func (d *Definition) ListensTo(ev TriggerEvent) bool {
	return slices.Contains(d.Triggers, ev)
}

// ===============================
// CATALOG
// ===============================

// Catalog holds the authoritative list of badge definitions. It is built
// once at process start and read-only afterwards.
type Catalog struct {
	ordered   []*Definition
	byCode    map[string]*Definition
	byTrigger map[TriggerEvent][]*Definition
}

// NewCatalog validates the definitions and builds the lookup indexes.
// Definitions are indexed in sort order regardless of input order.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		ordered:   make([]*Definition, 0, len(defs)),
		byCode:    make(map[string]*Definition, len(defs)),
		byTrigger: make(map[TriggerEvent][]*Definition),
	}

	for i := range defs {
		def := defs[i]
		if def.Code == "" {
			return nil, fmt.Errorf("badge definition at index %d has no code", i)
		}
		if _, exists := c.byCode[def.Code]; exists {
			return nil, fmt.Errorf("duplicate badge code %q", def.Code)
		}
		if def.Points < 0 {
			return nil, fmt.Errorf("badge %q has negative points value %d", def.Code, def.Points)
		}
		if def.Criteria == nil {
			return nil, fmt.Errorf("badge %q has no criteria", def.Code)
		}
		if err := def.Criteria.Validate(); err != nil {
			return nil, fmt.Errorf("badge %q: %w", def.Code, err)
		}
		if len(def.Triggers) == 0 {
			return nil, fmt.Errorf("badge %q declares no trigger events", def.Code)
		}
		for _, ev := range def.Triggers {
			if !IsKnownTrigger(ev) {
				return nil, fmt.Errorf("badge %q references unknown trigger %q", def.Code, ev)
			}
		}

		c.byCode[def.Code] = &def
		c.ordered = append(c.ordered, &def)
	}

	slices.SortStableFunc(c.ordered, func(a, b *Definition) int {
		return a.SortOrder - b.SortOrder
	})

	for _, def := range c.ordered {
		for _, ev := range def.Triggers {
			c.byTrigger[ev] = append(c.byTrigger[ev], def)
		}
	}

	return c, nil
}

// ByCode looks up a definition by its stable code. A miss is an expected
// condition, not an error.
func (c *Catalog) ByCode(code string) (*Definition, bool) {
	def, ok := c.byCode[code]
	return def, ok
}

// ByTrigger returns the active definitions interested in ev, in catalog
// sort order.
func (c *Catalog) ByTrigger(ev TriggerEvent) []*Definition {
	candidates := c.byTrigger[ev]
	result := make([]*Definition, 0, len(candidates))
	for _, def := range candidates {
		if def.Active {
			result = append(result, def)
		}
	}
	return result
}

// List returns every definition in sort order. Secret badges are filtered
// out unless includeSecret is set, so unearned hidden badges never leak
// through listing endpoints.
func (c *Catalog) List(includeSecret bool) []*Definition {
	result := make([]*Definition, 0, len(c.ordered))
	for _, def := range c.ordered {
		if def.Secret && !includeSecret {
			continue
		}
		result = append(result, def)
	}
	return result
}

// Size returns the number of definitions in the catalog.
func (c *Catalog) Size() int {
	return len(c.ordered)
}
