package achievements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_Validation(t *testing.T) {
	valid := Definition{
		Code:      "A",
		Name:      "A",
		Points:    10,
		Criteria:  AmountThreshold{Field: FieldTotalSaved, Target: 1},
		Triggers:  []TriggerEvent{TriggerSavingsDeposit},
		Active:    true,
		SortOrder: 1,
	}

	t.Run("accepts a valid definition", func(t *testing.T) {
		c, err := NewCatalog([]Definition{valid})
		require.NoError(t, err)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("rejects duplicate codes", func(t *testing.T) {
		_, err := NewCatalog([]Definition{valid, valid})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate badge code")
	})

	t.Run("rejects empty code", func(t *testing.T) {
		bad := valid
		bad.Code = ""
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})

	t.Run("rejects negative points", func(t *testing.T) {
		bad := valid
		bad.Code = "B"
		bad.Points = -1
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})

	t.Run("rejects missing criteria", func(t *testing.T) {
		bad := valid
		bad.Code = "B"
		bad.Criteria = nil
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})

	t.Run("rejects malformed criteria config", func(t *testing.T) {
		bad := valid
		bad.Code = "B"
		bad.Criteria = AmountThreshold{Field: "", Target: 5}
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})

	t.Run("rejects unknown trigger", func(t *testing.T) {
		bad := valid
		bad.Code = "B"
		bad.Triggers = []TriggerEvent{"month_end"}
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})

	t.Run("rejects empty trigger set", func(t *testing.T) {
		bad := valid
		bad.Code = "B"
		bad.Triggers = nil
		_, err := NewCatalog([]Definition{bad})
		assert.Error(t, err)
	})
}

func TestCatalog_ByCode(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	def, ok := catalog.ByCode("PENNY_PINCHER")
	require.True(t, ok)
	assert.Equal(t, "Penny Pincher", def.Name)
	assert.Equal(t, 15, def.Points)

	_, ok = catalog.ByCode("NO_SUCH_BADGE")
	assert.False(t, ok)
}

func TestCatalog_ByTrigger(t *testing.T) {
	defs := []Definition{
		{
			Code: "SECOND", Name: "Second", Points: 1, Active: true, SortOrder: 20,
			Criteria: AmountThreshold{Field: FieldTotalSaved, Target: 2},
			Triggers: []TriggerEvent{TriggerSavingsDeposit},
		},
		{
			Code: "FIRST", Name: "First", Points: 1, Active: true, SortOrder: 10,
			Criteria: AmountThreshold{Field: FieldTotalSaved, Target: 1},
			Triggers: []TriggerEvent{TriggerSavingsDeposit},
		},
		{
			Code: "INACTIVE", Name: "Inactive", Points: 1, Active: false, SortOrder: 5,
			Criteria: AmountThreshold{Field: FieldTotalSaved, Target: 1},
			Triggers: []TriggerEvent{TriggerSavingsDeposit},
		},
		{
			Code: "OTHER_TRIGGER", Name: "Other", Points: 1, Active: true, SortOrder: 1,
			Criteria: CountThreshold{Field: FieldTaskCount, Target: 1},
			Triggers: []TriggerEvent{TriggerTaskApproved},
		},
	}
	catalog, err := NewCatalog(defs)
	require.NoError(t, err)

	got := catalog.ByTrigger(TriggerSavingsDeposit)
	require.Len(t, got, 2)
	assert.Equal(t, "FIRST", got[0].Code, "results must follow catalog sort order")
	assert.Equal(t, "SECOND", got[1].Code)

	assert.Empty(t, catalog.ByTrigger(TriggerGoalCompleted))
}

func TestCatalog_ListFiltersSecret(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	visible := catalog.List(false)
	all := catalog.List(true)
	assert.Greater(t, len(all), len(visible), "default catalog carries secret badges")

	for _, def := range visible {
		assert.False(t, def.Secret)
	}

	// Sort order holds across the listing.
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].SortOrder, all[i].SortOrder)
	}
}

func TestDefaultCatalog_SpecBadges(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	penny, ok := catalog.ByCode("PENNY_PINCHER")
	require.True(t, ok)
	crit, ok := penny.Criteria.(AmountThreshold)
	require.True(t, ok)
	assert.Equal(t, FieldTotalSaved, crit.Field)
	assert.Equal(t, 10.0, crit.Target)
	assert.True(t, penny.ListensTo(TriggerSavingsDeposit))

	crusher, ok := catalog.ByCode("GOAL_CRUSHER")
	require.True(t, ok)
	assert.Equal(t, 20, crusher.Points)
	_, ok = crusher.Criteria.(GoalCompletion)
	assert.True(t, ok)
	assert.True(t, crusher.ListensTo(TriggerGoalCompleted))
}
