package achievements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FiltersByTriggerAndAwards(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	dispatcher := NewDispatcher(catalog)

	t.Run("only matching triggers are returned", func(t *testing.T) {
		for _, def := range dispatcher.Dispatch(TriggerSavingsDeposit, nil) {
			assert.True(t, def.ListensTo(TriggerSavingsDeposit),
				"dispatch returned %s which does not listen to savings_deposit", def.Code)
		}
	})

	t.Run("earned badges are excluded", func(t *testing.T) {
		earned := map[string]bool{"PENNY_PINCHER": true}
		for _, def := range dispatcher.Dispatch(TriggerSavingsDeposit, earned) {
			assert.NotEqual(t, "PENNY_PINCHER", def.Code)
		}
	})

	t.Run("duplicate delivery after award yields no candidate", func(t *testing.T) {
		before := dispatcher.Dispatch(TriggerSavingsDeposit, nil)
		earned := make(map[string]bool, len(before))
		for _, def := range before {
			earned[def.Code] = true
		}
		assert.Empty(t, dispatcher.Dispatch(TriggerSavingsDeposit, earned))
	})

	t.Run("candidates come back in catalog sort order", func(t *testing.T) {
		got := dispatcher.Dispatch(TriggerSavingsDeposit, nil)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].SortOrder, got[i].SortOrder)
		}
	})

	t.Run("unknown trigger yields empty list", func(t *testing.T) {
		assert.Empty(t, dispatcher.Dispatch(TriggerEvent("never_seen"), nil))
	})
}
