package achievements

// Measure field names exposed by the child aggregate. Event producers and
// the stats table use these exact keys.
const (
	FieldTotalSaved         = "total_saved"
	FieldCurrentBalance     = "current_balance"
	FieldTaskCount          = "task_count"
	FieldApprovedTaskStreak = "approved_task_streak"
	FieldMonthlySavingsRate = "monthly_savings_rate"
	FieldTransactionCount   = "transaction_count"
	FieldBudgetStreak       = "budget_streak"
	FieldSavingStreakWeeks  = "saving_streak_weeks"
)

// DefaultDefinitions is the checked-in badge catalog. Codes are stable
// identities and must never be reused or renamed once shipped; retire a
// badge by flipping Active off instead.
//
// Percentage badges are bound to the streak_updated trigger, piggybacking
// on the periodic streak rollup that recomputes monthly rates.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Code:        "FIRST_DEPOSIT",
			Name:        "First Deposit",
			Description: "Make your very first savings deposit",
			Category:    CategorySaving,
			Rarity:      RarityCommon,
			Points:      10,
			Criteria:    SingleAction{Fact: "first_deposit"},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Active:      true,
			SortOrder:   10,
		},
		{
			Code:        "PENNY_PINCHER",
			Name:        "Penny Pincher",
			Description: "Save a total of $10",
			Category:    CategorySaving,
			Rarity:      RarityCommon,
			Points:      15,
			Criteria:    AmountThreshold{Field: FieldTotalSaved, Target: 10},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Active:      true,
			SortOrder:   20,
		},
		{
			Code:        "SUPER_SAVER",
			Name:        "Super Saver",
			Description: "Save a total of $100",
			Category:    CategorySaving,
			Rarity:      RarityUncommon,
			Points:      40,
			Criteria:    AmountThreshold{Field: FieldTotalSaved, Target: 100},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Active:      true,
			SortOrder:   30,
		},
		{
			Code:        "PIGGY_BANK_PRO",
			Name:        "Piggy Bank Pro",
			Description: "Save a total of $500",
			Category:    CategorySaving,
			Rarity:      RarityRare,
			Points:      100,
			Criteria:    AmountThreshold{Field: FieldTotalSaved, Target: 500},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Active:      true,
			SortOrder:   40,
		},
		{
			Code:        "BALANCE_BUILDER",
			Name:        "Balance Builder",
			Description: "Hold a balance of $50 at once",
			Category:    CategoryMilestones,
			Rarity:      RarityUncommon,
			Points:      25,
			Criteria:    AmountThreshold{Field: FieldCurrentBalance, Target: 50},
			Triggers:    []TriggerEvent{TriggerBalanceChanged},
			Active:      true,
			SortOrder:   50,
		},
		{
			Code:        "GOAL_SETTER",
			Name:        "Goal Setter",
			Description: "Create your first savings goal",
			Category:    CategoryGoals,
			Rarity:      RarityCommon,
			Points:      10,
			Criteria:    SingleAction{Fact: "first_goal"},
			Triggers:    []TriggerEvent{TriggerGoalCreated},
			Active:      true,
			SortOrder:   60,
		},
		{
			Code:        "GOAL_CRUSHER",
			Name:        "Goal Crusher",
			Description: "Complete your first savings goal",
			Category:    CategoryGoals,
			Rarity:      RarityUncommon,
			Points:      20,
			Criteria:    GoalCompletion{Target: 1},
			Triggers:    []TriggerEvent{TriggerGoalCompleted},
			Active:      true,
			SortOrder:   70,
		},
		{
			Code:        "DREAM_CHASER",
			Name:        "Dream Chaser",
			Description: "Complete five savings goals",
			Category:    CategoryGoals,
			Rarity:      RarityRare,
			Points:      75,
			Criteria:    GoalCompletion{Target: 5},
			Triggers:    []TriggerEvent{TriggerGoalCompleted},
			Active:      true,
			SortOrder:   80,
		},
		{
			Code:        "HELPING_HAND",
			Name:        "Helping Hand",
			Description: "Get your first chore approved",
			Category:    CategoryChores,
			Rarity:      RarityCommon,
			Points:      10,
			Criteria:    CountThreshold{Field: FieldTaskCount, Target: 1},
			Triggers:    []TriggerEvent{TriggerTaskApproved},
			Active:      true,
			SortOrder:   90,
		},
		{
			Code:        "CHORE_CHAMPION",
			Name:        "Chore Champion",
			Description: "Get ten chores approved",
			Category:    CategoryChores,
			Rarity:      RarityUncommon,
			Points:      30,
			Criteria:    CountThreshold{Field: FieldTaskCount, Target: 10},
			Triggers:    []TriggerEvent{TriggerTaskApproved},
			Active:      true,
			SortOrder:   100,
		},
		{
			Code:        "TASK_MASTER",
			Name:        "Task Master",
			Description: "Get fifty chores approved",
			Category:    CategoryChores,
			Rarity:      RarityEpic,
			Points:      150,
			Criteria:    CountThreshold{Field: FieldTaskCount, Target: 50},
			Triggers:    []TriggerEvent{TriggerTaskApproved},
			Active:      true,
			SortOrder:   110,
		},
		{
			Code:        "ON_A_ROLL",
			Name:        "On a Roll",
			Description: "Get chores approved five times in a row",
			Category:    CategoryStreaks,
			Rarity:      RarityUncommon,
			Points:      35,
			Criteria:    StreakCount{Field: FieldApprovedTaskStreak, Target: 5},
			Triggers:    []TriggerEvent{TriggerTaskApproved, TriggerStreakUpdated},
			Active:      true,
			SortOrder:   120,
		},
		{
			Code:        "WEEKLY_SAVER",
			Name:        "Weekly Saver",
			Description: "Save something four weeks in a row",
			Category:    CategoryStreaks,
			Rarity:      RarityUncommon,
			Points:      40,
			Criteria:    StreakCount{Field: FieldSavingStreakWeeks, Target: 4},
			Triggers:    []TriggerEvent{TriggerStreakUpdated},
			Active:      true,
			SortOrder:   130,
		},
		{
			Code:        "BUDGET_BOSS",
			Name:        "Budget Boss",
			Description: "Stay within budget four checks in a row",
			Category:    CategorySpending,
			Rarity:      RarityRare,
			Points:      60,
			Criteria:    StreakCount{Field: FieldBudgetStreak, Target: 4},
			Triggers:    []TriggerEvent{TriggerBudgetChecked},
			Active:      true,
			SortOrder:   140,
		},
		{
			Code:        "HALF_BACK",
			Name:        "Half Back",
			Description: "Save half of your allowance in a month",
			Category:    CategorySaving,
			Rarity:      RarityRare,
			Points:      50,
			Criteria:    PercentageTarget{Field: FieldMonthlySavingsRate, Target: 50},
			Triggers:    []TriggerEvent{TriggerStreakUpdated},
			Active:      true,
			SortOrder:   150,
		},
		{
			Code:        "BIG_SPENDER",
			Name:        "Big Spender",
			Description: "Record twenty-five transactions",
			Category:    CategorySpending,
			Rarity:      RarityUncommon,
			Points:      25,
			Criteria:    CountThreshold{Field: FieldTransactionCount, Target: 25},
			Triggers:    []TriggerEvent{TriggerTransactionCreated},
			Active:      true,
			SortOrder:   160,
		},
		{
			Code:        "PAYDAY_PLANNER",
			Name:        "Payday Planner",
			Description: "Make a deposit on allowance day",
			Category:    CategorySpecial,
			Rarity:      RarityRare,
			Points:      45,
			Criteria:    TimeBasedAction{Condition: "same_day_as_allowance"},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Secret:      true,
			Active:      true,
			SortOrder:   170,
		},
		{
			Code:        "WELCOME_ABOARD",
			Name:        "Welcome Aboard",
			Description: "Open your allowance account",
			Category:    CategoryMilestones,
			Rarity:      RarityCommon,
			Points:      5,
			Criteria:    SingleAction{Fact: "account_created"},
			Triggers:    []TriggerEvent{TriggerAccountCreated},
			Active:      true,
			SortOrder:   5,
		},
		{
			Code:        "MONEY_LEGEND",
			Name:        "Money Legend",
			Description: "Save a total of $1000",
			Category:    CategoryMilestones,
			Rarity:      RarityLegendary,
			Points:      500,
			Criteria:    AmountThreshold{Field: FieldTotalSaved, Target: 1000},
			Triggers:    []TriggerEvent{TriggerSavingsDeposit},
			Secret:      true,
			Active:      true,
			SortOrder:   180,
		},
	}
}

// DefaultCatalog builds the catalog from the checked-in definitions.
// A validation failure here is a programming error and aborts startup.
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(DefaultDefinitions())
}
