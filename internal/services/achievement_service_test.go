// file: internal/services/achievement_service_test.go
package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"allowancehub/internal/achievements"
	"allowancehub/internal/cache"
	"allowancehub/internal/models"
	"allowancehub/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===============================
// IN-MEMORY FAKES
// ===============================

type fakeChildRepo struct {
	mu       sync.Mutex
	children map[int64]*models.Child
	stats    map[int64]map[string]float64
}

func newFakeChildRepo() *fakeChildRepo {
	return &fakeChildRepo{
		children: make(map[int64]*models.Child),
		stats:    make(map[int64]map[string]float64),
	}
}

func (f *fakeChildRepo) Create(ctx context.Context, child *models.Child) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	child.ID = int64(len(f.children) + 1)
	child.CreatedAt = time.Now()
	f.children[child.ID] = child
	return nil
}

func (f *fakeChildRepo) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	child, ok := f.children[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return child, nil
}

func (f *fakeChildRepo) Update(ctx context.Context, child *models.Child) error  { return nil }
func (f *fakeChildRepo) Delete(ctx context.Context, id int64) error             { return nil }
func (f *fakeChildRepo) ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error) {
	return nil, nil
}

func (f *fakeChildRepo) GetStats(ctx context.Context, childID int64) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := make(map[string]float64)
	for k, v := range f.stats[childID] {
		stats[k] = v
	}
	return stats, nil
}

func (f *fakeChildRepo) UpsertStats(ctx context.Context, childID int64, measures map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats[childID] == nil {
		f.stats[childID] = make(map[string]float64)
	}
	for k, v := range measures {
		f.stats[childID][k] = v
	}
	return nil
}

func (f *fakeChildRepo) AddPoints(ctx context.Context, childID int64, points int) error { return nil }
func (f *fakeChildRepo) SpendPoints(ctx context.Context, childID int64, points int) error {
	return nil
}
func (f *fakeChildRepo) UpdateAvatar(ctx context.Context, childID int64, url, publicID string) error {
	return nil
}

type fakeBadgeRepo struct {
	mu       sync.Mutex
	awards   map[int64]map[string]*models.ChildBadgeAward
	progress map[int64]map[string]float64
	points   map[int64]int
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{
		awards:   make(map[int64]map[string]*models.ChildBadgeAward),
		progress: make(map[int64]map[string]float64),
		points:   make(map[int64]int),
	}
}

func (f *fakeBadgeRepo) UpsertProgress(ctx context.Context, childID int64, badgeCode string, progress float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress[childID] == nil {
		f.progress[childID] = make(map[string]float64)
	}
	f.progress[childID][badgeCode] = progress
	return nil
}

func (f *fakeBadgeRepo) GetProgress(ctx context.Context, childID int64) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	progress := make(map[string]float64)
	for k, v := range f.progress[childID] {
		progress[k] = v
	}
	return progress, nil
}

func (f *fakeBadgeRepo) Award(ctx context.Context, award *models.ChildBadgeAward, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awards[award.ChildID] == nil {
		f.awards[award.ChildID] = make(map[string]*models.ChildBadgeAward)
	}
	if _, exists := f.awards[award.ChildID][award.BadgeCode]; exists {
		return repositories.ErrAlreadyAwarded
	}
	award.EarnedAt = time.Now()
	award.IsNew = true
	f.awards[award.ChildID][award.BadgeCode] = award
	f.points[award.ChildID] += points
	delete(f.progress[award.ChildID], award.BadgeCode)
	return nil
}

func (f *fakeBadgeRepo) GetAwardedCodes(ctx context.Context, childID int64) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	earned := make(map[string]bool)
	for code := range f.awards[childID] {
		earned[code] = true
	}
	return earned, nil
}

func (f *fakeBadgeRepo) ListAwards(ctx context.Context, childID int64) ([]*models.ChildBadgeAward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var awards []*models.ChildBadgeAward
	for _, award := range f.awards[childID] {
		awards = append(awards, award)
	}
	return awards, nil
}

func (f *fakeBadgeRepo) GetAward(ctx context.Context, childID int64, badgeCode string) (*models.ChildBadgeAward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	award, ok := f.awards[childID][badgeCode]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return award, nil
}

func (f *fakeBadgeRepo) MarkSeen(ctx context.Context, childID int64, badgeCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	award, ok := f.awards[childID][badgeCode]
	if !ok {
		return sql.ErrNoRows
	}
	award.IsNew = false
	return nil
}

func (f *fakeBadgeRepo) SetDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	award, ok := f.awards[childID][badgeCode]
	if !ok {
		return sql.ErrNoRows
	}
	award.IsDisplayed = displayed
	return nil
}

func (f *fakeBadgeRepo) CountAwardsSince(ctx context.Context, childID int64, since time.Time) (int, error) {
	return 0, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	calls int
}

func (f *fakeNotifier) NotifyBadgeAwarded(ctx context.Context, child *models.Child, def *achievements.Definition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, def.Code)
	f.calls++
	return nil
}

func (f *fakeNotifier) Create(ctx context.Context, n *models.Notification) error { return nil }
func (f *fakeNotifier) List(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(ctx context.Context, id int64) error        { return nil }
func (f *fakeNotifier) MarkAllRead(ctx context.Context, familyID int64) error { return nil }
func (f *fakeNotifier) CountUnread(ctx context.Context, familyID int64) (int, error) {
	return 0, nil
}

// ===============================
// TEST SETUP
// ===============================

type serviceFixture struct {
	service  AchievementService
	children *fakeChildRepo
	badges   *fakeBadgeRepo
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	catalog, err := achievements.DefaultCatalog()
	require.NoError(t, err)

	children := newFakeChildRepo()
	badges := newFakeBadgeRepo()
	notifier := &fakeNotifier{}

	service := NewAchievementService(
		children, badges, notifier, catalog, nil, nil, zap.NewNop(),
	)

	return &serviceFixture{
		service:  service,
		children: children,
		badges:   badges,
		notifier: notifier,
	}
}

func (f *serviceFixture) addChild(t *testing.T, name string) *models.Child {
	t.Helper()
	child := &models.Child{FamilyID: 1, Name: name}
	require.NoError(t, f.children.Create(context.Background(), child))
	return child
}

// ===============================
// TRIGGER PIPELINE TESTS
// ===============================

func TestHandleTrigger_AwardsOnThreshold(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	outcome, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 12})
	require.NoError(t, err)

	codes := make([]string, 0, len(outcome.Awarded))
	for _, a := range outcome.Awarded {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, "PENNY_PINCHER", "saving 12 should clear the 10 threshold")

	award, err := f.badges.GetAward(ctx, child.ID, "PENNY_PINCHER")
	require.NoError(t, err)
	assert.True(t, award.IsNew)
	assert.Equal(t, "savings_deposit", award.EarnedContext)
}

func TestHandleTrigger_RecordsProgressBelowThreshold(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	outcome, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 6})
	require.NoError(t, err)
	assert.Empty(t, outcome.Awarded)

	progress, err := f.badges.GetProgress(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, progress["PENNY_PINCHER"])
}

func TestHandleTrigger_ProgressMayDecrease(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	_, err := f.service.HandleTrigger(ctx, child.ID, "streak_updated", nil,
		map[string]float64{achievements.FieldApprovedTaskStreak: 4})
	require.NoError(t, err)

	// Streak broken: the absolute value goes back down and the stored
	// progress follows it.
	_, err = f.service.HandleTrigger(ctx, child.ID, "streak_updated", nil,
		map[string]float64{achievements.FieldApprovedTaskStreak: 1})
	require.NoError(t, err)

	progress, err := f.badges.GetProgress(ctx, child.ID)
	require.NoError(t, err)
	for code, value := range progress {
		def, ok := f.service.(*achievementService).catalog.ByCode(code)
		require.True(t, ok)
		if sc, isStreak := def.Criteria.(achievements.StreakCount); isStreak &&
			sc.Field == achievements.FieldApprovedTaskStreak {
			assert.Equal(t, 1.0, value, "progress for %s should track the absolute streak", code)
		}
	}
}

func TestHandleTrigger_ReplayIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	measures := map[string]float64{achievements.FieldTotalSaved: 12}

	first, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil, measures)
	require.NoError(t, err)
	require.NotEmpty(t, first.Awarded)

	pointsAfterFirst := f.badges.points[child.ID]

	second, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil, measures)
	require.NoError(t, err)
	assert.Empty(t, second.Awarded, "replay must not award again")
	assert.Equal(t, pointsAfterFirst, f.badges.points[child.ID], "replay must not credit points again")
}

func TestHandleTrigger_AwardIsTerminal(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	_, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 15})
	require.NoError(t, err)

	// The measure drops below the threshold afterwards; the badge stays.
	_, err = f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 2})
	require.NoError(t, err)

	_, err = f.badges.GetAward(ctx, child.ID, "PENNY_PINCHER")
	assert.NoError(t, err, "earned badge must survive a measure decrease")

	progress, err := f.badges.GetProgress(ctx, child.ID)
	require.NoError(t, err)
	_, tracked := progress["PENNY_PINCHER"]
	assert.False(t, tracked, "earned badge must not be re-tracked as progress")
}

func TestHandleTrigger_MissingMeasuresReadAsZero(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	outcome, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil, nil)
	require.NoError(t, err, "a child with no recorded measures is not an error")
	assert.Empty(t, outcome.Awarded)
}

func TestHandleTrigger_ZeroMeasureLeavesNoProgressRow(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	outcome, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Progressed)

	progress, err := f.badges.GetProgress(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, progress, "a zero measure must not create a progress row")

	// An explicitly reported zero behaves the same as a missing measure.
	_, err = f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 0})
	require.NoError(t, err)

	progress, err = f.badges.GetProgress(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, progress)
}

func TestHandleTrigger_UnknownTriggerRejected(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")

	_, err := f.service.HandleTrigger(context.Background(), child.ID, "made_up_event", nil, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestHandleTrigger_UnknownChildRejected(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.HandleTrigger(context.Background(), 999, "savings_deposit", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestHandleTrigger_SingleActionFromPayload(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	outcome, err := f.service.HandleTrigger(ctx, child.ID, "account_created",
		map[string]interface{}{"account_created": true}, nil)
	require.NoError(t, err)

	codes := make([]string, 0, len(outcome.Awarded))
	for _, a := range outcome.Awarded {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, "WELCOME_ABOARD")

	assert.Equal(t, 1, f.notifier.calls, "award should produce one notification")
}

func TestHandleTrigger_ConcurrentAwardSingleWinner(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	require.NoError(t, f.children.UpsertStats(ctx, child.ID,
		map[string]float64{achievements.FieldTotalSaved: 50}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	awards, err := f.badges.ListAwards(ctx, child.ID)
	require.NoError(t, err)
	seen := make(map[string]int)
	for _, award := range awards {
		seen[award.BadgeCode]++
	}
	for code, count := range seen {
		assert.Equal(t, 1, count, "badge %s must be awarded exactly once", code)
	}
}

// ===============================
// BADGE VIEW TESTS
// ===============================

func TestGetChildBadges_HidesUnearnedSecrets(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	views, err := f.service.GetChildBadges(ctx, child.ID)
	require.NoError(t, err)
	require.NotEmpty(t, views)

	catalog := f.service.(*achievementService).catalog
	for _, view := range views {
		def, ok := catalog.ByCode(view.Code)
		require.True(t, ok)
		if def.Secret {
			assert.True(t, view.Earned, "secret badge %s leaked before being earned", view.Code)
		}
	}
}

func TestGetChildBadges_MergesAwardsAndProgress(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	_, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 12})
	require.NoError(t, err)

	views, err := f.service.GetChildBadges(ctx, child.ID)
	require.NoError(t, err)

	var earned, inProgress int
	for _, view := range views {
		if view.Earned {
			earned++
			assert.NotNil(t, view.EarnedAt)
			assert.Nil(t, view.Progress, "earned badge must not carry progress")
		} else if view.Progress != nil {
			inProgress++
		}
	}
	assert.GreaterOrEqual(t, earned, 1)
	assert.GreaterOrEqual(t, inProgress, 1)
}

func TestGetChildBadges_ServesCachedViews(t *testing.T) {
	catalog, err := achievements.DefaultCatalog()
	require.NoError(t, err)

	children := newFakeChildRepo()
	badges := newFakeBadgeRepo()
	backend := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	service := NewAchievementService(
		children, badges, &fakeNotifier{}, catalog, nil,
		NewCacheService(backend, DefaultCacheConfig(), zap.NewNop()),
		zap.NewNop(),
	)

	ctx := context.Background()
	child := &models.Child{FamilyID: 1, Name: "Maya"}
	require.NoError(t, children.Create(ctx, child))

	_, err = service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 6})
	require.NoError(t, err)

	first, err := service.GetChildBadges(ctx, child.ID)
	require.NoError(t, err)

	// Drop the progress rows behind the cache's back; a repeat read must
	// be served from the cached entry, decoded back into typed views.
	badges.mu.Lock()
	delete(badges.progress, child.ID)
	badges.mu.Unlock()

	second, err := service.GetChildBadges(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// ===============================
// PRESENTATION FLAG TESTS
// ===============================

func TestMarkBadgeSeen(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	_, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 12})
	require.NoError(t, err)

	t.Run("earned badge", func(t *testing.T) {
		require.NoError(t, f.service.MarkBadgeSeen(ctx, child.ID, "PENNY_PINCHER"))

		award, err := f.badges.GetAward(ctx, child.ID, "PENNY_PINCHER")
		require.NoError(t, err)
		assert.False(t, award.IsNew)
	})

	t.Run("unearned badge", func(t *testing.T) {
		err := f.service.MarkBadgeSeen(ctx, child.ID, "GOAL_CRUSHER")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("unknown badge", func(t *testing.T) {
		err := f.service.MarkBadgeSeen(ctx, child.ID, "NO_SUCH_BADGE")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})
}

func TestSetBadgeDisplayed(t *testing.T) {
	f := newServiceFixture(t)
	child := f.addChild(t, "Maya")
	ctx := context.Background()

	_, err := f.service.HandleTrigger(ctx, child.ID, "savings_deposit", nil,
		map[string]float64{achievements.FieldTotalSaved: 12})
	require.NoError(t, err)

	require.NoError(t, f.service.SetBadgeDisplayed(ctx, child.ID, "PENNY_PINCHER", true))

	award, err := f.badges.GetAward(ctx, child.ID, "PENNY_PINCHER")
	require.NoError(t, err)
	assert.True(t, award.IsDisplayed)
}

// ===============================
// CATALOG TESTS
// ===============================

func TestListCatalog_ExcludesSecrets(t *testing.T) {
	f := newServiceFixture(t)

	for _, def := range f.service.ListCatalog(context.Background()) {
		assert.False(t, def.Secret, "secret badge %s exposed by catalog listing", def.Code)
	}
}

func TestGetDefinition(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	def, err := f.service.GetDefinition(ctx, "PENNY_PINCHER")
	require.NoError(t, err)
	assert.Equal(t, "PENNY_PINCHER", def.Code)

	_, err = f.service.GetDefinition(ctx, "NO_SUCH_BADGE")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}
