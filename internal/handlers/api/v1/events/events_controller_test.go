package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"allowancehub/internal/achievements"
	"allowancehub/internal/models"
	"allowancehub/internal/response"
	"allowancehub/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAchievementService records trigger calls and returns canned
// outcomes.
type fakeAchievementService struct {
	mu         sync.Mutex
	syncCalls  int
	asyncCalls int
	lastChild  int64
	outcome    *services.TriggerOutcome
	err        error
	asyncDone  chan struct{}
}

func (f *fakeAchievementService) HandleTrigger(ctx context.Context, childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) (*services.TriggerOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	f.lastChild = childID
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *fakeAchievementService) HandleTriggerAsync(childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) {
	f.mu.Lock()
	f.asyncCalls++
	f.lastChild = childID
	f.mu.Unlock()
	if f.asyncDone != nil {
		close(f.asyncDone)
	}
}

func (f *fakeAchievementService) RegisterEventHandlers() error { return nil }

func (f *fakeAchievementService) GetChildBadges(ctx context.Context, childID int64) ([]*models.ChildBadgeView, error) {
	return nil, nil
}

func (f *fakeAchievementService) ListCatalog(ctx context.Context) []*achievements.Definition {
	return nil
}

func (f *fakeAchievementService) GetDefinition(ctx context.Context, code string) (*achievements.Definition, error) {
	return nil, nil
}

func (f *fakeAchievementService) MarkBadgeSeen(ctx context.Context, childID int64, badgeCode string) error {
	return nil
}

func (f *fakeAchievementService) SetBadgeDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error {
	return nil
}

// fakeChildService serves a single known child.
type fakeChildService struct {
	knownID int64
}

func (f *fakeChildService) Create(ctx context.Context, req *services.CreateChildRequest) (*models.Child, error) {
	return nil, nil
}

func (f *fakeChildService) GetByID(ctx context.Context, id int64) (*models.Child, error) {
	if id != f.knownID {
		return nil, services.EntityNotFoundError("child", id)
	}
	return &models.Child{ID: id, Name: "Maya"}, nil
}

func (f *fakeChildService) Update(ctx context.Context, id int64, req *services.UpdateChildRequest) (*models.Child, error) {
	return nil, nil
}

func (f *fakeChildService) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeChildService) ListByFamily(ctx context.Context, familyID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Child], error) {
	return nil, nil
}

func (f *fakeChildService) SpendPoints(ctx context.Context, childID int64, points int) (*models.Child, error) {
	return nil, nil
}

func (f *fakeChildService) UpdateAvatar(ctx context.Context, childID int64, upload *services.FileUploadRequest) (*models.Child, error) {
	return nil, nil
}

func newTestController(achievementSvc services.AchievementService, childSvc services.ChildService) *EventController {
	responseBuilder := response.NewBuilder(
		&response.Config{
			PrettyJSON:         false,
			IncludeRequestID:   true,
			APIVersion:         "v1",
			MaskInternalErrors: false,
		},
		zap.NewNop(),
	)

	return NewEventController(
		&services.ServiceCollection{
			AchievementService: achievementSvc,
			ChildService:       childSvc,
		},
		zap.NewNop(),
		responseBuilder,
	)
}

func postEvent(t *testing.T, controller *EventController, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/api/v1/events", bytes.NewReader(encoded))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	http.HandlerFunc(controller.RaiseEvent).ServeHTTP(rr, req)
	return rr
}

func TestEventController_RaiseEvent(t *testing.T) {
	t.Run("sync request returns evaluation outcome", func(t *testing.T) {
		achievementSvc := &fakeAchievementService{
			outcome: &services.TriggerOutcome{
				Trigger:   "savings_deposit",
				ChildID:   7,
				Evaluated: 3,
				Awarded: []services.AwardedBadge{
					{Code: "PENNY_PINCHER", Name: "Penny Pincher", Points: 10, Rarity: "common"},
				},
			},
		}
		controller := newTestController(achievementSvc, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 7,
			"trigger":  "savings_deposit",
			"measures": map[string]float64{"total_saved": 12},
			"sync":     true,
		})

		assert.Equal(t, http.StatusOK, rr.Code)

		var responseBody map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &responseBody))
		assert.Equal(t, true, responseBody["success"])

		data, ok := responseBody["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "savings_deposit", data["trigger"])
		assert.Equal(t, float64(7), data["child_id"])

		awarded, ok := data["awarded"].([]interface{})
		require.True(t, ok)
		require.Len(t, awarded, 1)

		assert.Equal(t, 1, achievementSvc.syncCalls)
		assert.Equal(t, 0, achievementSvc.asyncCalls)
	})

	t.Run("async request is accepted with 202", func(t *testing.T) {
		achievementSvc := &fakeAchievementService{asyncDone: make(chan struct{})}
		controller := newTestController(achievementSvc, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 7,
			"trigger":  "task_completed",
			"measures": map[string]float64{"tasks_completed": 3},
		})

		assert.Equal(t, http.StatusAccepted, rr.Code)

		<-achievementSvc.asyncDone

		var responseBody map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &responseBody))

		data, ok := responseBody["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["accepted"])
		assert.Equal(t, "task_completed", data["trigger"])

		achievementSvc.mu.Lock()
		defer achievementSvc.mu.Unlock()
		assert.Equal(t, 1, achievementSvc.asyncCalls)
		assert.Equal(t, int64(7), achievementSvc.lastChild)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		controller := newTestController(&fakeAchievementService{}, &fakeChildService{knownID: 7})

		req, err := http.NewRequest("POST", "/api/v1/events", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		http.HandlerFunc(controller.RaiseEvent).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing trigger fails validation with field detail", func(t *testing.T) {
		controller := newTestController(&fakeAchievementService{}, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{"child_id": 7})

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var responseBody map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &responseBody))

		errObj, ok := responseBody["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", errObj["type"])

		fields, ok := errObj["fields"].([]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, fields)
	})

	t.Run("negative measure fails validation", func(t *testing.T) {
		controller := newTestController(&fakeAchievementService{}, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 7,
			"trigger":  "savings_deposit",
			"measures": map[string]float64{"total_saved": -1},
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("async unknown trigger is rejected before acceptance", func(t *testing.T) {
		achievementSvc := &fakeAchievementService{}
		controller := newTestController(achievementSvc, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 7,
			"trigger":  "lottery_won",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, achievementSvc.asyncCalls)
	})

	t.Run("async unknown child is rejected before acceptance", func(t *testing.T) {
		achievementSvc := &fakeAchievementService{}
		controller := newTestController(achievementSvc, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 99,
			"trigger":  "savings_deposit",
		})

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, 0, achievementSvc.asyncCalls)
	})

	t.Run("sync service error maps to service status code", func(t *testing.T) {
		achievementSvc := &fakeAchievementService{err: services.EntityNotFoundError("child", 7)}
		controller := newTestController(achievementSvc, &fakeChildService{knownID: 7})

		rr := postEvent(t, controller, map[string]interface{}{
			"child_id": 7,
			"trigger":  "savings_deposit",
			"sync":     true,
		})

		assert.Equal(t, http.StatusNotFound, rr.Code)

		var responseBody map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &responseBody))

		errObj, ok := responseBody["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", errObj["type"])
	})
}
