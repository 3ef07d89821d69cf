// internal/services/achievement_service.go
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"allowancehub/internal/achievements"
	"allowancehub/internal/events"
	"allowancehub/internal/models"
	"allowancehub/internal/repositories"

	"go.uber.org/zap"
)

// ===============================
// TYPES
// ===============================

// AwardedBadge describes a badge granted during one trigger evaluation.
type AwardedBadge struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Rarity string `json:"rarity"`
}

// ProgressedBadge describes a badge whose stored progress was rewritten
// without reaching its target.
type ProgressedBadge struct {
	Code    string  `json:"code"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

// TriggerOutcome summarizes what one trigger evaluation did.
type TriggerOutcome struct {
	Trigger    string            `json:"trigger"`
	ChildID    int64             `json:"child_id"`
	Evaluated  int               `json:"evaluated"`
	Awarded    []AwardedBadge    `json:"awarded"`
	Progressed []ProgressedBadge `json:"progressed"`
}

// achievementService implements AchievementService. It owns the full
// pipeline from a raised trigger to durable awards, progress rows and
// the events other components react to.
type achievementService struct {
	children      repositories.ChildRepository
	badges        repositories.BadgeRepository
	notifications NotificationService
	catalog       *achievements.Catalog
	dispatcher    *achievements.Dispatcher
	eventBus      events.EventBus
	cache         CacheService
	logger        *zap.Logger
}

// NewAchievementService creates a new instance of AchievementService.
func NewAchievementService(
	children repositories.ChildRepository,
	badges repositories.BadgeRepository,
	notifications NotificationService,
	catalog *achievements.Catalog,
	eventBus events.EventBus,
	cacheService CacheService,
	logger *zap.Logger,
) AchievementService {
	return &achievementService{
		children:      children,
		badges:        badges,
		notifications: notifications,
		catalog:       catalog,
		dispatcher:    achievements.NewDispatcher(catalog),
		eventBus:      eventBus,
		cache:         cacheService,
		logger:        logger,
	}
}

// ===============================
// TRIGGER PIPELINE
// ===============================

// HandleTrigger runs the evaluation pipeline for one raised trigger:
// persist the reported measures, dispatch to the unearned interested
// badges, evaluate each, then award or rewrite progress. Replaying the
// same event rewrites the same absolute values and awards nothing new.
func (s *achievementService) HandleTrigger(ctx context.Context, childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) (*TriggerOutcome, error) {
	if !achievements.IsKnownTrigger(achievements.TriggerEvent(trigger)) {
		return nil, NewValidationError(fmt.Sprintf("unknown trigger event '%s'", trigger), nil)
	}

	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("child", childID)
		}
		return nil, NewInternalError("failed to load child").WithContext(&ErrorContext{
			ChildID:   &childID,
			Operation: "handle_trigger",
		})
	}

	if len(measures) > 0 {
		if err := s.children.UpsertStats(ctx, childID, measures); err != nil {
			return nil, NewInternalError("failed to record child measures")
		}
	}

	stats, err := s.children.GetStats(ctx, childID)
	if err != nil {
		return nil, NewInternalError("failed to load child measures")
	}

	earned, err := s.badges.GetAwardedCodes(ctx, childID)
	if err != nil {
		return nil, NewInternalError("failed to load award ledger")
	}

	state := achievements.ChildState{Measures: stats}
	candidates := s.dispatcher.Dispatch(achievements.TriggerEvent(trigger), earned)

	outcome := &TriggerOutcome{
		Trigger:    trigger,
		ChildID:    childID,
		Evaluated:  len(candidates),
		Awarded:    []AwardedBadge{},
		Progressed: []ProgressedBadge{},
	}

	for _, def := range candidates {
		result := achievements.Evaluate(state, def, achievements.Payload(payload))

		if result.Satisfied {
			awarded, err := s.award(ctx, child, def, trigger)
			if err != nil {
				return nil, err
			}
			if awarded {
				outcome.Awarded = append(outcome.Awarded, AwardedBadge{
					Code:   def.Code,
					Name:   def.Name,
					Points: def.Points,
					Rarity: def.Rarity.String(),
				})
			}
			continue
		}

		// A progress row appears only once a nonzero measure has been
		// reported; a zero measure leaves no record.
		if result.Measure <= 0 {
			continue
		}

		// Absolute rewrite: the stored number tracks the measure exactly,
		// including downwards after a streak reset.
		if err := s.badges.UpsertProgress(ctx, childID, def.Code, result.Measure); err != nil {
			return nil, NewInternalError("failed to store badge progress")
		}

		target := achievements.Target(def)
		outcome.Progressed = append(outcome.Progressed, ProgressedBadge{
			Code:    def.Code,
			Current: result.Measure,
			Target:  target,
		})

		if s.eventBus != nil {
			event := events.NewBadgeProgressedEvent(childID, def.Code, result.Measure, target)
			if err := s.eventBus.PublishAsync(ctx, event); err != nil {
				s.logger.Warn("Failed to publish progress event",
					zap.Error(err),
					zap.String("badge_code", def.Code),
				)
			}
		}
	}

	s.invalidateBadgeCache(ctx, childID)

	s.logger.Info("Trigger evaluated",
		zap.Int64("child_id", childID),
		zap.String("trigger", trigger),
		zap.Int("candidates", outcome.Evaluated),
		zap.Int("awarded", len(outcome.Awarded)),
	)

	return outcome, nil
}

// HandleTriggerAsync runs HandleTrigger on a background goroutine. Used
// by the intake endpoint, which acknowledges before evaluation runs.
func (s *achievementService) HandleTriggerAsync(childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async trigger evaluation",
					zap.Any("panic", r),
					zap.Int64("child_id", childID),
					zap.String("trigger", trigger),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.HandleTrigger(ctx, childID, trigger, payload, measures); err != nil {
			s.logger.Error("Async trigger evaluation failed",
				zap.Error(err),
				zap.Int64("child_id", childID),
				zap.String("trigger", trigger),
			)
		}
	}()
}

// award records the badge in the ledger and fans out the side effects.
// Returns false when the ledger already held the row; losing a race to
// another writer is a silent no-op, not a failure.
func (s *achievementService) award(ctx context.Context, child *models.Child, def *achievements.Definition, trigger string) (bool, error) {
	record := &models.ChildBadgeAward{
		ChildID:       child.ID,
		BadgeCode:     def.Code,
		EarnedContext: trigger,
	}

	err := s.badges.Award(ctx, record, def.Points)
	if err == repositories.ErrAlreadyAwarded {
		s.logger.Debug("Badge already awarded",
			zap.Int64("child_id", child.ID),
			zap.String("badge_code", def.Code),
		)
		return false, nil
	}
	if err != nil {
		return false, NewInternalError("failed to record badge award").WithContext(&ErrorContext{
			ChildID:  &child.ID,
			Resource: "badge",
			Metadata: map[string]interface{}{"badge_code": def.Code},
		})
	}

	s.logger.Info("Badge awarded",
		zap.Int64("child_id", child.ID),
		zap.String("badge_code", def.Code),
		zap.Int("points", def.Points),
		zap.String("rarity", def.Rarity.String()),
	)

	if s.eventBus != nil {
		event := events.NewBadgeAwardedEvent(child.ID, def.Code, def.Name, def.Points, def.Rarity.String())
		if err := s.eventBus.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("Failed to publish award event",
				zap.Error(err),
				zap.String("badge_code", def.Code),
			)
		}
	}

	if s.notifications != nil {
		if err := s.notifications.NotifyBadgeAwarded(ctx, child, def); err != nil {
			// The award is durable; a lost notification is recoverable
			// from the award ledger.
			s.logger.Warn("Failed to create award notification",
				zap.Error(err),
				zap.String("badge_code", def.Code),
			)
		}
	}

	return true, nil
}

// ===============================
// EVENT BUS WIRING
// ===============================

// RegisterEventHandlers subscribes the trigger pipeline to the event
// bus so producers can publish instead of calling the service directly.
func (s *achievementService) RegisterEventHandlers() error {
	if s.eventBus == nil {
		return nil
	}

	handler := events.NewEventHandlerFunc("achievement-trigger-handler", func(ctx context.Context, event events.Event) error {
		trigger, ok := event.(*events.TriggerRaisedEvent)
		if !ok {
			return nil
		}
		childID := trigger.GetChildID()
		if childID == nil {
			return fmt.Errorf("trigger event %s has no child", trigger.GetEventID())
		}

		_, err := s.HandleTrigger(ctx, *childID, trigger.Trigger, trigger.Payload, trigger.Measures)
		return err
	})

	return s.eventBus.SubscribePattern(events.TriggerEventPrefix+"*", handler)
}

// ===============================
// BADGE VIEWS
// ===============================

// GetChildBadges merges the catalog with the child's ledger and progress
// rows. Secret badges stay hidden until earned. Results are cached
// briefly; every trigger evaluation invalidates the entry.
func (s *achievementService) GetChildBadges(ctx context.Context, childID int64) ([]*models.ChildBadgeView, error) {
	cacheKey := fmt.Sprintf("badges:child:%d", childID)

	if s.cache != nil {
		var cached []*models.ChildBadgeView
		if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	if _, err := s.children.GetByID(ctx, childID); err != nil {
		if err == sql.ErrNoRows {
			return nil, EntityNotFoundError("child", childID)
		}
		return nil, NewInternalError("failed to load child")
	}

	awards, err := s.badges.ListAwards(ctx, childID)
	if err != nil {
		return nil, NewInternalError("failed to load award ledger")
	}
	awardsByCode := make(map[string]*models.ChildBadgeAward, len(awards))
	for _, award := range awards {
		awardsByCode[award.BadgeCode] = award
	}

	progress, err := s.badges.GetProgress(ctx, childID)
	if err != nil {
		return nil, NewInternalError("failed to load badge progress")
	}

	views := make([]*models.ChildBadgeView, 0, s.catalog.Size())
	for _, def := range s.catalog.List(true) {
		award, earned := awardsByCode[def.Code]
		if def.Secret && !earned {
			continue
		}

		view := &models.ChildBadgeView{
			Code:        def.Code,
			Name:        def.Name,
			Description: def.Description,
			Category:    string(def.Category),
			Rarity:      def.Rarity.String(),
			Points:      def.Points,
			Target:      achievements.Target(def),
			Earned:      earned,
		}

		if earned {
			earnedAt := award.EarnedAt
			view.EarnedAt = &earnedAt
			view.IsNew = award.IsNew
			view.IsDisplayed = award.IsDisplayed
		} else if current, ok := progress[def.Code]; ok {
			view.Progress = &current
		}

		views = append(views, view)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, views); err != nil {
			s.logger.Debug("Failed to cache badge views", zap.Error(err))
		}
	}

	return views, nil
}

// ListCatalog returns the public catalog. Secret badges are excluded so
// listing endpoints never leak unearned hidden badges.
func (s *achievementService) ListCatalog(ctx context.Context) []*achievements.Definition {
	return s.catalog.List(false)
}

// GetDefinition looks up one catalog entry by code.
func (s *achievementService) GetDefinition(ctx context.Context, code string) (*achievements.Definition, error) {
	def, ok := s.catalog.ByCode(code)
	if !ok {
		return nil, EntityNotFoundError("badge", code)
	}
	return def, nil
}

// ===============================
// PRESENTATION FLAGS
// ===============================

// MarkBadgeSeen clears the new-badge flag after the celebration screen.
func (s *achievementService) MarkBadgeSeen(ctx context.Context, childID int64, badgeCode string) error {
	if _, ok := s.catalog.ByCode(badgeCode); !ok {
		return EntityNotFoundError("badge", badgeCode)
	}

	if err := s.badges.MarkSeen(ctx, childID, badgeCode); err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("badge award", badgeCode)
		}
		return NewInternalError("failed to mark badge seen")
	}

	s.invalidateBadgeCache(ctx, childID)
	return nil
}

// SetBadgeDisplayed toggles whether the badge shows on the profile.
func (s *achievementService) SetBadgeDisplayed(ctx context.Context, childID int64, badgeCode string, displayed bool) error {
	if _, ok := s.catalog.ByCode(badgeCode); !ok {
		return EntityNotFoundError("badge", badgeCode)
	}

	if err := s.badges.SetDisplayed(ctx, childID, badgeCode, displayed); err != nil {
		if err == sql.ErrNoRows {
			return EntityNotFoundError("badge award", badgeCode)
		}
		return NewInternalError("failed to update badge display flag")
	}

	s.invalidateBadgeCache(ctx, childID)
	return nil
}

// ===============================
// HELPERS
// ===============================

func (s *achievementService) invalidateBadgeCache(ctx context.Context, childID int64) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("badges:child:%d", childID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Debug("Failed to invalidate badge cache",
			zap.Error(err),
			zap.Int64("child_id", childID),
		)
	}
}
