package events

import "time"

// Event type prefixes. Trigger events are published as
// "trigger.<trigger>" so achievement handlers can subscribe with a
// single "trigger.*" pattern.
const (
	TriggerEventPrefix = "trigger."

	TypeBadgeAwarded    = "badge.awarded"
	TypeBadgeProgressed = "badge.progressed"
	TypeChildCreated    = "child.created"
)

// TriggerRaisedEvent carries a domain happening that may move badge
// progress: a deposit, a chore approval, a streak rollup and so on.
type TriggerRaisedEvent struct {
	BaseEvent
	Trigger  string                 `json:"trigger"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Measures map[string]float64     `json:"measures,omitempty"`
}

// NewTriggerRaisedEvent creates a trigger event for a child. measures
// holds the absolute values the producer reports alongside the event,
// payload holds one-shot facts like first_deposit.
func NewTriggerRaisedEvent(childID int64, trigger string, payload map[string]interface{}, measures map[string]float64) *TriggerRaisedEvent {
	return &TriggerRaisedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: TriggerEventPrefix + trigger,
			Timestamp: time.Now(),
			ChildID:   &childID,
		},
		Trigger:  trigger,
		Payload:  payload,
		Measures: measures,
	}
}

// BadgeAwardedEvent is emitted after an award has been durably recorded.
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeCode string    `json:"badge_code"`
	BadgeName string    `json:"badge_name"`
	Points    int       `json:"points"`
	Rarity    string    `json:"rarity"`
	AwardedAt time.Time `json:"awarded_at"`
}

// NewBadgeAwardedEvent creates a badge awarded event.
func NewBadgeAwardedEvent(childID int64, badgeCode, badgeName string, points int, rarity string) *BadgeAwardedEvent {
	return &BadgeAwardedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: TypeBadgeAwarded,
			Timestamp: time.Now(),
			ChildID:   &childID,
		},
		BadgeCode: badgeCode,
		BadgeName: badgeName,
		Points:    points,
		Rarity:    rarity,
		AwardedAt: time.Now(),
	}
}

// BadgeProgressedEvent is emitted when stored progress for a badge
// changes without reaching the award threshold.
type BadgeProgressedEvent struct {
	BaseEvent
	BadgeCode string  `json:"badge_code"`
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
}

// NewBadgeProgressedEvent creates a badge progressed event.
func NewBadgeProgressedEvent(childID int64, badgeCode string, current, target float64) *BadgeProgressedEvent {
	return &BadgeProgressedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: TypeBadgeProgressed,
			Timestamp: time.Now(),
			ChildID:   &childID,
		},
		BadgeCode: badgeCode,
		Current:   current,
		Target:    target,
	}
}

// ChildCreatedEvent is emitted when a child account is opened.
type ChildCreatedEvent struct {
	BaseEvent
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChildCreatedEvent creates a child created event.
func NewChildCreatedEvent(childID, familyID int64, name string) *ChildCreatedEvent {
	return &ChildCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: TypeChildCreated,
			Timestamp: time.Now(),
			ChildID:   &childID,
		},
		FamilyID:  familyID,
		Name:      name,
		CreatedAt: time.Now(),
	}
}
