// Package events defines the progression lifecycle events published for the
// surrounding page and any other consumer.
package events

import (
	"time"
)

type EventType string

// Kafka topic.
const Topic = "fasegate.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TaskToggledEvent          EventType = "task.toggled"
	PhaseNotificationEvent    EventType = "phase.notification.sent"
	PhaseAdvancedEvent        EventType = "phase.advanced"
	PhaseRewoundEvent         EventType = "phase.rewound"
	ProductStatusUpdatedEvent EventType = "product.status.updated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	ProductID int            `json:"product_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskToggled is published after a completion toggle is persisted.
type TaskToggled struct {
	BaseEvent

	PhaseID   int  `json:"phase_id"`
	TaskID    int  `json:"task_id"`
	Completed bool `json:"completed"`
	UserID    int  `json:"user_id,omitempty"`
}

func (e TaskToggled) GetType() EventType {
	return TaskToggledEvent
}

// PhaseNotification is published after the supervisor mail hand-off
// succeeded, before the status update. Consumers must tolerate a
// notification without a following status update.
type PhaseNotification struct {
	BaseEvent

	PhaseID   int      `json:"phase_id"`
	PhaseName string   `json:"phase_name"`
	Recipient string   `json:"recipient"`
	TaskNames []string `json:"task_names"`
}

func (e PhaseNotification) GetType() EventType {
	return PhaseNotificationEvent
}

// PhaseAdvanced is published when a session's active phase moves forward,
// by notification or by a confirmed supervisor transition.
type PhaseAdvanced struct {
	BaseEvent

	FromPhaseID int `json:"from_phase_id"`
	ToPhaseID   int `json:"to_phase_id"`
}

func (e PhaseAdvanced) GetType() EventType {
	return PhaseAdvancedEvent
}

// PhaseRewound is published on a privileged supervisor rewind, after the
// destination phase's records were reset.
type PhaseRewound struct {
	BaseEvent

	FromPhaseID int `json:"from_phase_id"`
	ToPhaseID   int `json:"to_phase_id"`
}

func (e PhaseRewound) GetType() EventType {
	return PhaseRewoundEvent
}

// ProductStatusUpdated is published after the product's estadoId was
// advanced to the matched status.
type ProductStatusUpdated struct {
	BaseEvent

	StatusID   int    `json:"status_id"`
	StatusName string `json:"status_name"`
	PhaseID    int    `json:"phase_id"`
}

func (e ProductStatusUpdated) GetType() EventType {
	return ProductStatusUpdatedEvent
}
