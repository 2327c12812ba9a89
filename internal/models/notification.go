package models

import "time"

// Metadata is the display payload attached to a notification.
type Metadata struct {
	Subject  string `dynamodbav:"subject" json:"subject"`
	Body     string `dynamodbav:"body" json:"body"`
	Priority string `dynamodbav:"priority" json:"priority"`
	TaskID   any    `dynamodbav:"task_id" json:"task_id"`
	Project  any    `dynamodbav:"project" json:"project"`
}

// Notification is built fresh per accepted event and never mutated afterwards.
type Notification struct {
	NotificationID string         `dynamodbav:"notification_id" json:"notification_id"`
	EventID        string         `dynamodbav:"event_id" json:"event_id,omitempty"`
	EventType      string         `dynamodbav:"event_type" json:"type"`
	Priority       string         `dynamodbav:"priority" json:"priority"`
	Recipient      string         `dynamodbav:"recipient" json:"recipient"`
	RecipientEmail string         `dynamodbav:"recipient_email,omitempty" json:"recipient_email,omitempty"`
	Channels       []string       `dynamodbav:"channels" json:"channels"`
	Metadata       Metadata       `dynamodbav:"metadata" json:"metadata"`
	EventData      map[string]any `dynamodbav:"event_data" json:"event_data"`
	CreatedAt      time.Time      `dynamodbav:"created_at" json:"created_at"`
}

// EscalationLogEntry is appended once per recorded escalation.
type EscalationLogEntry struct {
	EventID     string    `dynamodbav:"event_id" json:"event_id"`
	EventType   string    `dynamodbav:"event_type" json:"event_type,omitempty"`
	Targets     []string  `dynamodbav:"targets" json:"targets"`
	EscalatedAt time.Time `dynamodbav:"escalated_at" json:"escalated_at"`
}
