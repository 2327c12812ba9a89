package queue

import "notify-pipeline/internal/models"

// NotificationMessage is published once a notification has been delivered
// to the store, for channel fan-out.
type NotificationMessage struct {
	DeliveryID   string              `json:"delivery_id"`
	Notification models.Notification `json:"notification"`
}

// EscalationMessage is published for every recorded escalation so the worker
// can page the targets.
type EscalationMessage struct {
	Escalation models.EscalationLogEntry `json:"escalation"`
	Priority   string                    `json:"priority"`
	Subject    string                    `json:"subject"`
	Body       string                    `json:"body"`
}
