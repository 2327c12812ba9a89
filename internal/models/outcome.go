package models

import "time"

// Machine-readable reasons for a notification that was not delivered.
const (
	ReasonDuplicate    = "duplicate"
	ReasonRateLimited  = "rate_limited"
	ReasonUnrecognised = "unrecognised event type"
	ReasonEmptyPayload = "empty payload"
)

// RateLimitInfo describes the recipient's rate-limit state.
// Nil Limit and Remaining mean the tier is unlimited.
type RateLimitInfo struct {
	Limit             *int `json:"limit"`
	Remaining         *int `json:"remaining"`
	RetryAfterSeconds int  `json:"retry_after_seconds,omitempty"`
}

// Unlimited reports whether the info describes an uncapped tier.
func (r RateLimitInfo) Unlimited() bool { return r.Limit == nil }

// DeliveryReceipt is issued by the delivery sink.
type DeliveryReceipt struct {
	Delivered      bool      `json:"delivered"`
	Reason         string    `json:"reason,omitempty"`
	DeliveryID     string    `json:"delivery_id,omitempty"`
	NotificationID string    `json:"notification_id,omitempty"`
	EventType      string    `json:"type,omitempty"`
	Priority       string    `json:"priority,omitempty"`
	Channels       []string  `json:"channels,omitempty"`
	Recipient      string    `json:"recipient,omitempty"`
	DeliveredAt    time.Time `json:"delivered_at,omitzero"`
}

// EscalationResult summarises the paging decision taken for an event.
type EscalationResult struct {
	Targets    []string `json:"targets"`
	Suppressed []string `json:"suppressed,omitempty"`
	Recorded   bool     `json:"recorded"`
}

// Outcome is the pipeline's single decision for one event.
type Outcome struct {
	Delivered  bool              `json:"delivered"`
	Reason     string            `json:"reason,omitempty"`
	RateLimit  *RateLimitInfo    `json:"rate_limit,omitempty"`
	Receipt    *DeliveryReceipt  `json:"receipt,omitempty"`
	Escalation *EscalationResult `json:"escalation,omitempty"`
}

// Rejected builds a not-delivered outcome.
func Rejected(reason string) Outcome {
	return Outcome{Delivered: false, Reason: reason}
}
