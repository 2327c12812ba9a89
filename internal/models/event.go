package models

import "time"

// Event is a validated domain event handed to the pipeline by the intake layer.
// It is never mutated once ingested.
type Event struct {
	EventID             string         `dynamodbav:"event_id" json:"event_id"`
	EventType           string         `dynamodbav:"event_type" json:"event_type"`
	Assignee            string         `dynamodbav:"assignee" json:"assignee"`
	Data                map[string]any `dynamodbav:"data" json:"data"`
	AssigneePreferences map[string]any `dynamodbav:"assignee_preferences" json:"assignee_preferences"`
	ReceivedAt          time.Time      `dynamodbav:"received_at" json:"received_at"`
}

// Field returns the top-level event field named key, or nil.
// Data and assignee_preferences are returned as maps so dot paths can descend into them.
func (e Event) Field(key string) any {
	switch key {
	case "event_id":
		return e.EventID
	case "event_type":
		return e.EventType
	case "assignee":
		return e.Assignee
	case "data":
		return e.Data
	case "assignee_preferences":
		return e.AssigneePreferences
	case "received_at":
		if e.ReceivedAt.IsZero() {
			return nil
		}
		return e.ReceivedAt
	}
	return nil
}

// Bool reads a boolean flag out of a loosely typed map. Missing keys and
// non-bool values count as false.
func Bool(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

// String reads a string out of a loosely typed map. Missing keys yield "".
// Non-string scalars are not coerced.
func String(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
