package builder

import (
	"fmt"

	"notify-pipeline/internal/models"
)

func buildMetadata(eventType, recipient string, data map[string]any, priority string) models.Metadata {
	return models.Metadata{
		Subject:  Truncate(formatSubject(eventType, data), MaxSubjectLength),
		Body:     formatBody(eventType, recipient, data),
		Priority: priority,
		TaskID:   data["task_id"],
		Project:  data["project"],
	}
}

func formatSubject(eventType string, data map[string]any) string {
	return fmt.Sprintf("[%s] %s", eventType, field(data, "task_id"))
}

func formatBody(eventType, recipient string, data map[string]any) string {
	return fmt.Sprintf("Hi %s, %s for task %s in project %s.",
		orUnknown(recipient), eventType, field(data, "task_id"), field(data, "project"))
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func field(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return unknown
	}
	return orUnknown(fmt.Sprint(v))
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
