package inbox

import (
	"strings"
	"time"
)

const dueDateLayout = "2006-01-02"

// DedupeKey derives the stable identity of a signal incarnation from its topic, entity
// and coarse state (due status plus due date truncated to the day). Fine-grained fields
// such as amounts never take part.
func DedupeKey(topic Topic, entityID, dueStatus string, dueDate *time.Time) string {
	day := "-"
	if dueDate != nil {
		day = dueDate.UTC().Format(dueDateLayout)
	}
	status := dueStatus
	if status == "" {
		status = "-"
	}
	return strings.Join([]string{string(topic), entityID, status, day}, ":")
}

// SignalDedupeKey is DedupeKey applied to a signal.
func SignalDedupeKey(topic Topic, s *Signal) string {
	return DedupeKey(topic, s.EntityID, s.DueStatus, s.DueDate)
}
