package inbox

import "strings"

// Filter selects which notifications an inbox listing returns.
type Filter string

const (
	FilterActive   Filter = "ACTIVE"
	FilterUnread   Filter = "UNREAD"
	FilterResolved Filter = "RESOLVED"
	FilterAll      Filter = "ALL"
)

// Inbox listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Signal fetch limits per tenant.
const (
	DefaultSignalLimit = 200
	MinSignalLimit     = 10
	MaxSignalLimit     = 500
)

// ParseFilter maps a raw filter value to a Filter. Unknown or empty values default to ACTIVE.
func ParseFilter(raw string) Filter {
	switch f := Filter(strings.ToUpper(strings.TrimSpace(raw))); f {
	case FilterActive, FilterUnread, FilterResolved, FilterAll:
		return f
	default:
		return FilterActive
	}
}

// ClampListLimit clamps an inbox page size to [1, MaxListLimit]; zero or negative means default.
func ClampListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ClampSignalLimit clamps a per-tenant signal fetch limit to [MinSignalLimit, MaxSignalLimit];
// zero or negative means default.
func ClampSignalLimit(limit int) int {
	if limit <= 0 {
		return DefaultSignalLimit
	}
	if limit < MinSignalLimit {
		return MinSignalLimit
	}
	if limit > MaxSignalLimit {
		return MaxSignalLimit
	}
	return limit
}
