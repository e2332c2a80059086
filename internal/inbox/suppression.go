package inbox

import "time"

// IsSuppressed reports whether a rule suppresses its entity at the given instant.
// A nil rule never suppresses. Expired mute/snooze windows behave as no rule.
func IsSuppressed(rule *Rule, now time.Time) bool {
	if rule == nil {
		return false
	}
	if rule.MutedForever {
		return true
	}
	if rule.MutedUntil != nil && rule.MutedUntil.After(now) {
		return true
	}
	if rule.SnoozedUntil != nil && rule.SnoozedUntil.After(now) {
		return true
	}
	return false
}
