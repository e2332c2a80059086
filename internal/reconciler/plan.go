package reconciler

import (
	"log/slog"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// Counters holds the outcome of one reconciliation pass.
type Counters struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Reopened   int `json:"reopened"`
	Resolved   int `json:"resolved"`
	Suppressed int `json:"suppressed"`
	// SuppressedResolved counts active records closed because their signal is suppressed.
	// They are reported here and in Suppressed, never in Resolved.
	SuppressedResolved int `json:"suppressed_resolved"`
	SourceSignalCount  int `json:"source_signal_count"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Reopened += other.Reopened
	c.Resolved += other.Resolved
	c.Suppressed += other.Suppressed
	c.SuppressedResolved += other.SuppressedResolved
	c.SourceSignalCount += other.SourceSignalCount
}

// Changed reports whether the pass wrote anything visible to the inbox.
func (c Counters) Changed() bool {
	return c.Created+c.Updated+c.Reopened+c.Resolved+c.SuppressedResolved > 0
}

// Plan is the set of writes computed by one pass. Resolutions of vanished records
// are kept apart from suppression resolutions and are only decided once every signal
// has been processed.
type Plan struct {
	Creates          []*inbox.Notification
	Updates          []*inbox.Notification
	Touches          []string
	SuppressResolves []string
	VanishedResolves []string
	Counters         Counters
}

// PlanInput is everything a pass reads before deciding.
type PlanInput struct {
	TenantID     string
	Topic        inbox.Topic
	Signals      []inbox.Signal
	Existing     []*inbox.Notification
	Rules        []*inbox.Rule
	ReopenFields []string
	Now          time.Time
	NewID        func() string
}

func ruleKey(entityType, entityID string) string {
	return entityType + "\x00" + entityID
}

// BuildPlan diffs the current signals against the stored records and rules.
// It performs no I/O and does not mutate the records in Existing.
func BuildPlan(in PlanInput) *Plan {
	plan := &Plan{}
	plan.Counters.SourceSignalCount = len(in.Signals)

	byKey := make(map[string]*inbox.Notification, len(in.Existing))
	for _, n := range in.Existing {
		byKey[n.DedupeKey] = n
	}
	rules := make(map[string]*inbox.Rule, len(in.Rules))
	for _, r := range in.Rules {
		rules[ruleKey(r.EntityType, r.EntityID)] = r
	}
	reopenOn := make(map[string]struct{}, len(in.ReopenFields))
	for _, f := range in.ReopenFields {
		reopenOn[f] = struct{}{}
	}

	seen := make(map[string]struct{}, len(in.Signals))
	for i := range in.Signals {
		s := in.Signals[i]
		if s.Payload == nil {
			s.Payload = inbox.NewPayload(in.Topic)
		}
		sig := &s
		key := inbox.SignalDedupeKey(in.Topic, sig)
		if _, dup := seen[key]; dup {
			slog.Debug("Duplicate signal in source result, skipping",
				"tenant_id", in.TenantID,
				"topic", in.Topic,
				"dedupe_key", key,
			)
			continue
		}
		seen[key] = struct{}{}

		existing := byKey[key]

		if inbox.IsSuppressed(rules[ruleKey(sig.EntityType, sig.EntityID)], in.Now) {
			plan.Counters.Suppressed++
			if existing != nil && existing.Status != inbox.StatusResolved {
				plan.SuppressResolves = append(plan.SuppressResolves, existing.ID)
			}
			continue
		}

		if existing == nil {
			plan.Creates = append(plan.Creates, newRecord(in, sig, key))
			plan.Counters.Created++
			continue
		}

		next, outcome := refresh(existing, sig, reopenOn, in.Now)
		switch outcome {
		case outcomeReopened:
			plan.Updates = append(plan.Updates, next)
			plan.Counters.Reopened++
		case outcomeUpdated:
			plan.Updates = append(plan.Updates, next)
			plan.Counters.Updated++
		default:
			plan.Touches = append(plan.Touches, existing.ID)
		}
	}

	for _, n := range in.Existing {
		if _, ok := seen[n.DedupeKey]; ok {
			continue
		}
		if n.Status == inbox.StatusResolved {
			continue
		}
		plan.VanishedResolves = append(plan.VanishedResolves, n.ID)
	}
	plan.Counters.Resolved = len(plan.VanishedResolves)
	plan.Counters.SuppressedResolved = len(plan.SuppressResolves)

	return plan
}

func newRecord(in PlanInput, sig *inbox.Signal, key string) *inbox.Notification {
	return &inbox.Notification{
		ID:              in.NewID(),
		TenantID:        in.TenantID,
		Topic:           in.Topic,
		EntityType:      sig.EntityType,
		EntityID:        sig.EntityID,
		DedupeKey:       key,
		Title:           sig.Title,
		Message:         sig.Message,
		Severity:        sig.Severity,
		Status:          inbox.StatusUnread,
		DueStatus:       sig.DueStatus,
		DueDate:         sig.DueDate,
		Payload:         sig.Payload,
		FirstDetectedAt: in.Now,
		LastDetectedAt:  in.Now,
	}
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeUpdated
	outcomeReopened
)

// refresh computes the next state of an existing, unsuppressed record whose signal is
// still present. The returned copy always carries the refreshed rendering.
func refresh(cur *inbox.Notification, sig *inbox.Signal, reopenOn map[string]struct{}, now time.Time) (*inbox.Notification, outcome) {
	coarseChanged := cur.DueStatus != sig.DueStatus || !sameTime(cur.DueDate, sig.DueDate)

	var payloadChanged, fineChanged bool
	if sig.Payload != nil {
		for _, f := range sig.Payload.Diff(cur.Payload) {
			payloadChanged = true
			if _, ok := reopenOn[f]; ok {
				fineChanged = true
			}
		}
	} else if cur.Payload != nil {
		payloadChanged = true
	}
	fineChanged = fineChanged || coarseChanged

	wasResolved := cur.Status == inbox.StatusResolved

	next := *cur
	next.Title = sig.Title
	next.Message = sig.Message
	next.Severity = sig.Severity
	next.DueStatus = sig.DueStatus
	next.DueDate = sig.DueDate
	next.Payload = sig.Payload
	next.LastDetectedAt = now
	next.ResolvedAt = nil

	if wasResolved || fineChanged {
		next.Status = inbox.StatusUnread
	}
	if next.Status == inbox.StatusUnread {
		next.ReadAt = nil
	} else if next.ReadAt == nil {
		// a READ record must carry a read timestamp
		t := now
		next.ReadAt = &t
	}

	if wasResolved || fineChanged {
		return &next, outcomeReopened
	}

	dirty := payloadChanged ||
		cur.Title != next.Title ||
		cur.Message != next.Message ||
		cur.Severity != next.Severity ||
		cur.Status != next.Status ||
		cur.ResolvedAt != nil ||
		!sameTime(cur.ReadAt, next.ReadAt)
	if dirty {
		return &next, outcomeUpdated
	}
	return &next, outcomeUnchanged
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
