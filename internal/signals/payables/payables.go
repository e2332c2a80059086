// Package payables produces PURCHASE_AP_DUE signals from open purchase orders.
package payables

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/database"
	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/signals"
)

// EntityType is the entity type of every signal this source emits.
const EntityType = "purchase_order"

// DefaultDueSoonDays is the due-soon window used when none is configured.
const DefaultDueSoonDays = 7

// Store is the read access the source needs.
type Store interface {
	ListPayablesDue(ctx context.Context, tenantID string, horizon time.Time, limit int) ([]*database.Payable, error)
	GetTenantCurrency(ctx context.Context, tenantID string) (string, error)
}

// Source computes due and overdue payables.
type Source struct {
	store       Store
	dueSoonDays int
	now         func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithDueSoonDays sets the due-soon window in days.
func WithDueSoonDays(days int) Option {
	return func(s *Source) {
		if days > 0 {
			s.dueSoonDays = days
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// New creates a payables source.
func New(store Store, opts ...Option) *Source {
	s := &Source{store: store, dueSoonDays: DefaultDueSoonDays, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ signals.Source = (*Source)(nil)

// ListSignals implements signals.Source.
func (s *Source) ListSignals(ctx context.Context, tenantID string, limit int) (*signals.Result, error) {
	today := startOfDay(s.now())
	horizon := today.AddDate(0, 0, s.dueSoonDays)

	currency, err := s.store.GetTenantCurrency(ctx, tenantID)
	if err != nil {
		if !inbox.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load tenant currency: %w", err)
		}
		slog.Warn("Tenant has no currency configured", "tenant_id", tenantID)
	}

	rows, err := s.store.ListPayablesDue(ctx, tenantID, horizon, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payables: %w", err)
	}

	items := make([]inbox.Signal, 0, len(rows))
	for _, p := range rows {
		items = append(items, toSignal(p, today, currency))
	}
	return &signals.Result{Items: items, Currency: currency}, nil
}

func toSignal(p *database.Payable, today time.Time, tenantCurrency string) inbox.Signal {
	currency := p.Currency
	if currency == "" {
		currency = tenantCurrency
	}
	due := startOfDay(p.DueDate)

	status := inbox.DueStatusDueSoon
	severity := inbox.SeverityWarning
	title := fmt.Sprintf("PO %s due soon", p.PONumber)
	if due.Before(today) {
		status = inbox.DueStatusOverdue
		severity = inbox.SeverityCritical
		title = fmt.Sprintf("PO %s overdue", p.PONumber)
	}

	message := fmt.Sprintf("%s: %.2f %s outstanding, due %s",
		p.SupplierName, p.OutstandingAmount, currency, due.Format("2006-01-02"))

	return inbox.Signal{
		EntityType: EntityType,
		EntityID:   p.PONumber,
		Title:      title,
		Message:    message,
		Severity:   severity,
		DueStatus:  status,
		DueDate:    &due,
		Payload: &inbox.APDuePayload{
			PONumber:          p.PONumber,
			SupplierName:      p.SupplierName,
			OutstandingAmount: p.OutstandingAmount,
			TotalAmount:       p.TotalAmount,
			Currency:          currency,
		},
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
