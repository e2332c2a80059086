// Package seed generates tenants and purchase orders for local runs of the inbox.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/database"
)

var (
	suppliers  = []string{"Acme Supplies", "Globex", "Initech", "Umbrella Foods", "Stark Parts", "Wayne Logistics", "Hooli Paper", "Vandelay Imports"}
	currencies = []string{"USD", "EUR", "GBP", "ILS"}
)

// Store is the write access the seeder needs.
type Store interface {
	UpsertTenant(ctx context.Context, tenantID, name, currency string) error
	ResetTenant(ctx context.Context, tenantID string) error
	UpsertPurchaseOrder(ctx context.Context, po *database.PurchaseOrder) error
}

// Options control the generated data set.
type Options struct {
	Tenants         int
	OrdersPerTenant int
	Seed            int64 // same seed, same data
	Reset           bool  // delete existing tenant data first
}

// Tenant is one generated tenant and its orders.
type Tenant struct {
	ID       string
	Name     string
	Currency string
	Orders   []*database.PurchaseOrder
}

// Stats counts what Run wrote.
type Stats struct {
	Tenants int
	Orders  int
}

// Generate builds the data set for opts. Due dates fall within 30 days of today, so
// the payables source sees a mix of overdue, due soon and not yet due orders.
func Generate(opts Options, today time.Time) []Tenant {
	rng := rand.New(rand.NewSource(opts.Seed))
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	tenants := make([]Tenant, 0, opts.Tenants)
	for i := 1; i <= opts.Tenants; i++ {
		t := Tenant{
			ID:       fmt.Sprintf("tenant-%03d", i),
			Name:     fmt.Sprintf("Store %d", i),
			Currency: currencies[rng.Intn(len(currencies))],
		}
		for j := 1; j <= opts.OrdersPerTenant; j++ {
			t.Orders = append(t.Orders, generateOrder(rng, t.ID, i, j, today))
		}
		tenants = append(tenants, t)
	}
	return tenants
}

func generateOrder(rng *rand.Rand, tenantID string, tenant, n int, today time.Time) *database.PurchaseOrder {
	total := math.Round((100+rng.Float64()*49900)*100) / 100
	po := &database.PurchaseOrder{
		ID:           fmt.Sprintf("%s-po-%04d", tenantID, n),
		TenantID:     tenantID,
		PONumber:     fmt.Sprintf("PO-%03d-%04d", tenant, n),
		SupplierName: suppliers[rng.Intn(len(suppliers))],
		TotalAmount:  total,
		Status:       "OPEN",
	}

	// 1 in 20 has no due date.
	if rng.Intn(20) != 0 {
		due := today.AddDate(0, 0, rng.Intn(61)-30)
		po.DueDate = &due
	}

	switch r := rng.Intn(10); {
	case r < 2:
		po.PaidAmount = total
		po.Status = "PAID"
	case r < 4:
		po.PaidAmount = math.Round(total*rng.Float64()*100) / 100
	case r == 4:
		po.Status = "CANCELLED"
	}

	// Some orders are billed in a currency other than the tenant's.
	if rng.Intn(10) == 0 {
		po.Currency = currencies[rng.Intn(len(currencies))]
	}
	return po
}

// Run writes tenants to store. A failing order is logged and skipped; a failing tenant
// aborts the run.
func Run(ctx context.Context, store Store, tenants []Tenant, reset bool) (Stats, error) {
	var stats Stats
	for _, t := range tenants {
		if err := store.UpsertTenant(ctx, t.ID, t.Name, t.Currency); err != nil {
			return stats, fmt.Errorf("failed to create tenant %s: %w", t.ID, err)
		}
		if reset {
			if err := store.ResetTenant(ctx, t.ID); err != nil {
				return stats, fmt.Errorf("failed to reset tenant %s: %w", t.ID, err)
			}
		}
		stats.Tenants++

		for _, po := range t.Orders {
			if err := store.UpsertPurchaseOrder(ctx, po); err != nil {
				slog.Warn("Failed to create purchase order", "tenant_id", t.ID, "po_number", po.PONumber, "error", err)
				continue
			}
			stats.Orders++
		}

		if stats.Tenants%10 == 0 {
			slog.Info("Seed progress", "tenants", stats.Tenants, "orders", stats.Orders)
		}
	}
	return stats, nil
}
