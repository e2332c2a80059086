package database

import (
	"context"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// PurchaseOrder is a row of purchase_orders as written by the seed command.
type PurchaseOrder struct {
	ID           string
	TenantID     string
	PONumber     string
	SupplierName string
	TotalAmount  float64
	PaidAmount   float64
	Currency     string // empty falls back to the tenant currency
	DueDate      *time.Time
	Status       string
}

// UpsertTenant creates a tenant or updates its name and currency.
func (db *DB) UpsertTenant(ctx context.Context, tenantID, name, currency string) error {
	query := `
		INSERT INTO tenants (tenant_id, name, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE
		SET name = EXCLUDED.name, currency = EXCLUDED.currency
	`
	if _, err := db.conn.ExecContext(ctx, query, tenantID, name, currency); err != nil {
		return &inbox.PersistenceError{Op: "upsert tenant", Err: err}
	}
	return nil
}

// UpsertPurchaseOrder writes a purchase order, replacing any row with the same id.
func (db *DB) UpsertPurchaseOrder(ctx context.Context, po *PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders
			(id, tenant_id, po_number, supplier_name, total_amount, paid_amount, currency, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET po_number = EXCLUDED.po_number,
		    supplier_name = EXCLUDED.supplier_name,
		    total_amount = EXCLUDED.total_amount,
		    paid_amount = EXCLUDED.paid_amount,
		    currency = EXCLUDED.currency,
		    due_date = EXCLUDED.due_date,
		    status = EXCLUDED.status
	`
	_, err := db.conn.ExecContext(ctx, query,
		po.ID, po.TenantID, po.PONumber, po.SupplierName,
		po.TotalAmount, po.PaidAmount, nullString(po.Currency), nullTime(po.DueDate), po.Status,
	)
	if err != nil {
		return &inbox.PersistenceError{Op: "upsert purchase order", Err: err}
	}
	return nil
}

// ResetTenant deletes the tenant's inbox records, rules and purchase orders.
// The tenant row itself is kept.
func (db *DB) ResetTenant(ctx context.Context, tenantID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &inbox.PersistenceError{Op: "reset tenant", Err: err}
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM notification_inbox WHERE tenant_id = $1`,
		`DELETE FROM notification_rules WHERE tenant_id = $1`,
		`DELETE FROM purchase_orders WHERE tenant_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, tenantID); err != nil {
			return &inbox.PersistenceError{Op: "reset tenant", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &inbox.PersistenceError{Op: "reset tenant", Err: err}
	}
	return nil
}
