package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// Payable is an open purchase order with an outstanding balance and a due date.
type Payable struct {
	ID                string
	PONumber          string
	SupplierName      string
	TotalAmount       float64
	OutstandingAmount float64
	Currency          string
	DueDate           time.Time
}

// ListPayablesDue returns a tenant's open purchase orders with an outstanding balance
// that are due on or before horizon, most overdue first.
func (db *DB) ListPayablesDue(ctx context.Context, tenantID string, horizon time.Time, limit int) ([]*Payable, error) {
	query := `
		SELECT id, po_number, supplier_name, total_amount::float8,
		       (total_amount - paid_amount)::float8, currency, due_date
		FROM purchase_orders
		WHERE tenant_id = $1
		  AND status <> 'CANCELLED'
		  AND due_date IS NOT NULL
		  AND due_date <= $2
		  AND total_amount - paid_amount > 0
		ORDER BY due_date ASC, po_number ASC
		LIMIT $3
	`
	rows, err := db.conn.QueryContext(ctx, query, tenantID, horizon, limit)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list payables due", Err: err}
	}
	defer rows.Close()

	var out []*Payable
	for rows.Next() {
		var (
			p        Payable
			currency sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PONumber, &p.SupplierName, &p.TotalAmount, &p.OutstandingAmount, &currency, &p.DueDate); err != nil {
			return nil, &inbox.PersistenceError{Op: "scan payable", Err: err}
		}
		p.Currency = currency.String
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, &inbox.PersistenceError{Op: "list payables due", Err: err}
	}
	return out, nil
}
