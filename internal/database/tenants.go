package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// ListTenantIDs returns every known tenant id in a stable order.
func (db *DB) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tenant_id FROM tenants ORDER BY tenant_id`)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list tenants", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &inbox.PersistenceError{Op: "scan tenant", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &inbox.PersistenceError{Op: "list tenants", Err: err}
	}
	return ids, nil
}

// GetTenantCurrency returns the tenant's default currency.
func (db *DB) GetTenantCurrency(ctx context.Context, tenantID string) (string, error) {
	var currency string
	err := db.conn.QueryRowContext(ctx, `SELECT currency FROM tenants WHERE tenant_id = $1`, tenantID).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("tenant %s: %w", tenantID, inbox.ErrNotFound)
	}
	if err != nil {
		return "", &inbox.PersistenceError{Op: "get tenant currency", Err: err}
	}
	return currency, nil
}
