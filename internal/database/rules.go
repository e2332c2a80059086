package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

const ruleColumns = `tenant_id, topic, entity_type, entity_id, muted_forever, muted_until, snoozed_until,
		note, updated_by, created_at, updated_at`

func scanRule(row rowScanner) (*inbox.Rule, error) {
	var (
		r            inbox.Rule
		mutedUntil   sql.NullTime
		snoozedUntil sql.NullTime
	)
	if err := row.Scan(
		&r.TenantID,
		&r.Topic,
		&r.EntityType,
		&r.EntityID,
		&r.MutedForever,
		&mutedUntil,
		&snoozedUntil,
		&r.Note,
		&r.UpdatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.MutedUntil = timePtr(mutedUntil)
	r.SnoozedUntil = timePtr(snoozedUntil)
	return &r, nil
}

// ListRules retrieves a tenant's rules, optionally filtered by topic.
func (db *DB) ListRules(ctx context.Context, tenantID string, topic *inbox.Topic) ([]*inbox.Rule, error) {
	var query string
	var args []any

	if topic != nil {
		query = `
			SELECT ` + ruleColumns + `
			FROM notification_rules
			WHERE tenant_id = $1 AND topic = $2
			ORDER BY updated_at DESC
		`
		args = []any{tenantID, string(*topic)}
	} else {
		query = `
			SELECT ` + ruleColumns + `
			FROM notification_rules
			WHERE tenant_id = $1
			ORDER BY updated_at DESC
		`
		args = []any{tenantID}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list rules", Err: err}
	}
	defer rows.Close()

	var rules []*inbox.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, &inbox.PersistenceError{Op: "scan rule", Err: err}
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &inbox.PersistenceError{Op: "list rules", Err: err}
	}
	return rules, nil
}

// ListTopicRules retrieves a tenant's rules for one topic.
func (db *DB) ListTopicRules(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Rule, error) {
	return db.ListRules(ctx, tenantID, &topic)
}

// UpsertRule inserts or replaces the rule for its entity. Every mode column is
// overwritten so the stored rule carries exactly the modes of r.
func (db *DB) UpsertRule(ctx context.Context, r *inbox.Rule) (*inbox.Rule, error) {
	query := `
		INSERT INTO notification_rules (tenant_id, topic, entity_type, entity_id, muted_forever, muted_until,
			snoozed_until, note, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (tenant_id, topic, entity_type, entity_id) DO UPDATE
		SET muted_forever = EXCLUDED.muted_forever,
		    muted_until = EXCLUDED.muted_until,
		    snoozed_until = EXCLUDED.snoozed_until,
		    note = EXCLUDED.note,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = NOW()
		RETURNING ` + ruleColumns + `
	`
	saved, err := scanRule(db.conn.QueryRowContext(ctx, query,
		r.TenantID,
		string(r.Topic),
		r.EntityType,
		r.EntityID,
		r.MutedForever,
		nullTime(r.MutedUntil),
		nullTime(r.SnoozedUntil),
		r.Note,
		r.UpdatedBy,
	))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" { // check_violation
			return nil, inbox.NewValidationError("mode", "rule must set at least one suppression mode")
		}
		return nil, &inbox.PersistenceError{Op: "upsert rule", Err: err}
	}
	return saved, nil
}

// DeleteRule deletes the rule for one entity. It reports whether a rule existed.
func (db *DB) DeleteRule(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string) (bool, error) {
	query := `
		DELETE FROM notification_rules
		WHERE tenant_id = $1 AND topic = $2 AND entity_type = $3 AND entity_id = $4
	`
	result, err := db.conn.ExecContext(ctx, query, tenantID, string(topic), entityType, entityID)
	if err != nil {
		return false, &inbox.PersistenceError{Op: "delete rule", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, &inbox.PersistenceError{Op: "delete rule", Err: err}
	}
	return n > 0, nil
}
