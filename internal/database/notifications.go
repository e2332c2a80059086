package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// invalidTextRepresentation is raised when an id is not a valid UUID.
const invalidTextRepresentation pq.ErrorCode = "22P02"

const notificationColumns = `id, tenant_id, topic, entity_type, entity_id, dedupe_key, title, message, severity, status,
		due_status, due_date, payload, first_detected_at, last_detected_at, read_at, resolved_at`

func scanNotification(row rowScanner) (*inbox.Notification, error) {
	var (
		n          inbox.Notification
		dueStatus  sql.NullString
		dueDate    sql.NullTime
		payload    []byte
		readAt     sql.NullTime
		resolvedAt sql.NullTime
	)
	if err := row.Scan(
		&n.ID,
		&n.TenantID,
		&n.Topic,
		&n.EntityType,
		&n.EntityID,
		&n.DedupeKey,
		&n.Title,
		&n.Message,
		&n.Severity,
		&n.Status,
		&dueStatus,
		&dueDate,
		&payload,
		&n.FirstDetectedAt,
		&n.LastDetectedAt,
		&readAt,
		&resolvedAt,
	); err != nil {
		return nil, err
	}
	n.DueStatus = dueStatus.String
	n.DueDate = timePtr(dueDate)
	n.ReadAt = timePtr(readAt)
	n.ResolvedAt = timePtr(resolvedAt)
	n.Payload = inbox.DecodePayload(n.Topic, payload, "notification_id", n.ID, "tenant_id", n.TenantID)
	return &n, nil
}

func scanNotifications(rows *sql.Rows) ([]*inbox.Notification, error) {
	defer rows.Close()
	var out []*inbox.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListTopicNotifications returns every record of a tenant for one topic, in any status.
func (db *DB) ListTopicNotifications(ctx context.Context, tenantID string, topic inbox.Topic) ([]*inbox.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notification_inbox
		WHERE tenant_id = $1 AND topic = $2
	`
	rows, err := db.conn.QueryContext(ctx, query, tenantID, string(topic))
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list topic notifications", Err: err}
	}
	out, err := scanNotifications(rows)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list topic notifications", Err: err}
	}
	return out, nil
}

// ListNotifications returns a tenant's records matching filter, most recently detected first.
func (db *DB) ListNotifications(ctx context.Context, tenantID string, filter inbox.Filter, limit int) ([]*inbox.Notification, error) {
	var where string
	switch filter {
	case inbox.FilterUnread:
		where = `AND status = 'UNREAD'`
	case inbox.FilterResolved:
		where = `AND status = 'RESOLVED'`
	case inbox.FilterAll:
		where = ``
	default:
		where = `AND status <> 'RESOLVED'`
	}
	query := `
		SELECT ` + notificationColumns + `
		FROM notification_inbox
		WHERE tenant_id = $1 ` + where + `
		ORDER BY last_detected_at DESC, id
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list notifications", Err: err}
	}
	out, err := scanNotifications(rows)
	if err != nil {
		return nil, &inbox.PersistenceError{Op: "list notifications", Err: err}
	}
	return out, nil
}

// InsertNotification inserts a new record. It returns false without error when a record
// with the same (tenant, dedupe key) already exists.
func (db *DB) InsertNotification(ctx context.Context, n *inbox.Notification) (bool, error) {
	payload, err := inbox.EncodePayload(n.Payload)
	if err != nil {
		return false, &inbox.PersistenceError{Op: "insert notification", Err: err}
	}

	query := `
		INSERT INTO notification_inbox (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (tenant_id, dedupe_key) DO NOTHING
		RETURNING id
	`
	var id string
	err = db.conn.QueryRowContext(ctx, query,
		n.ID,
		n.TenantID,
		string(n.Topic),
		n.EntityType,
		n.EntityID,
		n.DedupeKey,
		n.Title,
		n.Message,
		string(n.Severity),
		string(n.Status),
		nullString(n.DueStatus),
		nullTime(n.DueDate),
		payload,
		n.FirstDetectedAt,
		n.LastDetectedAt,
		nullTime(n.ReadAt),
		nullTime(n.ResolvedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &inbox.PersistenceError{Op: "insert notification", Err: err}
	}
	return true, nil
}

// UpdateNotification writes the mutable fields of an existing record.
func (db *DB) UpdateNotification(ctx context.Context, n *inbox.Notification) error {
	payload, err := inbox.EncodePayload(n.Payload)
	if err != nil {
		return &inbox.PersistenceError{Op: "update notification", Err: err}
	}

	query := `
		UPDATE notification_inbox
		SET title = $3,
		    message = $4,
		    severity = $5,
		    status = $6,
		    due_status = $7,
		    due_date = $8,
		    payload = $9,
		    last_detected_at = $10,
		    read_at = $11,
		    resolved_at = $12
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := db.conn.ExecContext(ctx, query,
		n.TenantID,
		n.ID,
		n.Title,
		n.Message,
		string(n.Severity),
		string(n.Status),
		nullString(n.DueStatus),
		nullTime(n.DueDate),
		payload,
		n.LastDetectedAt,
		nullTime(n.ReadAt),
		nullTime(n.ResolvedAt),
	)
	if err != nil {
		return &inbox.PersistenceError{Op: "update notification", Err: err}
	}
	return requireRow(result, n.ID)
}

// TouchNotifications refreshes last_detected_at for records whose content did not change.
func (db *DB) TouchNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE notification_inbox
		SET last_detected_at = $3
		WHERE tenant_id = $1 AND id = ANY($2)
	`
	if _, err := db.conn.ExecContext(ctx, query, tenantID, pq.Array(ids), at); err != nil {
		return &inbox.PersistenceError{Op: "touch notifications", Err: err}
	}
	return nil
}

// ResolveNotifications resolves the given non-resolved records of a tenant.
func (db *DB) ResolveNotifications(ctx context.Context, tenantID string, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE notification_inbox
		SET status = 'RESOLVED', resolved_at = $3
		WHERE tenant_id = $1 AND id = ANY($2) AND status <> 'RESOLVED'
	`
	result, err := db.conn.ExecContext(ctx, query, tenantID, pq.Array(ids), at)
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "resolve notifications", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "resolve notifications", Err: err}
	}
	return n, nil
}

// ResolveEntityNotifications resolves every non-resolved record of one entity.
func (db *DB) ResolveEntityNotifications(ctx context.Context, tenantID string, topic inbox.Topic, entityType, entityID string, at time.Time) (int64, error) {
	query := `
		UPDATE notification_inbox
		SET status = 'RESOLVED', resolved_at = $5
		WHERE tenant_id = $1 AND topic = $2 AND entity_type = $3 AND entity_id = $4 AND status <> 'RESOLVED'
	`
	result, err := db.conn.ExecContext(ctx, query, tenantID, string(topic), entityType, entityID, at)
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "resolve entity notifications", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "resolve entity notifications", Err: err}
	}
	return n, nil
}

// MarkRead moves a record to READ from any status.
func (db *DB) MarkRead(ctx context.Context, tenantID, id string, at time.Time) error {
	query := `
		UPDATE notification_inbox
		SET status = 'READ', read_at = $3, resolved_at = NULL
		WHERE tenant_id = $1 AND id = $2
	`
	return db.execStatus(ctx, "mark notification read", query, id, tenantID, id, at)
}

// MarkUnread moves a record to UNREAD from any status.
func (db *DB) MarkUnread(ctx context.Context, tenantID, id string) error {
	query := `
		UPDATE notification_inbox
		SET status = 'UNREAD', read_at = NULL, resolved_at = NULL
		WHERE tenant_id = $1 AND id = $2
	`
	return db.execStatus(ctx, "mark notification unread", query, id, tenantID, id)
}

// Resolve moves a record to RESOLVED from any status.
func (db *DB) Resolve(ctx context.Context, tenantID, id string, at time.Time) error {
	query := `
		UPDATE notification_inbox
		SET status = 'RESOLVED', resolved_at = $3
		WHERE tenant_id = $1 AND id = $2
	`
	return db.execStatus(ctx, "resolve notification", query, id, tenantID, id, at)
}

// MarkAllRead moves every UNREAD record of a tenant to READ.
func (db *DB) MarkAllRead(ctx context.Context, tenantID string, at time.Time) (int64, error) {
	query := `
		UPDATE notification_inbox
		SET status = 'READ', read_at = $2
		WHERE tenant_id = $1 AND status = 'UNREAD'
	`
	result, err := db.conn.ExecContext(ctx, query, tenantID, at)
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "mark all notifications read", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, &inbox.PersistenceError{Op: "mark all notifications read", Err: err}
	}
	return n, nil
}

// Summary counts a tenant's records regardless of any listing filter.
func (db *DB) Summary(ctx context.Context, tenantID string) (*inbox.Summary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'UNREAD'),
			COUNT(*) FILTER (WHERE status <> 'RESOLVED'),
			COUNT(*) FILTER (WHERE status = 'RESOLVED')
		FROM notification_inbox
		WHERE tenant_id = $1
	`
	var s inbox.Summary
	if err := db.conn.QueryRowContext(ctx, query, tenantID).Scan(&s.UnreadCount, &s.ActiveCount, &s.ResolvedCount); err != nil {
		return nil, &inbox.PersistenceError{Op: "count notifications", Err: err}
	}
	return &s, nil
}

func (db *DB) execStatus(ctx context.Context, op, query, id string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		// not a UUID, so no record can match
		return fmt.Errorf("notification %s: %w", id, inbox.ErrNotFound)
	}
	if err != nil {
		return &inbox.PersistenceError{Op: op, Err: err}
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return &inbox.PersistenceError{Op: "check rows affected", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, inbox.ErrNotFound)
	}
	return nil
}
