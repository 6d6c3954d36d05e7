package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
)

type ReviewRepository struct {
	DB *sqlx.DB
}

// reviewTable maps a queue table onto its SQL table and the column list
// that projects a row onto model.ReviewItem.
type reviewTable struct {
	name    string
	columns string
}

var reviewTables = map[model.ReviewTable]reviewTable{
	model.TableOutreach: {
		name: "outreach_templates",
		columns: `id, seq, created_at, username AS "key", username AS recipient, '' AS first_name,
            channel, subject, message, status, version, reviewed_by, decided_at, sent_at`,
	},
	model.TableFulfillment: {
		name: "fulfillment_templates",
		columns: `id, seq, created_at, order_id AS "key", email AS recipient, first_name,
            'email' AS channel, subject, message, status, version, reviewed_by, decided_at, sent_at`,
	},
}

func lookupTable(table model.ReviewTable) (reviewTable, error) {
	t, ok := reviewTables[table]
	if !ok {
		return reviewTable{}, appErrors.NewInvalidReviewTable(string(table))
	}
	return t, nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ====================== Template creation ======================

func (r *ReviewRepository) CreateOutreachTemplate(ctx context.Context, t *model.OutreachTemplate) error {
	prepareOutreach(t, time.Now().UTC())
	query := `
        INSERT INTO outreach_templates (id, created_at, username, channel, subject, message, status, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING seq
    `
	err := r.DB.QueryRowxContext(ctx, query, t.ID, t.CreatedAt, t.Username, t.Channel, t.Subject, t.Message, t.Status, t.Version).Scan(&t.Seq)
	if isUniqueViolation(err) {
		return appErrors.NewDuplicateQueued(string(model.TableOutreach), t.Username+"/"+string(t.Channel))
	}
	return err
}

func (r *ReviewRepository) LatestOutreach(ctx context.Context, username string, channel model.Channel) (*model.OutreachTemplate, error) {
	query := `
        SELECT id, seq, created_at, username, channel, subject, message, status, version, reviewed_by, decided_at, sent_at
        FROM outreach_templates
        WHERE username = $1 AND channel = $2
        ORDER BY seq DESC
        LIMIT 1
    `
	var t model.OutreachTemplate
	err := r.DB.GetContext(ctx, &t, query, username, channel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ReviewRepository) CreateFulfillmentTemplate(ctx context.Context, t *model.FulfillmentTemplate) error {
	prepareFulfillment(t, time.Now().UTC())
	query := `
        INSERT INTO fulfillment_templates (id, created_at, order_id, email, first_name, subject, message, status, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING seq
    `
	err := r.DB.QueryRowxContext(ctx, query, t.ID, t.CreatedAt, t.OrderID, t.Email, t.FirstName, t.Subject, t.Message, t.Status, t.Version).Scan(&t.Seq)
	if isUniqueViolation(err) {
		return appErrors.NewDuplicateQueued(string(model.TableFulfillment), t.OrderID)
	}
	return err
}

func (r *ReviewRepository) FulfillmentExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM fulfillment_templates WHERE order_id = $1)`, orderID)
	return exists, err
}

// ====================== Review queue ======================

func (r *ReviewRepository) GetReviewItem(ctx context.Context, table model.ReviewTable, id uuid.UUID) (*model.ReviewItem, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	var item model.ReviewItem
	err = r.DB.GetContext(ctx, &item, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tbl.columns, tbl.name), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewReviewItemNotFound(string(table), id.String())
	}
	if err != nil {
		return nil, err
	}
	item.Table = table
	return &item, nil
}

func (r *ReviewRepository) ListByStatus(ctx context.Context, table model.ReviewTable, status model.Status) ([]model.ReviewItem, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	items := []model.ReviewItem{}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 ORDER BY seq ASC`, tbl.columns, tbl.name)
	if err := r.DB.SelectContext(ctx, &items, query, status); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Table = table
	}
	return items, nil
}

func (r *ReviewRepository) UpdateDraft(ctx context.Context, table model.ReviewTable, id uuid.UUID, subject, message string) (*model.ReviewItem, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        UPDATE %s
        SET subject = $1, message = $2, version = version + 1
        WHERE id = $3 AND status = 'QUEUED'
        RETURNING %s
    `, tbl.name, tbl.columns)
	var item model.ReviewItem
	err = r.DB.GetContext(ctx, &item, query, subject, message, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMiss(ctx, r.DB, table, tbl, id, 0)
	}
	if err != nil {
		return nil, err
	}
	item.Table = table
	return &item, nil
}

// Decide applies a reviewer decision with a single conditional update so
// that a concurrent decision on the same row is detected rather than
// overwritten. The outbox row commits with the decision.
func (r *ReviewRepository) Decide(ctx context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if !d.Status.IsDecision() {
		return nil, appErrors.NewInvalidDecision(string(d.Status))
	}
	d = normalizeDecision(d)

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
        UPDATE %s
        SET subject = COALESCE($1, subject),
            message = COALESCE($2, message),
            status = $3,
            reviewed_by = $4,
            decided_at = $5,
            version = version + 1
        WHERE id = $6 AND status = 'QUEUED' AND ($7 = 0 OR version = $7)
        RETURNING %s
    `, tbl.name, tbl.columns)

	var item model.ReviewItem
	err = tx.GetContext(ctx, &item, query, d.Subject, d.Message, d.Status, d.ReviewedBy, d.DecidedAt, id, d.ExpectedVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMiss(ctx, tx, table, tbl, id, d.ExpectedVersion)
	}
	if err != nil {
		return nil, fmt.Errorf("decide %s %s: %w", table, id, err)
	}
	item.Table = table

	if err := insertReviewEvent(ctx, tx, model.EventReviewDecided, item, d.DecidedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ReviewRepository) MarkSent(ctx context.Context, table model.ReviewTable, id uuid.UUID, at time.Time) (*model.ReviewItem, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
        UPDATE %s
        SET status = 'SENT', sent_at = $1, version = version + 1
        WHERE id = $2 AND status = 'APPROVED'
        RETURNING %s
    `, tbl.name, tbl.columns)

	var item model.ReviewItem
	err = tx.GetContext(ctx, &item, query, at, id)
	if errors.Is(err, sql.ErrNoRows) {
		var status model.Status
		lookupErr := tx.GetContext(ctx, &status, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, tbl.name), id)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return nil, appErrors.NewReviewItemNotFound(string(table), id.String())
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, appErrors.NewInvalidTransition(string(table), id.String(), string(status), string(model.StatusSent))
	}
	if err != nil {
		return nil, err
	}
	item.Table = table

	if err := insertReviewEvent(ctx, tx, model.EventReviewSent, item, at); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ReviewRepository) ReviewStats(ctx context.Context, table model.ReviewTable) (map[model.Status]int, error) {
	tbl, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, tbl.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := emptyStats()
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// explainMiss turns a conditional update that matched nothing into the
// precise error: unknown id, already decided, or stale version.
func (r *ReviewRepository) explainMiss(ctx context.Context, exec DBExecutor, table model.ReviewTable, tbl reviewTable, id uuid.UUID, expectedVersion int) error {
	var current struct {
		Status  model.Status `db:"status"`
		Version int          `db:"version"`
	}
	err := exec.GetContext(ctx, &current, fmt.Sprintf(`SELECT status, version FROM %s WHERE id = $1`, tbl.name), id)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewReviewItemNotFound(string(table), id.String())
	}
	if err != nil {
		return err
	}
	if current.Status != model.StatusQueued {
		return appErrors.NewReviewItemDecided(string(table), id.String(), string(current.Status))
	}
	return appErrors.NewVersionConflict(string(table), id.String(), expectedVersion, current.Version)
}

func insertReviewEvent(ctx context.Context, exec DBExecutor, eventType string, item model.ReviewItem, at time.Time) error {
	ev, err := model.NewReviewOutboxEvent(eventType, item, at)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `
        INSERT INTO outbox_events (event_type, partition_key, payload, created_at)
        VALUES ($1, $2, $3, $4)
    `, ev.EventType, ev.PartitionKey, string(ev.Payload), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ====================== Shared helpers ======================

func emptyStats() map[model.Status]int {
	stats := make(map[model.Status]int, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		stats[s] = 0
	}
	return stats
}

func normalizeDecision(d model.Decision) model.Decision {
	if d.ReviewedBy == "" {
		d.ReviewedBy = model.DefaultReviewer
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}
	return d
}

func prepareOutreach(t *model.OutreachTemplate, now time.Time) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Status == "" {
		t.Status = model.StatusQueued
	}
	if t.Version == 0 {
		t.Version = 1
	}
}

func prepareFulfillment(t *model.FulfillmentTemplate, now time.Time) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Status == "" {
		t.Status = model.StatusQueued
	}
	if t.Version == 0 {
		t.Version = 1
	}
}

var _ ReviewRepositoryInterface = (*ReviewRepository)(nil)
