package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
)

// MemoryStore keeps every table in process memory behind one mutex. It is
// used for local runs and tests and honours the same invariants as the
// Postgres repositories.
type MemoryStore struct {
	mu sync.Mutex

	seq int64

	events      []model.EngagementEvent
	leads       []model.ScoredLead
	outreach    []*model.OutreachTemplate
	fulfillment []*model.FulfillmentTemplate
	orders      []*model.Order
	tickets     []model.SupportTicket
	outbox      []*model.OutboxEvent
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

// ====================== Engagement ======================

func (m *MemoryStore) CreateEvent(_ context.Context, ev *model.EngagementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.Seq = m.nextSeq()
	m.events = append(m.events, *ev)
	return nil
}

func (m *MemoryStore) ListEvents(_ context.Context) ([]model.EngagementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.EngagementEvent{}, m.events...), nil
}

func (m *MemoryStore) ListUnscored(_ context.Context) ([]model.EngagementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scored := make(map[uuid.UUID]bool, len(m.leads))
	for _, l := range m.leads {
		scored[l.EventID] = true
	}
	out := []model.EngagementEvent{}
	for _, ev := range m.events {
		if !scored[ev.ID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MemoryStore) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// ====================== Leads ======================

func (m *MemoryStore) CreateLead(_ context.Context, lead *model.ScoredLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	lead.Seq = m.nextSeq()
	m.leads = append(m.leads, *lead)
	return nil
}

func (m *MemoryStore) ListLeads(_ context.Context, minScore int) ([]model.ScoredLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ScoredLead{}
	for _, l := range m.leads {
		if l.Score >= minScore {
			out = append(out, l)
		}
	}
	return out, nil
}

// ====================== Templates ======================

func (m *MemoryStore) CreateOutreachTemplate(_ context.Context, t *model.OutreachTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareOutreach(t, time.Now().UTC())
	if t.Status == model.StatusQueued {
		for _, existing := range m.outreach {
			if existing.Status == model.StatusQueued && existing.Username == t.Username && existing.Channel == t.Channel {
				return appErrors.NewDuplicateQueued(string(model.TableOutreach), t.Username+"/"+string(t.Channel))
			}
		}
	}
	t.Seq = m.nextSeq()
	stored := *t
	m.outreach = append(m.outreach, &stored)
	return nil
}

func (m *MemoryStore) LatestOutreach(_ context.Context, username string, channel model.Channel) (*model.OutreachTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.outreach) - 1; i >= 0; i-- {
		t := m.outreach[i]
		if t.Username == username && t.Channel == channel {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateFulfillmentTemplate(_ context.Context, t *model.FulfillmentTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareFulfillment(t, time.Now().UTC())
	if t.Status == model.StatusQueued {
		for _, existing := range m.fulfillment {
			if existing.Status == model.StatusQueued && existing.OrderID == t.OrderID {
				return appErrors.NewDuplicateQueued(string(model.TableFulfillment), t.OrderID)
			}
		}
	}
	t.Seq = m.nextSeq()
	stored := *t
	m.fulfillment = append(m.fulfillment, &stored)
	return nil
}

func (m *MemoryStore) FulfillmentExists(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.fulfillment {
		if t.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

// ====================== Review queue ======================

// reviewRow gives uniform access to the mutable review fields of either
// template table.
type reviewRow struct {
	subject, message *string
	status           *model.Status
	version          *int
	reviewedBy       *string
	decidedAt        **time.Time
	sentAt           **time.Time
	item             func() model.ReviewItem
}

func (m *MemoryStore) rows(table model.ReviewTable) ([]reviewRow, error) {
	switch table {
	case model.TableOutreach:
		out := make([]reviewRow, len(m.outreach))
		for i, t := range m.outreach {
			t := t
			out[i] = reviewRow{&t.Subject, &t.Message, &t.Status, &t.Version, &t.ReviewedBy, &t.DecidedAt, &t.SentAt, func() model.ReviewItem { return t.ReviewItem() }}
		}
		return out, nil
	case model.TableFulfillment:
		out := make([]reviewRow, len(m.fulfillment))
		for i, t := range m.fulfillment {
			t := t
			out[i] = reviewRow{&t.Subject, &t.Message, &t.Status, &t.Version, &t.ReviewedBy, &t.DecidedAt, &t.SentAt, func() model.ReviewItem { return t.ReviewItem() }}
		}
		return out, nil
	}
	return nil, appErrors.NewInvalidReviewTable(string(table))
}

func (m *MemoryStore) find(table model.ReviewTable, id uuid.UUID) (*reviewRow, error) {
	rows, err := m.rows(table)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].item().ID == id {
			return &rows[i], nil
		}
	}
	return nil, appErrors.NewReviewItemNotFound(string(table), id.String())
}

func (m *MemoryStore) GetReviewItem(_ context.Context, table model.ReviewTable, id uuid.UUID) (*model.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.find(table, id)
	if err != nil {
		return nil, err
	}
	item := row.item()
	return &item, nil
}

func (m *MemoryStore) ListByStatus(_ context.Context, table model.ReviewTable, status model.Status) ([]model.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.rows(table)
	if err != nil {
		return nil, err
	}
	items := []model.ReviewItem{}
	for _, row := range rows {
		if *row.status == status {
			items = append(items, row.item())
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

func (m *MemoryStore) UpdateDraft(_ context.Context, table model.ReviewTable, id uuid.UUID, subject, message string) (*model.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.find(table, id)
	if err != nil {
		return nil, err
	}
	if *row.status != model.StatusQueued {
		return nil, appErrors.NewReviewItemDecided(string(table), id.String(), string(*row.status))
	}
	*row.subject = subject
	*row.message = message
	*row.version++
	item := row.item()
	return &item, nil
}

func (m *MemoryStore) Decide(_ context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error) {
	if !d.Status.IsDecision() {
		return nil, appErrors.NewInvalidDecision(string(d.Status))
	}
	d = normalizeDecision(d)

	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.find(table, id)
	if err != nil {
		return nil, err
	}
	if *row.status != model.StatusQueued {
		return nil, appErrors.NewReviewItemDecided(string(table), id.String(), string(*row.status))
	}
	if d.ExpectedVersion != 0 && d.ExpectedVersion != *row.version {
		return nil, appErrors.NewVersionConflict(string(table), id.String(), d.ExpectedVersion, *row.version)
	}

	if d.Subject != nil {
		*row.subject = *d.Subject
	}
	if d.Message != nil {
		*row.message = *d.Message
	}
	*row.status = d.Status
	*row.reviewedBy = d.ReviewedBy
	decidedAt := d.DecidedAt
	*row.decidedAt = &decidedAt
	*row.version++

	item := row.item()
	if err := m.appendEvent(model.EventReviewDecided, item, d.DecidedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MemoryStore) MarkSent(_ context.Context, table model.ReviewTable, id uuid.UUID, at time.Time) (*model.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.find(table, id)
	if err != nil {
		return nil, err
	}
	if *row.status != model.StatusApproved {
		return nil, appErrors.NewInvalidTransition(string(table), id.String(), string(*row.status), string(model.StatusSent))
	}
	*row.status = model.StatusSent
	sentAt := at
	*row.sentAt = &sentAt
	*row.version++

	item := row.item()
	if err := m.appendEvent(model.EventReviewSent, item, at); err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *MemoryStore) ReviewStats(_ context.Context, table model.ReviewTable) (map[model.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.rows(table)
	if err != nil {
		return nil, err
	}
	stats := emptyStats()
	for _, row := range rows {
		stats[*row.status]++
	}
	return stats, nil
}

// ====================== Orders ======================

func (m *MemoryStore) CreateOrder(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.OrderID == o.OrderID {
			return appErrors.NewDuplicateOrder(o.OrderID)
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	o.Seq = m.nextSeq()
	stored := *o
	m.orders = append(m.orders, &stored)
	return nil
}

func (m *MemoryStore) findOrder(orderID string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return nil, appErrors.NewOrderNotFound(orderID)
}

func (m *MemoryStore) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.findOrder(orderID)
	if err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) ListOrders(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateOrderStatus(_ context.Context, orderID string, status model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.findOrder(orderID)
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}

func (m *MemoryStore) SetEmailMessageID(_ context.Context, orderID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.findOrder(orderID)
	if err != nil {
		return err
	}
	o.EmailMessageID = messageID
	return nil
}

// ====================== Tickets ======================

func (m *MemoryStore) CreateTicket(_ context.Context, t *model.SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	t.Seq = m.nextSeq()
	m.tickets = append(m.tickets, *t)
	return nil
}

func (m *MemoryStore) ListTickets(_ context.Context) ([]model.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SupportTicket{}, m.tickets...), nil
}

// ====================== Outbox ======================

func (m *MemoryStore) appendEvent(eventType string, item model.ReviewItem, at time.Time) error {
	ev, err := model.NewReviewOutboxEvent(eventType, item, at)
	if err != nil {
		return err
	}
	ev.ID = int64(len(m.outbox) + 1)
	m.outbox = append(m.outbox, &ev)
	return nil
}

func (m *MemoryStore) FetchUnpublished(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.OutboxEvent{}
	for _, ev := range m.outbox {
		if ev.PublishedAt != nil {
			continue
		}
		out = append(out, *ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkPublished(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.outbox {
		if ev.ID == id {
			published := at
			ev.PublishedAt = &published
			ev.Attempts++
			ev.LastError = ""
		}
	}
	return nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, id int64, lastError string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.outbox {
		if ev.ID == id {
			ev.Attempts++
			ev.LastError = lastError
		}
	}
	return nil
}

var (
	_ EngagementRepositoryInterface = (*MemoryStore)(nil)
	_ LeadRepositoryInterface       = (*MemoryStore)(nil)
	_ ReviewRepositoryInterface     = (*MemoryStore)(nil)
	_ OrderRepositoryInterface      = (*MemoryStore)(nil)
	_ TicketRepositoryInterface     = (*MemoryStore)(nil)
	_ OutboxRepositoryInterface     = (*MemoryStore)(nil)
)
