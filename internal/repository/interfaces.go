package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/twopeaks/controlroom/internal/model"
)

type EngagementRepositoryInterface interface {
	CreateEvent(ctx context.Context, ev *model.EngagementEvent) error
	ListEvents(ctx context.Context) ([]model.EngagementEvent, error)
	// ListUnscored returns events without a scored lead, oldest first.
	ListUnscored(ctx context.Context) ([]model.EngagementEvent, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type LeadRepositoryInterface interface {
	CreateLead(ctx context.Context, lead *model.ScoredLead) error
	ListLeads(ctx context.Context, minScore int) ([]model.ScoredLead, error)
}

// ReviewRepositoryInterface backs the human review queue for both template
// tables.
type ReviewRepositoryInterface interface {
	CreateOutreachTemplate(ctx context.Context, t *model.OutreachTemplate) error
	// LatestOutreach returns the newest template for the pair, or nil.
	LatestOutreach(ctx context.Context, username string, channel model.Channel) (*model.OutreachTemplate, error)
	CreateFulfillmentTemplate(ctx context.Context, t *model.FulfillmentTemplate) error
	FulfillmentExists(ctx context.Context, orderID string) (bool, error)

	GetReviewItem(ctx context.Context, table model.ReviewTable, id uuid.UUID) (*model.ReviewItem, error)
	ListByStatus(ctx context.Context, table model.ReviewTable, status model.Status) ([]model.ReviewItem, error)
	// UpdateDraft rewrites subject and message of a QUEUED item.
	UpdateDraft(ctx context.Context, table model.ReviewTable, id uuid.UUID, subject, message string) (*model.ReviewItem, error)
	Decide(ctx context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error)
	MarkSent(ctx context.Context, table model.ReviewTable, id uuid.UUID, at time.Time) (*model.ReviewItem, error)
	ReviewStats(ctx context.Context, table model.ReviewTable) (map[model.Status]int, error)
}

type OrderRepositoryInterface interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	SetEmailMessageID(ctx context.Context, orderID, messageID string) error
}

type TicketRepositoryInterface interface {
	CreateTicket(ctx context.Context, t *model.SupportTicket) error
	ListTickets(ctx context.Context) ([]model.SupportTicket, error)
}

type OutboxRepositoryInterface interface {
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, lastError string, at time.Time) error
}

// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBExecutor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store bundles every repository the services need.
type Store struct {
	Engagement EngagementRepositoryInterface
	Leads      LeadRepositoryInterface
	Reviews    ReviewRepositoryInterface
	Orders     OrderRepositoryInterface
	Tickets    TicketRepositoryInterface
	Outbox     OutboxRepositoryInterface
}

// NewPostgresStore wires the sqlx backed repositories.
func NewPostgresStore(db *sqlx.DB) *Store {
	return &Store{
		Engagement: &EngagementRepository{DB: db},
		Leads:      &LeadRepository{DB: db},
		Reviews:    &ReviewRepository{DB: db},
		Orders:     &OrderRepository{DB: db},
		Tickets:    &TicketRepository{DB: db},
		Outbox:     &OutboxRepository{DB: db},
	}
}

// NewMemoryStore wires one MemoryStore behind every interface.
func NewMemoryStore() *Store {
	m := NewMemory()
	return &Store{
		Engagement: m,
		Leads:      m,
		Reviews:    m,
		Orders:     m,
		Tickets:    m,
		Outbox:     m,
	}
}
