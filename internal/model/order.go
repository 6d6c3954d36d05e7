package model

import "time"

type Order struct {
	Seq            int64       `db:"seq" json:"seq"`
	CreatedAt      time.Time   `db:"created_at" json:"timestamp"`
	OrderID        string      `db:"order_id" json:"order_id"`
	Email          string      `db:"email" json:"email"`
	FirstName      string      `db:"first_name" json:"first_name"`
	Products       string      `db:"products" json:"products"`
	Total          float64     `db:"total" json:"total"`
	Status         OrderStatus `db:"status" json:"status"`
	EmailMessageID string      `db:"email_message_id" json:"email_message_id,omitempty"`
}

func (o Order) SheetRow() []any {
	return []any{o.CreatedAt.Format(time.RFC3339), o.OrderID, o.Email, o.FirstName, o.Products, o.Total, string(o.Status), o.EmailMessageID}
}
