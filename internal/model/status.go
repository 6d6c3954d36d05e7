package model

import "strings"

// Status is the review lifecycle of a generated message.
type Status string

const (
	StatusQueued   Status = "QUEUED"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusSent     Status = "SENT"
)

// AllStatuses lists every review status in lifecycle order.
var AllStatuses = []Status{StatusQueued, StatusApproved, StatusRejected, StatusSent}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// IsDecision reports whether a reviewer may move a QUEUED item to s.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Channel is an outreach delivery channel.
type Channel string

const (
	ChannelEmail       Channel = "email"
	ChannelInstagramDM Channel = "instagram_dm"
)

// DefaultChannels are used when no channel list is configured.
var DefaultChannels = []Channel{ChannelEmail, ChannelInstagramDM}

// ParseChannels splits a comma separated list, dropping blanks.
func ParseChannels(csv string) []Channel {
	var out []Channel
	for _, part := range strings.Split(csv, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, Channel(part))
	}
	if len(out) == 0 {
		return append([]Channel(nil), DefaultChannels...)
	}
	return out
}

// OrderStatus tracks an order through shipping.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
)

// AllOrderStatuses is ordered; an order only ever moves forward in it.
var AllOrderStatuses = []OrderStatus{OrderPending, OrderShipped, OrderDelivered}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllOrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) rank() int {
	for i, known := range AllOrderStatuses {
		if s == known {
			return i
		}
	}
	return -1
}

// CanAdvanceTo reports whether next is strictly later than s.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	return next.rank() > s.rank() && s.rank() >= 0
}

// ReviewTable names one of the stores that feed the review queue.
type ReviewTable string

const (
	TableOutreach    ReviewTable = "outreach"
	TableFulfillment ReviewTable = "fulfillment"
)

func ParseReviewTable(s string) (ReviewTable, bool) {
	switch ReviewTable(strings.ToLower(strings.TrimSpace(s))) {
	case TableOutreach:
		return TableOutreach, true
	case TableFulfillment:
		return TableFulfillment, true
	}
	return "", false
}

// ScoreSource records how a lead score was obtained.
type ScoreSource string

const (
	ScoreStructured ScoreSource = "structured"
	ScoreParsed     ScoreSource = "parsed"
	ScoreDefault    ScoreSource = "default"
)
