// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrReviewItemNotFound is returned when an id does not match a QUEUED
// record. Status is set when the record exists but was already decided.
type ErrReviewItemNotFound struct {
	Table  string
	ID     string
	Status string
}

func (e *ErrReviewItemNotFound) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s item %s is no longer QUEUED (status %s)", e.Table, e.ID, e.Status)
	}
	return fmt.Sprintf("%s item %s not found", e.Table, e.ID)
}

func NewReviewItemNotFound(table, id string) error {
	return &ErrReviewItemNotFound{Table: table, ID: id}
}

func NewReviewItemDecided(table, id, status string) error {
	return &ErrReviewItemNotFound{Table: table, ID: id, Status: status}
}

// ErrVersionConflict means another writer changed the record first.
type ErrVersionConflict struct {
	Table    string
	ID       string
	Expected int
	Actual   int
}

func (e *ErrVersionConflict) Error() string {
	return fmt.Sprintf("%s item %s changed concurrently (expected version %d, found %d)", e.Table, e.ID, e.Expected, e.Actual)
}

func NewVersionConflict(table, id string, expected, actual int) error {
	return &ErrVersionConflict{Table: table, ID: id, Expected: expected, Actual: actual}
}

type ErrLeaseHeld struct {
	Table  string
	ID     string
	Holder string
}

func (e *ErrLeaseHeld) Error() string {
	return fmt.Sprintf("%s item %s is being reviewed by %s", e.Table, e.ID, e.Holder)
}

func NewLeaseHeld(table, id, holder string) error {
	return &ErrLeaseHeld{Table: table, ID: id, Holder: holder}
}

type ErrInvalidDecision struct {
	Decision string
}

func (e *ErrInvalidDecision) Error() string {
	return fmt.Sprintf("invalid decision %q: must be APPROVED or REJECTED", e.Decision)
}

func NewInvalidDecision(decision string) error {
	return &ErrInvalidDecision{Decision: decision}
}

type ErrInvalidTransition struct {
	Table string
	ID    string
	From  string
	To    string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Table, e.ID, e.From, e.To)
}

func NewInvalidTransition(table, id, from, to string) error {
	return &ErrInvalidTransition{Table: table, ID: id, From: from, To: to}
}

type ErrOrderNotFound struct {
	OrderID string
}

func (e *ErrOrderNotFound) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

func NewOrderNotFound(id string) error {
	return &ErrOrderNotFound{OrderID: id}
}

type ErrInvalidReviewTable struct {
	Table string
}

func (e *ErrInvalidReviewTable) Error() string {
	return fmt.Sprintf("unknown review table %q", e.Table)
}

func NewInvalidReviewTable(table string) error {
	return &ErrInvalidReviewTable{Table: table}
}

// ErrDuplicateQueued means the key already has a QUEUED item.
type ErrDuplicateQueued struct {
	Table string
	Key   string
}

func (e *ErrDuplicateQueued) Error() string {
	return fmt.Sprintf("%s already has a QUEUED item for %s", e.Table, e.Key)
}

func NewDuplicateQueued(table, key string) error {
	return &ErrDuplicateQueued{Table: table, Key: key}
}

type ErrDuplicateOrder struct {
	OrderID string
}

func (e *ErrDuplicateOrder) Error() string {
	return fmt.Sprintf("order %s already exists", e.OrderID)
}

func NewDuplicateOrder(id string) error {
	return &ErrDuplicateOrder{OrderID: id}
}

// ErrInvalidField rejects a request field.
type ErrInvalidField struct {
	Field  string
	Reason string
}

func (e *ErrInvalidField) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func NewInvalidField(field, reason string) error {
	return &ErrInvalidField{Field: field, Reason: reason}
}

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	var item *ErrReviewItemNotFound
	var order *ErrOrderNotFound
	return errors.As(err, &item) || errors.As(err, &order)
}

// IsConflict reports whether err signals a concurrent writer.
func IsConflict(err error) bool {
	var version *ErrVersionConflict
	var lease *ErrLeaseHeld
	var dup *ErrDuplicateQueued
	var order *ErrDuplicateOrder
	return errors.As(err, &version) || errors.As(err, &lease) || errors.As(err, &dup) || errors.As(err, &order)
}

// IsInvalidInput reports whether err was caused by the caller's request.
func IsInvalidInput(err error) bool {
	var decision *ErrInvalidDecision
	var table *ErrInvalidReviewTable
	var transition *ErrInvalidTransition
	var field *ErrInvalidField
	return errors.As(err, &decision) || errors.As(err, &table) || errors.As(err, &transition) || errors.As(err, &field)
}
