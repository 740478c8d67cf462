package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a rental transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusDelivered TransactionStatus = "delivered"
	// StatusReturned is declared but no transition currently produces it.
	StatusReturned  TransactionStatus = "returned"
	StatusCompleted TransactionStatus = "completed"
)

// Terminal reports whether no further transitions are possible.
func (s TransactionStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// DamageSeverity grades the condition of an item at return time.
type DamageSeverity string

const (
	SeverityNone   DamageSeverity = "none"
	SeverityLight  DamageSeverity = "light"
	SeverityMedium DamageSeverity = "medium"
	SeverityHigh   DamageSeverity = "high"
	SeveritySevere DamageSeverity = "severe"
)

// ParseSeverity validates a severity string. The empty string means none.
func ParseSeverity(s string) (DamageSeverity, error) {
	switch DamageSeverity(s) {
	case "", SeverityNone:
		return SeverityNone, nil
	case SeverityLight, SeverityMedium, SeverityHigh, SeveritySevere:
		return DamageSeverity(s), nil
	}
	return "", fmt.Errorf("unknown damage severity %q", s)
}

// Transaction represents a single rental from request to completion.
// Identity fields are immutable after creation; only the status and the
// four confirmation flags are mutated, and only by the rental service.
type Transaction struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	ItemID      uuid.UUID         `json:"item_id" db:"item_id"`
	BorrowerID  uuid.UUID         `json:"borrower_id" db:"borrower_id"`
	OwnerID     uuid.UUID         `json:"owner_id" db:"owner_id"`
	Days        int               `json:"days" db:"days"`
	TotalTokens int               `json:"total_tokens" db:"total_tokens"`
	StartDate   time.Time         `json:"start_date" db:"start_date"`
	EndDate     time.Time         `json:"end_date" db:"end_date"`
	Status      TransactionStatus `json:"status" db:"status"`

	OwnerConfirmedDelivery    bool `json:"owner_confirmed_delivery" db:"owner_confirmed_delivery"`
	BorrowerConfirmedDelivery bool `json:"borrower_confirmed_delivery" db:"borrower_confirmed_delivery"`
	OwnerConfirmedReturn      bool `json:"owner_confirmed_return" db:"owner_confirmed_return"`
	BorrowerConfirmedReturn   bool `json:"borrower_confirmed_return" db:"borrower_confirmed_return"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Participant reports whether the user is the borrower or the owner.
func (t *Transaction) Participant(userID uuid.UUID) bool {
	return t.BorrowerID == userID || t.OwnerID == userID
}

// ConfirmationFlags is the mutable dual-confirmation state persisted by
// the transaction store.
type ConfirmationFlags struct {
	OwnerConfirmedDelivery    bool
	BorrowerConfirmedDelivery bool
	OwnerConfirmedReturn      bool
	BorrowerConfirmedReturn   bool
}

// Flags returns the current confirmation flags of the transaction.
func (t *Transaction) Flags() ConfirmationFlags {
	return ConfirmationFlags{
		OwnerConfirmedDelivery:    t.OwnerConfirmedDelivery,
		BorrowerConfirmedDelivery: t.BorrowerConfirmedDelivery,
		OwnerConfirmedReturn:      t.OwnerConfirmedReturn,
		BorrowerConfirmedReturn:   t.BorrowerConfirmedReturn,
	}
}
