package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditAction classifies what kind of change an audit entry records
type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"        // First persistence of the record
	AuditActionUpdated       AuditAction = "updated"        // Tracked fields changed, status unchanged
	AuditActionStatusChanged AuditAction = "status_changed" // Diff includes the status field
	AuditActionInvoiceIssued AuditAction = "invoice_issued" // Invoice number newly populated
)

// FieldChange holds the string-rendered before/after values of one tracked field.
// Nil means the field was unset on that side of the change.
type FieldChange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// AuditEntry is one immutable history record for a payment record. Entries
// are appended when a non-empty diff is detected and never mutated or
// deleted afterwards.
type AuditEntry struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	PaymentRecordID uuid.UUID      `json:"payment_record_id" db:"payment_record_id"`
	Action          AuditAction    `json:"action" db:"action"`
	PreviousStatus  *PaymentStatus `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus       *PaymentStatus `json:"new_status,omitempty" db:"new_status"`

	// Amounts captured at the moment the entry was written
	AmountDue  decimal.Decimal `json:"amount_due" db:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid" db:"amount_paid"`

	Changes   map[string]FieldChange `json:"changes,omitempty" db:"changes"`
	Actor     *string                `json:"actor,omitempty" db:"actor"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
