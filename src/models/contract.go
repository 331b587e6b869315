package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus represents the lifecycle state of a contract document
type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"     // Editable, no number required yet
	ContractStatusIssued    ContractStatus = "issued"    // Rendered and numbered; frozen
	ContractStatusCancelled ContractStatus = "cancelled" // Voided; frozen
)

// ContractDocument is a numbered enrollment contract. The number is assigned
// exactly once, is unique, and is sequential per year in the form
// PREFIX-YYYY-NNNNNN. Once the document leaves draft it is frozen against
// edits.
type ContractDocument struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Number string    `json:"number,omitempty" db:"number"`

	StudentID uuid.UUID  `json:"student_id" db:"student_id"`
	PlanID    uuid.UUID  `json:"plan_id" db:"plan_id"`
	ClassID   *uuid.UUID `json:"class_id,omitempty" db:"class_id"`

	IssueDate   time.Time      `json:"issue_date" db:"issue_date"`
	SigningCity string         `json:"signing_city" db:"signing_city"`
	Status      ContractStatus `json:"status" db:"status"`

	// Tamper evidence and capture of the exact data the document was
	// rendered from.
	PDFHash  string            `json:"pdf_hash,omitempty" db:"pdf_hash"`
	Snapshot map[string]string `json:"snapshot,omitempty" db:"snapshot"`

	IssuedBy  *string    `json:"issued_by,omitempty" db:"issued_by"`
	IssuedAt  *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsFrozen reports whether the document may no longer be edited.
func (c *ContractDocument) IsFrozen() bool {
	return c.Status != ContractStatusDraft
}

// HasNumber reports whether a document number has been assigned.
func (c *ContractDocument) HasNumber() bool {
	return c.Number != ""
}

// QRPayload returns the verification payload printed on the document.
// Empty until the contract is numbered and hashed.
func (c *ContractDocument) QRPayload() string {
	if c.Number == "" || c.PDFHash == "" {
		return ""
	}
	return c.Number + "|" + c.PDFHash
}
