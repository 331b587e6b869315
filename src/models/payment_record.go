package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the billing status of a tuition record
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"   // Settled; sticky, never touched by recompute
	PaymentStatusOpen   PaymentStatus = "open"   // Due, not yet overdue
	PaymentStatusLate   PaymentStatus = "late"   // Past due date
	PaymentStatusExempt PaymentStatus = "exempt" // Waived in full; sticky
)

// Sticky reports whether the status is only entered and exited by explicit
// assignment. The rules engine recomputes open/late freely but never promotes
// a record into, or demotes it out of, a sticky status.
func (s PaymentStatus) Sticky() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExempt
}

// PaymentMethod represents how a tuition charge is settled
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodBoleto PaymentMethod = "boleto"
	PaymentMethodCard   PaymentMethod = "card"
)

// PaymentRecord is one billing period's charge for one student. Records are
// created when a period is scheduled, mutated only by the rules engine and
// explicit status assignment, and never physically deleted.
type PaymentRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	StudentID uuid.UUID  `json:"student_id" db:"student_id"`
	PlanID    *uuid.UUID `json:"plan_id,omitempty" db:"plan_id"`

	// Period is the billing-period marker, normalized to the first day of
	// the month the charge covers.
	Period time.Time `json:"period" db:"period"`

	// Amounts
	BaseAmount decimal.Decimal  `json:"base_amount" db:"base_amount"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty" db:"paid_amount"`
	Discount   decimal.Decimal  `json:"discount" db:"discount"`
	LateFee    decimal.Decimal  `json:"late_fee" db:"late_fee"`
	Interest   decimal.Decimal  `json:"interest" db:"interest"`
	DaysLate   int              `json:"days_late" db:"days_late"`

	// Dates
	DueDate  *time.Time `json:"due_date,omitempty" db:"due_date"`
	PaidDate *time.Time `json:"paid_date,omitempty" db:"paid_date"`

	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	Status        PaymentStatus `json:"status" db:"status"`

	// Invoice fields, written exactly once at issuance and immutable after
	InvoiceNumber     *string    `json:"invoice_number,omitempty" db:"invoice_number"`
	InvoiceIssuedAt   *time.Time `json:"invoice_issued_at,omitempty" db:"invoice_issued_at"`
	InvoiceHash       string     `json:"invoice_hash,omitempty" db:"invoice_hash"`
	PaymentRecordedAt *time.Time `json:"payment_recorded_at,omitempty" db:"payment_recorded_at"`

	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TotalOwed returns base - discount + late fee + interest, clamped at zero.
func (r *PaymentRecord) TotalOwed() decimal.Decimal {
	total := r.BaseAmount.Sub(r.Discount).Add(r.LateFee).Add(r.Interest)
	if total.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return total
}

// AmountReceived returns the paid amount when recorded, otherwise the
// computed total owed. Aggregation views treat this as "received".
func (r *PaymentRecord) AmountReceived() decimal.Decimal {
	if r.PaidAmount != nil {
		return *r.PaidAmount
	}
	return r.TotalOwed()
}

// IsDelinquent reports whether the record counts toward delinquency metrics.
// Exempt periods never do.
func (r *PaymentRecord) IsDelinquent() bool {
	return r.Status == PaymentStatusOpen || r.Status == PaymentStatusLate
}

// HasInvoice reports whether an invoice number has already been assigned.
func (r *PaymentRecord) HasInvoice() bool {
	return r.InvoiceNumber != nil && *r.InvoiceNumber != ""
}

// PaymentRecordBuilder helps construct payment records
type PaymentRecordBuilder struct {
	record *PaymentRecord
}

// NewPaymentRecordBuilder creates a new payment record builder
func NewPaymentRecordBuilder() *PaymentRecordBuilder {
	return &PaymentRecordBuilder{
		record: &PaymentRecord{
			ID:        uuid.New(),
			Status:    PaymentStatusOpen,
			Discount:  decimal.Zero,
			LateFee:   decimal.Zero,
			Interest:  decimal.Zero,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}

// WithStudent sets the student the charge belongs to
func (b *PaymentRecordBuilder) WithStudent(studentID uuid.UUID) *PaymentRecordBuilder {
	b.record.StudentID = studentID
	return b
}

// WithPlan binds the record to a tuition plan
func (b *PaymentRecordBuilder) WithPlan(planID uuid.UUID) *PaymentRecordBuilder {
	b.record.PlanID = &planID
	return b
}

// WithPeriod sets the billing-period marker, normalized to the first of the month
func (b *PaymentRecordBuilder) WithPeriod(period time.Time) *PaymentRecordBuilder {
	b.record.Period = time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	return b
}

// WithBaseAmount sets the gross charge for the period
func (b *PaymentRecordBuilder) WithBaseAmount(amount decimal.Decimal) *PaymentRecordBuilder {
	b.record.BaseAmount = amount
	return b
}

// WithDueDate sets the due date
func (b *PaymentRecordBuilder) WithDueDate(due time.Time) *PaymentRecordBuilder {
	b.record.DueDate = &due
	return b
}

// WithPaymentMethod sets the expected payment method
func (b *PaymentRecordBuilder) WithPaymentMethod(method PaymentMethod) *PaymentRecordBuilder {
	b.record.PaymentMethod = method
	return b
}

// WithStatus sets the initial status
func (b *PaymentRecordBuilder) WithStatus(status PaymentStatus) *PaymentRecordBuilder {
	b.record.Status = status
	return b
}

// WithNotes sets free-form notes
func (b *PaymentRecordBuilder) WithNotes(notes string) *PaymentRecordBuilder {
	b.record.Notes = notes
	return b
}

// Build creates the payment record
func (b *PaymentRecordBuilder) Build() *PaymentRecord {
	return b.record
}
