package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StaffPaymentStatus represents the status of a staff payroll entry
type StaffPaymentStatus string

const (
	StaffPaymentStatusPaid    StaffPaymentStatus = "paid"
	StaffPaymentStatusPending StaffPaymentStatus = "pending"
)

// StaffPayment is one payroll period for one staff member.
type StaffPayment struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	StaffID    uuid.UUID        `json:"staff_id" db:"staff_id"`
	Period     time.Time        `json:"period" db:"period"`
	Gross      decimal.Decimal  `json:"gross" db:"gross"`
	Deductions decimal.Decimal  `json:"deductions" db:"deductions"`
	Net        *decimal.Decimal `json:"net,omitempty" db:"net"`
	PaidDate   *time.Time       `json:"paid_date,omitempty" db:"paid_date"`

	Status    StaffPaymentStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

// NetAmount returns the recorded net value, defaulting to gross minus
// deductions when it was never set explicitly.
func (p *StaffPayment) NetAmount() decimal.Decimal {
	if p.Net != nil {
		return *p.Net
	}
	return p.Gross.Sub(p.Deductions)
}
