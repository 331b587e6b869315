package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel represents how often a plan bills the student
type PaymentModel string

const (
	PaymentModelMonthly    PaymentModel = "monthly"
	PaymentModelQuarterly  PaymentModel = "quarterly"
	PaymentModelSemiannual PaymentModel = "semiannual"
	PaymentModelAnnual     PaymentModel = "annual"
)

// ScholarshipType represents the kind of scholarship attached to a plan
type ScholarshipType string

const (
	ScholarshipNone      ScholarshipType = "none"      // No scholarship
	ScholarshipPartial   ScholarshipType = "partial"   // Percentage of the base amount
	ScholarshipFull      ScholarshipType = "full"      // Entire base amount waived
	ScholarshipAgreement ScholarshipType = "agreement" // Partner/agreement percentage
)

// TuitionPlan bundles the pricing policy for a student: discount, scholarship,
// enrollment fee and the overdue penalty percentages applied by the rules engine.
type TuitionPlan struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount" db:"monthly_amount"`
	PaymentModel  PaymentModel    `json:"payment_model" db:"payment_model"`

	// Discount and scholarship policy
	DiscountPercent    decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	ScholarshipType    ScholarshipType `json:"scholarship_type" db:"scholarship_type"`
	ScholarshipPercent decimal.Decimal `json:"scholarship_percent" db:"scholarship_percent"`

	// Billing schedule
	DueDay         int             `json:"due_day" db:"due_day"`
	DurationMonths int             `json:"duration_months" db:"duration_months"`
	EnrollmentFee  decimal.Decimal `json:"enrollment_fee" db:"enrollment_fee"`

	// Overdue penalties
	LateFeePercent       decimal.Decimal `json:"late_fee_percent" db:"late_fee_percent"`             // One-time penalty once overdue
	InterestPercent      decimal.Decimal `json:"interest_percent" db:"interest_percent"`             // One-time interest once overdue
	DailyInterestPercent decimal.Decimal `json:"daily_interest_percent" db:"daily_interest_percent"` // Per day overdue

	DefaultPaymentMethod *PaymentMethod `json:"default_payment_method,omitempty" db:"default_payment_method"`
	Active               bool           `json:"active" db:"active"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// ComputeNetValue returns the tuition value after discount and scholarship.
// The result is clamped at zero so a discount plus a scholarship adding up to
// more than 100% never produces a negative charge.
func (p *TuitionPlan) ComputeNetValue(base decimal.Decimal) decimal.Decimal {
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}

	discount := base.Mul(p.DiscountPercent).Div(hundred)

	var scholarship decimal.Decimal
	switch p.ScholarshipType {
	case ScholarshipFull:
		scholarship = base
	case ScholarshipPartial, ScholarshipAgreement:
		scholarship = base.Mul(p.ScholarshipPercent).Div(hundred)
	}

	net := base.Sub(discount).Sub(scholarship)
	if net.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return net
}

// DiscountFor returns the portion of the base amount forgiven by this plan.
func (p *TuitionPlan) DiscountFor(base decimal.Decimal) decimal.Decimal {
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}
	discount := base.Sub(p.ComputeNetValue(base))
	if discount.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return discount
}
