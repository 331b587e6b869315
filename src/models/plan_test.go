package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeNetValue(t *testing.T) {
	tests := []struct {
		name            string
		base            decimal.Decimal
		discountPct     decimal.Decimal
		scholarship     ScholarshipType
		scholarshipPct  decimal.Decimal
		expected        decimal.Decimal
	}{
		{
			name:        "No discount or scholarship",
			base:        decimal.NewFromFloat(1000.00),
			discountPct: decimal.Zero,
			scholarship: ScholarshipNone,
			expected:    decimal.NewFromFloat(1000.00),
		},
		{
			name:        "Plain discount",
			base:        decimal.NewFromFloat(1000.00),
			discountPct: decimal.NewFromFloat(10),
			scholarship: ScholarshipNone,
			expected:    decimal.NewFromFloat(900.00),
		},
		{
			name:        "Full scholarship",
			base:        decimal.NewFromFloat(1000.00),
			discountPct: decimal.Zero,
			scholarship: ScholarshipFull,
			expected:    decimal.Zero,
		},
		{
			name:           "Partial scholarship",
			base:           decimal.NewFromFloat(1000.00),
			discountPct:    decimal.Zero,
			scholarship:    ScholarshipPartial,
			scholarshipPct: decimal.NewFromFloat(50),
			expected:       decimal.NewFromFloat(500.00),
		},
		{
			name:           "Agreement scholarship",
			base:           decimal.NewFromFloat(800.00),
			discountPct:    decimal.Zero,
			scholarship:    ScholarshipAgreement,
			scholarshipPct: decimal.NewFromFloat(25),
			expected:       decimal.NewFromFloat(600.00),
		},
		{
			name:           "Discount and scholarship combined",
			base:           decimal.NewFromFloat(1000.00),
			discountPct:    decimal.NewFromFloat(10),
			scholarship:    ScholarshipPartial,
			scholarshipPct: decimal.NewFromFloat(30),
			expected:       decimal.NewFromFloat(600.00),
		},
		{
			name:        "100% discount",
			base:        decimal.NewFromFloat(1000.00),
			discountPct: decimal.NewFromFloat(100),
			scholarship: ScholarshipNone,
			expected:    decimal.Zero,
		},
		{
			name:           "Combined over 100% clamps at zero",
			base:           decimal.NewFromFloat(1000.00),
			discountPct:    decimal.NewFromFloat(60),
			scholarship:    ScholarshipPartial,
			scholarshipPct: decimal.NewFromFloat(60),
			expected:       decimal.Zero,
		},
		{
			name:        "Full scholarship with discount still zero",
			base:        decimal.NewFromFloat(1000.00),
			discountPct: decimal.NewFromFloat(10),
			scholarship: ScholarshipFull,
			expected:    decimal.Zero,
		},
		{
			name:        "Zero base",
			base:        decimal.Zero,
			discountPct: decimal.NewFromFloat(10),
			scholarship: ScholarshipNone,
			expected:    decimal.Zero,
		},
		{
			name:        "Negative base treated as zero",
			base:        decimal.NewFromFloat(-500.00),
			discountPct: decimal.NewFromFloat(10),
			scholarship: ScholarshipNone,
			expected:    decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &TuitionPlan{
				DiscountPercent:    tt.discountPct,
				ScholarshipType:    tt.scholarship,
				ScholarshipPercent: tt.scholarshipPct,
			}
			result := plan.ComputeNetValue(tt.base)
			if !result.Equal(tt.expected) {
				t.Errorf("ComputeNetValue() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestComputeNetValueStaysWithinBounds(t *testing.T) {
	bases := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromFloat(0.01),
		decimal.NewFromFloat(750.50),
		decimal.NewFromFloat(10000.00),
	}
	discounts := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromFloat(5),
		decimal.NewFromFloat(50),
		decimal.NewFromFloat(100),
		decimal.NewFromFloat(150),
	}
	scholarships := []struct {
		kind ScholarshipType
		pct  decimal.Decimal
	}{
		{ScholarshipNone, decimal.Zero},
		{ScholarshipPartial, decimal.NewFromFloat(30)},
		{ScholarshipAgreement, decimal.NewFromFloat(80)},
		{ScholarshipFull, decimal.Zero},
	}

	for _, base := range bases {
		for _, discount := range discounts {
			for _, sch := range scholarships {
				plan := &TuitionPlan{
					DiscountPercent:    discount,
					ScholarshipType:    sch.kind,
					ScholarshipPercent: sch.pct,
				}
				net := plan.ComputeNetValue(base)
				if net.LessThan(decimal.Zero) {
					t.Errorf("net %v below zero for base=%v discount=%v scholarship=%v", net, base, discount, sch.kind)
				}
				if net.GreaterThan(base) {
					t.Errorf("net %v above base %v for discount=%v scholarship=%v", net, base, discount, sch.kind)
				}
			}
		}
	}
}

func TestDiscountFor(t *testing.T) {
	plan := &TuitionPlan{
		DiscountPercent: decimal.NewFromFloat(10),
		ScholarshipType: ScholarshipNone,
	}

	discount := plan.DiscountFor(decimal.NewFromFloat(1000.00))
	if !discount.Equal(decimal.NewFromFloat(100.00)) {
		t.Errorf("DiscountFor() = %v, want 100", discount)
	}

	full := &TuitionPlan{ScholarshipType: ScholarshipFull}
	discount = full.DiscountFor(decimal.NewFromFloat(500.00))
	if !discount.Equal(decimal.NewFromFloat(500.00)) {
		t.Errorf("DiscountFor() with full scholarship = %v, want 500", discount)
	}
}
