package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTotalOwed(t *testing.T) {
	tests := []struct {
		name     string
		base     decimal.Decimal
		discount decimal.Decimal
		lateFee  decimal.Decimal
		interest decimal.Decimal
		expected decimal.Decimal
	}{
		{
			name:     "Base only",
			base:     decimal.NewFromFloat(1000.00),
			expected: decimal.NewFromFloat(1000.00),
		},
		{
			name:     "With discount",
			base:     decimal.NewFromFloat(1000.00),
			discount: decimal.NewFromFloat(100.00),
			expected: decimal.NewFromFloat(900.00),
		},
		{
			name:     "With penalties",
			base:     decimal.NewFromFloat(1000.00),
			discount: decimal.NewFromFloat(100.00),
			lateFee:  decimal.NewFromFloat(18.00),
			interest: decimal.NewFromFloat(13.455),
			expected: decimal.NewFromFloat(931.455),
		},
		{
			name:     "Discount above base clamps at zero",
			base:     decimal.NewFromFloat(100.00),
			discount: decimal.NewFromFloat(150.00),
			expected: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PaymentRecord{
				BaseAmount: tt.base,
				Discount:   tt.discount,
				LateFee:    tt.lateFee,
				Interest:   tt.interest,
			}
			result := rec.TotalOwed()
			if !result.Equal(tt.expected) {
				t.Errorf("TotalOwed() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountReceived(t *testing.T) {
	rec := &PaymentRecord{
		BaseAmount: decimal.NewFromFloat(1000.00),
		Discount:   decimal.NewFromFloat(100.00),
	}

	// Falls back to the computed total when no paid amount was recorded
	if got := rec.AmountReceived(); !got.Equal(decimal.NewFromFloat(900.00)) {
		t.Errorf("AmountReceived() = %v, want 900", got)
	}

	paid := decimal.NewFromFloat(850.00)
	rec.PaidAmount = &paid
	if got := rec.AmountReceived(); !got.Equal(paid) {
		t.Errorf("AmountReceived() = %v, want %v", got, paid)
	}
}

func TestPaymentStatusSticky(t *testing.T) {
	sticky := map[PaymentStatus]bool{
		PaymentStatusPaid:   true,
		PaymentStatusExempt: true,
		PaymentStatusOpen:   false,
		PaymentStatusLate:   false,
	}
	for status, want := range sticky {
		if got := status.Sticky(); got != want {
			t.Errorf("%s.Sticky() = %v, want %v", status, got, want)
		}
	}
}

func TestIsDelinquent(t *testing.T) {
	for status, want := range map[PaymentStatus]bool{
		PaymentStatusOpen:   true,
		PaymentStatusLate:   true,
		PaymentStatusPaid:   false,
		PaymentStatusExempt: false,
	} {
		rec := &PaymentRecord{Status: status}
		if got := rec.IsDelinquent(); got != want {
			t.Errorf("IsDelinquent() with %s = %v, want %v", status, got, want)
		}
	}
}

func TestPaymentRecordBuilderNormalizesPeriod(t *testing.T) {
	studentID := uuid.New()
	rec := NewPaymentRecordBuilder().
		WithStudent(studentID).
		WithPeriod(time.Date(2024, 3, 17, 14, 30, 0, 0, time.UTC)).
		WithBaseAmount(decimal.NewFromFloat(500.00)).
		Build()

	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !rec.Period.Equal(want) {
		t.Errorf("Period = %v, want %v", rec.Period, want)
	}
	if rec.StudentID != studentID {
		t.Errorf("StudentID = %v, want %v", rec.StudentID, studentID)
	}
	if rec.Status != PaymentStatusOpen {
		t.Errorf("Status = %v, want open", rec.Status)
	}
}

func TestHasInvoice(t *testing.T) {
	rec := &PaymentRecord{}
	if rec.HasInvoice() {
		t.Error("HasInvoice() = true for record without a number")
	}

	empty := ""
	rec.InvoiceNumber = &empty
	if rec.HasInvoice() {
		t.Error("HasInvoice() = true for empty number")
	}

	number := "INV-2024-000001"
	rec.InvoiceNumber = &number
	if !rec.HasInvoice() {
		t.Error("HasInvoice() = false for numbered record")
	}
}
