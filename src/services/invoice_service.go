package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/edusoft/tuition-ledger/src/models"
)

// InvoiceService issues numbered invoices for settled payment records. The
// number, issuance timestamp and content hash are written exactly once.
type InvoiceService struct {
	db       *sql.DB
	sequence *SequenceService
	audit    *AuditTrailService
	renderer Renderer
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(db *sql.DB, renderer Renderer) *InvoiceService {
	return &InvoiceService{
		db:       db,
		sequence: NewSequenceService(db),
		audit:    NewAuditTrailService(db),
		renderer: renderer,
	}
}

// InvoiceIssueResult contains the outcome of issuing an invoice
type InvoiceIssueResult struct {
	Payment  *models.PaymentRecord
	Document []byte
	Hash     string
}

// IssueInvoice allocates an invoice number for a paid record, renders the
// invoice and stores number, timestamp and content hash. Re-issuing an
// already-invoiced record returns it unchanged. Rejected outright when the
// record is not paid; a renderer failure commits nothing.
func (s *InvoiceService) IssueInvoice(ctx context.Context, payment *models.PaymentRecord, actor *string) (*InvoiceIssueResult, error) {
	if payment.Status != models.PaymentStatusPaid {
		return nil, &StateError{
			Op:     "issue invoice",
			Reason: fmt.Sprintf("payment record %s is %s, only paid records are invoiced", payment.ID, payment.Status),
		}
	}

	now := time.Now()
	if payment.PaymentRecordedAt == nil {
		payment.PaymentRecordedAt = &now
	}
	if payment.PaidDate == nil {
		payment.PaidDate = &now
	}

	// Issuance is idempotent: an invoice number is assigned at most once.
	if payment.HasInvoice() {
		return &InvoiceIssueResult{Payment: payment, Hash: payment.InvoiceHash}, nil
	}

	year := payment.PaidDate.Year()
	number, err := s.sequence.Next(ctx, InvoiceNumberPrefix, year)
	if err != nil {
		return nil, err
	}

	values := s.buildInvoiceContext(payment, number, now)
	document, err := s.renderer.Render(ctx, "invoice", values)
	if err != nil {
		return nil, &RenderError{Document: number, Err: err}
	}

	digest := sha256.Sum256(document)
	hash := hex.EncodeToString(digest[:])

	payment.InvoiceNumber = &number
	payment.InvoiceIssuedAt = &now
	payment.InvoiceHash = hash
	payment.UpdatedAt = now

	query := `
		UPDATE payment_records
		SET invoice_number = $1,
		    invoice_issued_at = $2,
		    invoice_hash = $3,
		    payment_recorded_at = $4,
		    paid_date = $5,
		    updated_at = $6
		WHERE id = $7 AND invoice_number IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		number, now, hash, payment.PaymentRecordedAt, payment.PaidDate, now, payment.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store invoice fields: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, &StateError{
			Op:     "issue invoice",
			Reason: fmt.Sprintf("payment record %s already has an invoice number", payment.ID),
		}
	}

	status := payment.Status
	detail := map[string]models.FieldChange{
		"invoice_number": {To: &number},
	}
	if _, err := s.audit.Record(ctx, payment, models.AuditActionInvoiceIssued, &status, &status, detail, actor); err != nil {
		return nil, err
	}

	return &InvoiceIssueResult{Payment: payment, Document: document, Hash: hash}, nil
}

// buildInvoiceContext prepares the formatted values the renderer works
// from. All monetary values are pre-formatted; the renderer never computes.
func (s *InvoiceService) buildInvoiceContext(payment *models.PaymentRecord, number string, issuedAt time.Time) map[string]string {
	return map[string]string{
		"invoice_number": number,
		"issued_at":      formatDateTime(&issuedAt),
		"period":         payment.Period.Format("01/2006"),
		"due_date":       formatDate(payment.DueDate),
		"paid_date":      formatDate(payment.PaidDate),
		"base_amount":    formatCurrency(payment.BaseAmount),
		"discount":       formatCurrency(payment.Discount),
		"late_fee":       formatCurrency(payment.LateFee),
		"interest":       formatCurrency(payment.Interest),
		"total":          formatCurrency(payment.TotalOwed().Round(2)),
		"amount_paid":    formatCurrency(payment.AmountReceived().Round(2)),
		"status":         string(payment.Status),
		"payment_method": string(payment.PaymentMethod),
	}
}
