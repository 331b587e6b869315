package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusoft/tuition-ledger/src/models"
)

// fakeRenderer returns canned bytes or a canned failure
type fakeRenderer struct {
	output []byte
	err    error
	calls  int
	values map[string]string
}

func (r *fakeRenderer) Render(_ context.Context, _ string, values map[string]string) ([]byte, error) {
	r.calls++
	r.values = values
	if r.err != nil {
		return nil, r.err
	}
	return r.output, nil
}

func paidFixtureRecord() *models.PaymentRecord {
	due := date(2024, 1, 5)
	paidDate := date(2024, 1, 4)
	paid := decimal.NewFromFloat(900.00)
	return &models.PaymentRecord{
		ID:         uuid.New(),
		StudentID:  uuid.New(),
		Period:     date(2024, 1, 1),
		BaseAmount: decimal.NewFromFloat(1000.00),
		Discount:   decimal.NewFromFloat(100.00),
		DueDate:    &due,
		PaidDate:   &paidDate,
		PaidAmount: &paid,
		Status:     models.PaymentStatusPaid,
	}
}

func TestIssueInvoiceRequiresPaidStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewInvoiceService(db, &fakeRenderer{})

	for _, status := range []models.PaymentStatus{
		models.PaymentStatusOpen,
		models.PaymentStatusLate,
		models.PaymentStatusExempt,
	} {
		rec := paidFixtureRecord()
		rec.Status = status

		_, err := service.IssueInvoice(context.Background(), rec, nil)

		var stateErr *StateError
		require.True(t, errors.As(err, &stateErr), "status %s must be rejected, got %v", status, err)
		assert.Nil(t, rec.InvoiceNumber, "rejection must not mutate invoice fields")
	}

	// Nothing may touch the database on rejection
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueInvoiceIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	renderer := &fakeRenderer{output: []byte("pdf")}
	service := NewInvoiceService(db, renderer)

	rec := paidFixtureRecord()
	number := "INV-2024-000007"
	rec.InvoiceNumber = &number
	rec.InvoiceHash = "cafe"

	result, err := service.IssueInvoice(context.Background(), rec, nil)
	require.NoError(t, err)

	assert.Equal(t, "cafe", result.Hash)
	assert.Equal(t, number, *result.Payment.InvoiceNumber)
	assert.Zero(t, renderer.calls, "already-invoiced records must not re-render")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueInvoiceAssignsNumberAndHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	document := []byte("rendered invoice bytes")
	renderer := &fakeRenderer{output: document}
	service := NewInvoiceService(db, renderer)
	rec := paidFixtureRecord()

	expectSeedQueries(mock, nil, nil)
	expectAllocation(mock, 0)
	mock.ExpectExec(`UPDATE payment_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_entries`).WillReturnResult(sqlmock.NewResult(0, 1))

	actor := "bursar"
	result, err := service.IssueInvoice(context.Background(), rec, &actor)
	require.NoError(t, err)

	require.NotNil(t, rec.InvoiceNumber)
	assert.Equal(t, "INV-2024-000001", *rec.InvoiceNumber)
	assert.NotNil(t, rec.InvoiceIssuedAt)

	digest := sha256.Sum256(document)
	assert.Equal(t, hex.EncodeToString(digest[:]), result.Hash)
	assert.Equal(t, result.Hash, rec.InvoiceHash)

	// Renderer only ever sees pre-formatted values
	assert.Equal(t, "1.000,00", renderer.values["base_amount"])
	assert.Equal(t, "900,00", renderer.values["total"])
	assert.Equal(t, "04/01/2024", renderer.values["paid_date"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueInvoiceRenderFailureCommitsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	renderer := &fakeRenderer{err: errors.New("weasyprint unavailable")}
	service := NewInvoiceService(db, renderer)
	rec := paidFixtureRecord()

	// The sequence is allocated before rendering; the resulting gap is
	// acceptable, the invoice fields are not written.
	expectSeedQueries(mock, nil, nil)
	expectAllocation(mock, 0)

	_, err = service.IssueInvoice(context.Background(), rec, nil)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr), "expected RenderError, got %v", err)
	assert.Nil(t, rec.InvoiceNumber)
	assert.Empty(t, rec.InvoiceHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueInvoiceLostRaceRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewInvoiceService(db, &fakeRenderer{output: []byte("pdf")})
	rec := paidFixtureRecord()

	expectSeedQueries(mock, nil, nil)
	expectAllocation(mock, 0)
	// Another writer invoiced the record between load and update
	mock.ExpectExec(`UPDATE payment_records`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = service.IssueInvoice(context.Background(), rec, nil)

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr), "expected StateError, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
