package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusoft/tuition-ledger/src/models"
)

var paymentRecordColumns = []string{
	"id", "student_id", "plan_id", "period",
	"base_amount", "paid_amount", "discount", "late_fee", "interest", "days_late",
	"due_date", "paid_date", "payment_method", "status",
	"invoice_number", "invoice_issued_at", "invoice_hash", "payment_recorded_at",
	"notes", "created_at", "updated_at",
}

type candidateRow struct {
	planID   uuid.UUID
	dueDate  time.Time
	discount string
}

func addCandidate(rows *sqlmock.Rows, c candidateRow) {
	now := time.Now()
	rows.AddRow(
		uuid.New().String(), uuid.New().String(), c.planID.String(), date(2024, 1, 1),
		"1000", nil, c.discount, "0", "0", 0,
		c.dueDate, nil, "", string(models.PaymentStatusOpen),
		nil, nil, "", nil,
		"", now, now,
	)
}

func TestRecomputeBatchAppliesRulesAndAudits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, hook := logtest.NewNullLogger()
	service := NewReportService(db, logger)
	planID := uuid.New()

	rows := sqlmock.NewRows(paymentRecordColumns)
	addCandidate(rows, candidateRow{planID: planID, dueDate: date(2024, 1, 5), discount: "0"})
	mock.ExpectQuery(`SELECT id, student_id, plan_id, period`).WillReturnRows(rows)

	expectPlanLookup(mock, planID)
	mock.ExpectExec(`UPDATE payment_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_entries`).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.RecomputeBatch(context.Background(), RecomputeFilter{}, date(2024, 1, 20))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Audited)
	assert.Empty(t, hook.Entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeBatchSkipsUnchangedRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, hook := logtest.NewNullLogger()
	service := NewReportService(db, logger)
	planID := uuid.New()

	// Not yet due and discount already at 10% of base: recomputation lands
	// on identical values and no update or audit entry is written.
	rows := sqlmock.NewRows(paymentRecordColumns)
	addCandidate(rows, candidateRow{planID: planID, dueDate: date(2024, 2, 10), discount: "100"})
	mock.ExpectQuery(`SELECT id, student_id, plan_id, period`).WillReturnRows(rows)

	expectPlanLookup(mock, planID)

	result, err := service.RecomputeBatch(context.Background(), RecomputeFilter{}, date(2024, 1, 20))
	require.NoError(t, err)

	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Audited)
	assert.Empty(t, hook.Entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeBatchIsolatesFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, hook := logtest.NewNullLogger()
	service := NewReportService(db, logger)
	brokenPlanID := uuid.New()
	goodPlanID := uuid.New()

	rows := sqlmock.NewRows(paymentRecordColumns)
	addCandidate(rows, candidateRow{planID: brokenPlanID, dueDate: date(2024, 1, 5), discount: "0"})
	addCandidate(rows, candidateRow{planID: goodPlanID, dueDate: date(2024, 1, 5), discount: "0"})
	mock.ExpectQuery(`SELECT id, student_id, plan_id, period`).WillReturnRows(rows)

	// First record fails at plan resolution and is skipped, the second one
	// still lands.
	mock.ExpectQuery(`SELECT id, name, monthly_amount`).WillReturnError(errors.New("connection reset"))
	expectPlanLookup(mock, goodPlanID)
	mock.ExpectExec(`UPDATE payment_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_entries`).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.RecomputeBatch(context.Background(), RecomputeFilter{}, date(2024, 1, 20))
	require.NoError(t, err, "a failing record must not abort the sweep")

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Audited)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
	assert.Contains(t, hook.Entries[0].Data, "payment_record_id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelinquencyRate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewReportService(db, nil)

	mock.ExpectQuery(`SELECT`).WillReturnRows(
		sqlmock.NewRows([]string{"total_billable", "delinquent", "amount_overdue"}).
			AddRow(8, 2, "1862.91"),
	)

	stats, err := service.Delinquency(context.Background(), date(2024, 1, 20))
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalBillable)
	assert.Equal(t, 2, stats.Delinquent)
	assert.True(t, stats.DelinquencyRate.Equal(decimal.NewFromFloat(25)), "got %s", stats.DelinquencyRate)
	assert.True(t, stats.AmountOverdue.Equal(decimal.RequireFromString("1862.91")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelinquencyEmptyLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewReportService(db, nil)

	mock.ExpectQuery(`SELECT`).WillReturnRows(
		sqlmock.NewRows([]string{"total_billable", "delinquent", "amount_overdue"}).
			AddRow(0, 0, "0"),
	)

	stats, err := service.Delinquency(context.Background(), date(2024, 1, 20))
	require.NoError(t, err)

	assert.True(t, stats.DelinquencyRate.IsZero(), "rate must stay zero with nothing billable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueByMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewReportService(db, nil)

	mock.ExpectQuery(`SELECT TO_CHAR\(period, 'YYYY-MM'\)`).WillReturnRows(
		sqlmock.NewRows([]string{"month", "total"}).
			AddRow("2024-01", "18500.00").
			AddRow("2024-02", "17230.50"),
	)

	amounts, err := service.RevenueByMonth(context.Background(), date(2024, 1, 1), date(2024, 2, 29))
	require.NoError(t, err)

	require.Len(t, amounts, 2)
	assert.Equal(t, "2024-01", amounts[0].Month)
	assert.True(t, amounts[0].Total.Equal(decimal.RequireFromString("18500.00")))
	assert.Equal(t, "2024-02", amounts[1].Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}
