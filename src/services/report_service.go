package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edusoft/tuition-ledger/src/models"
)

// receivedExpr is the SQL rendering of "received": the recorded paid amount
// when present, otherwise the computed total owed.
const receivedExpr = `COALESCE(paid_amount, GREATEST(base_amount - discount + late_fee + interest, 0))`

// totalOwedExpr is the SQL rendering of the clamped total owed.
const totalOwedExpr = `GREATEST(base_amount - discount + late_fee + interest, 0)`

// ReportService runs the batch recompute sweep and serves the read-only
// financial aggregation views.
type ReportService struct {
	db     *sql.DB
	rules  *BillingRulesService
	audit  *AuditTrailService
	logger *logrus.Logger
}

// NewReportService creates a new report service
func NewReportService(db *sql.DB, logger *logrus.Logger) *ReportService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReportService{
		db:     db,
		rules:  NewBillingRulesService(db),
		audit:  NewAuditTrailService(db),
		logger: logger,
	}
}

// RecomputeFilter narrows which records a sweep touches. Zero values mean
// no constraint.
type RecomputeFilter struct {
	StudentID  *uuid.UUID
	PeriodFrom *time.Time
	PeriodTo   *time.Time
}

// RecomputeResult reports aggregate sweep counts
type RecomputeResult struct {
	Updated int `json:"updated"`
	Audited int `json:"audited"`
}

// RecomputeBatch re-applies the billing rules to every non-paid candidate.
// Each record is its own consistency unit: apply, persist and audit either
// all land for a record or none do, and one bad record never aborts the
// sweep.
func (s *ReportService) RecomputeBatch(ctx context.Context, filter RecomputeFilter, referenceDate time.Time) (*RecomputeResult, error) {
	candidates, err := s.loadCandidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load recompute candidates: %w", err)
	}

	result := &RecomputeResult{}
	for _, rec := range candidates {
		if err := s.recomputeOne(ctx, rec, referenceDate, result); err != nil {
			s.logger.WithError(err).WithField("payment_record_id", rec.ID).Warn("recompute failed for record, continuing sweep")
		}
	}
	return result, nil
}

func (s *ReportService) recomputeOne(ctx context.Context, rec *models.PaymentRecord, referenceDate time.Time, result *RecomputeResult) error {
	before := s.audit.Snapshot(rec)
	previousStatus := rec.Status

	if err := s.rules.Apply(ctx, rec, referenceDate); err != nil {
		return err
	}

	changes := s.audit.Diff(before, s.audit.Snapshot(rec))
	if len(changes) == 0 {
		return nil
	}

	rec.UpdatedAt = time.Now()
	if err := s.rules.updateRecord(ctx, rec); err != nil {
		return err
	}
	result.Updated++

	action := s.audit.ClassifyAction(changes, false)
	newStatus := rec.Status
	if _, err := s.audit.Record(ctx, rec, action, &previousStatus, &newStatus, changes, nil); err != nil {
		return err
	}
	result.Audited++
	return nil
}

func (s *ReportService) loadCandidates(ctx context.Context, filter RecomputeFilter) ([]*models.PaymentRecord, error) {
	query := paymentRecordSelect + ` WHERE status != $1`
	args := []interface{}{models.PaymentStatusPaid}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.PeriodFrom != nil {
		args = append(args, *filter.PeriodFrom)
		query += fmt.Sprintf(" AND period >= $%d", len(args))
	}
	if filter.PeriodTo != nil {
		args = append(args, *filter.PeriodTo)
		query += fmt.Sprintf(" AND period <= $%d", len(args))
	}
	query += ` ORDER BY period, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.PaymentRecord
	for rows.Next() {
		rec, err := scanPaymentRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MonthlyAmount is one month's aggregated total
type MonthlyAmount struct {
	Month string          `json:"month"` // YYYY-MM
	Total decimal.Decimal `json:"total"`
}

// NamedAmount is an aggregated total keyed by a dimension label
type NamedAmount struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// RevenueByMonth returns received revenue from paid records grouped by
// billing period.
func (s *ReportService) RevenueByMonth(ctx context.Context, from, to time.Time) ([]MonthlyAmount, error) {
	query := `
		SELECT TO_CHAR(period, 'YYYY-MM') AS month, COALESCE(SUM(` + receivedExpr + `), 0) AS total
		FROM payment_records
		WHERE status = $1 AND period >= $2 AND period <= $3
		GROUP BY 1
		ORDER BY 1
	`
	return s.queryMonthlyAmounts(ctx, query, models.PaymentStatusPaid, from, to)
}

// RevenueByClass returns received revenue from paid records grouped by the
// student's class. Students without a class fall into an empty bucket.
func (s *ReportService) RevenueByClass(ctx context.Context) ([]NamedAmount, error) {
	query := `
		SELECT COALESCE(st.class_id::TEXT, '') AS name, COALESCE(SUM(` + receivedExpr + `), 0) AS total
		FROM payment_records pr
		JOIN students st ON st.id = pr.student_id
		WHERE pr.status = $1
		GROUP BY 1
		ORDER BY total DESC
	`
	return s.queryNamedAmounts(ctx, query, models.PaymentStatusPaid)
}

// RevenueByPlan returns received revenue from paid records grouped by plan
// name, falling back to the student's default plan when the record has none.
func (s *ReportService) RevenueByPlan(ctx context.Context) ([]NamedAmount, error) {
	query := `
		SELECT COALESCE(tp.name, dp.name, 'no plan') AS name, COALESCE(SUM(` + receivedExpr + `), 0) AS total
		FROM payment_records pr
		JOIN students st ON st.id = pr.student_id
		LEFT JOIN tuition_plans tp ON tp.id = pr.plan_id
		LEFT JOIN tuition_plans dp ON dp.id = st.default_plan_id
		WHERE pr.status = $1
		GROUP BY 1
		ORDER BY total DESC
	`
	return s.queryNamedAmounts(ctx, query, models.PaymentStatusPaid)
}

// DelinquencyStats summarizes overdue billing as of a date
type DelinquencyStats struct {
	TotalBillable   int             `json:"total_billable"`   // Exempt periods excluded
	Delinquent      int             `json:"delinquent"`       // Open or late, past due
	DelinquencyRate decimal.Decimal `json:"delinquency_rate"` // Percent, 2 decimal places
	AmountOverdue   decimal.Decimal `json:"amount_overdue"`
}

// Delinquency reports overdue counts and amounts. Exempt records are
// excluded from both the delinquent and the billable side.
func (s *ReportService) Delinquency(ctx context.Context, asOf time.Time) (*DelinquencyStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status != $1) AS total_billable,
			COUNT(*) FILTER (WHERE status IN ($2, $3) AND due_date < $4) AS delinquent,
			COALESCE(SUM(` + totalOwedExpr + `) FILTER (WHERE status IN ($2, $3) AND due_date < $4), 0) AS amount_overdue
		FROM payment_records
	`

	stats := &DelinquencyStats{}
	err := s.db.QueryRowContext(ctx, query,
		models.PaymentStatusExempt, models.PaymentStatusOpen, models.PaymentStatusLate, asOf,
	).Scan(&stats.TotalBillable, &stats.Delinquent, &stats.AmountOverdue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute delinquency stats: %w", err)
	}

	if stats.TotalBillable > 0 {
		stats.DelinquencyRate = decimal.NewFromInt(int64(stats.Delinquent)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(stats.TotalBillable))).
			Round(2)
	}
	return stats, nil
}

// RevenueProjection sums the expected total owed for future periods.
// Exempt periods are excluded; payment status is ignored otherwise since
// unpaid periods are still expected revenue.
func (s *ReportService) RevenueProjection(ctx context.Context, from, to time.Time) ([]MonthlyAmount, error) {
	query := `
		SELECT TO_CHAR(period, 'YYYY-MM') AS month, COALESCE(SUM(` + totalOwedExpr + `), 0) AS total
		FROM payment_records
		WHERE status != $1 AND period >= $2 AND period <= $3
		GROUP BY 1
		ORDER BY 1
	`
	return s.queryMonthlyAmounts(ctx, query, models.PaymentStatusExempt, from, to)
}

// MonthlyExpenses returns operational expenses grouped by month.
func (s *ReportService) MonthlyExpenses(ctx context.Context, from, to time.Time) ([]MonthlyAmount, error) {
	query := `
		SELECT TO_CHAR(date, 'YYYY-MM') AS month, COALESCE(SUM(amount), 0) AS total
		FROM expenses
		WHERE date >= $1 AND date <= $2
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	defer rows.Close()
	return collectMonthlyAmounts(rows)
}

// StaffPayrollByMonth returns net staff payroll grouped by period month.
func (s *ReportService) StaffPayrollByMonth(ctx context.Context, from, to time.Time) ([]MonthlyAmount, error) {
	query := `
		SELECT TO_CHAR(period, 'YYYY-MM') AS month, COALESCE(SUM(COALESCE(net, gross - deductions)), 0) AS total
		FROM staff_payments
		WHERE period >= $1 AND period <= $2
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate staff payroll: %w", err)
	}
	defer rows.Close()
	return collectMonthlyAmounts(rows)
}

func (s *ReportService) queryMonthlyAmounts(ctx context.Context, query string, args ...interface{}) ([]MonthlyAmount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer rows.Close()
	return collectMonthlyAmounts(rows)
}

func (s *ReportService) queryNamedAmounts(ctx context.Context, query string, args ...interface{}) ([]NamedAmount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer rows.Close()

	var amounts []NamedAmount
	for rows.Next() {
		var amount NamedAmount
		if err := rows.Scan(&amount.Name, &amount.Total); err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}

func collectMonthlyAmounts(rows *sql.Rows) ([]MonthlyAmount, error) {
	var amounts []MonthlyAmount
	for rows.Next() {
		var amount MonthlyAmount
		if err := rows.Scan(&amount.Month, &amount.Total); err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}
