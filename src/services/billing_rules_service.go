package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edusoft/tuition-ledger/src/models"
)

// BillingRulesService recomputes the derived fields of a payment record:
// discount from the effective plan, late fee and interest once overdue, and
// the open/late status. Paid and exempt are sticky; the engine never enters
// or leaves them on its own. Applying twice with the same reference date is
// a no-op the second time.
type BillingRulesService struct {
	db    *sql.DB
	audit *AuditTrailService
}

// NewBillingRulesService creates a new billing rules service
func NewBillingRulesService(db *sql.DB) *BillingRulesService {
	return &BillingRulesService{
		db:    db,
		audit: NewAuditTrailService(db),
	}
}

// Apply resolves the effective plan and recomputes the record's derived
// fields against the reference date. Only derived fields are mutated; the
// invoice fields are never touched here.
func (s *BillingRulesService) Apply(ctx context.Context, rec *models.PaymentRecord, referenceDate time.Time) error {
	plan, err := s.ResolveEffectivePlan(ctx, rec)
	if err != nil {
		return err
	}
	applyRules(rec, plan, referenceDate)
	return nil
}

// ApplyRulesAndPersist applies the rules, persists the record and appends
// one audit entry when anything tracked actually changed. The reference
// date defaults to the paid date when set, otherwise today.
func (s *BillingRulesService) ApplyRulesAndPersist(ctx context.Context, rec *models.PaymentRecord, actor *string) (*models.PaymentRecord, error) {
	stored, err := s.GetRecord(ctx, rec.ID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load payment record: %w", err)
	}
	isNew := stored == nil

	var before map[string]*string
	var previousStatus *models.PaymentStatus
	if !isNew {
		before = s.audit.Snapshot(stored)
		status := stored.Status
		previousStatus = &status
	}

	if err := s.Apply(ctx, rec, resolveReferenceDate(rec)); err != nil {
		return nil, err
	}

	rec.UpdatedAt = time.Now()
	if isNew {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}
		if err := s.insertRecord(ctx, rec); err != nil {
			return nil, err
		}
		newStatus := rec.Status
		_, err = s.audit.Record(ctx, rec, models.AuditActionCreated, nil, &newStatus, nil, actor)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	changes := s.audit.Diff(before, s.audit.Snapshot(rec))
	if len(changes) == 0 {
		return rec, nil
	}

	if err := s.updateRecord(ctx, rec); err != nil {
		return nil, err
	}

	action := s.audit.ClassifyAction(changes, false)
	newStatus := rec.Status
	if _, err := s.audit.Record(ctx, rec, action, previousStatus, &newStatus, changes, actor); err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveEffectivePlan returns the record's plan, falling back to the
// student's default plan. The fallback is bound onto the record so later
// plan changes on the student do not retroactively reprice the period. A
// nil plan with a nil error means the record genuinely has none.
func (s *BillingRulesService) ResolveEffectivePlan(ctx context.Context, rec *models.PaymentRecord) (*models.TuitionPlan, error) {
	if rec.PlanID != nil {
		plan, err := s.GetPlan(ctx, *rec.PlanID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load plan: %w", err)
		}
		return plan, nil
	}

	var defaultPlanID uuid.NullUUID
	query := `SELECT default_plan_id FROM students WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, rec.StudentID).Scan(&defaultPlanID)
	if err == sql.ErrNoRows || (err == nil && !defaultPlanID.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load student plan: %w", err)
	}

	plan, err := s.GetPlan(ctx, defaultPlanID.UUID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	rec.PlanID = &plan.ID
	return plan, nil
}

// applyRules is the pure rules computation. It mutates only derived fields
// and never errors: malformed or negative monetary inputs are treated as
// zero.
func applyRules(rec *models.PaymentRecord, plan *models.TuitionPlan, referenceDate time.Time) {
	base := rec.BaseAmount
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}

	rec.Discount = decimal.Zero
	if plan != nil {
		rec.Discount = plan.DiscountFor(base)
	}

	if rec.Status == models.PaymentStatusExempt {
		// A waived period carries no penalties no matter how overdue it is.
		rec.Discount = base
		rec.LateFee = decimal.Zero
		rec.Interest = decimal.Zero
		rec.DaysLate = 0
		zero := decimal.Zero
		rec.PaidAmount = &zero
		return
	}

	rec.LateFee = decimal.Zero
	rec.Interest = decimal.Zero

	daysLate := 0
	if rec.DueDate != nil {
		daysLate = daysBetween(*rec.DueDate, referenceDate)
	}
	rec.DaysLate = daysLate

	if plan != nil && daysLate > 0 {
		netBase := base.Sub(rec.Discount)
		if netBase.LessThan(decimal.Zero) {
			netBase = decimal.Zero
		}
		rec.LateFee = percentOf(netBase, plan.LateFeePercent)
		fixedInterest := percentOf(netBase, plan.InterestPercent)
		dailyInterest := percentOf(netBase, plan.DailyInterestPercent).Mul(decimal.NewFromInt(int64(daysLate)))
		rec.Interest = fixedInterest.Add(dailyInterest)
	}

	if rec.Status != models.PaymentStatusPaid {
		if daysLate > 0 {
			rec.Status = models.PaymentStatusLate
		} else {
			rec.Status = models.PaymentStatusOpen
		}
	}

	if rec.Status == models.PaymentStatusPaid {
		if rec.PaidDate == nil {
			paidDate := referenceDate
			rec.PaidDate = &paidDate
		}
		if rec.PaidAmount == nil {
			total := rec.TotalOwed()
			rec.PaidAmount = &total
		}
	}
}

// percentOf returns base * pct / 100, treating a negative percent as zero.
func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	if pct.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return base.Mul(pct).Div(decimal.NewFromInt(100))
}

// daysBetween counts whole calendar days from due to reference, clamped at
// zero. Times of day are ignored.
func daysBetween(due, reference time.Time) int {
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	refDay := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, time.UTC)
	days := int(refDay.Sub(dueDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// resolveReferenceDate mirrors the persistence entrypoint's default: a paid
// record is evaluated against its paid date, everything else against today.
func resolveReferenceDate(rec *models.PaymentRecord) time.Time {
	if rec.PaidDate != nil {
		return *rec.PaidDate
	}
	return time.Now()
}

// GetPlan loads a tuition plan by id.
func (s *BillingRulesService) GetPlan(ctx context.Context, id uuid.UUID) (*models.TuitionPlan, error) {
	query := `
		SELECT id, name, monthly_amount, payment_model,
		       discount_percent, scholarship_type, scholarship_percent,
		       due_day, duration_months, enrollment_fee,
		       late_fee_percent, interest_percent, daily_interest_percent,
		       default_payment_method, active, created_at, updated_at
		FROM tuition_plans
		WHERE id = $1
	`

	plan := &models.TuitionPlan{}
	var defaultMethod sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID, &plan.Name, &plan.MonthlyAmount, &plan.PaymentModel,
		&plan.DiscountPercent, &plan.ScholarshipType, &plan.ScholarshipPercent,
		&plan.DueDay, &plan.DurationMonths, &plan.EnrollmentFee,
		&plan.LateFeePercent, &plan.InterestPercent, &plan.DailyInterestPercent,
		&defaultMethod, &plan.Active, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if defaultMethod.Valid {
		method := models.PaymentMethod(defaultMethod.String)
		plan.DefaultPaymentMethod = &method
	}
	return plan, nil
}

// GetRecord loads a payment record by id. Returns (nil, sql.ErrNoRows) when
// the record has never been persisted.
func (s *BillingRulesService) GetRecord(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	query := paymentRecordSelect + ` WHERE id = $1`
	rec, err := scanPaymentRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

const paymentRecordSelect = `
	SELECT id, student_id, plan_id, period,
	       base_amount, paid_amount, discount, late_fee, interest, days_late,
	       due_date, paid_date, payment_method, status,
	       invoice_number, invoice_issued_at, invoice_hash, payment_recorded_at,
	       notes, created_at, updated_at
	FROM payment_records`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPaymentRecord(row rowScanner) (*models.PaymentRecord, error) {
	rec := &models.PaymentRecord{}
	var planID uuid.NullUUID
	var paidAmount decimal.NullDecimal
	var dueDate, paidDate, invoiceIssuedAt, paymentRecordedAt sql.NullTime
	var invoiceNumber sql.NullString

	err := row.Scan(
		&rec.ID, &rec.StudentID, &planID, &rec.Period,
		&rec.BaseAmount, &paidAmount, &rec.Discount, &rec.LateFee, &rec.Interest, &rec.DaysLate,
		&dueDate, &paidDate, &rec.PaymentMethod, &rec.Status,
		&invoiceNumber, &invoiceIssuedAt, &rec.InvoiceHash, &paymentRecordedAt,
		&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if planID.Valid {
		id := planID.UUID
		rec.PlanID = &id
	}
	if paidAmount.Valid {
		amount := paidAmount.Decimal
		rec.PaidAmount = &amount
	}
	if dueDate.Valid {
		rec.DueDate = &dueDate.Time
	}
	if paidDate.Valid {
		rec.PaidDate = &paidDate.Time
	}
	if invoiceNumber.Valid {
		rec.InvoiceNumber = &invoiceNumber.String
	}
	if invoiceIssuedAt.Valid {
		rec.InvoiceIssuedAt = &invoiceIssuedAt.Time
	}
	if paymentRecordedAt.Valid {
		rec.PaymentRecordedAt = &paymentRecordedAt.Time
	}
	return rec, nil
}

func (s *BillingRulesService) insertRecord(ctx context.Context, rec *models.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			id, student_id, plan_id, period,
			base_amount, paid_amount, discount, late_fee, interest, days_late,
			due_date, paid_date, payment_method, status,
			invoice_number, invoice_issued_at, invoice_hash, payment_recorded_at,
			notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.StudentID, nullableUUID(rec.PlanID), rec.Period,
		rec.BaseAmount, nullableDecimal(rec.PaidAmount), rec.Discount, rec.LateFee, rec.Interest, rec.DaysLate,
		nullableTime(rec.DueDate), nullableTime(rec.PaidDate), rec.PaymentMethod, rec.Status,
		nullableString(rec.InvoiceNumber), nullableTime(rec.InvoiceIssuedAt), rec.InvoiceHash, nullableTime(rec.PaymentRecordedAt),
		rec.Notes, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment record: %w", err)
	}
	return nil
}

// updateRecord persists derived-field and payment changes. Invoice fields
// are deliberately absent: they are written once by the invoice issuance
// path and immutable afterwards.
func (s *BillingRulesService) updateRecord(ctx context.Context, rec *models.PaymentRecord) error {
	query := `
		UPDATE payment_records
		SET plan_id = $1,
		    base_amount = $2,
		    paid_amount = $3,
		    discount = $4,
		    late_fee = $5,
		    interest = $6,
		    days_late = $7,
		    due_date = $8,
		    paid_date = $9,
		    payment_method = $10,
		    status = $11,
		    notes = $12,
		    updated_at = $13
		WHERE id = $14
	`

	_, err := s.db.ExecContext(ctx, query,
		nullableUUID(rec.PlanID), rec.BaseAmount, nullableDecimal(rec.PaidAmount),
		rec.Discount, rec.LateFee, rec.Interest, rec.DaysLate,
		nullableTime(rec.DueDate), nullableTime(rec.PaidDate),
		rec.PaymentMethod, rec.Status, rec.Notes, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment record: %w", err)
	}
	return nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
