package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edusoft/tuition-ledger/src/models"
)

// trackedFields are the payment record fields whose changes produce audit
// entries. Everything else (notes, timestamps, invoice linkage) is either
// immutable or audited through a dedicated action.
var trackedFields = []string{
	"status",
	"payment_method",
	"paid_date",
	"due_date",
	"base_amount",
	"paid_amount",
	"discount",
	"late_fee",
	"interest",
	"days_late",
	"plan_id",
}

// AuditTrailService computes field-level diffs and appends immutable history
// entries for payment records. Entries are written once per detected change
// and never mutated.
type AuditTrailService struct {
	db *sql.DB
}

// NewAuditTrailService creates a new audit trail service
func NewAuditTrailService(db *sql.DB) *AuditTrailService {
	return &AuditTrailService{db: db}
}

// Snapshot captures the tracked fields of a record as string-rendered
// values. Nil marks an unset field.
func (s *AuditTrailService) Snapshot(rec *models.PaymentRecord) map[string]*string {
	snap := make(map[string]*string, len(trackedFields))
	snap["status"] = strPtr(string(rec.Status))
	snap["payment_method"] = strPtr(string(rec.PaymentMethod))
	snap["paid_date"] = datePtr(rec.PaidDate)
	snap["due_date"] = datePtr(rec.DueDate)
	snap["base_amount"] = strPtr(rec.BaseAmount.String())
	snap["paid_amount"] = decimalPtr(rec.PaidAmount)
	snap["discount"] = strPtr(rec.Discount.String())
	snap["late_fee"] = strPtr(rec.LateFee.String())
	snap["interest"] = strPtr(rec.Interest.String())
	snap["days_late"] = strPtr(strconv.Itoa(rec.DaysLate))
	snap["plan_id"] = uuidPtr(rec.PlanID)
	return snap
}

// Diff returns the tracked fields whose values differ between two snapshots.
// An empty result means nothing auditable changed.
func (s *AuditTrailService) Diff(before, after map[string]*string) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)
	for _, field := range trackedFields {
		oldValue, newValue := before[field], after[field]
		if equalValue(oldValue, newValue) {
			continue
		}
		changes[field] = models.FieldChange{From: oldValue, To: newValue}
	}
	return changes
}

// ClassifyAction maps a diff to the audit action it should be recorded
// under. Invoice issuance is classified by the caller, which knows when a
// number was newly populated.
func (s *AuditTrailService) ClassifyAction(changes map[string]models.FieldChange, isNew bool) models.AuditAction {
	if isNew {
		return models.AuditActionCreated
	}
	if _, ok := changes["status"]; ok {
		return models.AuditActionStatusChanged
	}
	return models.AuditActionUpdated
}

// Record appends one audit entry for a payment record, capturing the amount
// due and amount paid at call time.
func (s *AuditTrailService) Record(
	ctx context.Context,
	payment *models.PaymentRecord,
	action models.AuditAction,
	previousStatus, newStatus *models.PaymentStatus,
	changes map[string]models.FieldChange,
	actor *string,
) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:              uuid.New(),
		PaymentRecordID: payment.ID,
		Action:          action,
		PreviousStatus:  previousStatus,
		NewStatus:       newStatus,
		AmountDue:       payment.TotalOwed(),
		AmountPaid:      paidOrZero(payment),
		Changes:         changes,
		Actor:           actor,
		CreatedAt:       time.Now(),
	}

	var changesJSON []byte
	if len(changes) > 0 {
		var err error
		changesJSON, err = json.Marshal(changes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit changes: %w", err)
		}
	}

	query := `
		INSERT INTO audit_entries (
			id, payment_record_id, action, previous_status, new_status,
			amount_due, amount_paid, changes, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.PaymentRecordID, entry.Action, statusValue(previousStatus), statusValue(newStatus),
		entry.AmountDue, entry.AmountPaid, nullableJSON(changesJSON), entry.Actor, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	return entry, nil
}

// ListByPayment returns the history of a payment record, newest first.
func (s *AuditTrailService) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, payment_record_id, action, previous_status, new_status,
		       amount_due, amount_paid, changes, actor, created_at
		FROM audit_entries
		WHERE payment_record_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var prevStatus, newStatus, actor sql.NullString
		var changesJSON []byte

		err := rows.Scan(
			&entry.ID, &entry.PaymentRecordID, &entry.Action, &prevStatus, &newStatus,
			&entry.AmountDue, &entry.AmountPaid, &changesJSON, &actor, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if prevStatus.Valid {
			status := models.PaymentStatus(prevStatus.String)
			entry.PreviousStatus = &status
		}
		if newStatus.Valid {
			status := models.PaymentStatus(newStatus.String)
			entry.NewStatus = &status
		}
		if actor.Valid {
			entry.Actor = &actor.String
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
				return nil, fmt.Errorf("failed to decode audit changes: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(s string) *string {
	return &s
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return strPtr(t.Format("2006-01-02"))
}

func decimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	return strPtr(d.String())
}

func uuidPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	return strPtr(id.String())
}

func paidOrZero(payment *models.PaymentRecord) decimal.Decimal {
	if payment.PaidAmount != nil {
		return *payment.PaidAmount
	}
	return decimal.Zero
}

func statusValue(status *models.PaymentStatus) interface{} {
	if status == nil {
		return nil
	}
	return string(*status)
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
