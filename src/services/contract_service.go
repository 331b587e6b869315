package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edusoft/tuition-ledger/src/models"
)

// ContractService manages numbered enrollment contracts. A contract starts
// as an editable draft, is numbered and rendered exactly once at issuance,
// and is frozen from then on.
type ContractService struct {
	db       *sql.DB
	sequence *SequenceService
	rules    *BillingRulesService
	renderer Renderer
}

// NewContractService creates a new contract service
func NewContractService(db *sql.DB, renderer Renderer) *ContractService {
	return &ContractService{
		db:       db,
		sequence: NewSequenceService(db),
		rules:    NewBillingRulesService(db),
		renderer: renderer,
	}
}

// CreateDraft persists a new draft contract.
func (s *ContractService) CreateDraft(ctx context.Context, contract *models.ContractDocument) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	contract.Status = models.ContractStatusDraft
	if contract.IssueDate.IsZero() {
		contract.IssueDate = time.Now()
	}
	now := time.Now()
	contract.CreatedAt = now
	contract.UpdatedAt = now

	query := `
		INSERT INTO contract_documents (
			id, number, student_id, plan_id, class_id,
			issue_date, signing_city, status, pdf_hash, snapshot,
			issued_by, issued_at, created_at, updated_at
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.db.ExecContext(ctx, query,
		contract.ID, contract.Number, contract.StudentID, contract.PlanID, nullableUUID(contract.ClassID),
		contract.IssueDate, contract.SigningCity, contract.Status, contract.PDFHash, nil,
		nullableString(contract.IssuedBy), nullableTime(contract.IssuedAt), contract.CreatedAt, contract.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contract draft: %w", err)
	}
	return nil
}

// ContractIssueResult contains the outcome of issuing a contract
type ContractIssueResult struct {
	Contract *models.ContractDocument
	Document []byte
	Hash     string
}

// IssueContract numbers a draft contract, renders it, stores the content
// hash plus a snapshot of the data it was rendered from, and moves it to
// issued. Anything but a draft is rejected with no partial mutation, and a
// renderer failure leaves the draft untouched.
func (s *ContractService) IssueContract(ctx context.Context, contract *models.ContractDocument, actor *string) (*ContractIssueResult, error) {
	if contract.Status != models.ContractStatusDraft {
		return nil, &StateError{
			Op:     "issue contract",
			Reason: fmt.Sprintf("contract %s is %s, only drafts can be issued", contract.ID, contract.Status),
		}
	}

	if contract.IssueDate.IsZero() {
		contract.IssueDate = time.Now()
	}

	number := contract.Number
	if number == "" {
		allocated, err := s.sequence.Next(ctx, ContractNumberPrefix, contract.IssueDate.Year())
		if err != nil {
			return nil, err
		}
		number = allocated
	}

	values, err := s.buildContractContext(ctx, contract, number)
	if err != nil {
		return nil, err
	}

	document, err := s.renderer.Render(ctx, "contract", values)
	if err != nil {
		return nil, &RenderError{Document: number, Err: err}
	}

	digest := sha256.Sum256(document)
	hash := hex.EncodeToString(digest[:])
	now := time.Now()

	snapshotJSON, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contract snapshot: %w", err)
	}

	query := `
		UPDATE contract_documents
		SET number = $1,
		    pdf_hash = $2,
		    snapshot = $3,
		    status = $4,
		    issued_by = $5,
		    issued_at = $6,
		    updated_at = $7
		WHERE id = $8 AND status = $9
	`

	result, err := s.db.ExecContext(ctx, query,
		number, hash, snapshotJSON, models.ContractStatusIssued,
		nullableString(actor), now, now, contract.ID, models.ContractStatusDraft,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to issue contract: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, &StateError{
			Op:     "issue contract",
			Reason: fmt.Sprintf("contract %s left draft state concurrently", contract.ID),
		}
	}

	contract.Number = number
	contract.PDFHash = hash
	contract.Snapshot = values
	contract.Status = models.ContractStatusIssued
	contract.IssuedBy = actor
	contract.IssuedAt = &now
	contract.UpdatedAt = now

	return &ContractIssueResult{Contract: contract, Document: document, Hash: hash}, nil
}

// Cancel voids a contract. Already-cancelled contracts are rejected.
func (s *ContractService) Cancel(ctx context.Context, contractID uuid.UUID) error {
	query := `
		UPDATE contract_documents
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status != $1
	`
	result, err := s.db.ExecContext(ctx, query, models.ContractStatusCancelled, time.Now(), contractID)
	if err != nil {
		return fmt.Errorf("failed to cancel contract: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return &StateError{
			Op:     "cancel contract",
			Reason: fmt.Sprintf("contract %s is already cancelled or does not exist", contractID),
		}
	}
	return nil
}

// GetContract loads a contract by id.
func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error) {
	query := `
		SELECT id, COALESCE(number, ''), student_id, plan_id, class_id,
		       issue_date, signing_city, status, pdf_hash, snapshot,
		       issued_by, issued_at, created_at, updated_at
		FROM contract_documents
		WHERE id = $1
	`

	contract := &models.ContractDocument{}
	var classID uuid.NullUUID
	var issuedBy sql.NullString
	var issuedAt sql.NullTime
	var snapshotJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&contract.ID, &contract.Number, &contract.StudentID, &contract.PlanID, &classID,
		&contract.IssueDate, &contract.SigningCity, &contract.Status, &contract.PDFHash, &snapshotJSON,
		&issuedBy, &issuedAt, &contract.CreatedAt, &contract.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if classID.Valid {
		id := classID.UUID
		contract.ClassID = &id
	}
	if issuedBy.Valid {
		contract.IssuedBy = &issuedBy.String
	}
	if issuedAt.Valid {
		contract.IssuedAt = &issuedAt.Time
	}
	if len(snapshotJSON) > 0 {
		if err := json.Unmarshal(snapshotJSON, &contract.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode contract snapshot: %w", err)
		}
	}
	return contract, nil
}

// buildContractContext prepares the formatted values the contract is
// rendered from. The same map is stored as the issuance snapshot.
func (s *ContractService) buildContractContext(ctx context.Context, contract *models.ContractDocument, number string) (map[string]string, error) {
	plan, err := s.rules.GetPlan(ctx, contract.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract plan: %w", err)
	}

	var studentName string
	err = s.db.QueryRowContext(ctx, `SELECT full_name FROM students WHERE id = $1`, contract.StudentID).Scan(&studentName)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract student: %w", err)
	}

	return map[string]string{
		"number":                number,
		"student_name":          studentName,
		"signing_city":          contract.SigningCity,
		"issue_date":            formatDate(&contract.IssueDate),
		"issue_date_long":       formatLongDate(contract.IssueDate),
		"plan_name":             plan.Name,
		"plan_monthly_amount":   formatCurrency(plan.MonthlyAmount),
		"plan_enrollment_fee":   formatCurrency(plan.EnrollmentFee),
		"plan_late_fee_percent": formatPercent(plan.LateFeePercent),
		"plan_interest_percent": formatPercent(plan.InterestPercent),
		"plan_due_day":          fmt.Sprintf("%d", plan.DueDay),
		"plan_duration_months":  fmt.Sprintf("%d", plan.DurationMonths),
	}, nil
}
