package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/edusoft/tuition-ledger/src/models"
	"github.com/edusoft/tuition-ledger/src/services"
)

// This example demonstrates a complete billing flow:
// 1. Create a tuition plan and a student
// 2. Schedule a monthly payment record (rules applied, audit entry created)
// 3. Let a record go overdue and recompute it (late fee + interest)
// 4. Record the payment (status change audited)
// 5. Issue a numbered invoice for the paid record
// 6. Draft and issue a numbered enrollment contract
// 7. Print the aggregation views and the audit trail

func main() {
	db, err := sql.Open("postgres", databaseURL())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := services.EnsureSchema(ctx, db); err != nil {
		log.Fatal(err)
	}

	rulesService := services.NewBillingRulesService(db)
	invoiceService := services.NewInvoiceService(db, &textRenderer{})
	contractService := services.NewContractService(db, &textRenderer{})
	reportService := services.NewReportService(db, nil)
	auditService := services.NewAuditTrailService(db)

	fmt.Println("=== Tuition Ledger - Billing Flow Example ===")
	fmt.Println()

	// Step 1: Create a plan and a student
	fmt.Println("Step 1: Creating Plan and Student")
	fmt.Println("---------------------------------")

	planID := uuid.New()
	if err := createPlan(ctx, db, planID); err != nil {
		log.Fatal(err)
	}

	studentID := uuid.New()
	if err := createStudent(ctx, db, studentID, planID); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ Plan %s (R$ 1000.00/month, 10%% punctuality discount)\n", planID.String()[:8])
	fmt.Printf("  ✓ Student %s\n\n", studentID.String()[:8])

	actor := "billing_flow"

	// Step 2: Schedule the current month
	fmt.Println("Step 2: Scheduling Current Month")
	fmt.Println("--------------------------------")

	now := time.Now()
	current := models.NewPaymentRecordBuilder().
		WithStudent(studentID).
		WithPlan(planID).
		WithPeriod(now).
		WithBaseAmount(decimal.NewFromFloat(1000.00)).
		WithDueDate(now.AddDate(0, 0, 10)).
		WithPaymentMethod(models.PaymentMethodPix).
		Build()

	current, err = rulesService.ApplyRulesAndPersist(ctx, current, &actor)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ Period %s: base R$ %s, discount R$ %s, owed R$ %s (%s)\n\n",
		current.Period.Format("01/2006"),
		current.BaseAmount.StringFixed(2),
		current.Discount.StringFixed(2),
		current.TotalOwed().StringFixed(2),
		current.Status,
	)

	// Step 3: An overdue period accrues late fee and interest
	fmt.Println("Step 3: Recomputing an Overdue Period")
	fmt.Println("-------------------------------------")

	overdue := models.NewPaymentRecordBuilder().
		WithStudent(studentID).
		WithPlan(planID).
		WithPeriod(now.AddDate(0, -1, 0)).
		WithBaseAmount(decimal.NewFromFloat(1000.00)).
		WithDueDate(now.AddDate(0, 0, -15)).
		Build()

	overdue, err = rulesService.ApplyRulesAndPersist(ctx, overdue, &actor)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ %d days late → fee R$ %s, interest R$ %s, owed R$ %s (%s)\n\n",
		overdue.DaysLate,
		overdue.LateFee.StringFixed(2),
		overdue.Interest.StringFixed(2),
		overdue.TotalOwed().StringFixed(2),
		overdue.Status,
	)

	// Step 4: Record the payment for the current month
	fmt.Println("Step 4: Recording Payment")
	fmt.Println("-------------------------")

	paidAmount := current.TotalOwed().Round(2)
	paidDate := time.Now()
	current.Status = models.PaymentStatusPaid
	current.PaidAmount = &paidAmount
	current.PaidDate = &paidDate

	current, err = rulesService.ApplyRulesAndPersist(ctx, current, &actor)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ Received R$ %s on %s\n\n", paidAmount.StringFixed(2), paidDate.Format("02/01/2006"))

	// Step 5: Issue the invoice
	fmt.Println("Step 5: Issuing Invoice")
	fmt.Println("-----------------------")

	invoice, err := invoiceService.IssueInvoice(ctx, current, &actor)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ Invoice %s\n", *invoice.Payment.InvoiceNumber)
	fmt.Printf("    Content hash: %s\n\n", invoice.Hash[:16])

	// Step 6: Draft and issue the enrollment contract
	fmt.Println("Step 6: Issuing Enrollment Contract")
	fmt.Println("-----------------------------------")

	contract := &models.ContractDocument{
		StudentID:   studentID,
		PlanID:      planID,
		SigningCity: "Campinas",
	}
	if err := contractService.CreateDraft(ctx, contract); err != nil {
		log.Fatal(err)
	}

	issued, err := contractService.IssueContract(ctx, contract, &actor)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("  ✓ Contract %s (%s)\n", issued.Contract.Number, issued.Contract.Status)
	fmt.Printf("    QR payload: %s\n\n", issued.Contract.QRPayload()[:40])

	// Step 7: Aggregation views
	fmt.Println("Step 7: Financial Reports")
	fmt.Println("=========================")

	from := now.AddDate(0, -2, 0)
	to := now.AddDate(0, 1, 0)

	revenue, err := reportService.RevenueByMonth(ctx, from, to)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("\nReceived revenue by month:")
	for _, month := range revenue {
		fmt.Printf("  %s  R$ %s\n", month.Month, month.Total.StringFixed(2))
	}

	stats, err := reportService.Delinquency(ctx, time.Now())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nDelinquency: %d of %d billable records overdue (%s%%), R$ %s outstanding\n",
		stats.Delinquent, stats.TotalBillable,
		stats.DelinquencyRate.StringFixed(2), stats.AmountOverdue.StringFixed(2))

	// The audit trail shows every change that led here
	entries, err := auditService.ListByPayment(ctx, current.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nAudit trail for period %s (%d entries):\n", current.Period.Format("01/2006"), len(entries))
	for _, entry := range entries {
		fmt.Printf("  %s  %s\n", entry.CreatedAt.Format("15:04:05"), entry.Action)
	}

	fmt.Println("\n=== Example Complete ===")
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return "postgres://localhost/tuitionledger?sslmode=disable"
}

// textRenderer produces a plain-text stand-in for the PDF renderer so the
// example runs without a rendering backend.
type textRenderer struct{}

func (r *textRenderer) Render(_ context.Context, document string, values map[string]string) ([]byte, error) {
	body := document + "\n"
	for key, value := range values {
		body += key + ": " + value + "\n"
	}
	return []byte(body), nil
}

// Helper function to create a tuition plan
func createPlan(ctx context.Context, db *sql.DB, planID uuid.UUID) error {
	query := `
		INSERT INTO tuition_plans (
			id, name, monthly_amount, discount_percent,
			due_day, duration_months, late_fee_percent, interest_percent, daily_interest_percent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := db.ExecContext(ctx, query,
		planID,
		"Ensino Fundamental - Integral",
		1000.00,
		10.0, // punctuality discount
		10,   // due on the 10th
		12,
		2.0,   // late fee
		1.0,   // fixed interest
		0.033, // daily interest
	)

	return err
}

// Helper function to create a student
func createStudent(ctx context.Context, db *sql.DB, studentID, planID uuid.UUID) error {
	query := `
		INSERT INTO students (id, full_name, default_plan_id)
		VALUES ($1, $2, $3)
	`

	_, err := db.ExecContext(ctx, query, studentID, "Maria Fernandes", planID)
	return err
}
