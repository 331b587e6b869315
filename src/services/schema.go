package services

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the billing tables when they do not exist yet.
// Intended for demo flows and tests; production deployments run managed
// migrations.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tuition_plans (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			monthly_amount NUMERIC(10,2) NOT NULL,
			payment_model TEXT NOT NULL DEFAULT 'monthly',
			discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			scholarship_type TEXT NOT NULL DEFAULT 'none',
			scholarship_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			due_day SMALLINT NOT NULL,
			duration_months SMALLINT NOT NULL,
			enrollment_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
			late_fee_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			interest_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			daily_interest_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
			default_payment_method TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id UUID PRIMARY KEY,
			full_name TEXT NOT NULL,
			class_id UUID,
			default_plan_id UUID REFERENCES tuition_plans(id),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS payment_records (
			id UUID PRIMARY KEY,
			student_id UUID NOT NULL REFERENCES students(id),
			plan_id UUID REFERENCES tuition_plans(id),
			period DATE NOT NULL,
			base_amount NUMERIC(10,2) NOT NULL,
			paid_amount NUMERIC(10,2),
			discount NUMERIC(10,2) NOT NULL DEFAULT 0,
			late_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
			interest NUMERIC(10,2) NOT NULL DEFAULT 0,
			days_late INTEGER NOT NULL DEFAULT 0,
			due_date DATE,
			paid_date DATE,
			payment_method TEXT NOT NULL DEFAULT 'boleto',
			status TEXT NOT NULL DEFAULT 'open',
			invoice_number TEXT UNIQUE,
			invoice_issued_at TIMESTAMPTZ,
			invoice_hash TEXT NOT NULL DEFAULT '',
			payment_recorded_at TIMESTAMPTZ,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id UUID PRIMARY KEY,
			payment_record_id UUID NOT NULL REFERENCES payment_records(id),
			action TEXT NOT NULL,
			previous_status TEXT,
			new_status TEXT,
			amount_due NUMERIC(10,2) NOT NULL DEFAULT 0,
			amount_paid NUMERIC(10,2) NOT NULL DEFAULT 0,
			changes JSONB,
			actor TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS contract_documents (
			id UUID PRIMARY KEY,
			number TEXT UNIQUE,
			student_id UUID NOT NULL REFERENCES students(id),
			plan_id UUID NOT NULL REFERENCES tuition_plans(id),
			class_id UUID,
			issue_date DATE NOT NULL,
			signing_city TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			pdf_hash TEXT NOT NULL DEFAULT '',
			snapshot JSONB,
			issued_by TEXT,
			issued_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS document_sequences (
			prefix TEXT NOT NULL,
			year INTEGER NOT NULL,
			last_value INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (prefix, year)
		)`,
		`CREATE TABLE IF NOT EXISTS staff_payments (
			id UUID PRIMARY KEY,
			staff_id UUID NOT NULL,
			period DATE NOT NULL,
			gross NUMERIC(10,2) NOT NULL,
			deductions NUMERIC(10,2) NOT NULL DEFAULT 0,
			net NUMERIC(10,2),
			paid_date DATE,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			amount NUMERIC(10,2) NOT NULL,
			date DATE NOT NULL,
			kind TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure billing schema: %w", err)
		}
	}
	return nil
}
