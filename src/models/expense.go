package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory classifies an operational expense
type ExpenseCategory string

const (
	ExpenseCategoryWater       ExpenseCategory = "water"
	ExpenseCategoryElectricity ExpenseCategory = "electricity"
	ExpenseCategoryRent        ExpenseCategory = "rent"
	ExpenseCategoryInternet    ExpenseCategory = "internet"
	ExpenseCategorySupplies    ExpenseCategory = "supplies"
	ExpenseCategoryOther       ExpenseCategory = "other"
)

// ExpenseKind distinguishes recurring from one-off expenses
type ExpenseKind string

const (
	ExpenseKindFixed    ExpenseKind = "fixed"
	ExpenseKindVariable ExpenseKind = "variable"
)

// Expense is an operational outgoing, kept so the financial views can net
// revenue against cost per month.
type Expense struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Description string          `json:"description" db:"description"`
	Category    ExpenseCategory `json:"category" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Date        time.Time       `json:"date" db:"date"`
	Kind        ExpenseKind     `json:"kind" db:"kind"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
