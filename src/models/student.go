package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is the billable party a payment record references. Only the fields
// the billing core needs are modeled here; enrollment and academic data live
// elsewhere.
type Student struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	FullName      string     `json:"full_name" db:"full_name"`
	ClassID       *uuid.UUID `json:"class_id,omitempty" db:"class_id"`
	DefaultPlanID *uuid.UUID `json:"default_plan_id,omitempty" db:"default_plan_id"`
	Active        bool       `json:"active" db:"active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
