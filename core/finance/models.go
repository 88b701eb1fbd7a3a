// Package finance exposes the payment aggregates consumed by reports.
package finance

import (
	"context"
	"time"
)

// Payment is one recorded fee payment.
type Payment struct {
	ID        int       `json:"id" db:"id"`
	StudentID int       `json:"student_id" db:"student_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Reference string    `json:"reference" db:"reference"`
	PaidAt    time.Time `json:"paid_at" db:"paid_at"` // UTC
}

// Summary aggregates payments for the fee-collection report.
type Summary struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type Repository interface {
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	// SummarizePayments aggregates over [from, to]; nil bounds are open.
	SummarizePayments(ctx context.Context, from, to *time.Time) (Summary, error)
}
