package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tsfaye/sims/core/finance"
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p finance.Payment) (finance.Payment, error) {
	q := `
	INSERT INTO payment (student_id, amount, reference, paid_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`
	err := repo.db.QueryRowContext(ctx, q, p.StudentID, p.Amount, p.Reference, p.PaidAt).Scan(&p.ID)
	if err != nil {
		return finance.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo paymentRepository) SummarizePayments(ctx context.Context, from, to *time.Time) (finance.Summary, error) {
	q := `SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total FROM payment WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if from != nil {
		q += ` AND paid_at >= ` + arg(*from)
	}
	if to != nil {
		q += ` AND paid_at <= ` + arg(*to)
	}

	var sum finance.Summary
	var row struct {
		Count int     `db:"count"`
		Total float64 `db:"total"`
	}
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return finance.Summary{}, errors.Wrap(err, "summarizing payments")
	}
	sum.Count, sum.Total = row.Count, row.Total
	return sum, nil
}
