package inmemdb

import (
	"context"
	"time"

	"github.com/tsfaye/sims/core/finance"
)

var _ finance.Repository = (*DB)(nil)

func (db *DB) CreatePayment(ctx context.Context, p finance.Payment) (finance.Payment, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.paymentPK++
	p.ID = db.paymentPK
	db.payments[p.ID] = &p
	return p, nil
}

func (db *DB) SummarizePayments(ctx context.Context, from, to *time.Time) (finance.Summary, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var sum finance.Summary
	for _, p := range db.payments {
		if from != nil && p.PaidAt.Before(*from) {
			continue
		}
		if to != nil && p.PaidAt.After(*to) {
			continue
		}
		sum.Count++
		sum.Total += p.Amount
	}
	return sum, nil
}
