package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.Date.IsZero() {
		payment.Date = time.Now()
	}
	if payment.Status == "" {
		payment.Status = model.PaymentStatusPending
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payments (examination_id, amount, date, method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		payment.ExaminationID,
		payment.Amount,
		payment.Date,
		payment.Method,
		payment.Status,
	).Scan(&payment.ID)
	return mapError(err, "create payment")
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments SET amount = $1, method = $2, status = $3
		WHERE id = $4`,
		payment.Amount, payment.Method, payment.Status, payment.ID)
	if err != nil {
		return mapError(err, "update payment")
	}
	return expectRows(result, "update payment")
}

func (r *paymentRepository) FirstByExamination(ctx context.Context, examIDs []int64) (map[int64]*model.Payment, error) {
	out := make(map[int64]*model.Payment, len(examIDs))
	if len(examIDs) == 0 {
		return out, nil
	}
	query, args, err := r.in(`
		SELECT DISTINCT ON (examination_id) id, examination_id, amount, date, method, status
		FROM payments
		WHERE examination_id IN (?)
		ORDER BY examination_id, id`, examIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment query: %w", err)
	}
	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, mapError(err, "list payments")
	}
	for _, p := range payments {
		out[p.ExaminationID] = p
	}
	return out, nil
}
