package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	const op = "postgres.PaymentRepo.Create"

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO payments
		   (hold_uuid, invoice_id, transaction_id, amount_cents, card_type, card_last4,
		    error_code, error_message, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.HoldUUID, p.InvoiceID, p.TransactionID, p.AmountCents, p.CardType, p.CardLast4,
		p.ErrorCode, p.ErrorMessage, p.CreatedBy, p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *PaymentRepo) ListByHold(ctx context.Context, holdUUID uuid.UUID) ([]domain.Payment, error) {
	const op = "postgres.PaymentRepo.ListByHold"

	rows, err := r.handle().Query(ctx,
		`SELECT id, hold_uuid, invoice_id, transaction_id, amount_cents, card_type, card_last4,
		        error_code, error_message, created_by, created_at
		   FROM payments
		  WHERE hold_uuid = $1
		  ORDER BY id`,
		holdUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.HoldUUID, &p.InvoiceID, &p.TransactionID, &p.AmountCents, &p.CardType, &p.CardLast4,
			&p.ErrorCode, &p.ErrorMessage, &p.CreatedBy, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
