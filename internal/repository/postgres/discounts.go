package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
)

type DiscountRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *DiscountRepo) With(db DB) *DiscountRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *DiscountRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const discountColumns = `id, code, type, value, is_active, start_date, end_date, maximum_uses,
	minimum_purchase_cents, session_ids`

func scanDiscount(row pgx.Row) (*domain.Discount, error) {
	var (
		d   domain.Discount
		typ string
	)
	if err := row.Scan(
		&d.ID, &d.Code, &typ, &d.Value, &d.IsActive, &d.StartDate, &d.EndDate, &d.MaximumUses,
		&d.MinimumPurchaseCents, &d.SessionIDs,
	); err != nil {
		return nil, err
	}
	d.Type = domain.DiscountType(typ)
	return &d, nil
}

func (r *DiscountRepo) Create(ctx context.Context, d *domain.Discount) error {
	const op = "postgres.DiscountRepo.Create"

	sessionIDs := d.SessionIDs
	if sessionIDs == nil {
		sessionIDs = []int64{}
	}

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO discounts
		   (code, type, value, is_active, start_date, end_date, maximum_uses, minimum_purchase_cents, session_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		d.Code, string(d.Type), d.Value, d.IsActive, d.StartDate, d.EndDate, d.MaximumUses,
		d.MinimumPurchaseCents, sessionIDs,
	).Scan(&d.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	const op = "postgres.DiscountRepo.GetByCode"

	d, err := scanDiscount(r.handle().QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE upper(code) = upper($1)`, code))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return d, nil
}

// GetByCodeForUpdate locks the discount row so usage counting and
// redemption serialize per code.
func (r *DiscountRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Discount, error) {
	const op = "postgres.DiscountRepo.GetByCodeForUpdate"

	d, err := scanDiscount(r.handle().QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE upper(code) = upper($1) FOR UPDATE`, code))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return d, nil
}

func (r *DiscountRepo) CountRedemptions(ctx context.Context, code string) (int, error) {
	const op = "postgres.DiscountRepo.CountRedemptions"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(DISTINCT i.id)
		   FROM invoices i
		   JOIN invoice_line_items li ON li.invoice_id = i.id
		  WHERE i.status = 'POSTED' AND upper(li.discount_code) = upper($1)`,
		code,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}
