package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

type InvoiceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *InvoiceRepo) With(db DB) *InvoiceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *InvoiceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const invoiceColumns = `id, invoice_number, company_id, session_id, hold_uuid, invoice_date, status, total_cents`

// Create inserts the invoice header and its line items.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - inv: the invoice; ID is set on success.
//
// Returns:
//   - error: repository.ErrConflict if the hold already has an invoice.
func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	const op = "postgres.InvoiceRepo.Create"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO invoices (invoice_number, company_id, session_id, hold_uuid, invoice_date, status, total_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		inv.InvoiceNumber, inv.CompanyID, inv.SessionID, inv.HoldUUID, inv.InvoiceDate,
		string(inv.Status), inv.TotalCents,
	).Scan(&inv.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := insertLineItems(ctx, db, "invoice_line_items", "invoice_id", inv.ID, inv.LineItems); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *InvoiceRepo) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "postgres.InvoiceRepo.Get"

	inv, err := r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return inv, nil
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	const op = "postgres.InvoiceRepo.GetForUpdate"

	inv, err := r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return inv, nil
}

func (r *InvoiceRepo) GetByHold(ctx context.Context, holdUUID uuid.UUID) (*domain.Invoice, error) {
	const op = "postgres.InvoiceRepo.GetByHold"

	inv, err := r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE hold_uuid = $1`, holdUUID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return inv, nil
}

func (r *InvoiceRepo) get(ctx context.Context, sql string, arg any) (*domain.Invoice, error) {
	db := r.handle()

	var (
		inv    domain.Invoice
		status string
	)
	if err := db.QueryRow(ctx, sql, arg).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CompanyID, &inv.SessionID, &inv.HoldUUID,
		&inv.InvoiceDate, &status, &inv.TotalCents,
	); err != nil {
		return nil, translateDBErr(err)
	}
	inv.Status = domain.InvoiceStatus(status)

	items, err := listLineItems(ctx, db, "invoice_line_items", "invoice_id", inv.ID)
	if err != nil {
		return nil, translateDBErr(err)
	}
	inv.LineItems = items

	return &inv, nil
}

func (r *InvoiceRepo) SetStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error {
	const op = "postgres.InvoiceRepo.SetStatus"

	tag, err := r.handle().Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// CreateCreditMemo stores a credit memo against an invoice. An invoice can
// be credited once; a second memo returns repository.ErrConflict.
func (r *InvoiceRepo) CreateCreditMemo(ctx context.Context, memo *domain.CreditMemo) error {
	const op = "postgres.InvoiceRepo.CreateCreditMemo"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO credit_memos (invoice_id, memo_date, status, reason, created_by, total_cents)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		memo.InvoiceID, memo.MemoDate, string(memo.Status), memo.Reason, memo.CreatedBy, memo.TotalCents,
	).Scan(&memo.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := insertLineItems(ctx, db, "credit_memo_line_items", "credit_memo_id", memo.ID, memo.LineItems); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *InvoiceRepo) CreditMemoByInvoice(ctx context.Context, invoiceID int64) (*domain.CreditMemo, error) {
	const op = "postgres.InvoiceRepo.CreditMemoByInvoice"

	db := r.handle()

	var (
		m      domain.CreditMemo
		status string
	)
	if err := db.QueryRow(ctx,
		`SELECT id, invoice_id, memo_date, status, reason, created_by, total_cents
		   FROM credit_memos
		  WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&m.ID, &m.InvoiceID, &m.MemoDate, &status, &m.Reason, &m.CreatedBy, &m.TotalCents); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	m.Status = domain.InvoiceStatus(status)

	items, err := listLineItems(ctx, db, "credit_memo_line_items", "credit_memo_id", m.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	m.LineItems = items

	return &m, nil
}

// insertLineItems and listLineItems share one shape across invoices and
// credit memos. table and parentCol are constants from this file.
func insertLineItems(
	ctx context.Context,
	db DB,
	table, parentCol string,
	parentID int64,
	items []domain.InvoiceLineItem,
) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, li := range items {
		batch.Queue(
			`INSERT INTO `+table+` (`+parentCol+`, line_no, description, quantity, unit_price_cents, line_total_cents, discount_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			parentID, i+1, li.Description, li.Quantity, li.UnitPriceCents, li.LineTotalCents, li.DiscountCode,
		)
	}

	return db.SendBatch(ctx, batch).Close()
}

func listLineItems(
	ctx context.Context,
	db DB,
	table, parentCol string,
	parentID int64,
) ([]domain.InvoiceLineItem, error) {
	rows, err := db.Query(ctx,
		`SELECT description, quantity, unit_price_cents, line_total_cents, discount_code
		   FROM `+table+`
		  WHERE `+parentCol+` = $1
		  ORDER BY line_no`,
		parentID,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.InvoiceLineItem
	for rows.Next() {
		var li domain.InvoiceLineItem
		if err := rows.Scan(&li.Description, &li.Quantity, &li.UnitPriceCents, &li.LineTotalCents, &li.DiscountCode); err != nil {
			return nil, err
		}
		out = append(out, li)
	}

	return out, rows.Err()
}
