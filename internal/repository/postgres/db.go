package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn in a SERIALIZABLE read-write transaction with repositories
// bound to it.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.RunTxWithOpts(ctx, nil, func(ctx context.Context, db DB) error {
		return fn(ctx, &txScope{s: s, db: db})
	})
}

func (s *Store) RunTxWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Sessions() *SessionRepo       { return &SessionRepo{pool: s.pool} }
func (s *Store) Holds() *HoldRepo             { return &HoldRepo{pool: s.pool} }
func (s *Store) Enrollments() *EnrollmentRepo { return &EnrollmentRepo{pool: s.pool} }
func (s *Store) Waitlist() *WaitlistRepo      { return &WaitlistRepo{pool: s.pool} }
func (s *Store) Discounts() *DiscountRepo     { return &DiscountRepo{pool: s.pool} }
func (s *Store) Invoices() *InvoiceRepo       { return &InvoiceRepo{pool: s.pool} }
func (s *Store) Payments() *PaymentRepo       { return &PaymentRepo{pool: s.pool} }

type txScope struct {
	s  *Store
	db DB
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*txScope)(nil)
)

func (t *txScope) Sessions() repository.SessionRepository       { return t.s.Sessions().With(t.db) }
func (t *txScope) Holds() repository.HoldRepository             { return t.s.Holds().With(t.db) }
func (t *txScope) Enrollments() repository.EnrollmentRepository { return t.s.Enrollments().With(t.db) }
func (t *txScope) Waitlist() repository.WaitlistRepository      { return t.s.Waitlist().With(t.db) }
func (t *txScope) Discounts() repository.DiscountRepository     { return t.s.Discounts().With(t.db) }
func (t *txScope) Invoices() repository.InvoiceRepository       { return t.s.Invoices().With(t.db) }
func (t *txScope) Payments() repository.PaymentRepository       { return t.s.Payments().With(t.db) }
