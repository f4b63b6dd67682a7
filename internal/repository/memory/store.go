// Package memory is an in-process repository.Store. A transaction works on a
// private copy of the data and swaps it in on commit; transactions are
// serialized by a single mutex, which gives the same isolation guarantees
// the Postgres store gets from SERIALIZABLE plus row locks.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

type state struct {
	nextID      int64
	sessions    map[int64]domain.EventSession
	holds       map[uuid.UUID]domain.CheckoutHold
	enrollments map[int64]domain.Enrollment
	waitlist    map[int64]domain.WaitlistEntry
	discounts   map[string]domain.Discount
	invoices    map[int64]domain.Invoice
	memos       map[int64]domain.CreditMemo
	payments    []domain.Payment
}

func newState() *state {
	return &state{
		sessions:    map[int64]domain.EventSession{},
		holds:       map[uuid.UUID]domain.CheckoutHold{},
		enrollments: map[int64]domain.Enrollment{},
		waitlist:    map[int64]domain.WaitlistEntry{},
		discounts:   map[string]domain.Discount{},
		invoices:    map[int64]domain.Invoice{},
		memos:       map[int64]domain.CreditMemo{},
	}
}

// clone copies the maps. Slices inside stored values are never modified in
// place, so sharing them between copies is safe.
func (s *state) clone() *state {
	return &state{
		nextID:      s.nextID,
		sessions:    cloneMap(s.sessions),
		holds:       cloneMap(s.holds),
		enrollments: cloneMap(s.enrollments),
		waitlist:    cloneMap(s.waitlist),
		discounts:   cloneMap(s.discounts),
		invoices:    cloneMap(s.invoices),
		memos:       cloneMap(s.memos),
		payments:    slices.Clone(s.payments),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// checkDeferred enforces the constraints Postgres checks at commit time.
func (s *state) checkDeferred() error {
	type key struct {
		session  int64
		position int
	}

	seen := make(map[key]struct{}, len(s.waitlist))
	for _, e := range s.waitlist {
		k := key{e.SessionID, e.Position}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("waitlist position %d of session %d: %w", e.Position, e.SessionID, repository.ErrConflict)
		}
		seen[k] = struct{}{}
	}

	return nil
}

var _ repository.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	st       *state
	failures []error
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &txScope{st: work}); err != nil {
		return err
	}

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return fmt.Errorf("commit: %w", err)
	}

	if err := work.checkDeferred(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.st = work
	return nil
}

// FailCommits makes the next len(errs) commits fail with the given errors,
// discarding the transaction's writes. Used to simulate serialization
// failures.
func (s *Store) FailCommits(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

type txScope struct {
	st *state
}

func (t *txScope) Sessions() repository.SessionRepository       { return sessionRepo{t.st} }
func (t *txScope) Holds() repository.HoldRepository             { return holdRepo{t.st} }
func (t *txScope) Enrollments() repository.EnrollmentRepository { return enrollmentRepo{t.st} }
func (t *txScope) Waitlist() repository.WaitlistRepository      { return waitlistRepo{t.st} }
func (t *txScope) Discounts() repository.DiscountRepository     { return discountRepo{t.st} }
func (t *txScope) Invoices() repository.InvoiceRepository       { return invoiceRepo{t.st} }
func (t *txScope) Payments() repository.PaymentRepository       { return paymentRepo{t.st} }

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
