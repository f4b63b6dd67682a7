package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

type sessionRepo struct{ st *state }

func (r sessionRepo) Create(_ context.Context, s *domain.EventSession) error {
	s.ID = r.st.id()
	r.st.sessions[s.ID] = *s
	return nil
}

func (r sessionRepo) Get(_ context.Context, id int64) (*domain.EventSession, error) {
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r sessionRepo) GetForUpdate(ctx context.Context, id int64) (*domain.EventSession, error) {
	return r.Get(ctx, id)
}

func (r sessionRepo) Counts(_ context.Context, id int64) (domain.SeatCounts, error) {
	s, ok := r.st.sessions[id]
	if !ok {
		return domain.SeatCounts{}, repository.ErrNotFound
	}

	c := domain.SeatCounts{SessionID: id, Max: s.MaxEnrollments}
	for _, e := range r.st.enrollments {
		if e.SessionID == id {
			c.Enrolled++
		}
	}
	for _, h := range r.st.holds {
		if h.SessionID == id && h.Status == domain.HoldActive {
			c.Held += h.SeatCount()
		}
	}
	for _, w := range r.st.waitlist {
		if w.SessionID == id {
			c.Waitlisted++
		}
	}

	return c, nil
}

type holdRepo struct{ st *state }

func (r holdRepo) Create(_ context.Context, h *domain.CheckoutHold) error {
	if _, exists := r.st.holds[h.UUID]; exists {
		return repository.ErrConflict
	}
	cp := *h
	cp.Attendees = slices.Clone(h.Attendees)
	r.st.holds[h.UUID] = cp
	return nil
}

func (r holdRepo) Get(_ context.Context, id uuid.UUID) (*domain.CheckoutHold, error) {
	h, ok := r.st.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	h.Attendees = slices.Clone(h.Attendees)
	return &h, nil
}

func (r holdRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CheckoutHold, error) {
	return r.Get(ctx, id)
}

func (r holdRepo) UpdateAttendees(_ context.Context, id uuid.UUID, attendees []domain.Attendee) error {
	h, ok := r.st.holds[id]
	if !ok {
		return repository.ErrNotFound
	}
	h.Attendees = slices.Clone(attendees)
	r.st.holds[id] = h
	return nil
}

func (r holdRepo) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	h, ok := r.st.holds[id]
	if !ok {
		return repository.ErrNotFound
	}
	h.ExpiresAt = expiresAt
	r.st.holds[id] = h
	return nil
}

func (r holdRepo) Transition(_ context.Context, id uuid.UUID, from, to domain.HoldStatus) (bool, error) {
	h, ok := r.st.holds[id]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	r.st.holds[id] = h
	return true, nil
}

func (r holdRepo) Finalize(
	_ context.Context,
	id uuid.UUID,
	confirmation string,
	amountCents int64,
	at time.Time,
) (bool, error) {
	h, ok := r.st.holds[id]
	if !ok || h.Status != domain.HoldActive {
		return false, nil
	}
	for _, other := range r.st.holds {
		if other.ConfirmationNumber == confirmation {
			return false, repository.ErrConflict
		}
	}
	h.Status = domain.HoldConsumed
	h.ConfirmationNumber = confirmation
	h.AmountCents = amountCents
	h.FinalizedAt = &at
	r.st.holds[id] = h
	return true, nil
}

func (r holdRepo) ListStale(_ context.Context, now time.Time, limit int) ([]domain.CheckoutHold, error) {
	var out []domain.CheckoutHold
	for _, h := range r.st.holds {
		if h.Status == domain.HoldActive && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	slices.SortFunc(out, func(a, b domain.CheckoutHold) int {
		if c := a.ExpiresAt.Compare(b.ExpiresAt); c != 0 {
			return c
		}
		return strings.Compare(a.UUID.String(), b.UUID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r holdRepo) ConfirmationExists(_ context.Context, confirmation string) (bool, error) {
	for _, h := range r.st.holds {
		if h.ConfirmationNumber == confirmation {
			return true, nil
		}
	}
	return false, nil
}

type enrollmentRepo struct{ st *state }

func (r enrollmentRepo) Create(_ context.Context, e *domain.Enrollment) error {
	e.ID = r.st.id()
	r.st.enrollments[e.ID] = *e
	return nil
}

func (r enrollmentRepo) Get(_ context.Context, id int64) (*domain.Enrollment, error) {
	e, ok := r.st.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r enrollmentRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.enrollments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.enrollments, id)
	return nil
}

func (r enrollmentRepo) DeleteByHold(_ context.Context, holdUUID uuid.UUID) (int, error) {
	n := 0
	for id, e := range r.st.enrollments {
		if e.HoldUUID != nil && *e.HoldUUID == holdUUID {
			delete(r.st.enrollments, id)
			n++
		}
	}
	return n, nil
}

func (r enrollmentRepo) ListBySession(_ context.Context, sessionID int64) ([]domain.Enrollment, error) {
	var out []domain.Enrollment
	for _, e := range r.st.enrollments {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.Enrollment) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r enrollmentRepo) EmailExists(_ context.Context, sessionID int64, email string) (bool, error) {
	for _, e := range r.st.enrollments {
		if e.SessionID == sessionID && domain.NormalizeEmail(e.Email) == domain.NormalizeEmail(email) {
			return true, nil
		}
	}
	return false, nil
}

type waitlistRepo struct{ st *state }

func (r waitlistRepo) Append(_ context.Context, e *domain.WaitlistEntry) error {
	maxPos := 0
	for _, w := range r.st.waitlist {
		if w.SessionID == e.SessionID && w.Position > maxPos {
			maxPos = w.Position
		}
	}
	e.ID = r.st.id()
	e.Position = maxPos + 1
	r.st.waitlist[e.ID] = *e
	return nil
}

func (r waitlistRepo) Get(_ context.Context, id int64) (*domain.WaitlistEntry, error) {
	w, ok := r.st.waitlist[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r waitlistRepo) Head(ctx context.Context, sessionID int64) (*domain.WaitlistEntry, error) {
	entries, _ := r.List(ctx, sessionID)
	if len(entries) == 0 {
		return nil, repository.ErrNotFound
	}
	return &entries[0], nil
}

func (r waitlistRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.waitlist[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.waitlist, id)
	return nil
}

func (r waitlistRepo) Shift(_ context.Context, sessionID int64, from, to, delta int) error {
	for id, w := range r.st.waitlist {
		if w.SessionID == sessionID && w.Position >= from && w.Position <= to {
			w.Position += delta
			r.st.waitlist[id] = w
		}
	}
	return nil
}

func (r waitlistRepo) SetPosition(_ context.Context, id int64, position int) error {
	w, ok := r.st.waitlist[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Position = position
	r.st.waitlist[id] = w
	return nil
}

func (r waitlistRepo) Count(_ context.Context, sessionID int64) (int, error) {
	n := 0
	for _, w := range r.st.waitlist {
		if w.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (r waitlistRepo) List(_ context.Context, sessionID int64) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	for _, w := range r.st.waitlist {
		if w.SessionID == sessionID {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b domain.WaitlistEntry) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r waitlistRepo) Stats(_ context.Context, sessionID int64) (repository.PositionStats, error) {
	var s repository.PositionStats
	seen := map[int]struct{}{}
	for _, w := range r.st.waitlist {
		if w.SessionID != sessionID {
			continue
		}
		if s.Count == 0 || w.Position < s.Min {
			s.Min = w.Position
		}
		if w.Position > s.Max {
			s.Max = w.Position
		}
		s.Count++
		seen[w.Position] = struct{}{}
	}
	s.Distinct = len(seen)
	return s, nil
}

func (r waitlistRepo) EmailExists(_ context.Context, sessionID int64, email string) (bool, error) {
	for _, w := range r.st.waitlist {
		if w.SessionID == sessionID && domain.NormalizeEmail(w.Email) == domain.NormalizeEmail(email) {
			return true, nil
		}
	}
	return false, nil
}

type discountRepo struct{ st *state }

func (r discountRepo) Create(_ context.Context, d *domain.Discount) error {
	key := strings.ToUpper(d.Code)
	if _, exists := r.st.discounts[key]; exists {
		return repository.ErrConflict
	}
	d.ID = r.st.id()
	cp := *d
	cp.SessionIDs = slices.Clone(d.SessionIDs)
	r.st.discounts[key] = cp
	return nil
}

func (r discountRepo) GetByCode(_ context.Context, code string) (*domain.Discount, error) {
	d, ok := r.st.discounts[strings.ToUpper(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r discountRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Discount, error) {
	return r.GetByCode(ctx, code)
}

func (r discountRepo) CountRedemptions(_ context.Context, code string) (int, error) {
	n := 0
	for _, inv := range r.st.invoices {
		if inv.Status != domain.InvoicePosted {
			continue
		}
		for _, li := range inv.LineItems {
			if li.DiscountCode != nil && strings.EqualFold(*li.DiscountCode, code) {
				n++
				break
			}
		}
	}
	return n, nil
}

type invoiceRepo struct{ st *state }

func (r invoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	for _, existing := range r.st.invoices {
		if existing.HoldUUID == inv.HoldUUID || existing.InvoiceNumber == inv.InvoiceNumber {
			return repository.ErrConflict
		}
	}
	inv.ID = r.st.id()
	cp := *inv
	cp.LineItems = slices.Clone(inv.LineItems)
	r.st.invoices[inv.ID] = cp
	return nil
}

func (r invoiceRepo) Get(_ context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inv.LineItems = slices.Clone(inv.LineItems)
	return &inv, nil
}

func (r invoiceRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.Get(ctx, id)
}

func (r invoiceRepo) GetByHold(ctx context.Context, holdUUID uuid.UUID) (*domain.Invoice, error) {
	for id, inv := range r.st.invoices {
		if inv.HoldUUID == holdUUID {
			return r.Get(ctx, id)
		}
	}
	return nil, repository.ErrNotFound
}

func (r invoiceRepo) SetStatus(_ context.Context, id int64, status domain.InvoiceStatus) error {
	inv, ok := r.st.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = status
	r.st.invoices[id] = inv
	return nil
}

func (r invoiceRepo) CreateCreditMemo(_ context.Context, memo *domain.CreditMemo) error {
	if _, exists := r.st.memos[memo.InvoiceID]; exists {
		return repository.ErrConflict
	}
	memo.ID = r.st.id()
	cp := *memo
	cp.LineItems = slices.Clone(memo.LineItems)
	r.st.memos[memo.InvoiceID] = cp
	return nil
}

func (r invoiceRepo) CreditMemoByInvoice(_ context.Context, invoiceID int64) (*domain.CreditMemo, error) {
	m, ok := r.st.memos[invoiceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.LineItems = slices.Clone(m.LineItems)
	return &m, nil
}

type paymentRepo struct{ st *state }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	p.ID = r.st.id()
	r.st.payments = append(r.st.payments, *p)
	return nil
}

func (r paymentRepo) ListByHold(_ context.Context, holdUUID uuid.UUID) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.st.payments {
		if p.HoldUUID == holdUUID {
			out = append(out, p)
		}
	}
	return out, nil
}
