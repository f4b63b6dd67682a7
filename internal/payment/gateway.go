package payment

import (
	"context"
	"fmt"
	"sync"
)

type ChargeRequest struct {
	AmountCents    int64
	Currency       string
	CardToken      string
	Descriptor     string
	IdempotencyKey string
}

// ChargeResult is the gateway's verdict. A declined card is a result with
// Success false, not an error; errors are reserved for transport failures.
type ChargeResult struct {
	Success       bool
	TransactionID string
	CardType      string
	CardLast4     string
	ErrorCode     string
	ErrorMessage  string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Fake approves every charge unless told otherwise. It backs local
// development without gateway credentials and the checkout tests.
type Fake struct {
	mu      sync.Mutex
	next    []fakeOutcome
	charges []ChargeRequest
	seq     int
}

type fakeOutcome struct {
	res ChargeResult
	err error
}

func NewFake() *Fake {
	return &Fake{}
}

// Decline queues a declined result for the next charge.
func (f *Fake) Decline(code, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = append(f.next, fakeOutcome{res: ChargeResult{ErrorCode: code, ErrorMessage: message}})
}

// Fail queues a transport error for the next charge.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = append(f.next, fakeOutcome{err: err})
}

func (f *Fake) Charges() []ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChargeRequest(nil), f.charges...)
}

func (f *Fake) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.charges = append(f.charges, req)

	if len(f.next) > 0 {
		o := f.next[0]
		f.next = f.next[1:]
		return o.res, o.err
	}

	f.seq++
	return ChargeResult{
		Success:       true,
		TransactionID: fmt.Sprintf("fake_txn_%d", f.seq),
		CardType:      "visa",
		CardLast4:     "4242",
	}, nil
}
