package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of a charge attempt.
type Result struct {
	TransactionID string
	Approved      bool
	Declined      string // decline reason, empty when approved
}

// Gateway is the boundary to the external payment provider. Charge blocks
// until the provider answers or ctx is done; the caller decides what a
// timeout means for the reservation.
type Gateway interface {
	Charge(ctx context.Context, reservationID uuid.UUID, amount float64, method string) (*Result, error)
	Refund(ctx context.Context, transactionID string, amount float64) error
}

// MockGateway simulates a payment provider. Outcome and latency are
// configurable so the reservation flow can be exercised end to end
// without a real provider.
type MockGateway struct {
	mu       sync.Mutex
	delay    time.Duration
	decline  string // non-empty forces declines with this reason
	fail     error  // non-nil forces transport errors
	refunds  []string
	sequence int
}

// NewMockGateway creates an approving gateway with no latency.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SetDelay makes every charge take d before answering.
func (g *MockGateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// SetDecline makes every charge come back declined with the given reason.
// An empty reason restores approvals.
func (g *MockGateway) SetDecline(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decline = reason
}

// SetError makes every charge fail at the transport level.
func (g *MockGateway) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

// Refunds returns the transaction IDs refunded so far.
func (g *MockGateway) Refunds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refunds...)
}

func (g *MockGateway) Charge(ctx context.Context, reservationID uuid.UUID, amount float64, method string) (*Result, error) {
	g.mu.Lock()
	delay := g.delay
	decline := g.decline
	fail := g.fail
	g.sequence++
	seq := g.sequence
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	if decline != "" {
		return &Result{Approved: false, Declined: decline}, nil
	}
	return &Result{
		TransactionID: generateTransactionID(seq),
		Approved:      true,
	}, nil
}

func (g *MockGateway) Refund(ctx context.Context, transactionID string, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.refunds = append(g.refunds, transactionID)
	return nil
}

func generateTransactionID(seq int) string {
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("TXN_%d_%d_%s", time.Now().Unix(), seq, strings.ToUpper(short))
}
