package ledger

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process ledger.
type Memory struct {
	mu      sync.Mutex
	head    Head
	history []Receipt
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Head(context.Context) (Head, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head, nil
}

func (m *Memory) Submit(ctx context.Context, u RootUpdate) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := check(m.head, u); err != nil {
		return Receipt{}, err
	}
	r := newReceipt(u, m.now().UTC())
	m.head = Head{Root: u.NewRoot, Nonce: u.Nonce}
	m.history = append(m.history, r)
	return r, nil
}

// Receipts returns accepted submissions in nonce order.
func (m *Memory) Receipts() []Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Receipt, len(m.history))
	copy(out, m.history)
	return out
}
