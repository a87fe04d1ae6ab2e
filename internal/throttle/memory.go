package throttle

import "context"

// MemoryTokenManager is a process-local pool for single-instance runs
// and tests.
type MemoryTokenManager struct {
	tokens chan struct{}
}

func NewMemoryTokenManager(count int) *MemoryTokenManager {
	m := &MemoryTokenManager{}
	_ = m.Initialize(context.Background(), count)
	return m
}

func (m *MemoryTokenManager) Acquire(ctx context.Context) error {
	select {
	case <-m.tokens:
		return nil
	default:
		return ErrThrottled
	}
}

func (m *MemoryTokenManager) Release(ctx context.Context) error {
	select {
	case m.tokens <- struct{}{}:
	default:
	}
	return nil
}

func (m *MemoryTokenManager) Initialize(ctx context.Context, count int) error {
	m.tokens = make(chan struct{}, count)
	for i := 0; i < count; i++ {
		m.tokens <- struct{}{}
	}
	return nil
}
