package combat

import "sync"

// validationResult is a validator reply on its way back to the tick loop.
type validationResult struct {
	req  ValidationRequest
	resp ValidationResponse
	err  error
}

// syncResult is a full-state snapshot on its way back to the tick loop.
type syncResult struct {
	state AuthoritativeState
	err   error
}

// mailbox hands results from validator goroutines to the tick loop.
type mailbox struct {
	mu    sync.Mutex
	items []any
}

func (m *mailbox) post(item any) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
}

func (m *mailbox) drain() []any {
	m.mu.Lock()
	items := m.items
	m.items = nil
	m.mu.Unlock()
	return items
}
