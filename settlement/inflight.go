package settlement

import "sync"

// inflightTable tracks claimed signatures with a settlement attempt currently
// running, closing the window in which two concurrent attempts could both
// pass the pre-broadcast replay check. Entries live only for the duration of
// the attempt.
type inflightTable struct {
	mu   sync.Mutex
	sigs map[string]struct{}
}

func newInflightTable() *inflightTable {
	return &inflightTable{sigs: make(map[string]struct{})}
}

// acquire claims a signature for settlement. It returns false if another
// attempt holds it. An empty signature is never tracked.
func (t *inflightTable) acquire(sig string) bool {
	if sig == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, held := t.sigs[sig]; held {
		return false
	}
	t.sigs[sig] = struct{}{}
	return true
}

func (t *inflightTable) release(sig string) {
	if sig == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sigs, sig)
}
