package gate

import "sync"

// History keeps the last few results for operator review. Admission never reads it.
type History struct {
	mu      sync.Mutex
	entries []Result
	next    int
	full    bool
}

func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{entries: make([]Result, size)}
}

func (h *History) Add(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = r
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns a copy, newest first.
func (h *History) Recent() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}
	out := make([]Result, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
