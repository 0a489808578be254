package tracker

import "sync"

// UploadHub fans ledger entries out to live subscribers (the WebSocket feed).
// Delivery is best-effort: a slow subscriber drops events instead of blocking
// the ingestion path.
type UploadHub struct {
	mu   sync.Mutex
	subs map[chan UploadEntry]struct{}
}

func NewUploadHub() *UploadHub {
	return &UploadHub{subs: map[chan UploadEntry]struct{}{}}
}

// Subscribe registers a listener. The returned cancel function must be called
// to release the subscription; the channel is closed by cancel.
func (h *UploadHub) Subscribe() (<-chan UploadEntry, func()) {
	ch := make(chan UploadEntry, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *UploadHub) Publish(entry UploadEntry) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}
