package indexer

import "sync"

// Scan status values reported in Progress.
const (
	StatusIdle     = "idle"
	StatusScanning = "scanning"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Progress is a point-in-time snapshot of a scan, published to subscribers
// after every artist and kept as the scanner's status between scans.
type Progress struct {
	ScanID      string `json:"scanId,omitempty"`
	Status      string `json:"status"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	CurrentItem string `json:"currentItem,omitempty"`
	Indexed     int    `json:"indexed"`
	Error       string `json:"error,omitempty"`
}

// broadcaster fans Progress snapshots out to any number of subscribers.
// Publishing never blocks; a subscriber that falls behind misses updates
// rather than stalling the scan.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Progress]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Progress]struct{})}
}

// subscribe registers a new listener. The returned cancel func must be
// called to release the channel.
func (b *broadcaster) subscribe() (<-chan Progress, func()) {
	ch := make(chan Progress, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// publish delivers a snapshot to every subscriber that has buffer room.
func (b *broadcaster) publish(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
