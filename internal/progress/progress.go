// Package progress provides a monotone percentage tracker for long-running
// operations. Updates never move backwards and repeats are coalesced, so
// subscribers see a clean 0..100 sequence.
package progress

import "sync"

// Tracker fans progress percentages out to subscribers. Safe for concurrent
// use; the reporting side never blocks on slow subscribers.
type Tracker struct {
	mu      sync.Mutex
	current int
	done    bool
	subs    []chan int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Set reports progress as a percentage. Values are clamped to [0,100] and
// regressions and repeats are dropped. Reaching 100 closes all subscriber
// channels after delivery.
func (t *Tracker) Set(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || pct <= t.current {
		return
	}
	t.current = pct
	for _, ch := range t.subs {
		select {
		case ch <- pct:
		default:
		}
	}
	if pct == 100 {
		t.done = true
		for _, ch := range t.subs {
			close(ch)
		}
		t.subs = nil
	}
}

// Current returns the last reported percentage.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Done reports whether the tracker reached 100.
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Subscribe returns a buffered channel of percentage updates. The channel is
// closed when progress reaches 100. Subscribing after completion returns an
// already-closed channel.
func (t *Tracker) Subscribe() <-chan int {
	ch := make(chan int, 128)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

// Finish forces the tracker to 100, closing subscriber channels. Used when an
// operation ends early (error or cancellation) so readers do not hang.
func (t *Tracker) Finish() {
	t.Set(100)
}
