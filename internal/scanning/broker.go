package scanning

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// CompletionSentinel is the last line of every log stream.
const CompletionSentinel = "Scan complete. Results saved to database."

// LogStreamBroker is an unbounded FIFO of progress lines between a running
// scan and one consumer. Publish never blocks.
type LogStreamBroker struct {
	mu         sync.Mutex
	queue      []string
	transcript []string
	closed     bool
	notify     chan struct{}
	drained    bool
}

// NewLogStreamBroker creates an open broker.
func NewLogStreamBroker() *LogStreamBroker {
	return &LogStreamBroker{notify: make(chan struct{}, 1)}
}

// Publish enqueues line. It is a no-op after Close.
func (b *LogStreamBroker) Publish(line string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, line)
	b.transcript = append(b.transcript, line)
	b.mu.Unlock()
	b.wake()
}

// Close marks the end of the stream. Queued lines remain readable.
func (b *LogStreamBroker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

// Transcript returns every line published so far.
func (b *LogStreamBroker) Transcript() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.transcript)
}

// Lines yields queued lines in publish order, blocking while the queue is
// empty. Once the broker is closed and drained it yields CompletionSentinel
// and ends. The sequence stops early when ctx is done. Only the first call
// returns lines; later calls yield nothing.
func (b *LogStreamBroker) Lines(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		b.mu.Lock()
		if b.drained {
			b.mu.Unlock()
			return
		}
		b.drained = true
		b.mu.Unlock()

		for {
			batch, closed := b.take()
			for _, line := range batch {
				if !yield(line) {
					return
				}
			}
			if len(batch) > 0 {
				continue
			}
			if closed {
				yield(CompletionSentinel)
				return
			}

			select {
			case <-b.notify:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *LogStreamBroker) take() ([]string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.queue
	b.queue = nil
	return batch, b.closed
}

func (b *LogStreamBroker) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
