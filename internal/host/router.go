package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
)

// Sink delivers reply text to a sender.
type Sink interface {
	Reply(sender uint64, text string)
}

// MaxQueued bounds the replies kept for one remote sender; older replies are
// dropped first.
const MaxQueued = 100

// Router writes console replies to a writer and queues replies for remote
// senders until their transport drains them.
type Router struct {
	console io.Writer
	outbox  map[uint64][]string
	mu      sync.Mutex
}

// NewRouter returns a router printing console replies to console.
func NewRouter(console io.Writer) *Router {
	return &Router{
		console: console,
		outbox:  make(map[uint64][]string),
	}
}

// Reply implements Sink.
func (r *Router) Reply(sender uint64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sender == dispatch.ConsoleSender {
		if r.console == nil {
			return
		}
		if _, err := fmt.Fprintln(r.console, text); err != nil {
			log.Warn().Err(err).Msg("failed to write console reply")
		}
		return
	}
	queue := append(r.outbox[sender], text)
	if over := len(queue) - MaxQueued; over > 0 {
		log.Warn().
			Str("event", "reply_dropped").
			Uint64("sender", sender).
			Int("dropped", over).
			Msg("reply queue full, dropping oldest replies")
		queue = append(queue[:0:0], queue[over:]...)
	}
	r.outbox[sender] = queue
}

// Drain returns and forgets the replies queued for sender.
func (r *Router) Drain(sender uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.outbox[sender]
	delete(r.outbox, sender)
	return out
}

// SetConsole swaps the console writer, for transports that take over the
// terminal after startup.
func (r *Router) SetConsole(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console = w
}

var _ Sink = (*Router)(nil)
