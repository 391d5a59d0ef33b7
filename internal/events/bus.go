package events

import (
	"sync"

	"library-backend/internal/logger"
)

type Handler func(Event)

// Bus is a small in-process publisher. Publish is called by the engine
// only after its transaction commits; handlers run on their own goroutine
// so delivery failures and latency stay out of the calling operation.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(e)
	}
}

// LogHandler writes every event to the structured log; useful as the
// default subscriber in environments without a notification collaborator.
func LogHandler(e Event) {
	logger.Info("Circulation event",
		"event_id", e.ID,
		"type", string(e.Type),
		"request_id", e.RequestID,
		"loan_id", e.LoanID,
		"book_id", e.BookID,
		"member_id", e.MemberID,
	)
}
