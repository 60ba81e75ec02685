package ws

import (
	"log"
	"sync"
	"time"

	"github.com/angga0x/ownchat/internal/models"
)

// TypingWindow is how long a typing signal stays fresh without renewal.
const TypingWindow = 3 * time.Second

// TypingRelay forwards typing activity to the conversation partner. Signals
// are advisory: nothing is persisted, nothing is retried, and a signal
// expires on its own after the quiescence window because no stop event is
// ever sent.
type TypingRelay struct {
	registry *Registry
	window   time.Duration

	mu   sync.Mutex
	last map[int]time.Time
}

// NewTypingRelay constructs a relay with the given quiescence window.
func NewTypingRelay(registry *Registry, window time.Duration) *TypingRelay {
	return &TypingRelay{
		registry: registry,
		window:   window,
		last:     make(map[int]time.Time),
	}
}

// Notify records the typing activity and pushes a typing event to the
// partner's live connection if there is one.
func (t *TypingRelay) Notify(fromID, toID int) {
	t.mu.Lock()
	t.last[fromID] = time.Now()
	t.mu.Unlock()

	h, ok := t.registry.Lookup(toID)
	if !ok {
		return
	}
	event := models.ServerEvent{
		Type:   models.EventServerTyping,
		Typing: &models.TypingPayload{UserID: fromID},
	}
	if err := h.Send(event); err != nil {
		log.Printf("typing: notify user=%d: %v", toID, err)
	}
}

// IsTyping reports whether the user signalled typing within the window.
// Stale entries are dropped as they are observed.
func (t *TypingRelay) IsTyping(userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.last[userID]
	if !ok {
		return false
	}
	if time.Since(ts) > t.window {
		delete(t.last, userID)
		return false
	}
	return true
}
