package client

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angga0x/ownchat/internal/models"
)

// TypingIndicatorTTL is how long the partner's typing indicator stays lit
// without a renewal. No stop signal exists; expiry is the only clear.
const TypingIndicatorTTL = 3 * time.Second

// Entry is a conversation message as the UI sees it. Pending entries are
// optimistic local sends awaiting the server ack; they carry a negative
// local id and a correlation tag, and are otherwise indistinguishable from
// confirmed messages.
type Entry struct {
	models.Message
	Pending   bool
	ClientTag string
}

type pendingRef struct {
	partnerID int
	localID   int
}

// ConversationStore is the in-memory reactive cache: the UI-facing source
// of truth per conversation partner, merged from authoritative fetches,
// optimistic sends, server acks and pushed events.
type ConversationStore struct {
	selfID int

	mu            sync.Mutex
	conversations map[int][]Entry
	pending       map[string]pendingRef
	presence      map[int]bool
	typingUntil   map[int]time.Time
	nextLocalID   int
}

// NewConversationStore constructs a store for the given local user.
func NewConversationStore(selfID int) *ConversationStore {
	return &ConversationStore{
		selfID:        selfID,
		conversations: make(map[int][]Entry),
		pending:       make(map[string]pendingRef),
		presence:      make(map[int]bool),
		typingUntil:   make(map[int]time.Time),
	}
}

// Conversation returns a copy of the entries for a partner, ascending.
func (s *ConversationStore) Conversation(partnerID int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.conversations[partnerID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// ApplyFetch merges an authoritative conversation fetch. Confirmed entries
// are replaced wholesale; pending optimistic entries are kept at the tail
// so an in-flight send survives a refresh.
func (s *ConversationStore) ApplyFetch(partnerID int, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		merged = append(merged, Entry{Message: m})
	}
	for _, e := range s.conversations[partnerID] {
		if e.Pending {
			merged = append(merged, e)
		}
	}
	s.conversations[partnerID] = merged
}

// AddOptimistic inserts a local send before the server confirms it. The
// entry gets an id from the negative local namespace, which cannot collide
// with server-assigned ids, plus a correlation tag for the ack round-trip.
func (s *ConversationStore) AddOptimistic(partnerID int, content, imagePath *string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLocalID--
	entry := Entry{
		Message: models.Message{
			ID:         s.nextLocalID,
			SenderID:   s.selfID,
			ReceiverID: partnerID,
			Content:    content,
			ImagePath:  imagePath,
			CreatedAt:  time.Now(),
		},
		Pending:   true,
		ClientTag: uuid.NewString(),
	}
	s.conversations[partnerID] = append(s.conversations[partnerID], entry)
	s.pending[entry.ClientTag] = pendingRef{partnerID: partnerID, localID: entry.ID}
	return entry
}

// Reconcile replaces the pending entry matched by the ack's correlation tag
// with the server-confirmed message. It never re-appends: an unknown tag
// with an already-present id is a duplicate ack and a no-op.
func (s *ConversationStore) Reconcile(ack models.AckPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.pending[ack.ClientTag]
	if !ok {
		// Ack raced ahead of the optimistic insert or arrived twice; only
		// append when the confirmed id is genuinely missing.
		partnerID := ack.Message.ReceiverID
		if !s.containsLocked(partnerID, ack.Message.ID) {
			s.insertAscendingLocked(partnerID, Entry{Message: ack.Message})
		}
		return
	}
	delete(s.pending, ack.ClientTag)

	entries := s.conversations[ref.partnerID]
	for i, e := range entries {
		if e.ID == ref.localID {
			entries[i] = Entry{Message: ack.Message}
			return
		}
	}
	s.insertAscendingLocked(ref.partnerID, Entry{Message: ack.Message})
}

// ApplyMessage merges a pushed incoming message, deduplicating by id.
func (s *ConversationStore) ApplyMessage(msg models.Message) {
	partnerID := msg.SenderID
	if msg.SenderID == s.selfID {
		partnerID = msg.ReceiverID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.containsLocked(partnerID, msg.ID) {
		return
	}
	s.insertAscendingLocked(partnerID, Entry{Message: msg})
}

// ApplyStatus patches delivered/read flags on a confirmed message.
func (s *ConversationStore) ApplyStatus(messageID int, delivered, read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for partnerID, entries := range s.conversations {
		for i, e := range entries {
			if e.ID == messageID {
				entries[i].Delivered = delivered
				if read {
					entries[i].Delivered = true
					entries[i].Read = true
				}
				s.conversations[partnerID] = entries
				return
			}
		}
	}
}

// ApplyDeleteForAll tombstones the message: the flag flips and the content
// is dropped so no layer retains it.
func (s *ConversationStore) ApplyDeleteForAll(messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entries := range s.conversations {
		for i, e := range entries {
			if e.ID == messageID {
				entries[i].IsDeleted = true
				entries[i].Content = nil
				entries[i].ImagePath = nil
				return
			}
		}
	}
}

// ApplyDeleteForMe removes the message from this viewer's local state.
func (s *ConversationStore) ApplyDeleteForMe(messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for partnerID, entries := range s.conversations {
		for i, e := range entries {
			if e.ID == messageID {
				s.conversations[partnerID] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// SetPresence records a partner's online flag.
func (s *ConversationStore) SetPresence(userID int, online bool) {
	s.mu.Lock()
	s.presence[userID] = online
	s.mu.Unlock()
}

// IsOnline reports the last known presence of a user.
func (s *ConversationStore) IsOnline(userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[userID]
}

// SetTyping lights the typing indicator for a partner; it expires on its
// own after TypingIndicatorTTL unless renewed.
func (s *ConversationStore) SetTyping(userID int) {
	s.mu.Lock()
	s.typingUntil[userID] = time.Now().Add(TypingIndicatorTTL)
	s.mu.Unlock()
}

// IsUserTyping reports whether the user's typing signal is still fresh.
func (s *ConversationStore) IsUserTyping(userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.typingUntil[userID]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(s.typingUntil, userID)
		return false
	}
	return true
}

func (s *ConversationStore) containsLocked(partnerID, messageID int) bool {
	for _, e := range s.conversations[partnerID] {
		if e.ID == messageID {
			return true
		}
	}
	return false
}

func (s *ConversationStore) insertAscendingLocked(partnerID int, entry Entry) {
	entries := append(s.conversations[partnerID], entry)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	s.conversations[partnerID] = entries
}
