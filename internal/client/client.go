package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angga0x/ownchat/internal/models"
)

// TypingDebounce is the minimum gap between typing notifications per
// partner while the user keeps typing.
const TypingDebounce = 500 * time.Millisecond

var ErrAuthFailed = errors.New("authentication failed")

// Client connects to the server, authenticates in-band and keeps the
// in-memory store and the persistent pair cache converging on every
// mutation path.
type Client struct {
	wsURL    string
	httpBase string
	token    string
	selfID   int

	conn  *websocket.Conn
	store *ConversationStore
	cache *PairCache

	writeMu    sync.Mutex
	typingMu   sync.Mutex
	typingSent map[int]time.Time

	// OnEvent, when set before Run, observes every server event after the
	// caches have absorbed it.
	OnEvent func(models.ServerEvent)

	done chan struct{}
}

// Dial connects, performs the auth handshake and returns a ready client.
// Run must be called to start absorbing pushed events.
func Dial(ctx context.Context, wsURL, httpBase, token string, cache *PairCache) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		wsURL:      wsURL,
		httpBase:   httpBase,
		token:      token,
		conn:       conn,
		cache:      cache,
		typingSent: make(map[int]time.Time),
		done:       make(chan struct{}),
	}

	if err := c.write(models.ClientEvent{
		Type: models.EventAuth,
		Auth: &models.AuthPayload{Token: token},
	}); err != nil {
		conn.Close()
		return nil, err
	}

	var reply models.ServerEvent
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, err
	}
	if reply.Type != models.EventAuthSuccess || reply.Auth == nil {
		conn.Close()
		return nil, ErrAuthFailed
	}

	c.selfID = reply.Auth.UserID
	c.store = NewConversationStore(c.selfID)
	return c, nil
}

// UserID returns the authenticated identity.
func (c *Client) UserID() int {
	return c.selfID
}

// Store exposes the in-memory reactive cache.
func (c *Client) Store() *ConversationStore {
	return c.store
}

// Run reads pushed events until the connection closes.
func (c *Client) Run() {
	defer close(c.done)
	for {
		var event models.ServerEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			return
		}
		c.apply(event)
		if c.OnEvent != nil {
			c.OnEvent(event)
		}
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendText inserts an optimistic entry and sends the message. The returned
// entry carries the temporary local id; the ack replaces it in place.
func (c *Client) SendText(partnerID int, text string) (Entry, error) {
	entry := c.store.AddOptimistic(partnerID, &text, nil)
	err := c.write(models.ClientEvent{
		Type: models.EventSendMessage,
		Send: &models.SendPayload{
			ReceiverID: partnerID,
			Content:    text,
			ClientTag:  entry.ClientTag,
		},
	})
	return entry, err
}

// SendTyping notifies the partner of typing activity, at most once per
// debounce interval per partner.
func (c *Client) SendTyping(partnerID int) error {
	c.typingMu.Lock()
	last, ok := c.typingSent[partnerID]
	if ok && time.Since(last) < TypingDebounce {
		c.typingMu.Unlock()
		return nil
	}
	c.typingSent[partnerID] = time.Now()
	c.typingMu.Unlock()

	return c.write(models.ClientEvent{
		Type:   models.EventTyping,
		Typing: &models.TypingPayload{ReceiverID: partnerID},
	})
}

// MarkConversationRead tells the server the conversation with the partner
// is open, flipping their messages to read.
func (c *Client) MarkConversationRead(partnerID int) error {
	return c.write(models.ClientEvent{
		Type: models.EventMarkRead,
		Read: &models.ReadPayload{SenderID: partnerID},
	})
}

// OpenConversation populates the conversation from the local cache when it
// is fresh, otherwise from the authoritative HTTP fetch, and reconciles
// both layers.
func (c *Client) OpenConversation(ctx context.Context, partnerID int) ([]Entry, error) {
	key := PairKey(c.selfID, partnerID)

	if cached, ok, err := c.cache.Read(key); err == nil && ok {
		c.store.ApplyFetch(partnerID, cached)
	} else {
		msgs, err := c.fetchConversation(ctx, partnerID)
		if err != nil {
			return nil, err
		}
		c.store.ApplyFetch(partnerID, msgs)
		if err := c.cache.Write(key, msgs); err != nil {
			log.Printf("client: cache write pair=%s: %v", key, err)
		}
	}

	entries := c.store.Conversation(partnerID)
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		if !last.Pending {
			if err := c.cache.SetLastSeen(key, last.ID); err != nil {
				log.Printf("client: last seen pair=%s: %v", key, err)
			}
		}
	}
	return entries, nil
}

func (c *Client) fetchConversation(ctx context.Context, partnerID int) ([]models.Message, error) {
	url := fmt.Sprintf("%s/messages/%d", c.httpBase, partnerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch conversation: status %d", resp.StatusCode)
	}

	var body struct {
		Messages []models.MessagePayload `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		msgs = append(msgs, m.Message)
	}
	return msgs, nil
}

// apply routes one pushed event into both cache layers.
func (c *Client) apply(event models.ServerEvent) {
	switch event.Type {
	case models.EventMessage:
		if event.Message == nil {
			return
		}
		msg := event.Message.Message
		c.store.ApplyMessage(msg)
		c.cacheAppend(msg)

	case models.EventMessageAck:
		if event.Ack == nil {
			return
		}
		c.store.Reconcile(*event.Ack)
		c.cacheAppend(event.Ack.Message)

	case models.EventDelivered:
		if event.Receipt == nil {
			return
		}
		c.store.ApplyStatus(event.Receipt.MessageID, true, false)
		c.cacheUpdate(event.Receipt.MessageID, true, false)

	case models.EventRead:
		if event.Receipt == nil {
			return
		}
		c.store.ApplyStatus(event.Receipt.MessageID, true, true)
		c.cacheUpdate(event.Receipt.MessageID, true, true)

	case models.EventDeletedForAll:
		if event.Deletion == nil {
			return
		}
		c.store.ApplyDeleteForAll(event.Deletion.MessageID)
		if err := c.cache.MarkDeletedForAll(event.Deletion.MessageID); err != nil {
			log.Printf("client: cache tombstone message=%d: %v", event.Deletion.MessageID, err)
		}

	case models.EventDeletedForMe:
		if event.Deletion == nil {
			return
		}
		c.store.ApplyDeleteForMe(event.Deletion.MessageID)
		if err := c.cache.Remove(event.Deletion.MessageID); err != nil {
			log.Printf("client: cache remove message=%d: %v", event.Deletion.MessageID, err)
		}

	case models.EventStatus:
		if event.Presence == nil {
			return
		}
		c.store.SetPresence(event.Presence.UserID, event.Presence.Online)

	case models.EventServerTyping:
		if event.Typing == nil {
			return
		}
		c.store.SetTyping(event.Typing.UserID)
	}
}

func (c *Client) cacheAppend(msg models.Message) {
	key := PairKey(msg.SenderID, msg.ReceiverID)
	if err := c.cache.Append(key, msg); err != nil {
		log.Printf("client: cache append message=%d: %v", msg.ID, err)
	}
}

func (c *Client) cacheUpdate(messageID int, delivered, read bool) {
	if err := c.cache.UpdateStatus(messageID, delivered, read); err != nil {
		log.Printf("client: cache status message=%d: %v", messageID, err)
	}
}

func (c *Client) write(event models.ClientEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}
