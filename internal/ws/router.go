package ws

import (
	"context"
	"log"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/repositories"
)

// Router accepts a send intent from an authenticated connection, persists
// it, delivers it to the receiver's live connection if present, and acks the
// sender with the authoritative id.
type Router struct {
	registry *Registry
	messages repositories.MessageRepository
	users    repositories.UserRepository
}

// NewRouter constructs a Router.
func NewRouter(registry *Registry, messages repositories.MessageRepository, users repositories.UserRepository) *Router {
	return &Router{registry: registry, messages: messages, users: users}
}

// Send persists and routes one message. Exactly one of content and
// imagePath must be non-nil. Persistence failure aborts the operation;
// a failed live push does not, the receiver reconciles on next fetch.
func (r *Router) Send(ctx context.Context, senderID, receiverID int, content, imagePath *string, clientTag string) (models.Message, error) {
	if !models.ValidPayload(content, imagePath) {
		return models.Message{}, ErrInvalidPayload
	}

	sender, err := r.users.GetUser(ctx, senderID)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := r.users.GetUser(ctx, receiverID); err != nil {
		return models.Message{}, err
	}

	msg, err := r.messages.CreateMessage(ctx, senderID, receiverID, content, imagePath)
	if err != nil {
		return models.Message{}, err
	}

	// The registry is consulted after the store call returns; the receiver
	// may have disconnected while the insert was in flight.
	if h, ok := r.registry.Lookup(receiverID); ok {
		event := models.ServerEvent{
			Type:    models.EventMessage,
			Message: &models.MessagePayload{Message: msg, SenderUsername: sender.Username},
		}
		if err := h.Send(event); err != nil {
			log.Printf("router: deliver message=%d to user=%d: %v", msg.ID, receiverID, err)
			observability.IncDeliveryFailure()
		}
	}

	if h, ok := r.registry.Lookup(senderID); ok {
		ack := models.ServerEvent{
			Type: models.EventMessageAck,
			Ack:  &models.AckPayload{Message: msg, ClientTag: clientTag},
		}
		if err := h.Send(ack); err != nil {
			log.Printf("router: ack message=%d to user=%d: %v", msg.ID, senderID, err)
		}
	}

	return msg, nil
}
