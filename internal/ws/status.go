package ws

import (
	"context"
	"log"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/repositories"
)

// Status owns the per-message delivered/read lifecycle and the two deletion
// flavors, fanning state changes out to the live connections that care.
// Every path persists first and notifies second; a store failure leaves no
// notification behind.
type Status struct {
	registry *Registry
	messages repositories.MessageRepository
}

// NewStatus constructs a Status service.
func NewStatus(registry *Registry, messages repositories.MessageRepository) *Status {
	return &Status{registry: registry, messages: messages}
}

// MarkDelivered bulk-transitions the receiver's undelivered messages and
// pushes a delivered receipt to each message's sender. Called when the
// receiver (re)authenticates, so messages that arrived while offline catch
// up. Returns the number of transitioned messages.
func (s *Status) MarkDelivered(ctx context.Context, receiverID int) (int, error) {
	msgs, err := s.messages.MarkDelivered(ctx, receiverID)
	if err != nil {
		return 0, err
	}

	for _, m := range msgs {
		h, ok := s.registry.Lookup(m.SenderID)
		if !ok {
			continue
		}
		event := models.ServerEvent{
			Type:    models.EventDelivered,
			Receipt: &models.ReceiptPayload{MessageID: m.ID, ReceiverID: receiverID},
		}
		if err := h.Send(event); err != nil {
			log.Printf("status: delivered receipt message=%d to user=%d: %v", m.ID, m.SenderID, err)
		}
	}
	return len(msgs), nil
}

// MarkRead bulk-transitions unread messages from sender to receiver and
// pushes a read receipt per message to the sender's live connection.
func (s *Status) MarkRead(ctx context.Context, senderID, receiverID int) (int, error) {
	msgs, err := s.messages.MarkRead(ctx, senderID, receiverID)
	if err != nil {
		return 0, err
	}

	h, ok := s.registry.Lookup(senderID)
	if !ok {
		return len(msgs), nil
	}
	for _, m := range msgs {
		event := models.ServerEvent{
			Type:    models.EventRead,
			Receipt: &models.ReceiptPayload{MessageID: m.ID, ReceiverID: receiverID},
		}
		if err := h.Send(event); err != nil {
			log.Printf("status: read receipt message=%d to user=%d: %v", m.ID, senderID, err)
		}
	}
	return len(msgs), nil
}

// DeleteForMe hides the message for the viewer only. The peer is never
// notified; the tombstone applies solely to the viewer's own client state.
func (s *Status) DeleteForMe(ctx context.Context, messageID, viewerID int) (models.Message, error) {
	msg, err := s.messages.DeleteForMe(ctx, messageID, viewerID)
	if err != nil {
		return models.Message{}, err
	}

	if h, ok := s.registry.Lookup(viewerID); ok {
		event := models.ServerEvent{
			Type:     models.EventDeletedForMe,
			Deletion: &models.DeletionPayload{MessageID: messageID, UserID: viewerID},
		}
		if err := h.Send(event); err != nil {
			log.Printf("status: deleted-for-me message=%d to user=%d: %v", messageID, viewerID, err)
		}
	}
	return msg, nil
}

// DeleteForAll tombstones the message for every viewer. Only the sender may
// do this; both parties' live connections are notified.
func (s *Status) DeleteForAll(ctx context.Context, messageID, requesterID int) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != requesterID {
		return models.Message{}, ErrForbidden
	}

	msg, err = s.messages.DeleteForAll(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	event := models.ServerEvent{
		Type:     models.EventDeletedForAll,
		Deletion: &models.DeletionPayload{MessageID: messageID},
	}
	for _, userID := range []int{msg.SenderID, msg.ReceiverID} {
		if h, ok := s.registry.Lookup(userID); ok {
			if err := h.Send(event); err != nil {
				log.Printf("status: deleted-for-all message=%d to user=%d: %v", messageID, userID, err)
			}
		}
	}
	return msg, nil
}
