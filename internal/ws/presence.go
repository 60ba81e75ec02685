package ws

import (
	"context"
	"log"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/repositories"
)

// Presence derives online/offline transitions from registry bind/unbind and
// fans them out to every connected client. Presence is not scoped per
// conversation; it is not sensitive data and the flat broadcast keeps the
// tracker trivial.
type Presence struct {
	registry *Registry
	users    repositories.UserRepository
}

// NewPresence constructs a Presence tracker.
func NewPresence(registry *Registry, users repositories.UserRepository) *Presence {
	return &Presence{registry: registry, users: users}
}

// Connected records the user as online and broadcasts the transition.
func (p *Presence) Connected(ctx context.Context, userID int) {
	if err := p.users.SetOnline(ctx, userID, true); err != nil {
		log.Printf("presence: set online user=%d: %v", userID, err)
	}
	p.broadcast(userID, true)
}

// Disconnected records the user as offline and broadcasts the transition.
func (p *Presence) Disconnected(ctx context.Context, userID int) {
	if err := p.users.SetOnline(ctx, userID, false); err != nil {
		log.Printf("presence: set offline user=%d: %v", userID, err)
	}
	p.broadcast(userID, false)
}

// broadcast is best-effort: a dead handle must not abort the loop.
func (p *Presence) broadcast(userID int, online bool) {
	event := models.ServerEvent{
		Type:     models.EventStatus,
		Presence: &models.PresencePayload{UserID: userID, Online: online},
	}
	for id, h := range p.registry.Snapshot() {
		if err := h.Send(event); err != nil {
			log.Printf("presence: broadcast to user=%d: %v", id, err)
		}
	}
}
