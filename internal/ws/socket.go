package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/angga0x/ownchat/internal/auth"
	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketHandler owns the /ws endpoint: upgrade, in-band authentication and
// the per-connection read loop that dispatches the client event set.
type SocketHandler struct {
	registry *Registry
	presence *Presence
	router   *Router
	status   *Status
	typing   *TypingRelay
	sessions *auth.Manager
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(registry *Registry, presence *Presence, router *Router, status *Status, typing *TypingRelay, sessions *auth.Manager) *SocketHandler {
	return &SocketHandler{
		registry: registry,
		presence: presence,
		router:   router,
		status:   status,
		typing:   typing,
		sessions: sessions,
	}
}

// Handle upgrades the connection and starts the read loop. The connection
// is anonymous until a valid auth event arrives.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("ownchat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, client.info, "ws_connect", "")

	go h.readLoop(ctx, client)
}

func (h *SocketHandler) readLoop(ctx context.Context, client *Client) {
	var userID int
	var closeReason string

	defer func() {
		if userID != 0 {
			// Guarded unbind: a superseded connection's teardown must not
			// evict the binding of its replacement.
			if h.registry.Unbind(userID, client) {
				h.presence.Disconnected(context.Background(), userID)
			}
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, client.info, "ws_disconnect", closeReason)
		client.Close()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, client.info, "ws_error", closeReason)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			client.SendError("invalid_payload", "malformed event")
			continue
		}
		userID = h.dispatch(client, userID, event)
	}
}

// dispatch handles one inbound event and returns the connection's possibly
// updated authenticated identity. Store calls use a background context: the
// connection outlives the handshake request.
func (h *SocketHandler) dispatch(client *Client, userID int, event models.ClientEvent) int {
	ctx := context.Background()
	observability.IncWSEvent(event.Type)

	if event.Type == models.EventAuth {
		if event.Auth == nil {
			client.Send(models.ServerEvent{Type: models.EventAuthError})
			return userID
		}
		id, err := h.sessions.Validate(event.Auth.Token)
		if err != nil {
			client.Send(models.ServerEvent{Type: models.EventAuthError})
			return userID
		}

		client.info.UserID = id
		h.registry.Bind(id, client)
		h.presence.Connected(ctx, id)
		client.Send(models.ServerEvent{
			Type: models.EventAuthSuccess,
			Auth: &models.AuthResult{UserID: id},
		})

		// Catch-up: messages that arrived while the user was offline flip
		// to delivered, and their senders get receipts.
		if _, err := h.status.MarkDelivered(ctx, id); err != nil {
			log.Printf("ws: delivery catch-up user=%d: %v", id, err)
		}
		return id
	}

	if userID == 0 {
		client.SendError("unauthenticated", "authenticate first")
		return userID
	}

	switch event.Type {
	case models.EventSendMessage, models.EventSendImage:
		if event.Send == nil {
			client.SendError("invalid_payload", "missing send payload")
			return userID
		}
		content, imagePath := sendFields(event)
		if _, err := h.router.Send(ctx, userID, event.Send.ReceiverID, content, imagePath, event.Send.ClientTag); err != nil {
			client.SendError(errorCode(err), err.Error())
		} else {
			observability.IncMessageRouted()
		}

	case models.EventTyping:
		if event.Typing == nil {
			client.SendError("invalid_payload", "missing typing payload")
			return userID
		}
		h.typing.Notify(userID, event.Typing.ReceiverID)

	case models.EventMarkRead:
		if event.Read == nil {
			client.SendError("invalid_payload", "missing read payload")
			return userID
		}
		if _, err := h.status.MarkRead(ctx, event.Read.SenderID, userID); err != nil {
			client.SendError(errorCode(err), err.Error())
		}

	case models.EventMarkDelivered:
		if _, err := h.status.MarkDelivered(ctx, userID); err != nil {
			client.SendError(errorCode(err), err.Error())
		}

	default:
		client.SendError("invalid_payload", "unknown event type")
	}
	return userID
}

func sendFields(event models.ClientEvent) (content, imagePath *string) {
	if event.Type == models.EventSendImage {
		if event.Send.ImagePath != "" {
			imagePath = &event.Send.ImagePath
		}
		return nil, imagePath
	}
	if event.Send.Content != "" {
		content = &event.Send.Content
	}
	return content, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, repositories.ErrMessageNotFound), errors.Is(err, repositories.ErrUserNotFound):
		return "not_found"
	default:
		return "store_unavailable"
	}
}

func (h *SocketHandler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	payload := observability.WSEventPayload{
		Event:      event,
		ConnID:     info.ConnID,
		UserID:     info.UserID,
		DeviceID:   info.DeviceID,
		IP:         info.IP,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
		Reason:     reason,
	}
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload:   payload,
	})
}
