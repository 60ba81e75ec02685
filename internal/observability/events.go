package observability

import (
	"net"
	"net/http"
	"strings"
)

// EventEnvelope wraps every event published to the topic exchange. The
// correlation ids travel in the envelope so consumers can join events to
// the originating request and trace.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	RequestID string      `json:"request_id,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// WSEventPayload describes a websocket lifecycle event together with the
// identity of the connection it happened on.
type WSEventPayload struct {
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	UserID     int    `json:"user_id"`
	DeviceID   string `json:"device_id"`
	IP         string `json:"ip"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

func IPFromRequest(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
