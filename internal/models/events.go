package models

// Event type tags sent by clients.
const (
	EventAuth          = "auth"
	EventSendMessage   = "send_message"
	EventSendImage     = "send_image"
	EventTyping        = "typing"
	EventMarkRead      = "mark_read"
	EventMarkDelivered = "mark_delivered"
)

// Event type tags pushed by the server.
const (
	EventAuthSuccess   = "auth_success"
	EventAuthError     = "auth_error"
	EventMessage       = "message"
	EventMessageAck    = "message_ack"
	EventStatus        = "status"
	EventServerTyping  = "typing"
	EventDelivered     = "delivered"
	EventRead          = "read"
	EventDeletedForMe  = "deleted_for_me"
	EventDeletedForAll = "deleted_for_all"
	EventError         = "error"
)

// ClientEvent is the envelope for every client→server frame. Exactly the
// payload matching Type is set; dispatch matches on the tag.
type ClientEvent struct {
	Type   string         `json:"type"`
	Auth   *AuthPayload   `json:"auth,omitempty"`
	Send   *SendPayload   `json:"send,omitempty"`
	Typing *TypingPayload `json:"typing,omitempty"`
	Read   *ReadPayload   `json:"read,omitempty"`
}

// AuthPayload carries the session token of the connecting user.
type AuthPayload struct {
	Token string `json:"token"`
}

// SendPayload carries a text or image send intent. ClientTag is a
// client-generated correlation token echoed back in the ack so optimistic
// entries reconcile without re-appending.
type SendPayload struct {
	ReceiverID int    `json:"receiver_id"`
	Content    string `json:"content,omitempty"`
	ImagePath  string `json:"image_path,omitempty"`
	ClientTag  string `json:"client_tag,omitempty"`
}

// TypingPayload names the typing user (server→client) or the conversation
// partner (client→server).
type TypingPayload struct {
	UserID     int `json:"user_id,omitempty"`
	ReceiverID int `json:"receiver_id,omitempty"`
}

// ReadPayload asks the server to mark all messages from SenderID as read.
type ReadPayload struct {
	SenderID int `json:"sender_id"`
}

// ServerEvent is the envelope for every server→client push.
type ServerEvent struct {
	Type     string           `json:"type"`
	Auth     *AuthResult      `json:"auth,omitempty"`
	Message  *MessagePayload  `json:"message,omitempty"`
	Ack      *AckPayload      `json:"ack,omitempty"`
	Presence *PresencePayload `json:"presence,omitempty"`
	Typing   *TypingPayload   `json:"typing,omitempty"`
	Receipt  *ReceiptPayload  `json:"receipt,omitempty"`
	Deletion *DeletionPayload `json:"deletion,omitempty"`
	Error    *ErrorPayload    `json:"error,omitempty"`
}

// AuthResult reports the authenticated identity.
type AuthResult struct {
	UserID int `json:"user_id,omitempty"`
}

// MessagePayload is an incoming message enriched with the sender name.
type MessagePayload struct {
	Message
	SenderUsername string `json:"sender_username,omitempty"`
}

// AckPayload confirms a send to its own sender, carrying the persisted
// message and the correlation token from the originating SendPayload.
type AckPayload struct {
	Message   Message `json:"message"`
	ClientTag string  `json:"client_tag,omitempty"`
}

// PresencePayload announces an online/offline flip.
type PresencePayload struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

// ReceiptPayload announces a delivered or read transition of one message.
type ReceiptPayload struct {
	MessageID  int `json:"message_id"`
	ReceiverID int `json:"receiver_id"`
}

// DeletionPayload announces a delete-for-me (UserID set to the deleting
// viewer) or a delete-for-all.
type DeletionPayload struct {
	MessageID int `json:"message_id"`
	UserID    int `json:"user_id,omitempty"`
}

// ErrorPayload is a structured rejection returned on the same connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
