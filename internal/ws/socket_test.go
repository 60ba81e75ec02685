package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angga0x/ownchat/internal/auth"
	"github.com/angga0x/ownchat/internal/mocks"
	"github.com/angga0x/ownchat/internal/models"
)

type socketFixture struct {
	server   *httptest.Server
	sessions *auth.Manager
	users    *mocks.UserRepositoryMock
	messages *mocks.MessageRepositoryMock
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := NewRegistry()
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	sessions := auth.NewManager()

	presence := NewPresence(registry, users)
	router := NewRouter(registry, messages, users)
	status := NewStatus(registry, messages)
	typing := NewTypingRelay(registry, TypingWindow)
	socket := NewSocketHandler(registry, presence, router, status, typing, sessions)

	engine := gin.New()
	engine.GET("/ws", socket.Handle)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &socketFixture{server: server, sessions: sessions, users: users, messages: messages}
}

func (f *socketFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *socketFixture) authenticate(t *testing.T, conn *websocket.Conn, userID int) {
	t.Helper()
	token, err := f.sessions.Issue(userID)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.ClientEvent{
		Type: models.EventAuth,
		Auth: &models.AuthPayload{Token: token},
	}))
	reply := readUntil(t, conn, models.EventAuthSuccess)
	require.Equal(t, userID, reply.Auth.UserID)
}

// readUntil skips interleaved pushes (presence broadcasts and the like)
// until an event of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) models.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var event models.ServerEvent
		require.NoError(t, conn.ReadJSON(&event), "waiting for %s", eventType)
		if event.Type == eventType {
			return event
		}
	}
}

func TestSocketRejectsBadToken(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(models.ClientEvent{
		Type: models.EventAuth,
		Auth: &models.AuthPayload{Token: "bogus"},
	}))
	readUntil(t, conn, models.EventAuthError)
}

func TestSocketRejectsEventsBeforeAuth(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(models.ClientEvent{
		Type: models.EventSendMessage,
		Send: &models.SendPayload{ReceiverID: 2, Content: "hi"},
	}))
	event := readUntil(t, conn, models.EventError)
	assert.Equal(t, "unauthenticated", event.Error.Code)
}

func TestSocketSendMessageFlow(t *testing.T) {
	f := newSocketFixture(t)

	f.users.On("SetOnline", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("MarkDelivered", mock.Anything, mock.Anything).Return(nil, nil)

	alice := f.dial(t)
	f.authenticate(t, alice, 1)
	bob := f.dial(t)
	f.authenticate(t, bob, 2)

	content := "hi"
	persisted := models.Message{ID: 7, SenderID: 1, ReceiverID: 2, Content: &content}
	f.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil)
	f.users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil)
	f.messages.On("CreateMessage", mock.Anything, 1, 2,
		mock.MatchedBy(func(s *string) bool { return s != nil && *s == "hi" }),
		(*string)(nil)).Return(persisted, nil).Once()

	require.NoError(t, alice.WriteJSON(models.ClientEvent{
		Type: models.EventSendMessage,
		Send: &models.SendPayload{ReceiverID: 2, Content: "hi", ClientTag: "tag-1"},
	}))

	pushed := readUntil(t, bob, models.EventMessage)
	assert.Equal(t, 1, pushed.Message.SenderID)
	assert.Equal(t, "alice", pushed.Message.SenderUsername)
	assert.Equal(t, "hi", *pushed.Message.Content)

	ack := readUntil(t, alice, models.EventMessageAck)
	assert.Equal(t, 7, ack.Ack.Message.ID)
	assert.Equal(t, "tag-1", ack.Ack.ClientTag)
}

func TestSocketDeliveryCatchUpOnAuth(t *testing.T) {
	f := newSocketFixture(t)

	f.users.On("SetOnline", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("MarkDelivered", mock.Anything, 1).Return(nil, nil)

	alice := f.dial(t)
	f.authenticate(t, alice, 1)

	// Bob was offline when message 5 was sent; his authentication flips it
	// to delivered and Alice gets the receipt.
	f.messages.On("MarkDelivered", mock.Anything, 2).
		Return([]models.Message{{ID: 5, SenderID: 1, ReceiverID: 2}}, nil).Once()

	bob := f.dial(t)
	f.authenticate(t, bob, 2)

	receipt := readUntil(t, alice, models.EventDelivered)
	assert.Equal(t, 5, receipt.Receipt.MessageID)
	assert.Equal(t, 2, receipt.Receipt.ReceiverID)
}

func TestSocketTypingRelay(t *testing.T) {
	f := newSocketFixture(t)

	f.users.On("SetOnline", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("MarkDelivered", mock.Anything, mock.Anything).Return(nil, nil)

	alice := f.dial(t)
	f.authenticate(t, alice, 1)
	bob := f.dial(t)
	f.authenticate(t, bob, 2)

	require.NoError(t, alice.WriteJSON(models.ClientEvent{
		Type:   models.EventTyping,
		Typing: &models.TypingPayload{ReceiverID: 2},
	}))

	event := readUntil(t, bob, models.EventServerTyping)
	assert.Equal(t, 1, event.Typing.UserID)
}

func TestSocketUnknownEventType(t *testing.T) {
	f := newSocketFixture(t)

	f.users.On("SetOnline", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("MarkDelivered", mock.Anything, mock.Anything).Return(nil, nil)

	conn := f.dial(t)
	f.authenticate(t, conn, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))
	event := readUntil(t, conn, models.EventError)
	assert.Equal(t, "invalid_payload", event.Error.Code)
}
