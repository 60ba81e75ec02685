package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angga0x/ownchat/internal/mocks"
	"github.com/angga0x/ownchat/internal/models"
)

func strptr(s string) *string { return &s }

func TestRouterSendRejectsInvalidPayload(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	_, err := router.Send(context.Background(), 1, 2, nil, nil, "")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = router.Send(context.Background(), 1, 2, strptr("x"), strptr("y"), "")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterSendDeliversAndAcks(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	sender := &fakeHandle{}
	receiver := &fakeHandle{}
	registry.Bind(1, sender)
	registry.Bind(2, receiver)

	content := strptr("hi")
	persisted := models.Message{ID: 7, SenderID: 1, ReceiverID: 2, Content: content}

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, content, (*string)(nil)).Return(persisted, nil).Once()

	msg, err := router.Send(context.Background(), 1, 2, content, nil, "tag-1")
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)

	delivered := receiver.eventsOfType(models.EventMessage)
	require.Len(t, delivered, 1)
	assert.Equal(t, 1, delivered[0].Message.SenderID)
	assert.Equal(t, "alice", delivered[0].Message.SenderUsername)
	assert.Equal(t, "hi", *delivered[0].Message.Content)

	acks := sender.eventsOfType(models.EventMessageAck)
	require.Len(t, acks, 1)
	assert.Equal(t, 7, acks[0].Ack.Message.ID)
	assert.Equal(t, "tag-1", acks[0].Ack.ClientTag)

	messages.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestRouterSendToOfflineReceiverStillPersists(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	sender := &fakeHandle{}
	registry.Bind(1, sender)

	content := strptr("hello?")
	persisted := models.Message{ID: 8, SenderID: 1, ReceiverID: 2, Content: content}

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, content, (*string)(nil)).Return(persisted, nil).Once()

	msg, err := router.Send(context.Background(), 1, 2, content, nil, "tag-2")
	require.NoError(t, err, "an offline receiver is the normal will-sync-later path")
	assert.False(t, msg.Delivered)

	require.Len(t, sender.eventsOfType(models.EventMessageAck), 1)
	messages.AssertExpectations(t)
}

func TestRouterSendPersistFailureAborts(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	sender := &fakeHandle{}
	receiver := &fakeHandle{}
	registry.Bind(1, sender)
	registry.Bind(2, receiver)

	content := strptr("hi")
	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, content, (*string)(nil)).
		Return(models.Message{}, assert.AnError).Once()

	_, err := router.Send(context.Background(), 1, 2, content, nil, "tag-3")
	require.Error(t, err)

	assert.Empty(t, receiver.Events(), "no delivery without persistence")
	assert.Empty(t, sender.eventsOfType(models.EventMessageAck), "no ack without persistence")
}

func TestRouterSendDeliveryFailureDoesNotRollBack(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	sender := &fakeHandle{}
	receiver := &fakeHandle{sendErr: assert.AnError}
	registry.Bind(1, sender)
	registry.Bind(2, receiver)

	content := strptr("hi")
	persisted := models.Message{ID: 9, SenderID: 1, ReceiverID: 2, Content: content}

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	messages.On("CreateMessage", mock.Anything, 1, 2, content, (*string)(nil)).Return(persisted, nil).Once()

	msg, err := router.Send(context.Background(), 1, 2, content, nil, "tag-4")
	require.NoError(t, err)
	assert.Equal(t, 9, msg.ID)
	require.Len(t, sender.eventsOfType(models.EventMessageAck), 1,
		"the authoritative record stands even when the live push fails")
}

func TestRouterSendUnknownReceiver(t *testing.T) {
	registry := NewRegistry()
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	router := NewRouter(registry, messages, users)

	users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	users.On("GetUser", mock.Anything, 99).Return(models.User{}, assert.AnError).Once()

	_, err := router.Send(context.Background(), 1, 99, strptr("hi"), nil, "")
	require.Error(t, err)
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
