package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/angga0x/ownchat/internal/mocks"
	"github.com/angga0x/ownchat/internal/models"
)

func TestPresenceConnectedSetsOnlineAndBroadcasts(t *testing.T) {
	registry := NewRegistry()
	users := new(mocks.UserRepositoryMock)
	presence := NewPresence(registry, users)

	self := &fakeHandle{}
	other := &fakeHandle{}
	registry.Bind(1, self)
	registry.Bind(2, other)

	users.On("SetOnline", mock.Anything, 1, true).Return(nil).Once()

	presence.Connected(context.Background(), 1)

	for _, h := range []*fakeHandle{self, other} {
		events := h.eventsOfType(models.EventStatus)
		require.Len(t, events, 1)
		assert.Equal(t, 1, events[0].Presence.UserID)
		assert.True(t, events[0].Presence.Online)
	}
	users.AssertExpectations(t)
}

func TestPresenceDisconnectedSetsOffline(t *testing.T) {
	registry := NewRegistry()
	users := new(mocks.UserRepositoryMock)
	presence := NewPresence(registry, users)

	peer := &fakeHandle{}
	registry.Bind(2, peer)

	users.On("SetOnline", mock.Anything, 1, false).Return(nil).Once()

	presence.Disconnected(context.Background(), 1)

	events := peer.eventsOfType(models.EventStatus)
	require.Len(t, events, 1)
	assert.False(t, events[0].Presence.Online)
	users.AssertExpectations(t)
}

func TestPresenceBroadcastSurvivesDeadHandle(t *testing.T) {
	registry := NewRegistry()
	users := new(mocks.UserRepositoryMock)
	presence := NewPresence(registry, users)

	dead := &fakeHandle{sendErr: errors.New("broken pipe")}
	alive := &fakeHandle{}
	registry.Bind(2, dead)
	registry.Bind(3, alive)

	users.On("SetOnline", mock.Anything, 1, true).Return(nil).Once()

	presence.Connected(context.Background(), 1)

	require.Len(t, alive.eventsOfType(models.EventStatus), 1,
		"a failed send must not abort the broadcast loop")
}

func TestPresenceBroadcastsDespiteStoreError(t *testing.T) {
	registry := NewRegistry()
	users := new(mocks.UserRepositoryMock)
	presence := NewPresence(registry, users)

	peer := &fakeHandle{}
	registry.Bind(2, peer)

	users.On("SetOnline", mock.Anything, 1, true).Return(errors.New("db down")).Once()

	presence.Connected(context.Background(), 1)

	assert.Len(t, peer.eventsOfType(models.EventStatus), 1)
}
