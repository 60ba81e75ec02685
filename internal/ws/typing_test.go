package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angga0x/ownchat/internal/models"
)

func TestTypingRelayNotifiesPartner(t *testing.T) {
	registry := NewRegistry()
	relay := NewTypingRelay(registry, TypingWindow)

	partner := &fakeHandle{}
	registry.Bind(2, partner)

	relay.Notify(1, 2)

	events := partner.eventsOfType(models.EventServerTyping)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Typing.UserID)
}

func TestTypingRelayOfflinePartnerIsANoop(t *testing.T) {
	registry := NewRegistry()
	relay := NewTypingRelay(registry, TypingWindow)

	relay.Notify(1, 2)
	assert.True(t, relay.IsTyping(1), "the signal is still recorded")
}

func TestTypingExpiresWithoutStopSignal(t *testing.T) {
	registry := NewRegistry()
	relay := NewTypingRelay(registry, 20*time.Millisecond)

	relay.Notify(1, 2)
	require.True(t, relay.IsTyping(1))

	time.Sleep(40 * time.Millisecond)
	assert.False(t, relay.IsTyping(1), "typing state auto-expires after the window")
}

func TestTypingRenewalExtendsWindow(t *testing.T) {
	registry := NewRegistry()
	relay := NewTypingRelay(registry, 50*time.Millisecond)

	relay.Notify(1, 2)
	time.Sleep(30 * time.Millisecond)
	relay.Notify(1, 2)
	time.Sleep(30 * time.Millisecond)

	assert.True(t, relay.IsTyping(1), "renewal restarts the quiescence window")
}

func TestIsTypingUnknownUser(t *testing.T) {
	relay := NewTypingRelay(NewRegistry(), TypingWindow)
	assert.False(t, relay.IsTyping(7))
}
