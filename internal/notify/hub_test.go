package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSubscriber records deliveries; full simulates a saturated buffer.
type fakeSubscriber struct {
	received [][]byte
	full     bool
}

func (f *fakeSubscriber) deliver(data []byte) bool {
	if f.full {
		return false
	}
	f.received = append(f.received, data)
	return true
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	westmoreland := &fakeSubscriber{}
	trelawny := &fakeSubscriber{}
	hub.join(westmoreland, "Westmoreland")
	hub.join(trelawny, "Trelawny")

	hub.Broadcast(context.Background(), EventNewSubmission, map[string]int{"id": 1}, "Westmoreland")

	require.Len(t, westmoreland.received, 1)
	assert.Empty(t, trelawny.received)

	var evt Event
	require.NoError(t, json.Unmarshal(westmoreland.received[0], &evt))
	assert.Equal(t, EventNewSubmission, evt.Type)
	assert.Equal(t, "Westmoreland", evt.Room)
}

func TestBroadcastMultipleRooms(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	adminSub := &fakeSubscriber{}
	parishSub := &fakeSubscriber{}
	hub.join(adminSub, "admin")
	hub.join(parishSub, "Trelawny")

	hub.Broadcast(context.Background(), EventNewTask, nil, "admin", "Trelawny")

	assert.Len(t, adminSub.received, 1)
	assert.Len(t, parishSub.received, 1)
}

func TestJoinIdempotent(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	sub := &fakeSubscriber{}
	hub.join(sub, "Westmoreland")
	hub.join(sub, "Westmoreland")

	assert.Equal(t, 1, hub.RoomCount("Westmoreland"))

	hub.Broadcast(context.Background(), EventSupplyUpdated, nil, "Westmoreland")
	assert.Len(t, sub.received, 1)
}

func TestLeaveAndDetach(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	sub := &fakeSubscriber{}
	hub.join(sub, "Westmoreland")
	hub.join(sub, "admin")

	hub.leave(sub, "Westmoreland")
	assert.Equal(t, 0, hub.RoomCount("Westmoreland"))
	assert.Equal(t, 1, hub.RoomCount("admin"))

	// Leaving a room never joined is a no-op.
	hub.leave(sub, "Trelawny")

	hub.detach(sub)
	assert.Equal(t, 0, hub.RoomCount("admin"))
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	slow := &fakeSubscriber{full: true}
	healthy := &fakeSubscriber{}
	hub.join(slow, "Westmoreland")
	hub.join(healthy, "Westmoreland")

	hub.Broadcast(context.Background(), EventNewSubmission, nil, "Westmoreland")

	assert.Empty(t, slow.received)
	assert.Len(t, healthy.received, 1)
}

// recordingBroker captures published bytes and lets the test feed the
// listen side, standing in for the Redis relay.
type recordingBroker struct {
	published [][]byte
}

func (b *recordingBroker) Publish(_ context.Context, data []byte) error {
	b.published = append(b.published, data)
	return nil
}

func (b *recordingBroker) Listen(context.Context, func([]byte)) {}

func TestBrokerRelayDeliversOnReceiptOnly(t *testing.T) {
	broker := &recordingBroker{}
	hub := NewHub(broker, zap.NewNop())

	sub := &fakeSubscriber{}
	hub.join(sub, "Trelawny")

	// With a broker configured the event goes to the relay, not straight
	// to local members. This is what prevents double delivery on the
	// publishing instance.
	hub.Broadcast(context.Background(), EventNewSubmission, nil, "Trelawny")
	require.Len(t, broker.published, 1)
	assert.Empty(t, sub.received)

	// Simulate the relayed message arriving.
	var evt Event
	require.NoError(t, json.Unmarshal(broker.published[0], &evt))
	hub.local(evt.Room, evt.Type, broker.published[0])
	assert.Len(t, sub.received, 1)
}
