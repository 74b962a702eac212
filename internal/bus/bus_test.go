// ABOUTME: Tests for the typed publish/subscribe bus
// ABOUTME: Covers registration order, disposer semantics, in-flight cancellation, and silent-drop sends

package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatdock/internal/connection"
	"github.com/2389/chatdock/internal/wire"
)

func newTestBus(t *testing.T) (*Bus, *connection.Manager, *connection.MockTransport) {
	t.Helper()
	transport := &connection.MockTransport{}
	conn := connection.NewManager(connection.Config{URL: "ws://chat.test/socket"}, transport, nil)
	return New(conn, nil), conn, transport
}

func envelope(t *testing.T, kind wire.Kind, payload any) wire.Envelope {
	t.Helper()
	data, err := wire.Encode(kind, payload)
	require.NoError(t, err)
	env, err := wire.Decode(data)
	require.NoError(t, err)
	return env
}

func TestBus_HandlersRunInRegistrationOrder(t *testing.T) {
	b, _, _ := newTestBus(t)

	var order []string
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { order = append(order, "first") })
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { order = append(order, "second") })
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { order = append(order, "third") })

	b.Dispatch(envelope(t, wire.KindReceiveMessage, wire.InboundMessage{Message: "hi"}))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_NoCrossKindDelivery(t *testing.T) {
	b, _, _ := newTestBus(t)

	direct := 0
	room := 0
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { direct++ })
	b.Subscribe(wire.KindReceiveRoomMessage, func(wire.Envelope) { room++ })

	b.Dispatch(envelope(t, wire.KindReceiveRoomMessage, wire.InboundMessage{RoomID: "lobby"}))

	assert.Zero(t, direct)
	assert.Equal(t, 1, room)
}

func TestBus_UnsubscribeRemovesExactlyOneHandler(t *testing.T) {
	b, _, _ := newTestBus(t)

	var calls []string
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { calls = append(calls, "a") })
	unsubB := b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { calls = append(calls, "b") })
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { calls = append(calls, "c") })

	unsubB()
	b.Dispatch(envelope(t, wire.KindReceiveMessage, wire.InboundMessage{}))

	assert.Equal(t, []string{"a", "c"}, calls)
}

func TestBus_NoHandlerLeakAcrossCycles(t *testing.T) {
	b, _, _ := newTestBus(t)

	// Simulates components mounting and unmounting repeatedly.
	for i := 0; i < 50; i++ {
		unsub := b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) {})
		unsub()
	}

	assert.Zero(t, b.SubscriberCount(wire.KindReceiveMessage))
}

func TestBus_UnsubscribeIsSafeToCallTwice(t *testing.T) {
	b, _, _ := newTestBus(t)

	unsubA := b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) {})
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) {})

	unsubA()
	unsubA()

	assert.Equal(t, 1, b.SubscriberCount(wire.KindReceiveMessage))
}

func TestBus_RemovedHandlerSkippedForInFlightFrame(t *testing.T) {
	b, _, _ := newTestBus(t)

	called := false
	var unsubLate func()
	// The first handler unsubscribes the second mid-dispatch; the frame is
	// already in flight, yet the removed handler must not run.
	b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { unsubLate() })
	unsubLate = b.Subscribe(wire.KindReceiveMessage, func(wire.Envelope) { called = true })

	b.Dispatch(envelope(t, wire.KindReceiveMessage, wire.InboundMessage{}))

	assert.False(t, called)
}

func TestOn_DecodesTypedPayload(t *testing.T) {
	b, _, _ := newTestBus(t)

	var got wire.InboundMessage
	On(b, wire.KindReceiveMessage, func(p wire.InboundMessage) { got = p })

	b.Dispatch(envelope(t, wire.KindReceiveMessage, wire.InboundMessage{
		SenderID: "u7",
		Message:  "hello",
	}))

	assert.Equal(t, "u7", got.SenderID)
	assert.Equal(t, "hello", got.Message)
}

func TestOn_SkipsUndecodablePayload(t *testing.T) {
	b, _, _ := newTestBus(t)

	calls := 0
	On(b, wire.KindReceiveMessage, func(p wire.InboundMessage) { calls++ })

	b.Dispatch(wire.Envelope{Kind: wire.KindReceiveMessage, Payload: []byte(`"not an object"`)})

	assert.Zero(t, calls)
}

func TestBus_SendWhileDisconnectedIsSilent(t *testing.T) {
	b, _, transport := newTestBus(t)

	assert.NotPanics(t, func() {
		b.Send(testContext(t), wire.KindSendMessage, wire.SendMessage{
			SenderID:   "me",
			ReceiverID: "u7",
			Message:    "hi",
		})
	})
	assert.Nil(t, transport.LastConn())
}

func TestBus_SendWhileConnectedReachesTransport(t *testing.T) {
	b, conn, transport := newTestBus(t)
	defer conn.Disconnect()

	require.NoError(t, conn.Connect(testContext(t)))

	b.Send(testContext(t), wire.KindSendMessage, wire.SendMessage{
		SenderID:   "me",
		ReceiverID: "u7",
		Message:    "hi",
	})

	mock := transport.LastConn()
	require.NotNil(t, mock)
	kinds := mock.WrittenKinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, wire.KindSendMessage, kinds[1])
}

func TestBus_RunDispatchesInboundFrames(t *testing.T) {
	b, conn, transport := newTestBus(t)
	defer conn.Disconnect()

	require.NoError(t, conn.Connect(testContext(t)))

	received := make(chan wire.InboundMessage, 1)
	On(b, wire.KindReceiveMessage, func(p wire.InboundMessage) { received <- p })

	go b.Run(testContext(t))

	mock := transport.LastConn()
	require.NotNil(t, mock)
	require.NoError(t, mock.DeliverEvent(wire.KindReceiveMessage, wire.InboundMessage{Message: "live"}))

	select {
	case p := <-received:
		assert.Equal(t, "live", p.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched frame")
	}
}

func TestBus_RunPreservesArrivalOrder(t *testing.T) {
	b, conn, transport := newTestBus(t)
	defer conn.Disconnect()

	require.NoError(t, conn.Connect(testContext(t)))

	got := make(chan string, 3)
	On(b, wire.KindReceiveMessage, func(p wire.InboundMessage) { got <- p.Message })

	mock := transport.LastConn()
	require.NotNil(t, mock)
	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, mock.DeliverEvent(wire.KindReceiveMessage, wire.InboundMessage{Message: body}))
	}

	go b.Run(testContext(t))

	for _, want := range []string{"one", "two", "three"} {
		select {
		case body := <-got:
			assert.Equal(t, want, body)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for dispatched frame")
		}
	}
}
