package room

import (
	"encoding/json"
	"testing"
	"time"
)

func waitForClientCount(t *testing.T, hub *Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(roomID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s client count never reached %d (got %d)", roomID, want, hub.ClientCount(roomID))
}

func TestHubBroadcastDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Hub: hub, Send: make(chan []byte, 4), RoomID: "room-1", UserID: 7}
	other := &Client{Hub: hub, Send: make(chan []byte, 4), RoomID: "room-2", UserID: 8}
	hub.Register(client)
	hub.Register(other)
	waitForClientCount(t, hub, "room-1", 1)
	waitForClientCount(t, hub, "room-2", 1)

	hub.Broadcast("room-1", &Event{Type: EventLoopCreated, RoomID: "room-1", UserID: 7})

	select {
	case data := <-client.Send:
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("broadcast frame is not JSON: %v", err)
		}
		if event.Type != EventLoopCreated {
			t.Errorf("event type = %q, want %q", event.Type, EventLoopCreated)
		}
		if event.RoomID != "room-1" {
			t.Errorf("event room = %q, want room-1", event.RoomID)
		}
		if event.Timestamp == 0 {
			t.Error("event timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached the room's client")
	}

	select {
	case data := <-other.Send:
		t.Fatalf("client in another room received %s", data)
	default:
	}
}

func TestHubDropsSlowConsumerWithoutBlocking(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// Unbuffered Send with no reader: the first broadcast cannot be
	// delivered, so the hub must drop this client in place.
	slow := &Client{Hub: hub, Send: make(chan []byte), RoomID: "room-1", UserID: 1}
	hub.Register(slow)
	waitForClientCount(t, hub, "room-1", 1)

	hub.Broadcast("room-1", &Event{Type: EventLoopUpdated, RoomID: "room-1"})
	waitForClientCount(t, hub, "room-1", 0)

	// The hub loop must still be serving; a later Register has to complete.
	registered := make(chan struct{})
	go func() {
		hub.Register(&Client{Hub: hub, Send: make(chan []byte, 1), RoomID: "room-1", UserID: 2})
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked after dropping a slow consumer")
	}
	waitForClientCount(t, hub, "room-1", 1)

	// Dropping closes the slow client's Send so its write pump exits.
	select {
	case _, ok := <-slow.Send:
		if ok {
			t.Error("expected slow client's Send to be closed")
		}
	default:
		t.Error("slow client's Send was not closed")
	}
}
