package events

import (
	"encoding/json"
	"testing"
)

func TestPublishJSON_DeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []*Event
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		got = append(got, event)
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(event *Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	payload := BookingEventPayload{BookingID: 42, Reference: "ABC234", Status: "pending"}
	if err := bus.PublishJSON(EventBookingCreated, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Error("event ID and timestamp should be filled in")
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(got[0].Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.BookingID != 42 || decoded.Reference != "ABC234" {
		t.Errorf("payload mismatch: %+v", decoded)
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: EventSeatAssigned})
}

func TestPublishJSON_NilBus(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventSeatReleased, SeatEventPayload{SeatID: 1}); err != nil {
		t.Fatalf("nil bus publish: %v", err)
	}
}
