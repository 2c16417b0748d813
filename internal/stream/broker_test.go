package stream

import (
	"testing"
	"time"

	"github.com/aptify/chat-backend/internal/models"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	b := NewBroker(nil)

	ch, cancel := b.Subscribe(7)
	defer cancel()

	other, cancelOther := b.Subscribe(8)
	defer cancelOther()

	b.PublishMessage(7, &models.Message{ID: 1, ConversationID: 7, Text: "hi"})

	select {
	case msg := <-ch:
		if msg.ID != 1 || msg.Text != "hi" {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the message")
	}

	select {
	case msg := <-other:
		t.Errorf("conversation 8 subscriber received %+v", msg)
	default:
	}
}

func TestBrokerCancelIsIdempotent(t *testing.T) {
	b := NewBroker(nil)

	_, cancel := b.Subscribe(7)
	if b.SubscriberCount(7) != 1 {
		t.Fatalf("count = %d", b.SubscriberCount(7))
	}

	cancel()
	cancel() // must not panic or double-close

	if b.SubscriberCount(7) != 0 {
		t.Errorf("count after cancel = %d", b.SubscriberCount(7))
	}

	// Publishing into an empty conversation is a no-op.
	b.PublishMessage(7, &models.Message{ID: 2, ConversationID: 7})
}

func TestBrokerMultipleSubscribersSameConversation(t *testing.T) {
	b := NewBroker(nil)

	ch1, cancel1 := b.Subscribe(7)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(7)
	defer cancel2()

	b.PublishMessage(7, &models.Message{ID: 3, ConversationID: 7})

	for i, ch := range []<-chan models.Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.ID != 3 {
				t.Errorf("subscriber %d got %+v", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d starved", i)
		}
	}
}
