package models

import (
	"testing"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name      string
		a, b      uint
		low, high uint
	}{
		{"already ordered", 1, 2, 1, 2},
		{"reversed", 9, 4, 4, 9},
		{"equal", 3, 3, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := NormalizePair(tt.a, tt.b)
			if low != tt.low || high != tt.high {
				t.Errorf("NormalizePair(%d, %d) = (%d, %d), want (%d, %d)", tt.a, tt.b, low, high, tt.low, tt.high)
			}
		})
	}
}

func TestConversationUnreadBy(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		user uint
		want bool
	}{
		{"flag set", Conversation{UnreadFor: BoolMap{2: true}}, 2, true},
		{"flag cleared", Conversation{UnreadFor: BoolMap{2: false}}, 2, false},
		{"flag absent", Conversation{UnreadFor: BoolMap{}}, 2, false},
		{"legacy positive counter", Conversation{UnreadCounts: CountMap{2: 3}}, 2, true},
		{"legacy zero counter", Conversation{UnreadCounts: CountMap{2: 0}}, 2, false},
		{"map shadows legacy counter", Conversation{UnreadFor: BoolMap{}, UnreadCounts: CountMap{2: 3}}, 2, false},
		{"nothing set", Conversation{}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.UnreadBy(tt.user); got != tt.want {
				t.Errorf("UnreadBy(%d) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestConversationParticipants(t *testing.T) {
	conv := Conversation{ParticipantLow: 3, ParticipantHigh: 8}

	if !conv.HasParticipant(3) || !conv.HasParticipant(8) {
		t.Errorf("participants not recognized")
	}
	if conv.HasParticipant(5) || conv.HasParticipant(0) {
		t.Errorf("outsider recognized as participant")
	}
	if conv.OtherParticipant(3) != 8 || conv.OtherParticipant(8) != 3 {
		t.Errorf("OtherParticipant wrong")
	}
}

func TestMessageSeenByUser(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		user uint
		want bool
	}{
		{"read_by hit", Message{ReadBy: BoolMap{2: true}}, 2, true},
		{"read_by miss", Message{ReadBy: BoolMap{1: true}}, 2, false},
		{"legacy seen_by hit", Message{SeenBy: IDList{1, 2}}, 2, true},
		{"legacy seen_by miss", Message{SeenBy: IDList{1}}, 2, false},
		{"read_by shadows legacy list", Message{ReadBy: BoolMap{}, SeenBy: IDList{2}}, 2, false},
		{"nothing set", Message{}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.SeenByUser(tt.user); got != tt.want {
				t.Errorf("SeenByUser(%d) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	withName := User{Username: "alice", FullName: "Alice A"}
	if withName.DisplayName() != "Alice A" {
		t.Errorf("full name not preferred")
	}
	withoutName := User{Username: "alice"}
	if withoutName.DisplayName() != "alice" {
		t.Errorf("username fallback broken")
	}
}

func TestBoolMapRoundTrip(t *testing.T) {
	m := BoolMap{1: true, 2: false}
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var back BoolMap
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !back[1] || back[2] {
		t.Errorf("round trip lost data: %v", back)
	}
}

func TestBoolMapNilValue(t *testing.T) {
	var m BoolMap
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	// Nil maps write as an empty object, not NULL, so new rows always
	// carry the authoritative map.
	if string(v.([]byte)) != "{}" {
		t.Errorf("nil BoolMap wrote %q, want {}", v)
	}
}

func TestScanHandlesStringsAndNil(t *testing.T) {
	var m BoolMap
	if err := m.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if m != nil {
		t.Errorf("nil scan populated map: %v", m)
	}

	if err := m.Scan(`{"4": true}`); err != nil {
		t.Fatalf("Scan(string): %v", err)
	}
	if !m[4] {
		t.Errorf("string scan lost data: %v", m)
	}

	var l IDList
	if err := l.Scan([]byte(`[1, 2, 3]`)); err != nil {
		t.Fatalf("IDList scan: %v", err)
	}
	if len(l) != 3 || l[2] != 3 {
		t.Errorf("IDList scan = %v", l)
	}
}

func TestConversationToResponse(t *testing.T) {
	conv := Conversation{
		ID:              5,
		ParticipantLow:  1,
		ParticipantHigh: 2,
		LastMessage:     "see you there",
		UnreadFor:       BoolMap{2: true},
	}

	asUser2 := conv.ToResponse(2)
	if asUser2.PeerID != 1 || !asUser2.Unread {
		t.Errorf("viewer 2 response wrong: %+v", asUser2)
	}
	asUser1 := conv.ToResponse(1)
	if asUser1.PeerID != 2 || asUser1.Unread {
		t.Errorf("viewer 1 response wrong: %+v", asUser1)
	}
}
