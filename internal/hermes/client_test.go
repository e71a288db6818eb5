package hermes

import (
	"errors"
	"testing"
)

func TestInNamespace(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{SubjectChatCompleted, true},
		{SubjectRecordDeleted, true},
		{"tabchat.", false},
		{"tabchat", false},
		{"swarm.dredd.correction", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := InNamespace(tt.subject); got != tt.want {
			t.Errorf("InNamespace(%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}

func TestPublish_RejectsForeignSubject(t *testing.T) {
	var c *Client
	err := c.Publish("orders.created", map[string]string{"id": "1"})
	if !errors.Is(err, ErrForeignSubject) {
		t.Fatalf("expected ErrForeignSubject, got %v", err)
	}
}

func TestNilClientIsDisabled(t *testing.T) {
	var c *Client
	if err := c.Publish(SubjectChatCompleted, ChatEvent{RequestID: "r1"}); err != nil {
		t.Errorf("nil client should drop events, got %v", err)
	}
	c.Close()
}

func TestMessageDecodeAndString(t *testing.T) {
	m := Message{Subject: SubjectRecordCreated, Data: []byte(`{"id":"abc","company":"Acme"}` + "\n")}

	var evt RecordEvent
	if err := m.Decode(&evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.ID != "abc" || evt.Company != "Acme" {
		t.Errorf("unexpected event %+v", evt)
	}
	if got, want := m.String(), `tabchat.records.created {"id":"abc","company":"Acme"}`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	bad := Message{Subject: SubjectChatFailed, Data: []byte("{")}
	if err := bad.Decode(&evt); err == nil {
		t.Error("expected decode error for truncated payload")
	}
}
