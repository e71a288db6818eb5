package hermes

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatEventParsing(t *testing.T) {
	raw := `{
		"request_id": "req-001",
		"session_id": "V1StGXR8_Z5jdHi6B-myT",
		"upstream": "pipeline",
		"page_url": "https://example.com",
		"input_len": 5,
		"response_len": 42,
		"history_len": 2,
		"status": 200,
		"duration_ms": 1830,
		"timestamp": "2026-01-02T15:04:05Z"
	}`

	var evt ChatEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("failed to parse ChatEvent: %v", err)
	}

	if evt.RequestID != "req-001" {
		t.Errorf("expected request_id 'req-001', got '%s'", evt.RequestID)
	}
	if evt.Upstream != "pipeline" {
		t.Errorf("expected upstream 'pipeline', got '%s'", evt.Upstream)
	}
	if evt.ResponseLen != 42 || evt.HistoryLen != 2 {
		t.Errorf("unexpected lengths: %+v", evt)
	}
	if evt.Timestamp.Year() != 2026 {
		t.Errorf("expected timestamp year 2026, got %d", evt.Timestamp.Year())
	}
}

func TestChatEventOmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(ChatEvent{RequestID: "r", Status: 200})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected error to be omitted, got %s", data)
	}
}

func TestSubjectsShareRoot(t *testing.T) {
	for _, s := range []string{SubjectChatCompleted, SubjectChatFailed, SubjectRecordCreated, SubjectRecordUpdated, SubjectRecordDeleted} {
		if !strings.HasPrefix(s, "tabchat.") {
			t.Errorf("subject %q is not under tabchat.>", s)
		}
	}
}
