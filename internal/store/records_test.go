package store

import "testing"

func TestRecordPatchEmpty(t *testing.T) {
	if !(RecordPatch{}).Empty() {
		t.Error("expected zero patch to be empty")
	}
	s := ""
	if (RecordPatch{Data: &s}).Empty() {
		t.Error("expected patch with empty-string data to be non-empty")
	}
}
