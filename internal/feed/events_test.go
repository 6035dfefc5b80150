package feed

import "testing"

func TestNewChangeEvent(t *testing.T) {
	event := NewChangeEvent(TablePosts, OpInsert, "doc-1")

	if event.EventID == "" {
		t.Error("Expected a generated event ID")
	}
	if event.Table != TablePosts || event.Op != OpInsert || event.DocID != "doc-1" {
		t.Errorf("Unexpected event fields: %+v", event)
	}
	if event.Timestamp == 0 {
		t.Error("Expected a timestamp")
	}
}

func TestEventRoundTrip(t *testing.T) {
	event := NewChangeEvent(TableLevelThresholds, OpDelete, "5")

	data, err := MarshalEvent(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	decoded, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if *decoded != *event {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, event)
	}
}

func TestStreamKeyPerTable(t *testing.T) {
	seen := make(map[string]bool)
	for _, table := range WatchedTables {
		key := streamKeyFor(table)
		if seen[key] {
			t.Errorf("Duplicate stream key %q", key)
		}
		seen[key] = true
	}
}
