package main

import (
	"encoding/json"
	"strings"
	"testing"

	"brainzzz/internal/model"
)

func TestEventBrainID(t *testing.T) {
	id, ok := eventBrainID(model.Envelope{Data: json.RawMessage(`{"id": 7}`)})
	if !ok || id != 7 {
		t.Fatalf("eventBrainID = %d, %v", id, ok)
	}
	if _, ok := eventBrainID(model.Envelope{Data: json.RawMessage(`{}`)}); ok {
		t.Fatal("missing id should not resolve")
	}
	if _, ok := eventBrainID(model.Envelope{Data: json.RawMessage(`not json`)}); ok {
		t.Fatal("malformed payload should not resolve")
	}
}

func TestCompactJSON(t *testing.T) {
	got := compactJSON(json.RawMessage(`{ "a": 1,  "b": [2, 3] }`), 100)
	if got != `{"a":1,"b":[2,3]}` {
		t.Fatalf("compactJSON = %q", got)
	}

	long := `{"key":"` + strings.Repeat("x", 200) + `"}`
	got = compactJSON(json.RawMessage(long), 40)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if len(got) >= len(long) {
		t.Fatalf("truncated value is not shorter: %d", len(got))
	}

	if got := compactJSON(json.RawMessage("not json"), 100); got != "not json" {
		t.Fatalf("invalid payload should pass through, got %q", got)
	}
	if got := compactJSON(nil, 100); got != "" {
		t.Fatalf("empty payload should render empty, got %q", got)
	}
}
