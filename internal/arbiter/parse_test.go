package arbiter

import (
	"testing"

	"purgekit/internal/core"
)

func TestParseReply_FencedJSON(t *testing.T) {
	text := "Sure, here is my review:\n```json\n{\"risk_level\": \"safe\", \"reason\": \"known cache\"}\n```\n"
	label, err := parseReply(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != core.Safe {
		t.Fatalf("expected Safe, got %v", label)
	}
}

func TestParseReply_BareJSON(t *testing.T) {
	text := `the verdict is {"risk_level": "dangerous", "reason": "system file"} thanks`
	label, err := parseReply(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != core.Dangerous {
		t.Fatalf("expected Dangerous, got %v", label)
	}
}

func TestParseReply_KeywordHeuristic(t *testing.T) {
	text := "I'd call this suspicious, no JSON here though."
	label, err := parseReply(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != core.Suspicious {
		t.Fatalf("expected Suspicious, got %v", label)
	}
}

func TestParseReply_Unparseable(t *testing.T) {
	_, err := parseReply("no useful content at all")
	if err == nil {
		t.Fatalf("expected an error for unparseable text")
	}
}
