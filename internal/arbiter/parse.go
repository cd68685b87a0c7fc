package arbiter

import (
	"encoding/json"
	"fmt"
	"strings"

	"purgekit/internal/core"
)

// llmVerdict is the wire shape the prompt asks for: {risk_level, reason}.
type llmVerdict struct {
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason"`
}

// parseReply leniently extracts a RiskLabel from a model's free-text
// reply: first try a fenced ```json block, then a bare JSON object found
// anywhere in the text, then fall back to a keyword heuristic. Returns an
// error only when none of the three recognize anything usable — that
// error drives the arbiter's rule_only_ai_parse_failed method tag.
func parseReply(text string) (core.RiskLabel, error) {
	if body := extractFencedJSON(text); body != "" {
		if label, ok := tryParseVerdict(body); ok {
			return label, nil
		}
	}
	if body := extractBareJSON(text); body != "" {
		if label, ok := tryParseVerdict(body); ok {
			return label, nil
		}
	}
	if label, ok := keywordHeuristic(text); ok {
		return label, nil
	}
	return core.Safe, fmt.Errorf("could not parse a risk_level from llm reply: %q", text)
}

func tryParseVerdict(body string) (core.RiskLabel, bool) {
	var v llmVerdict
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return core.Safe, false
	}
	return core.ParseRiskLabel(v.RiskLevel)
}

// extractFencedJSON pulls the contents of the first ```...``` block,
// stripping an optional leading "json" language tag.
func extractFencedJSON(text string) string {
	const fence = "```"
	start := strings.Index(text, fence)
	if start == -1 {
		return ""
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, fence)
	if end == -1 {
		return ""
	}
	body := rest[:end]
	body = strings.TrimPrefix(strings.TrimSpace(body), "json")
	return strings.TrimSpace(body)
}

// extractBareJSON returns the span from the first '{' to the last '}' in
// text; braces are not balanced-matched.
func extractBareJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// keywordHeuristic is the last-resort fallback: scan for the label words
// themselves when the model didn't produce valid JSON at all.
func keywordHeuristic(text string) (core.RiskLabel, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "dangerous"):
		return core.Dangerous, true
	case strings.Contains(lower, "suspicious"):
		return core.Suspicious, true
	case strings.Contains(lower, "safe"):
		return core.Safe, true
	default:
		return core.Safe, false
	}
}
