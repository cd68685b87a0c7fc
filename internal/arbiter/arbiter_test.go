package arbiter

import (
	"context"
	"testing"
	"time"

	"purgekit/internal/core"
	"purgekit/internal/llm"
	"purgekit/internal/rules"
)

type fakeReasoner struct {
	reply *llm.Reply
	err   error
	calls int
}

func (f *fakeReasoner) Arbitrate(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	f.calls++
	return f.reply, f.err
}

type fakeInterner struct{ next int64 }

func (f *fakeInterner) Intern(body string) (int64, error) {
	f.next++
	return f.next, nil
}

func newTestArbiter(reasoner Reasoner, cost *llm.CostController) *Arbiter {
	return &Arbiter{
		IsProtected: func(string) bool { return false },
		Rules:       rules.NewEngine(rules.DefaultRules()),
		Cost:        cost,
		Reasoner:    reasoner,
		Intern:      &fakeInterner{},
	}
}

func TestAssess_WhitelistShortCircuit(t *testing.T) {
	a := newTestArbiter(nil, nil)
	a.IsProtected = func(string) bool { return true }

	got := a.Assess(context.Background(), core.ScanItem{Path: "/protected/x"}, nil, time.Now())
	if got.FinalLabel != core.Dangerous || got.Method != core.MethodWhitelist {
		t.Fatalf("expected whitelist short-circuit to Dangerous, got %+v", got)
	}
}

func TestAssess_SuspiciousUpgradedByLLMDowngradeStaysSuspicious(t *testing.T) {
	// Scenario 2 from the end-to-end examples: rule says Suspicious, LLM
	// says Safe, max(Suspicious, Safe) stays Suspicious.
	cost := llm.NewCostController(llm.Limits{Mode: llm.ModeUnlimited, OnlyAnalyzeSusp: true})
	reasoner := &fakeReasoner{reply: &llm.Reply{Text: `{"risk_level":"safe","reason":"known cache"}`}}
	a := newTestArbiter(reasoner, cost)

	item := core.ScanItem{Path: "/home/me/.cache/app_cache", Size: 10 << 20, Kind: core.KindDir}
	got := a.Assess(context.Background(), item, nil, time.Now())

	if got.FinalLabel != core.Suspicious {
		t.Fatalf("expected final label Suspicious (max(Suspicious,Safe)), got %v", got.FinalLabel)
	}
	if got.Method != core.MethodAIEnhanced {
		t.Fatalf("expected method ai_enhanced, got %v", got.Method)
	}
}

func TestAssess_LLMUnavailableFallsBackToRuleLabel(t *testing.T) {
	cost := llm.NewCostController(llm.Limits{Mode: llm.ModeUnlimited, OnlyAnalyzeSusp: true})
	reasoner := &fakeReasoner{err: core.NewError(core.KindCircuitOpen, "", "circuit open", nil)}
	a := newTestArbiter(reasoner, cost)

	item := core.ScanItem{Path: "/home/me/.cache/weird_dir", Size: 1024}
	got := a.Assess(context.Background(), item, nil, time.Now())

	if got.Method != core.MethodRuleOnly {
		t.Fatalf("expected rule_only fallback on circuit-open, got %v", got.Method)
	}
}

func TestAssess_ParseFailureTaggedDistinctly(t *testing.T) {
	cost := llm.NewCostController(llm.Limits{Mode: llm.ModeUnlimited, OnlyAnalyzeSusp: true})
	reasoner := &fakeReasoner{reply: &llm.Reply{Text: "garbage, not json, no keywords either"}}
	a := newTestArbiter(reasoner, cost)

	item := core.ScanItem{Path: "/home/me/.cache/weird_dir2", Size: 1024}
	got := a.Assess(context.Background(), item, nil, time.Now())

	if got.Method != core.MethodRuleOnlyAIParseFail {
		t.Fatalf("expected rule_only_ai_parse_failed, got %v", got.Method)
	}
}

func TestAssess_SafeRuleLabelNeverCallsReasoner(t *testing.T) {
	cost := llm.NewCostController(llm.Limits{Mode: llm.ModeUnlimited, OnlyAnalyzeSusp: true})
	reasoner := &fakeReasoner{err: context.DeadlineExceeded} // any invocation is counted and fails the test below
	a := newTestArbiter(reasoner, cost)

	// temp files match the known-junk rule class → Safe, never arbitrated
	item := core.ScanItem{Path: "/tmp/x/a.tmp", Size: 1024}
	got := a.Assess(context.Background(), item, nil, time.Now())

	if got.Method != core.MethodRuleOnly || got.FinalLabel != core.Safe {
		t.Fatalf("expected pure rule_only Safe result without arbitration, got %+v", got)
	}
	if reasoner.calls != 0 {
		t.Fatalf("expected reasoner never to be called for a Safe rule label, got %d calls", reasoner.calls)
	}
}
