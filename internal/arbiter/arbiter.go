// Package arbiter implements the risk arbiter: it combines the
// deterministic rule engine's verdict with an optional, budget-gated LLM
// opinion into one final RiskLabel.
package arbiter

import (
	"context"
	"time"

	"purgekit/internal/core"
	"purgekit/internal/llm"
	"purgekit/internal/logx"
	"purgekit/internal/rules"
)

// Reasoner issues one arbitration call; satisfied by *llm.Client. A
// narrow interface here keeps the arbiter's dependency one-way and makes
// it trivial to fake in tests.
type Reasoner interface {
	Arbitrate(ctx context.Context, req llm.Request) (*llm.Reply, error)
}

// Interner deduplicates rationale text into InternedReason rows.
// Satisfied by *store.Store (internal/store).
type Interner interface {
	Intern(body string) (int64, error)
}

// Arbiter combines the whitelist short-circuit, the deterministic rule
// engine, and a gated LLM opinion into one final verdict.
type Arbiter struct {
	IsProtected func(path string) bool
	Rules       *rules.Engine
	Cost        *llm.CostController
	Reasoner    Reasoner
	Intern      Interner
	Log         *logx.Logger
}

// Assess runs the whitelist check, rule classification, and gated LLM
// arbitration in order, producing one final RiskAssessment.
func (a *Arbiter) Assess(ctx context.Context, item core.ScanItem, lastAccess *time.Time, now time.Time) core.RiskAssessment {
	if a.IsProtected != nil && a.IsProtected(item.Path) {
		reasonID := a.intern("path is whitelisted; never eligible for deletion")
		return core.RiskAssessment{
			ScanItemPath: item.Path,
			RuleLabel:    core.Dangerous,
			FinalLabel:   core.Dangerous,
			ReasonID:     reasonID,
			Method:       core.MethodWhitelist,
			Confidence:   1.0,
		}
	}

	ruleLabel, rationale := a.Rules.Classify(item.Path, item.Size, lastAccess, item.Kind == core.KindDir, now)

	assessment := core.RiskAssessment{
		ScanItemPath: item.Path,
		RuleLabel:    ruleLabel,
		FinalLabel:   ruleLabel,
		ReasonID:     a.intern(rationale),
		Method:       core.MethodRuleOnly,
		Confidence:   0.6,
	}

	if a.Reasoner == nil || a.Cost == nil || !a.Cost.ShouldArbitrate(ruleLabel) {
		return assessment
	}

	req := llm.Request{
		Path:         item.Path,
		Size:         item.Size,
		RuleLabel:    ruleLabel,
		Confidence:   assessment.Confidence,
		MatchedRules: []string{rationale},
		SystemPrompt: "You are a disk-cleanup risk reviewer. Reply with strict JSON only.",
	}

	reply, err := a.Reasoner.Arbitrate(ctx, req)
	if err != nil {
		if ce, ok := core.AsCoreError(err); ok && ce.Kind == core.KindLLMAuth && a.Log != nil {
			a.Log.Criticalf("llm authentication failure, falling back to rule-only assessment for %s: %v", item.Path, err)
		}
		// CircuitOpen, quota exhaustion, auth failure, or exhausted
		// retries: the item still gets a verdict from the rule label
		// instead of being left unassessed.
		return assessment
	}

	llmLabel, parseErr := parseReply(reply.Text)
	if parseErr != nil {
		assessment.Method = core.MethodRuleOnlyAIParseFail
		return assessment
	}

	final := core.MaxLabel(ruleLabel, llmLabel)
	assessment.LLMLabel = &llmLabel
	assessment.FinalLabel = final
	assessment.Method = core.MethodAIEnhanced
	assessment.Confidence = 0.9
	assessment.ReasonID = a.intern(rationale + "; llm: " + reply.Text)
	return assessment
}

func (a *Arbiter) intern(body string) int64 {
	if a.Intern == nil {
		return 0
	}
	id, err := a.Intern.Intern(body)
	if err != nil {
		return 0
	}
	return id
}
