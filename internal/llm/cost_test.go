package llm

import (
	"testing"

	"purgekit/internal/core"
)

func TestCheckAndReserve_RulesOnlyNeverCalls(t *testing.T) {
	c := NewCostController(Limits{Mode: ModeRulesOnly})
	_, ok, fallback := c.CheckAndReserve()
	if ok {
		t.Fatalf("RulesOnly mode must never allow a call")
	}
	if !fallback {
		t.Fatalf("RulesOnly mode should report fallback=true")
	}
}

func TestCheckAndReserve_MaxCallsCapForcesRuleOnly(t *testing.T) {
	c := NewCostController(Limits{Mode: ModeBudget, MaxCallsPerScan: 1, FallbackToRules: true})

	res, ok, _ := c.CheckAndReserve()
	if !ok {
		t.Fatalf("first call should be allowed")
	}
	c.Account(res, 0.01)

	_, ok2, fallback2 := c.CheckAndReserve()
	if ok2 {
		t.Fatalf("second call should be rejected once MaxCallsPerScan is reached")
	}
	if !fallback2 {
		t.Fatalf("expected fallback when FallbackToRules is set")
	}
}

func TestCheckAndReserve_BudgetCapWithoutFallbackRejects(t *testing.T) {
	c := NewCostController(Limits{Mode: ModeBudget, MaxBudgetPerScan: 0.005, FallbackToRules: false, EstimatedCallCost: 0.01})
	_, ok, fallback := c.CheckAndReserve()
	if ok {
		t.Fatalf("call over scan budget with no fallback should be rejected")
	}
	if fallback {
		t.Fatalf("expected a hard rejection, not a fallback, when FallbackToRules is false")
	}
}

func TestResetScanStats_PreservesDailyAndAlltime(t *testing.T) {
	c := NewCostController(Limits{Mode: ModeUnlimited, EstimatedCallCost: 0.02})
	res, _, _ := c.CheckAndReserve()
	c.Account(res, 0.02)

	before := c.Ledger()
	c.ResetScanStats()
	after := c.Ledger()

	if after.ScanCalls != 0 || after.ScanCost != 0 {
		t.Fatalf("expected per-scan counters reset, got %+v", after)
	}
	if after.DailyCost != before.DailyCost || after.AlltimeCost != before.AlltimeCost {
		t.Fatalf("expected daily/alltime totals preserved across reset")
	}
}

func TestShouldArbitrate_OnlySuspicious(t *testing.T) {
	c := NewCostController(Limits{Mode: ModeUnlimited, OnlyAnalyzeSusp: true})
	if c.ShouldArbitrate(core.Safe) {
		t.Fatalf("Safe items should not be arbitrated when OnlyAnalyzeSusp is set")
	}
	if !c.ShouldArbitrate(core.Suspicious) {
		t.Fatalf("Suspicious items should be arbitrated")
	}
}
