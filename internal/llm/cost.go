// Package llm wraps the external LLM transport behind a budgeted,
// circuit-broken client: CostController gates calls against the
// CostLedger, Client issues the wire call with retry/backoff, and a
// gobreaker.CircuitBreaker short-circuits a flaky endpoint.
package llm

import (
	"sync"
	"time"

	"purgekit/internal/core"
)

// Mode is the cost controller's gating policy.
type Mode string

const (
	ModeUnlimited Mode = "unlimited"
	ModeBudget    Mode = "budget"
	ModeFallback  Mode = "fallback"
	ModeRulesOnly Mode = "rules_only"
)

// Limits configures a CostController.
type Limits struct {
	Mode              Mode
	MaxCallsPerScan   int
	MaxBudgetPerScan  float64
	MaxBudgetPerDay   float64
	FallbackToRules   bool
	OnlyAnalyzeSusp   bool // only arbitrate items the rule engine already flagged Suspicious
	EstimatedCallCost float64
}

// DefaultLimits defaults to Unlimited mode plus a conservative per-scan
// ceiling.
func DefaultLimits() Limits {
	return Limits{
		Mode:              ModeUnlimited,
		MaxCallsPerScan:   100,
		MaxBudgetPerScan:  5.0,
		MaxBudgetPerDay:   50.0,
		FallbackToRules:   true,
		OnlyAnalyzeSusp:   true,
		EstimatedCallCost: 0.01,
	}
}

// CostController gates every LLM call through check_limits -> reserve ->
// execute -> account(actual_cost). All ledger mutation happens under a
// single critical section.
type CostController struct {
	mu     sync.Mutex
	limits Limits
	ledger core.CostLedger
}

// NewCostController builds a controller with a fresh ledger.
func NewCostController(limits Limits) *CostController {
	return &CostController{limits: limits, ledger: core.CostLedger{LastReset: time.Now()}}
}

// Ledger returns a snapshot of the current CostLedger.
func (c *CostController) Ledger() core.CostLedger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger
}

// ResetScanStats zeroes the per-scan counters (scan_calls, scan_cost)
// without touching daily/alltime totals.
func (c *CostController) ResetScanStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.ScanCalls = 0
	c.ledger.ScanCost = 0
	c.ledger.LastReset = time.Now()
}

// Reservation is returned by CheckAndReserve; callers must call Account or
// Release exactly once to release it.
type Reservation struct {
	cost float64
}

// CheckAndReserve implements check_limits -> reserve. It returns ok=false
// when the call should not be made at all (RulesOnly mode, or Budget mode
// past a cap with no fallback). fallback=true means "the arbiter should
// silently use the rule label instead of treating this as an error."
func (c *CostController) CheckAndReserve() (res *Reservation, ok bool, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.limits.Mode {
	case ModeRulesOnly:
		return nil, false, true
	case ModeUnlimited:
		// always call
	case ModeBudget, ModeFallback:
		overCalls := c.limits.MaxCallsPerScan > 0 && c.ledger.ScanCalls >= c.limits.MaxCallsPerScan
		overScanBudget := c.limits.MaxBudgetPerScan > 0 && c.ledger.ScanCost+c.limits.EstimatedCallCost > c.limits.MaxBudgetPerScan
		overDayBudget := c.limits.MaxBudgetPerDay > 0 && c.ledger.DailyCost+c.limits.EstimatedCallCost > c.limits.MaxBudgetPerDay
		if overCalls || overScanBudget || overDayBudget {
			if c.limits.Mode == ModeFallback || c.limits.FallbackToRules {
				return nil, false, true
			}
			return nil, false, false
		}
	}

	// Reservation accounts the call's maximum possible cost up front so
	// concurrent arbitration never over-commits the budget.
	c.ledger.ScanCalls++
	c.ledger.ScanCost += c.limits.EstimatedCallCost
	c.ledger.DailyCost += c.limits.EstimatedCallCost
	return &Reservation{cost: c.limits.EstimatedCallCost}, true, false
}

// Account reconciles a reservation against the call's actual cost.
func (c *CostController) Account(res *Reservation, actualCost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delta := actualCost - res.cost
	c.ledger.ScanCost += delta
	c.ledger.DailyCost += delta
	c.ledger.AlltimeCost += actualCost
}

// Release reconciles a reservation for a call that never executed
// (e.g. circuit open before the request left the client), refunding the
// reserved estimate entirely.
func (c *CostController) Release(res *Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.ScanCost -= res.cost
	c.ledger.DailyCost -= res.cost
}

// Downgrade forces the controller into mode, regardless of what the
// config file requested. The client calls this after an AuthFailed or
// QuotaExceeded response so every later item in the run falls back to
// the rule engine instead of retrying a transport that has already
// proven unusable.
func (c *CostController) Downgrade(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits.Mode = mode
}

// ShouldArbitrate reports whether the arbiter's policy gate allows an
// LLM call for an item already rule-classified as ruleLabel.
func (c *CostController) ShouldArbitrate(ruleLabel core.RiskLabel) bool {
	c.mu.Lock()
	onlySusp := c.limits.OnlyAnalyzeSusp
	c.mu.Unlock()
	if onlySusp {
		return ruleLabel == core.Suspicious
	}
	return true
}
