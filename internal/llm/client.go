package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"purgekit/internal/core"
)

// ClientConfig carries the environment-variable defaults
// (ANTHROPIC_API_KEY, AI_MODEL, AI_MAX_TOKENS, AI_TEMPERATURE).
type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
	MaxRetries  int
}

// DefaultClientConfig applies the model's stated defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Model:       anthropic.ModelClaude3_5HaikuLatest,
		MaxTokens:   8192,
		Temperature: 0.7,
		MaxRetries:  3,
	}
}

// consecutiveFailuresToTrip mirrors the breaker's ReadyToTrip threshold.
// gobreaker has no public "trip now" call, so forceTrip feeds it this
// many synthetic failures to reach Open without ever touching the
// network.
const consecutiveFailuresToTrip = 5

var errForcedTrip = errors.New("llm: forced circuit trip")

// Client issues one arbitration request at a time, protected by a
// gobreaker.CircuitBreaker (Closed/Open/HalfOpen, threshold 5, timeout
// 60s) and retried with jittered exponential backoff
// (github.com/cenkalti/backoff/v5), honoring a server-advertised
// retry_after.
type Client struct {
	cfg     ClientConfig
	sdk     anthropic.Client
	breaker *gobreaker.CircuitBreaker
	cost    *CostController
}

// NewClient builds a Client. cost may be nil to disable budget gating
// (tests / offline callers).
func NewClient(cfg ClientConfig, cost *CostController) *Client {
	settings := gobreaker.Settings{
		Name:        "llm-arbitration",
		MaxRequests: 1, // exactly one probe admitted in HalfOpen
		Interval:    0,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		cfg:     cfg,
		sdk:     anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		breaker: gobreaker.NewCircuitBreaker(settings),
		cost:    cost,
	}
}

// Request is the structured arbitration prompt: rule label, confidence,
// path, size, and matched-rule names.
type Request struct {
	Path         string
	Size         uint64
	RuleLabel    core.RiskLabel
	Confidence   float64
	MatchedRules []string
	SystemPrompt string
}

// Reply is the raw text of the model's response, handed to the arbiter's
// lenient JSON parser (internal/arbiter).
type Reply struct {
	Text       string
	StopReason string
}

// forceTrip drives the breaker straight to Open, for a failure kind that
// should never be given a second chance within this run (AuthFailed,
// QuotaExceeded): a failing probe is fed through Execute until
// ReadyToTrip's threshold is crossed.
func (c *Client) forceTrip() {
	for i := 0; i < consecutiveFailuresToTrip; i++ {
		_, _ = c.breaker.Execute(func() (interface{}, error) {
			return nil, errForcedTrip
		})
	}
}

// callWithRecovery executes a single arbitration call end-to-end: every
// retry attempt, including the final fallback attempt, runs inside this
// one loop — there is no decorator-style re-invocation path outside it.
func (c *Client) callWithRecovery(ctx context.Context, req Request) (*Reply, error) {
	var reservation *Reservation
	if c.cost != nil {
		res, ok, fallback := c.cost.CheckAndReserve()
		if !ok {
			if fallback {
				return nil, core.NewError(core.KindCircuitOpen, req.Path, "cost controller declined call; falling back to rules", nil)
			}
			return nil, core.NewError(core.KindLLMQuotaExceeded, req.Path, "cost controller rejected call over budget", nil)
		}
		reservation = res
	}

	operation := func() (*Reply, error) {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doCall(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(core.NewError(core.KindCircuitOpen, req.Path, "circuit breaker open", err))
			}
			ce, _ := core.AsCoreError(err)
			if ce != nil {
				if ce.Kind == core.KindLLMAuth || ce.Kind == core.KindLLMQuotaExceeded {
					c.forceTrip()
					if c.cost != nil {
						c.cost.Downgrade(ModeRulesOnly)
					}
				}
				var apiErr *anthropic.Error
				if ce.Kind == core.KindLLMRateLimited && errors.As(err, &apiErr) && apiErr.Response != nil {
					if secs, convErr := strconv.Atoi(apiErr.Response.Header.Get("Retry-After")); convErr == nil && secs > 0 {
						return nil, backoff.RetryAfter(secs)
					}
				}
				if !ce.Kind.Recoverable() {
					return nil, backoff.Permanent(err)
				}
			}
			return nil, err
		}
		return result.(*Reply), nil
	}

	reply, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
	)

	if c.cost != nil {
		if err != nil {
			c.cost.Release(reservation)
		} else {
			c.cost.Account(reservation, c.cost.limits.EstimatedCallCost)
		}
	}

	return reply, err
}

func (c *Client) doCall(ctx context.Context, req Request) (*Reply, error) {
	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(c.cfg.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(arbitrationPrompt(req))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		statusCode := 0
		if errors.As(err, &apiErr) {
			statusCode = apiErr.StatusCode
		}
		kind := classifyError(statusCode, err)
		return nil, core.NewError(kind, req.Path, "llm call failed", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &Reply{Text: text, StopReason: string(msg.StopReason)}, nil
}

func arbitrationPrompt(req Request) string {
	return "Review this cleanup candidate and reply with a JSON object " +
		`{"risk_level": "safe"|"suspicious"|"dangerous", "reason": "..."}.` +
		"\npath: " + req.Path +
		"\nsize: " + strconv.FormatUint(req.Size, 10) +
		"\nrule_label: " + req.RuleLabel.String() +
		"\nconfidence: " + strconv.FormatFloat(req.Confidence, 'f', 2, 64) +
		"\nmatched_rules: " + strings.Join(req.MatchedRules, "; ")
}

// Arbitrate is the public entry point used by internal/arbiter.
func (c *Client) Arbitrate(ctx context.Context, req Request) (*Reply, error) {
	return c.callWithRecovery(ctx, req)
}
