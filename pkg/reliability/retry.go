package reliability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webpilot/webpilot/pkg/browser"
)

const DefaultMaxRetries = 3

// Policy is the retry behavior injected into the Retryer, testable without a
// browser: attempt budget, fallback backoff, and the error classifier.
type Policy struct {
	MaxRetries int
	Backoff    func(attempt int) time.Duration
	Classify   func(errMsg string, attempt int) Strategy
}

// DefaultPolicy returns the policy used in production: three attempts,
// linear backoff, pattern-based classification.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		Classify: Classify,
	}
}

// Result is the structured outcome of a retried action. Locator is the
// locator that finally succeeded, which may be a healed alternative.
type Result struct {
	Success  bool
	Error    string
	Attempts int
	Locator  string
}

type record struct {
	action   string
	attempts int
	success  bool
}

// Stats summarizes all actions the retryer has executed.
type Stats struct {
	Total       int
	Success     int
	Failed      int
	SuccessRate float64
	AvgAttempts float64
}

// Retryer executes click and type actions against the driver with adaptive
// retry, then locator self-healing once the original locator's budget is
// spent.
type Retryer struct {
	driver browser.Driver
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	history []record
}

func NewRetryer(driver browser.Driver, policy Policy, logger *slog.Logger) *Retryer {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultMaxRetries
	}

	if policy.Classify == nil {
		policy.Classify = Classify
	}

	if policy.Backoff == nil {
		policy.Backoff = DefaultPolicy().Backoff
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Retryer{driver: driver, policy: policy, logger: logger}
}

// Click clicks the locator with retry and self-healing.
func (r *Retryer) Click(ctx context.Context, locator string, meta *browser.ElementMeta) Result {
	return r.heal(ctx, "click", locator, meta, func(ctx context.Context, loc string) error {
		return r.driver.Click(ctx, loc)
	})
}

// Type types value into the locator with retry and self-healing.
func (r *Retryer) Type(ctx context.Context, locator, value string, meta *browser.ElementMeta) Result {
	return r.heal(ctx, "type", locator, meta, func(ctx context.Context, loc string) error {
		return r.driver.Type(ctx, loc, value)
	})
}

// heal runs the full retry budget against the original locator, then walks
// the generated alternatives, each with a fresh budget, stopping at the first
// success.
func (r *Retryer) heal(ctx context.Context, name, locator string, meta *browser.ElementMeta, action func(context.Context, string) error) Result {
	result := r.attempt(ctx, name, locator, action)
	if result.Success || meta == nil {
		return result
	}

	for _, alt := range Alternatives(locator, meta)[1:] {
		r.logger.Debug("trying alternative locator", "action", name, "locator", alt)

		result = r.attempt(ctx, name+" (alt)", alt, action)
		if result.Success {
			return result
		}
	}

	return result
}

func (r *Retryer) attempt(ctx context.Context, name, locator string, action func(context.Context, string) error) Result {
	var lastErr error

	// attempts counts actions actually executed, which can fall short of the
	// budget when the context ends mid-loop.
	attempts := 0

	for attempt := 1; attempt <= r.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err

			break
		}

		attempts = attempt

		err := action(ctx, locator)
		if err == nil {
			r.record(name, attempt, true)

			return Result{Success: true, Attempts: attempt, Locator: locator}
		}

		lastErr = err
		r.logger.Debug("attempt failed",
			"action", name, "locator", locator, "attempt", attempt, "error", err)

		if attempt == r.policy.MaxRetries {
			break
		}

		strategy := r.policy.Classify(err.Error(), attempt)

		if strategy.Refresh {
			if rerr := r.driver.Reload(ctx); rerr != nil {
				r.logger.Debug("refresh before retry failed", "error", rerr)
			}
		}

		if strategy.ScrollFirst {
			if serr := r.driver.ScrollIntoView(ctx, locator); serr != nil {
				r.logger.Debug("scroll before retry failed", "error", serr)
			}
		}

		wait := strategy.Wait
		if wait <= 0 {
			wait = r.policy.Backoff(attempt)
		}

		if !sleep(ctx, wait) {
			break
		}
	}

	r.record(name, attempts, false)

	errMsg := "unknown error"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}

	return Result{
		Success:  false,
		Error:    fmt.Sprintf("failed after %d attempts: %s", attempts, errMsg),
		Attempts: attempts,
		Locator:  locator,
	}
}

func (r *Retryer) record(action string, attempts int, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, record{action: action, attempts: attempts, success: success})
}

// Stats returns aggregate retry statistics for the session.
func (r *Retryer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Total: len(r.history)}
	if stats.Total == 0 {
		return stats
	}

	attemptSum := 0

	for _, rec := range r.history {
		attemptSum += rec.attempts

		if rec.success {
			stats.Success++
		}
	}

	stats.Failed = stats.Total - stats.Success
	stats.SuccessRate = float64(stats.Success) / float64(stats.Total) * 100
	stats.AvgAttempts = float64(attemptSum) / float64(stats.Total)

	return stats
}

// sleep waits for d unless the context ends first. Returns false when the
// context ended.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
