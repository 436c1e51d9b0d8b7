// Package reliability wraps flaky browser actions with adaptive retry and
// locator self-healing. It never returns an error to the caller: every action
// ends in a structured Result the executor maps onto the step's outcome.
package reliability

import (
	"strings"
	"time"
)

// StrategyKind names the adjustment applied before the next retry attempt.
type StrategyKind string

const (
	StrategyIncreaseTimeout StrategyKind = "increase_timeout"
	StrategyAlternate       StrategyKind = "alternate_locator"
	StrategyRefresh         StrategyKind = "refresh_page"
	StrategyScrollFirst     StrategyKind = "scroll_first"
	StrategyFixSelector     StrategyKind = "fix_selector"
	StrategyBackoff         StrategyKind = "backoff"
)

// Strategy describes what to do between two attempts.
type Strategy struct {
	Kind        StrategyKind
	Wait        time.Duration
	ScrollFirst bool
	Refresh     bool
}

// Classify inspects an error message and picks the retry strategy. Unmatched
// errors fall back to a linear backoff wait.
func Classify(errMsg string, attempt int) Strategy {
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return Strategy{
			Kind: StrategyIncreaseTimeout,
			Wait: time.Duration(attempt) * 2 * time.Second,
		}
	case strings.Contains(lower, "not found") || strings.Contains(lower, "no such element") ||
		strings.Contains(lower, "could not find node") || strings.Contains(lower, "did not return any nodes"):
		return Strategy{
			Kind: StrategyAlternate,
			Wait: time.Second,
		}
	case strings.Contains(lower, "stale"):
		return Strategy{
			Kind:    StrategyRefresh,
			Wait:    2 * time.Second,
			Refresh: true,
		}
	case strings.Contains(lower, "click") && strings.Contains(lower, "intercept"):
		return Strategy{
			Kind:        StrategyScrollFirst,
			Wait:        time.Second,
			ScrollFirst: true,
		}
	case strings.Contains(lower, "invalid selector") || strings.Contains(lower, "xpath"):
		return Strategy{
			Kind: StrategyFixSelector,
			Wait: 500 * time.Millisecond,
		}
	default:
		return Strategy{
			Kind: StrategyBackoff,
			Wait: time.Duration(attempt) * 1500 * time.Millisecond,
		}
	}
}
