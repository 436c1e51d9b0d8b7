// Package memory records locator outcomes per page so future runs can avoid
// locators that keep failing and prefer the ones that keep working.
package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

const (
	// avoidThreshold is the failure count after which a locator is avoided.
	avoidThreshold = 3
	// recentWindow is how many of the latest recorded attempts are inspected.
	recentWindow = 10
)

// Store is the locator history consumed by the executor: it biases locator
// choice before an action and learns from the action's outcome afterwards.
type Store interface {
	// ShouldAvoidLocator reports whether the locator failed at least three
	// times within the most recent ten recorded attempts for the
	// page/element-kind pair.
	ShouldAvoidLocator(ctx context.Context, pageKey, elementKind, locator string) (bool, error)

	// BestLocators returns up to limit locators for the page/element-kind
	// pair, ordered by success count descending.
	BestLocators(ctx context.Context, pageKey, elementKind string, limit int) ([]string, error)

	// RecordOutcome appends one attempt outcome to the history.
	RecordOutcome(ctx context.Context, pageKey, elementKind, locator string, success bool, actionErr string) error

	Close() error
}

// PageKey derives a stable short key from a page URL.
func PageKey(url string) string {
	sum := md5.Sum([]byte(url))

	return hex.EncodeToString(sum[:])[:12]
}
