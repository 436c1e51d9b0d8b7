package cmd

import (
	"context"
	"strings"

	"github.com/webpilot/webpilot/pkg/memory"
)

// NewMemoryStore builds a locator memory store from a URL. A "redis://" URL
// selects the shared Redis store; any other non-empty value is treated as a
// SQLite database path. An empty URL disables memory entirely.
func NewMemoryStore(ctx context.Context, url string) (memory.Store, error) {
	switch {
	case url == "":
		return nil, nil
	case strings.HasPrefix(url, "redis://"):
		return memory.NewRedisStore(ctx, url)
	default:
		return memory.NewSQLiteStore(url)
	}
}
