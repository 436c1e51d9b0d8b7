// Package browser abstracts the browser-automation session the executor
// drives. The session is a single shared, stateful resource: implementations
// must serialize access, callers must not issue concurrent mutations.
package browser

import "context"

// ElementMeta carries the attributes of a located element, used by the
// reliability layer to generate alternative locators.
type ElementMeta struct {
	Tag   string
	ID    string
	Name  string
	Class string
	Text  string
}

// Driver is the browser-automation surface consumed by the executor and the
// reliability layer.
type Driver interface {
	// Navigate loads the given URL in the session's page context.
	Navigate(ctx context.Context, url string) error

	// Click clicks the first element matched by locator.
	Click(ctx context.Context, locator string) error

	// Type clears and types text into the element matched by locator.
	Type(ctx context.Context, locator, text string) error

	// Select picks an option by value on a <select> element.
	Select(ctx context.Context, locator, value string) error

	// PageText returns the visible text content of the current page.
	PageText(ctx context.Context) (string, error)

	// ElementText returns the text content of the element matched by locator.
	ElementText(ctx context.Context, locator string) (string, error)

	// ElementMeta inspects the element matched by locator. Returns nil when
	// the element cannot be found; callers treat metadata as best effort.
	ElementMeta(ctx context.Context, locator string) (*ElementMeta, error)

	// ScrollIntoView scrolls the element matched by locator into the viewport.
	ScrollIntoView(ctx context.Context, locator string) error

	// Reload reloads the current page.
	Reload(ctx context.Context) error

	// Screenshot captures the current page to the given file path.
	Screenshot(ctx context.Context, path string) error

	// Close tears down the browser session.
	Close() error
}
