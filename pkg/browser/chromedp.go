package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultActionTimeout = 30 * time.Second

// Session drives a single Chrome page context through the DevTools protocol.
// All actions are serialized behind a mutex: one session means one logical
// page, and two steps mutating the DOM at once would race.
type Session struct {
	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	actionTimeout time.Duration
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	headless      bool
	actionTimeout time.Duration
}

// WithHeadless runs Chrome without a visible window.
func WithHeadless(headless bool) SessionOption {
	return func(c *sessionConfig) {
		c.headless = headless
	}
}

// WithActionTimeout bounds every individual browser action.
func WithActionTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.actionTimeout = d
	}
}

// NewSession launches a Chrome instance and returns a Driver bound to it.
func NewSession(ctx context.Context, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{headless: true, actionTimeout: defaultActionTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", cfg.headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		allocCtx:      allocCtx,
		browserCtx:    browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		actionTimeout: cfg.actionTimeout,
	}

	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()

		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return s, nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actionCtx, cancel := context.WithTimeout(s.browserCtx, s.actionTimeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- chromedp.Run(actionCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done

		return ctx.Err()
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, locator string) error {
	return s.run(ctx, chromedp.Click(locator, byDialect(locator)))
}

func (s *Session) Type(ctx context.Context, locator, text string) error {
	by := byDialect(locator)

	return s.run(ctx,
		chromedp.Clear(locator, by),
		chromedp.SendKeys(locator, text, by),
	)
}

func (s *Session) Select(ctx context.Context, locator, value string) error {
	return s.run(ctx,
		chromedp.SetValue(locator, value, byDialect(locator)),
		chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q) && document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`,
			locator, locator), nil),
	)
}

func (s *Session) PageText(ctx context.Context) (string, error) {
	var text string

	err := s.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery))
	if err != nil {
		return "", err
	}

	return text, nil
}

func (s *Session) ElementText(ctx context.Context, locator string) (string, error) {
	var text string

	err := s.run(ctx, chromedp.Text(locator, &text, byDialect(locator)))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func (s *Session) ElementMeta(ctx context.Context, locator string) (*ElementMeta, error) {
	by := byDialect(locator)

	var (
		attrs map[string]string
		text  string
	)

	actions := []chromedp.Action{
		chromedp.Attributes(locator, &attrs, by),
		chromedp.Text(locator, &text, by),
	}

	var tag string

	// Tag name is only resolvable for CSS locators; XPath metadata does
	// without it.
	if !strings.HasPrefix(locator, "/") && !strings.HasPrefix(locator, "(") {
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf(
			`(function() { var el = document.querySelector(%q); return el ? el.tagName.toLowerCase() : ""; })()`,
			locator), &tag))
	}

	if err := s.run(ctx, actions...); err != nil {
		return nil, err
	}

	return &ElementMeta{
		Tag:   tag,
		ID:    attrs["id"],
		Name:  attrs["name"],
		Class: attrs["class"],
		Text:  strings.TrimSpace(text),
	}, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, locator string) error {
	return s.run(ctx, chromedp.ScrollIntoView(locator, byDialect(locator)))
}

func (s *Session) Reload(ctx context.Context) error {
	return s.run(ctx, chromedp.Reload(), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte

	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, buf, 0o644)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCancel != nil {
		s.browserCancel()
	}

	if s.allocCancel != nil {
		s.allocCancel()
	}

	return nil
}

// byDialect picks the query dialect for a locator: strings starting with "/"
// or "(" are treated as XPath, everything else as a CSS selector.
func byDialect(locator string) chromedp.QueryOption {
	if strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, "(") {
		return chromedp.BySearch
	}

	return chromedp.ByQuery
}
