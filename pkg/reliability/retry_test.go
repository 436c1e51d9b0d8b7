package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot/webpilot/pkg/browser"
)

// fakeDriver scripts per-locator failures and records the calls it receives.
type fakeDriver struct {
	failures  map[string]int // locator -> remaining failures before success
	permanent map[string]error
	clicks    []string
	typed     []string
	scrolled  []string
	reloads   int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		failures:  make(map[string]int),
		permanent: make(map[string]error),
	}
}

func (d *fakeDriver) act(locator string) error {
	if err, ok := d.permanent[locator]; ok {
		return err
	}

	if d.failures[locator] > 0 {
		d.failures[locator]--

		return errors.New("element not found")
	}

	return nil
}

func (d *fakeDriver) Navigate(context.Context, string) error { return nil }

func (d *fakeDriver) Click(_ context.Context, locator string) error {
	d.clicks = append(d.clicks, locator)

	return d.act(locator)
}

func (d *fakeDriver) Type(_ context.Context, locator, _ string) error {
	d.typed = append(d.typed, locator)

	return d.act(locator)
}

func (d *fakeDriver) Select(context.Context, string, string) error { return nil }

func (d *fakeDriver) PageText(context.Context) (string, error) { return "", nil }

func (d *fakeDriver) ElementText(context.Context, string) (string, error) { return "", nil }

func (d *fakeDriver) ElementMeta(context.Context, string) (*browser.ElementMeta, error) {
	return nil, errors.New("not found")
}

func (d *fakeDriver) ScrollIntoView(_ context.Context, locator string) error {
	d.scrolled = append(d.scrolled, locator)

	return nil
}

func (d *fakeDriver) Reload(context.Context) error {
	d.reloads++

	return nil
}

func (d *fakeDriver) Screenshot(context.Context, string) error { return nil }

func (d *fakeDriver) Close() error { return nil }

func fastPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Backoff:    func(int) time.Duration { return time.Millisecond },
		Classify: func(errMsg string, attempt int) Strategy {
			s := Classify(errMsg, attempt)
			s.Wait = time.Millisecond

			return s
		},
	}
}

func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	driver := newFakeDriver()
	driver.failures["#btn"] = 2

	retryer := NewRetryer(driver, fastPolicy(), nil)

	result := retryer.Click(context.Background(), "#btn", nil)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "#btn", result.Locator)
}

func TestRetryer_FailsAfterBudgetExhausted(t *testing.T) {
	driver := newFakeDriver()
	driver.permanent["#gone"] = errors.New("element not found")

	retryer := NewRetryer(driver, fastPolicy(), nil)

	result := retryer.Click(context.Background(), "#gone", nil)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Contains(t, result.Error, "failed after 3 attempts")
	assert.Len(t, driver.clicks, 3, "no healing without element metadata")
}

func TestRetryer_HealsWithAlternativeLocator(t *testing.T) {
	driver := newFakeDriver()
	driver.permanent["#broken"] = errors.New("element not found")

	retryer := NewRetryer(driver, fastPolicy(), nil)

	meta := &browser.ElementMeta{ID: "login-btn", Name: "login"}
	result := retryer.Click(context.Background(), "#broken", meta)

	require.True(t, result.Success)
	assert.Equal(t, "#login-btn", result.Locator, "healed onto the id-based alternative")
}

func TestRetryer_ScrollsOnInterceptedClick(t *testing.T) {
	driver := newFakeDriver()
	driver.failures["#covered"] = 1

	policy := fastPolicy()

	calls := 0
	policy.Classify = func(errMsg string, attempt int) Strategy {
		calls++

		return Strategy{Kind: StrategyScrollFirst, ScrollFirst: true, Wait: time.Millisecond}
	}

	retryer := NewRetryer(driver, policy, nil)

	result := retryer.Click(context.Background(), "#covered", nil)

	assert.True(t, result.Success)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"#covered"}, driver.scrolled)
}

func TestRetryer_RefreshesOnStaleElement(t *testing.T) {
	driver := newFakeDriver()
	driver.failures["#stale"] = 1

	policy := fastPolicy()
	policy.Classify = func(string, int) Strategy {
		return Strategy{Kind: StrategyRefresh, Refresh: true, Wait: time.Millisecond}
	}

	retryer := NewRetryer(driver, policy, nil)

	result := retryer.Type(context.Background(), "#stale", "text", nil)

	assert.True(t, result.Success)
	assert.Equal(t, 1, driver.reloads)
}

func TestRetryer_ContextCancellationStopsAttempts(t *testing.T) {
	driver := newFakeDriver()
	driver.permanent["#slow"] = errors.New("timeout waiting for element")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retryer := NewRetryer(driver, fastPolicy(), nil)

	result := retryer.Click(ctx, "#slow", nil)

	assert.False(t, result.Success)
	assert.Empty(t, driver.clicks, "no attempts once the context is done")
}

func TestRetryer_AttemptCountReflectsEarlyCancellation(t *testing.T) {
	driver := newFakeDriver()
	driver.permanent["#late"] = errors.New("timeout waiting for element")

	ctx, cancel := context.WithCancel(context.Background())

	policy := fastPolicy()
	policy.Classify = func(string, int) Strategy {
		cancel()

		return Strategy{Kind: StrategyBackoff, Wait: time.Millisecond}
	}

	retryer := NewRetryer(driver, policy, nil)

	result := retryer.Click(ctx, "#late", nil)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts, "only one action ran before cancellation")
	assert.Contains(t, result.Error, "failed after 1 attempt")

	stats := retryer.Stats()
	assert.InDelta(t, 1.0, stats.AvgAttempts, 0.001)
}

func TestRetryer_Stats(t *testing.T) {
	driver := newFakeDriver()
	driver.failures["#flaky"] = 1
	driver.permanent["#dead"] = errors.New("element not found")

	retryer := NewRetryer(driver, fastPolicy(), nil)

	retryer.Click(context.Background(), "#ok", nil)    // 1 attempt, success
	retryer.Click(context.Background(), "#flaky", nil) // 2 attempts, success
	retryer.Click(context.Background(), "#dead", nil)  // 3 attempts, failure

	stats := retryer.Stats()

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 66.7, stats.SuccessRate, 0.05)
	assert.InDelta(t, 2.0, stats.AvgAttempts, 0.001)
}

func TestRetryer_StatsEmpty(t *testing.T) {
	retryer := NewRetryer(newFakeDriver(), fastPolicy(), nil)

	stats := retryer.Stats()

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.SuccessRate)
}
