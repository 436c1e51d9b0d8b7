package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot/webpilot/pkg/browser"
	"github.com/webpilot/webpilot/pkg/eventbus"
	"github.com/webpilot/webpilot/pkg/events"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/reliability"
)

// scriptedDriver fails the locators and URLs it is told to fail and records
// the order of actions it receives.
type scriptedDriver struct {
	mu       sync.Mutex
	failing  map[string]string // locator -> error message
	pageText string
	elements map[string]string // locator -> element text
	order    []string
}

func newScriptedDriver() *scriptedDriver {
	return &scriptedDriver{
		failing:  make(map[string]string),
		elements: make(map[string]string),
	}
}

func (d *scriptedDriver) touch(kind, target string) error {
	d.mu.Lock()
	d.order = append(d.order, kind+":"+target)
	d.mu.Unlock()

	if msg, ok := d.failing[target]; ok {
		return errors.New(msg)
	}

	return nil
}

func (d *scriptedDriver) Navigate(_ context.Context, url string) error {
	return d.touch("navigate", url)
}

func (d *scriptedDriver) Click(_ context.Context, locator string) error {
	return d.touch("click", locator)
}

func (d *scriptedDriver) Type(_ context.Context, locator, _ string) error {
	return d.touch("type", locator)
}

func (d *scriptedDriver) Select(_ context.Context, locator, _ string) error {
	return d.touch("select", locator)
}

func (d *scriptedDriver) PageText(context.Context) (string, error) {
	return d.pageText, nil
}

func (d *scriptedDriver) ElementText(_ context.Context, locator string) (string, error) {
	if err := d.touch("extract", locator); err != nil {
		return "", err
	}

	text, ok := d.elements[locator]
	if !ok {
		return "", fmt.Errorf("element not found: %s", locator)
	}

	return text, nil
}

func (d *scriptedDriver) ElementMeta(context.Context, string) (*browser.ElementMeta, error) {
	return nil, errors.New("not available")
}

func (d *scriptedDriver) ScrollIntoView(context.Context, string) error { return nil }

func (d *scriptedDriver) Reload(context.Context) error { return nil }

func (d *scriptedDriver) Screenshot(_ context.Context, path string) error {
	return d.touch("screenshot", path)
}

func (d *scriptedDriver) Close() error { return nil }

func newTestExecutor(driver browser.Driver, opts ...Option) *Executor {
	base := []Option{WithoutRetry(), WithStepDelay(0)}

	return New(driver, append(base, opts...)...)
}

func step(id string, kind models.StepKind, deps ...string) *models.Step {
	if deps == nil {
		deps = []string{}
	}

	return &models.Step{
		ID:        id,
		Name:      "Step " + id,
		Kind:      kind,
		DependsOn: deps,
		Status:    models.StepStatusPending,
	}
}

func TestRun_LinearChainExecutesInOrder(t *testing.T) {
	driver := newScriptedDriver()

	s1 := step("s1", models.StepKindNavigate)
	s1.Value = "https://example.com"
	s2 := step("s2", models.StepKindClick, "s1")
	s2.Locator = "#first"
	s3 := step("s3", models.StepKindClick, "s2")
	s3.Locator = "#second"

	p := &models.Plan{ID: "chain", Name: "Chain", Steps: []*models.Step{s1, s2, s3}}

	result := newTestExecutor(driver).Run(context.Background(), p, "https://example.com")

	require.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, []string{
		"navigate:https://example.com",
		"click:#first",
		"click:#second",
	}, driver.order)
	assert.Equal(t, 3, result.Completed)
	assert.InDelta(t, 100.0, result.SuccessRate, 0.001)
}

func TestRun_CriticalStepFailureAbortsRun(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#root"] = "element not found"

	root := step("root", models.StepKindClick)
	root.Locator = "#root"
	left := step("left", models.StepKindClick, "root")
	left.Locator = "#left"
	right := step("right", models.StepKindClick, "root")
	right.Locator = "#right"

	p := &models.Plan{ID: "critical", Name: "Critical", Steps: []*models.Step{root, left, right}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Contains(t, result.Reason, "critical step root failed")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, models.StepStatusPending, left.Status, "downstream steps never ran")
	assert.Equal(t, models.StepStatusPending, right.Status)
}

func TestRun_LeafFailureDoesNotAbortOtherBranches(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#flaky"] = "element not found"

	// Two independent branches; the failing step has a single dependent.
	a := step("a", models.StepKindClick)
	a.Locator = "#flaky"
	b := step("b", models.StepKindClick, "a")
	b.Locator = "#after-a"
	c := step("c", models.StepKindClick)
	c.Locator = "#other"
	d := step("d", models.StepKindClick, "c")
	d.Locator = "#after-c"

	p := &models.Plan{ID: "branches", Name: "Branches", Steps: []*models.Step{a, b, c, d}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	// The healthy branch completes; the run ends blocked on b.
	require.Equal(t, models.RunStatusBlocked, result.Status)
	assert.Equal(t, models.StepStatusSuccess, c.Status)
	assert.Equal(t, models.StepStatusSuccess, d.Status)
	require.Len(t, result.Blocked, 1)
	assert.Equal(t, "b", result.Blocked[0].StepID)
	assert.Equal(t, []string{"a"}, result.Blocked[0].MissingDeps)
}

func TestRun_FailureRatioAbort(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#f1"] = "element not found"
	driver.failing["#f2"] = "element not found"

	// Three independent steps, two of them failing: 2/3 > 50%.
	s1 := step("s1", models.StepKindClick)
	s1.Locator = "#f1"
	s2 := step("s2", models.StepKindClick)
	s2.Locator = "#f2"
	s3 := step("s3", models.StepKindClick)
	s3.Locator = "#ok"

	p := &models.Plan{ID: "ratio", Name: "Ratio", Steps: []*models.Step{s1, s2, s3}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Contains(t, result.Reason, "failure ratio")
}

func TestRun_StallReportsBlockedSteps(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#a"] = "element not found"

	a := step("a", models.StepKindClick)
	a.Locator = "#a"
	b := step("b", models.StepKindVerify, "a")
	b.Expected = "welcome"

	p := &models.Plan{ID: "stall", Name: "Stall", Steps: []*models.Step{a, b}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	require.Equal(t, models.RunStatusBlocked, result.Status)
	require.Len(t, result.Blocked, 1)
	assert.Equal(t, "b", result.Blocked[0].StepID)
	assert.Equal(t, []string{"a"}, result.Blocked[0].MissingDeps)
	assert.Equal(t, models.StepStatusPending, b.Status)
}

func TestRun_VerifyIsCaseInsensitive(t *testing.T) {
	driver := newScriptedDriver()
	driver.pageText = "Welcome to the DASHBOARD area"

	v := step("v", models.StepKindVerify)
	v.Expected = "dashboard"

	p := &models.Plan{ID: "verify", Name: "Verify", Steps: []*models.Step{v}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.True(t, v.Result.Verified)
}

func TestRun_VerifyFailsOnMissingContent(t *testing.T) {
	driver := newScriptedDriver()
	driver.pageText = "nothing relevant here"

	v := step("v", models.StepKindVerify)
	v.Expected = "dashboard"

	p := &models.Plan{ID: "verify", Name: "Verify", Steps: []*models.Step{v}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, v.Result.Error, `expected "dashboard" not found`)
}

func TestRun_NavigateWithoutURLFails(t *testing.T) {
	driver := newScriptedDriver()

	n := step("n", models.StepKindNavigate)

	p := &models.Plan{ID: "nav", Name: "Nav", Steps: []*models.Step{n}}

	newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, models.StepStatusFailed, n.Status)
	assert.Equal(t, "no target URL provided", n.Result.Error)
}

func TestRun_ExtractPopulatesRunScopedMap(t *testing.T) {
	driver := newScriptedDriver()
	driver.elements["#price"] = "$19.99"
	driver.elements["#title"] = "Widget"

	e1 := step("price", models.StepKindExtract)
	e1.Locator = "#price"
	e2 := step("title", models.StepKindExtract)
	e2.Locator = "#title"

	p := &models.Plan{ID: "extract", Name: "Extract", Steps: []*models.Step{e1, e2}}

	result := newTestExecutor(driver).Run(context.Background(), p, "")

	require.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, map[string]string{"price": "$19.99", "title": "Widget"}, result.Extracted)
}

func TestRun_WaitMalformedDurationFails(t *testing.T) {
	driver := newScriptedDriver()

	w := step("w", models.StepKindWait)
	w.Value = "soon"

	p := &models.Plan{ID: "wait", Name: "Wait", Steps: []*models.Step{w}}

	newTestExecutor(driver).Run(context.Background(), p, "")

	assert.Equal(t, models.StepStatusFailed, w.Status)
	assert.Contains(t, w.Result.Error, "malformed wait duration")
}

func TestRun_ContextCancellationAborts(t *testing.T) {
	driver := newScriptedDriver()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := step("s", models.StepKindClick)
	s.Locator = "#x"

	p := &models.Plan{ID: "cancel", Name: "Cancel", Steps: []*models.Step{s}}

	result := newTestExecutor(driver).Run(ctx, p, "")

	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Contains(t, result.Reason, "context cancelled")
	assert.Empty(t, driver.order)
}

func TestRun_RetryCountRecordedFromReliabilityLayer(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#gone"] = "element not found"

	s := step("s", models.StepKindClick)
	s.Locator = "#gone"

	p := &models.Plan{ID: "retries", Name: "Retries", Steps: []*models.Step{s}}

	fast := reliability.Policy{
		MaxRetries: 3,
		Backoff:    func(int) time.Duration { return time.Millisecond },
		Classify: func(string, int) reliability.Strategy {
			return reliability.Strategy{Kind: reliability.StrategyBackoff, Wait: time.Millisecond}
		},
	}

	exec := New(driver, WithStepDelay(0), WithRetryPolicy(fast))

	exec.Run(context.Background(), p, "")

	assert.Equal(t, models.StepStatusFailed, s.Status)
	assert.Equal(t, 3, s.RetryCount)

	stats := exec.RetryStats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Failed)
}

// recordingBus captures published events in order.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }

func (b *recordingBus) Subscribe(context.Context) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) GenerateID() string { return "test-id" }

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	driver := newScriptedDriver()
	driver.failing["#bad"] = "element not found"

	ok := step("ok", models.StepKindClick)
	ok.Locator = "#good"
	bad := step("bad", models.StepKindClick)
	bad.Locator = "#bad"

	p := &models.Plan{ID: "events", Name: "Events", Steps: []*models.Step{ok, bad}}

	bus := &recordingBus{}

	newTestExecutor(driver, WithEventBus(bus)).Run(context.Background(), p, "")

	require.NotEmpty(t, bus.events)

	assert.Equal(t, events.RunStartedEvent, bus.events[0].GetType(), "run.started published first")
	assert.Equal(t, events.RunFinishedEvent, bus.events[len(bus.events)-1].GetType(), "run.finished published last")

	var finished, failed int

	for _, ev := range bus.events {
		switch ev.GetType() {
		case events.StepFinishedEvent:
			finished++
		case events.StepFailedEvent:
			failed++
		}
	}

	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, failed)
}
