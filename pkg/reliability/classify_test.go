package reliability

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/webpilot/webpilot/pkg/browser"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		errMsg string
		want   StrategyKind
	}{
		{name: "timeout", errMsg: "timeout waiting for selector", want: StrategyIncreaseTimeout},
		{name: "timed out", errMsg: "operation timed out", want: StrategyIncreaseTimeout},
		{name: "context deadline", errMsg: "context deadline exceeded", want: StrategyIncreaseTimeout},
		{name: "not found", errMsg: "element not found", want: StrategyAlternate},
		{name: "no such element", errMsg: "no such element: #btn", want: StrategyAlternate},
		{name: "cdp no nodes", errMsg: "selector did not return any nodes", want: StrategyAlternate},
		{name: "stale", errMsg: "stale element reference", want: StrategyRefresh},
		{name: "intercepted", errMsg: "click intercepted by overlay", want: StrategyScrollFirst},
		{name: "invalid selector", errMsg: "invalid selector: ##oops", want: StrategyFixSelector},
		{name: "unknown", errMsg: "something exploded", want: StrategyBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := Classify(tt.errMsg, 1)
			assert.Equal(t, tt.want, strategy.Kind)
			assert.Positive(t, strategy.Wait)
		})
	}
}

func TestClassify_BackoffIsLinearInAttempt(t *testing.T) {
	first := Classify("something exploded", 1)
	second := Classify("something exploded", 2)

	assert.Equal(t, 1500*time.Millisecond, first.Wait)
	assert.Equal(t, 3000*time.Millisecond, second.Wait)
}

func TestAlternatives_FromMetadata(t *testing.T) {
	meta := &browser.ElementMeta{
		Tag:   "button",
		ID:    "submit-btn",
		Name:  "submit",
		Class: "btn btn-primary",
		Text:  "Submit your answers now, please",
	}

	alts := Alternatives("#original", meta)

	assert.Equal(t, "#original", alts[0], "original locator always first")
	assert.Contains(t, alts, "#submit-btn")
	assert.Contains(t, alts, "button#submit-btn")
	assert.Contains(t, alts, `[name="submit"]`)
	assert.Contains(t, alts, `button[name="submit"]`)
	assert.Contains(t, alts, ".btn", "only the first class token is used")
	assert.Contains(t, alts, "//button[contains(text(), 'Submit your answers ')]",
		"visible text truncated to 20 characters")
}

func TestAlternatives_TextTruncationKeepsRunesIntact(t *testing.T) {
	meta := &browser.ElementMeta{
		Tag:  "a",
		Text: strings.Repeat("é", 30),
	}

	alts := Alternatives("#link", meta)

	want := fmt.Sprintf("//a[contains(text(), '%s')]", strings.Repeat("é", 20))
	assert.Contains(t, alts, want, "truncation counts runes, not bytes")

	for _, alt := range alts {
		assert.True(t, utf8.ValidString(alt), "invalid UTF-8 in %q", alt)
	}
}

func TestAlternatives_WithoutMetadata(t *testing.T) {
	alts := Alternatives("#login", nil)

	assert.Equal(t, []string{"#login", `[id="login"]`}, alts)
}

func TestAlternatives_ClassSelector(t *testing.T) {
	alts := Alternatives(".primary", nil)

	assert.Contains(t, alts, `[class*="primary"]`)
}

func TestAlternatives_StripsOrdinalQualifiers(t *testing.T) {
	alts := Alternatives("li.item:nth-of-type(3)", nil)

	assert.Contains(t, alts, "li.item")
	assert.Contains(t, alts, "li.item:first-of-type")
}

func TestAlternatives_BoundedAndDeduplicated(t *testing.T) {
	meta := &browser.ElementMeta{
		Tag:   "button",
		ID:    "x",
		Name:  "x",
		Class: "x y z",
		Text:  "x",
	}

	alts := Alternatives("#x", meta)

	assert.LessOrEqual(t, len(alts), maxAlternatives+1)

	seen := make(map[string]struct{})
	for _, alt := range alts {
		_, dup := seen[alt]
		assert.False(t, dup, "duplicate alternative %q", alt)
		seen[alt] = struct{}{}
	}
}
