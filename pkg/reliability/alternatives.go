package reliability

import (
	"fmt"
	"strings"

	"github.com/webpilot/webpilot/pkg/browser"
)

const maxAlternatives = 8

// Alternatives generates a bounded, deduplicated list of locators to try
// after the original one exhausted its retry budget. The original locator is
// always first. Candidates come from the element metadata (id, name, first
// class token, visible text) and from rewriting the original selector
// (attribute forms, stripped ordinal qualifiers).
func Alternatives(original string, meta *browser.ElementMeta) []string {
	seen := map[string]struct{}{original: {}}
	out := []string{original}

	add := func(candidate string) {
		if candidate == "" || len(out) > maxAlternatives {
			return
		}

		if _, dup := seen[candidate]; dup {
			return
		}

		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	if meta != nil {
		tag := meta.Tag

		if meta.ID != "" {
			add("#" + meta.ID)

			if tag != "" {
				add(tag + "#" + meta.ID)
			}
		}

		if meta.Name != "" {
			add(fmt.Sprintf("[name=%q]", meta.Name))

			if tag != "" {
				add(fmt.Sprintf("%s[name=%q]", tag, meta.Name))
			}
		}

		if meta.Class != "" {
			if first := strings.Fields(meta.Class); len(first) > 0 {
				add("." + first[0])
			}
		}

		if meta.Text != "" {
			if tag == "" {
				tag = "*"
			}

			text := meta.Text
			if runes := []rune(text); len(runes) > 20 {
				text = string(runes[:20])
			}

			add(fmt.Sprintf("//%s[contains(text(), '%s')]", tag, text))
		}
	}

	switch {
	case strings.HasPrefix(original, "#"):
		add(fmt.Sprintf("[id=%q]", original[1:]))
	case strings.HasPrefix(original, "."):
		add(fmt.Sprintf("[class*=%q]", original[1:]))
	case strings.Contains(original, ":nth-of-type") || strings.Contains(original, ":nth-child"):
		base := original[:strings.Index(original, ":nth-")]
		add(base)
		add(base + ":first-of-type")
	}

	return out
}
