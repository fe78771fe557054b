package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/mailflow/internal/common"
)

// RefusalSentinel prefixes provider text that reports a blocked or empty response.
const RefusalSentinel = "⚠️"

// maxPreview bounds the diagnostic preview carried by malformed output errors.
const maxPreview = 500

// Normalize recovers a JSON object or array from raw provider text. Strategies
// run in order and each only when the previous one failed to parse:
// fenced block stripping, direct parse, whitespace collapse, outermost {...}
// slice, then outermost [...] slice.
func Normalize(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, RefusalSentinel) {
		NormalizeTotal.WithLabelValues("refused").Inc()
		return nil, fmt.Errorf("%w: %s", common.ErrProviderRefused, Preview(trimmed))
	}

	stripped := stripFence(trimmed)

	if v, ok := parseStructured(stripped); ok {
		NormalizeTotal.WithLabelValues("direct").Inc()
		return v, nil
	}

	collapsed := strings.Join(strings.Fields(stripped), " ")
	if v, ok := parseStructured(collapsed); ok {
		NormalizeTotal.WithLabelValues("collapsed").Inc()
		return v, nil
	}

	if v, ok := sliceBetween(stripped, collapsed, '{', '}'); ok {
		NormalizeTotal.WithLabelValues("object_slice").Inc()
		return v, nil
	}

	if v, ok := sliceBetween(stripped, collapsed, '[', ']'); ok {
		NormalizeTotal.WithLabelValues("array_slice").Inc()
		return v, nil
	}

	NormalizeTotal.WithLabelValues("failed").Inc()
	return nil, &common.MalformedOutputError{Preview: Preview(trimmed)}
}

// stripFence removes a single surrounding ``` fence and an optional json/JSON tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	for _, tag := range []string{"json", "JSON"} {
		rest, ok := strings.CutPrefix(s, tag)
		if !ok {
			continue
		}
		if rest == "" || strings.ContainsAny(rest[:1], " \t\r\n{[") {
			s = rest
		}
		break
	}
	return strings.TrimSpace(s)
}

// parseStructured accepts s only when it is a complete JSON object or array.
func parseStructured(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// sliceBetween tries the span from the first open to the last closing byte,
// first in the stripped text and then in its whitespace-collapsed form.
func sliceBetween(stripped, collapsed string, open, closing byte) (json.RawMessage, bool) {
	for _, s := range []string{stripped, collapsed} {
		start := strings.IndexByte(s, open)
		end := strings.LastIndexByte(s, closing)
		if start == -1 || end <= start {
			continue
		}
		if v, ok := parseStructured(s[start : end+1]); ok {
			return v, true
		}
	}
	return nil, false
}

// Preview renders text for diagnostics: control characters escaped and the
// result bounded to 500 characters.
func Preview(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if utf8.RuneCountInString(out) <= maxPreview {
		return out
	}
	runes := []rune(out)
	return string(runes[:maxPreview-3]) + "..."
}
