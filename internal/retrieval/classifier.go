package retrieval

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dripl/internal/ytdlp"
)

// Kind is a failure classification drawn from a closed taxonomy.
type Kind string

const (
	// KindAuth is a 403 or forbidden response, usually stale or missing cookies.
	KindAuth Kind = "auth"
	// KindRate is an HTTP 429 or "too many requests" throttle.
	KindRate Kind = "rate"
	// KindAgeGate is content that requires a signed-in, age-verified session.
	KindAgeGate Kind = "age-gate"
	// KindGeo is content blocked for the egress location.
	KindGeo Kind = "geo"
	// KindExtractor is a downloader parsing failure on the remote page.
	KindExtractor Kind = "extractor"
	// KindProxy is a failure reaching or tunnelling through the egress proxy.
	KindProxy Kind = "proxy"
	// KindTLS is an SSL or certificate failure.
	KindTLS Kind = "tls"
	// KindTimeout is a network timeout or an attempt that exceeded its budget.
	KindTimeout Kind = "timeout"
	// KindUnknown is any failure no other rule matched.
	KindUnknown Kind = "unknown"
)

const maxHintRunes = 200

// Classification is the derived kind of a failed attempt plus a short hint
// pulled from its diagnostics.
type Classification struct {
	Kind Kind
	Hint string
}

type rule struct {
	kind  Kind
	match func(text string) bool
}

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{KindAuth, containsAny("http error 403", "403: forbidden", "forbidden", "403")},
	{KindRate, containsAny("http error 429", "too many requests", "429")},
	{KindAgeGate, containsAny("sign in to confirm", "confirm your age", "age-restricted", "age restricted", "login required")},
	{KindGeo, containsAny("not available in your country", "not made this video available in your country", "geo restrict", "geo-restrict", "blocked it in your country", "not available from your location")},
	{KindExtractor, containsAny("unable to extract", "unable to decipher", "nsig extraction failed", "signature extraction failed", "failed to extract any player response")},
	{KindProxy, allOf(containsAny("proxy"), containsAny("failed", "tunnel", "connection"))},
	{KindTLS, containsAny("ssl", "certificate")},
	{KindTimeout, containsAny("timed out", "timeout")},
}

func containsAny(needles ...string) func(string) bool {
	return func(text string) bool {
		for _, needle := range needles {
			if strings.Contains(text, needle) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, pred := range preds {
			if !pred(text) {
				return false
			}
		}
		return true
	}
}

// Kinds lists the taxonomy in priority order, unknown last.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(rules)+1)
	for _, r := range rules {
		kinds = append(kinds, r.kind)
	}
	return append(kinds, KindUnknown)
}

// priority ranks kinds by table position; unknown ranks last.
func priority(kind Kind) int {
	for i, r := range rules {
		if r.kind == kind {
			return i
		}
	}
	return len(rules)
}

// Classify matches the combined diagnostics against the signature table.
func Classify(stderr, stdout string) Classification {
	// Caser values carry state and are not safe for concurrent use.
	text := cases.Lower(language.Und).String(stderr + "\n" + stdout)
	kind := KindUnknown
	for _, r := range rules {
		if r.match(text) {
			kind = r.kind
			break
		}
	}
	return Classification{Kind: kind, Hint: extractHint(stderr, stdout)}
}

// ClassifyResult classifies a non-successful supervisor result. Timeouts and
// spawn failures bypass text inspection.
func ClassifyResult(res ytdlp.Result) Classification {
	switch res.State {
	case ytdlp.StateTimedOut:
		return Classification{Kind: KindTimeout, Hint: "downloader exceeded its time budget"}
	case ytdlp.StateSpawnFailed:
		hint := "spawn error"
		if res.Err != nil {
			hint = "spawn error: " + res.Err.Error()
		}
		return Classification{Kind: KindUnknown, Hint: truncateRunes(hint, maxHintRunes)}
	default:
		return Classify(res.Stderr, res.Stdout)
	}
}

func extractHint(stderr, stdout string) string {
	for _, stream := range []string{stderr, stdout} {
		for _, line := range strings.Split(stream, "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= 6 && strings.EqualFold(line[:6], "error:") {
				return truncateRunes(line, maxHintRunes)
			}
		}
	}
	for _, stream := range []string{stderr, stdout} {
		if line := lastNonEmptyLine(stream); line != "" {
			return truncateRunes(line, maxHintRunes)
		}
	}
	return ""
}

func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
