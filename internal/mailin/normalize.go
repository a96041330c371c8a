// Package mailin recovers task drafts from inbound email webhook payloads.
//
// Forwarding providers deliver wildly different shapes for the same logical
// email: a plain JSON object, a JSON-encoded string, an array of parts, or a
// MIME tree serialized key-by-key into an object with tens of thousands of
// numeric keys. The normalizer tries a fixed sequence of recovery strategies
// and degrades to bounded regex scanning, so processing cost stays constant
// regardless of payload size. Recovery failure is a normal outcome, never an
// error.
package mailin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// NormalizedEmail is the best-effort field tuple recovered from a payload.
// Any field may be empty; callers decide whether the result is usable.
type NormalizedEmail struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Complete reports whether the three required fields were all recovered.
func (e NormalizedEmail) Complete() bool {
	return e.From != "" && e.To != "" && e.Subject != ""
}

func (e NormalizedEmail) requiredCount() int {
	n := 0
	for _, f := range []string{e.From, e.To, e.Subject} {
		if f != "" {
			n++
		}
	}
	return n
}

// Scanning bounds. These keep worst-case work constant for attacker-sized
// payloads; the qualitative guarantee matters more than the exact values.
const (
	massiveArrayMin = 1000  // above this, arrays are sampled, never scanned
	serializeMax    = 10000 // above this, an array is never serialized whole
	sampleRegion    = 16    // elements taken from each of start, middle, end
	maxPatternScan  = 50000 // serialized prefix searched by regex fallback
)

type strategy func(any) (NormalizedEmail, bool)

var strategies = []strategy{
	fromNestedMessage,
	fromRecipientObject,
	fromFlatObject,
	fromArray,
}

// Normalize extracts a best-effort NormalizedEmail from an arbitrary decoded
// request body. Strategies run in priority order; the first candidate with
// from, to and subject all present wins. When no structured strategy
// succeeds, the regex fallback fills whatever fields are still missing.
func Normalize(body any) NormalizedEmail {
	if s, ok := body.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			// A JSON-encoded body: restart matching on the parsed value.
			body = parsed
		} else {
			return patternFallback(s, NormalizedEmail{})
		}
	}

	var best NormalizedEmail
	for _, attempt := range strategies {
		candidate, ok := attempt(body)
		if !ok {
			continue
		}
		if candidate.Complete() {
			return candidate
		}
		if candidate.requiredCount() > best.requiredCount() {
			best = candidate
		}
	}

	return patternFallback(serializeBody(body), best)
}

// fromNestedMessage handles event-style payloads carrying the email under
// event-data.message, with addressing in a headers sub-object.
func fromNestedMessage(v any) (NormalizedEmail, bool) {
	m, ok := asMap(v)
	if !ok {
		return NormalizedEmail{}, false
	}
	event, ok := asMap(m["event-data"])
	if !ok {
		return NormalizedEmail{}, false
	}
	message, ok := asMap(event["message"])
	if !ok {
		return NormalizedEmail{}, false
	}

	headers, _ := asMap(message["headers"])
	out := NormalizedEmail{
		From:    firstNonEmpty(stringField(headers, "from"), stringField(message, "from")),
		To:      firstNonEmpty(stringField(headers, "to"), stringField(message, "to")),
		Subject: firstNonEmpty(stringField(headers, "subject"), stringField(message, "subject")),
	}
	out.Text, out.HTML = bodyFields(message)
	return out, true
}

// fromRecipientObject handles flat provider payloads keyed by "recipient".
func fromRecipientObject(v any) (NormalizedEmail, bool) {
	m, ok := asMap(v)
	if !ok {
		return NormalizedEmail{}, false
	}
	if _, present := m["recipient"]; !present {
		return NormalizedEmail{}, false
	}
	out := NormalizedEmail{
		From:    stringField(m, "sender", "from"),
		To:      stringField(m, "recipient", "to"),
		Subject: stringField(m, "subject"),
	}
	out.Text, out.HTML = bodyFields(m)
	return out, true
}

// fromFlatObject handles payloads exposing from/to/subject directly.
func fromFlatObject(v any) (NormalizedEmail, bool) {
	m, ok := asMap(v)
	if !ok {
		return NormalizedEmail{}, false
	}
	if !hasAnyKey(m, "from", "to", "subject") {
		return NormalizedEmail{}, false
	}
	out := NormalizedEmail{
		From:    stringField(m, "from"),
		To:      stringField(m, "to"),
		Subject: stringField(m, "subject"),
	}
	out.Text, out.HTML = bodyFields(m)
	return out, true
}

// fromArray handles arrays and array-like objects (mappings whose keys are
// mostly numeric strings, a serialized array transported as an object).
// Small arrays are scanned element by element; massive arrays are sampled.
func fromArray(v any) (NormalizedEmail, bool) {
	elems, ok := arrayElements(v)
	if !ok || len(elems) == 0 {
		return NormalizedEmail{}, false
	}
	if len(elems) > massiveArrayMin {
		return sampleElements(elems)
	}
	return scanElements(elems)
}

// scanElements adopts the first element that is (or JSON-parses to) an
// object carrying any addressing key, and extracts from it.
func scanElements(elems []any) (NormalizedEmail, bool) {
	for _, elem := range elems {
		if s, ok := elem.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				continue
			}
			elem = parsed
		}
		m, ok := asMap(elem)
		if !ok {
			continue
		}
		if !hasAnyKey(m, "from", "to", "subject", "sender", "recipient") {
			continue
		}
		return extractObject(m), true
	}
	return NormalizedEmail{}, false
}

// sampleElements takes bounded samples from the start, middle and end of a
// massive array. Linear scanning is off the table here: these payloads are
// typically a forwarded email's fully expanded MIME structure, and their
// size is attacker-controlled. Offsets outside the sampled strides are a
// known, accepted miss.
func sampleElements(elems []any) (NormalizedEmail, bool) {
	for _, i := range sampleIndices(len(elems)) {
		candidate, ok := inspectSampled(elems[i])
		if ok && candidate.Complete() {
			return candidate, true
		}
	}

	// Sampling found nothing. Below the serialization ceiling it is still
	// affordable to serialize the whole array once and pattern-match it;
	// above it the payload is dropped rather than scanned.
	if len(elems) <= serializeMax {
		if b, err := json.Marshal(elems); err == nil {
			out := patternSearch(string(b), NormalizedEmail{})
			return out, out.requiredCount() > 0
		}
	}
	return NormalizedEmail{}, false
}

// inspectSampled looks inside one sampled element for nested header objects,
// string-encoded JSON carrying the same, or raw from/to/subject substrings.
func inspectSampled(elem any) (NormalizedEmail, bool) {
	switch v := elem.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return inspectSampled(parsed)
		}
		if !strings.Contains(v, "@") {
			return NormalizedEmail{}, false
		}
		out := patternSearch(v, NormalizedEmail{})
		return out, out.requiredCount() > 0
	case map[string]any:
		if headers, ok := asMap(v["headers"]); ok {
			out := NormalizedEmail{
				From:    stringField(headers, "from"),
				To:      stringField(headers, "to"),
				Subject: stringField(headers, "subject"),
			}
			out.Text, out.HTML = bodyFields(v)
			if out.requiredCount() > 0 {
				return out, true
			}
		}
		if message, ok := asMap(v["message"]); ok {
			if headers, ok := asMap(message["headers"]); ok {
				out := NormalizedEmail{
					From:    stringField(headers, "from"),
					To:      stringField(headers, "to"),
					Subject: stringField(headers, "subject"),
				}
				out.Text, out.HTML = bodyFields(message)
				if out.requiredCount() > 0 {
					return out, true
				}
			}
		}
		if hasAnyKey(v, "from", "to", "subject", "sender", "recipient") {
			return extractObject(v), true
		}
	}
	return NormalizedEmail{}, false
}

// sampleIndices returns the sampled offsets for an array of length n:
// contiguous strides at the start, the middle and the end. n is always
// greater than massiveArrayMin here, so the strides never overlap.
func sampleIndices(n int) []int {
	out := make([]int, 0, 3*sampleRegion)
	for i := 0; i < sampleRegion; i++ {
		out = append(out, i)
	}
	mid := n/2 - sampleRegion/2
	for i := 0; i < sampleRegion; i++ {
		out = append(out, mid+i)
	}
	for i := n - sampleRegion; i < n; i++ {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// extractObject runs the flat strategies against an adopted working body.
func extractObject(m map[string]any) NormalizedEmail {
	if out, ok := fromRecipientObject(m); ok {
		return out
	}
	out := NormalizedEmail{
		From:    stringField(m, "from", "sender"),
		To:      stringField(m, "to", "recipient"),
		Subject: stringField(m, "subject"),
	}
	out.Text, out.HTML = bodyFields(m)
	return out
}

// arrayElements returns the elements of an array or array-like object. An
// object qualifies when at least half of its keys are purely numeric
// strings; elements come back in numeric key order.
func arrayElements(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}

	type indexed struct {
		idx int
		val any
	}
	numeric := make([]indexed, 0, len(m))
	for k, val := range m {
		idx, ok := numericKey(k)
		if !ok {
			continue
		}
		numeric = append(numeric, indexed{idx, val})
	}
	if len(numeric)*2 < len(m) {
		return nil, false
	}
	sort.Slice(numeric, func(i, j int) bool { return numeric[i].idx < numeric[j].idx })
	elems := make([]any, len(numeric))
	for i, e := range numeric {
		elems[i] = e.val
	}
	return elems, true
}

func numericKey(k string) (int, bool) {
	if k == "" || len(k) > 9 {
		return 0, false
	}
	n := 0
	for _, c := range k {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// serializeBody renders whatever body is available as text for the regex
// fallback. Arrays above the serialization ceiling yield nothing: their
// cost is unbounded and they were already sampled.
func serializeBody(body any) string {
	if s, ok := body.(string); ok {
		return s
	}
	if elems, ok := arrayElements(body); ok && len(elems) > serializeMax {
		return ""
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}

// Alternative key/label patterns per field, tried in order. Quoted JSON keys
// first, then bare header-style labels requiring an embedded '@' so loose
// prose does not match.
var (
	fromPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"from"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"sender"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)\bsender\s*[:=]\s*([^\s,;"'<>]+@[^\s,;"'<>]+)`),
		regexp.MustCompile(`(?i)\bfrom\s*[:=]\s*([^\s,;"'<>]+@[^\s,;"'<>]+)`),
	}
	toPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"to"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"recipient"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)\brecipient\s*[:=]\s*([^\s,;"'<>]+@[^\s,;"'<>]+)`),
		regexp.MustCompile(`(?i)\bto\s*[:=]\s*([^\s,;"'<>]+@[^\s,;"'<>]+)`),
	}
	subjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"subject"\s*:\s*"([^"]*)"`),
		regexp.MustCompile(`(?im)^[ \t]*subject\s*:[ \t]*(.+)$`),
	}
	textPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"body-plain"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		regexp.MustCompile(`(?i)"stripped-text"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		regexp.MustCompile(`(?i)"body"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		regexp.MustCompile(`(?i)"text"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	}
)

// patternFallback bounds the searched text and fills fields the structured
// strategies left empty.
func patternFallback(s string, base NormalizedEmail) NormalizedEmail {
	if s == "" {
		return base
	}
	if len(s) > maxPatternScan {
		s = s[:maxPatternScan]
	}
	return patternSearch(s, base)
}

func patternSearch(s string, base NormalizedEmail) NormalizedEmail {
	out := base
	if out.From == "" {
		out.From = firstMatch(s, fromPatterns)
	}
	if out.To == "" {
		out.To = firstMatch(s, toPatterns)
	}
	if out.Subject == "" {
		out.Subject = firstMatch(s, subjectPatterns)
	}
	if out.Text == "" {
		out.Text = unescapeJSONString(firstMatch(s, textPatterns))
	}
	return out
}

func firstMatch(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(s)
		if len(m) > 1 {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// unescapeJSONString undoes JSON escaping for a body matched inside a
// serialized payload. Anything that fails to decode is kept as-is.
func unescapeJSONString(s string) string {
	if s == "" || !strings.ContainsRune(s, '\\') {
		return s
	}
	var decoded string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &decoded); err != nil {
		return s
	}
	return decoded
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// stringField returns the first non-empty string value among keys. Values
// that are single-element string arrays (some providers wrap recipients)
// unwrap to their first element.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []any:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

func bodyFields(m map[string]any) (text, html string) {
	text = stringField(m, "body-plain", "stripped-text", "body", "text")
	html = stringField(m, "body-html", "stripped-html", "html")
	return text, html
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
