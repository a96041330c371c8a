package mailin

import (
	"regexp"
	"strings"
	"time"
)

// TaskDraft is a derived, not-yet-persisted task. The task store owns it
// entirely after creation.
type TaskDraft struct {
	Title       string
	Description string
	Area        string
	Importance  int
	DueDate     *time.Time
	Source      EmailSource
}

// EmailSource is the provenance block kept for audit. OriginalSubject is the
// sanitized, pre-cleaning subject line, not the cleaned title.
type EmailSource struct {
	Sender          string
	ReceivedAt      time.Time
	OriginalSubject string
}

// AreaEmail tags email-origin tasks; it is a reserved area distinct from
// user-defined categories.
const AreaEmail = "email"

const (
	// DefaultTitle is used when nothing usable remains of the subject.
	DefaultTitle = "Untitled task"
	// PlaceholderDescription is used when no meaningful body survives cleaning.
	PlaceholderDescription = "No description provided"

	minCleanedLength   = 50
	minParagraphLength = 20
)

// Importance constants derived from subject keywords
const (
	ImportanceUrgent  = 9
	ImportanceHigh    = 7
	ImportanceLow     = 3
	ImportanceDefault = 5
)

// ExtractDraft derives a TaskDraft from a normalized email record. now is
// the server-assigned receipt time; nothing in the payload is trusted for
// timestamps.
func ExtractDraft(email NormalizedEmail, now time.Time) TaskDraft {
	subject := SanitizeSubject(email.Subject)

	description := SanitizeBody(CleanBody(email.Text, email.HTML))
	if description == "" {
		description = PlaceholderDescription
	}

	return TaskDraft{
		Title:       CleanTitle(subject),
		Description: description,
		Area:        AreaEmail,
		Importance:  ClampImportance(InferImportance(subject)),
		DueDate:     InferDueDate(subject, now),
		Source: EmailSource{
			Sender:          SanitizeEmailAddress(email.From),
			ReceivedAt:      now,
			OriginalSubject: subject,
		},
	}
}

var replyPrefixPattern = regexp.MustCompile(`(?i)^(?:fwd|re|fw|forward|reply):\s*`)

// CleanTitle strips a single leading reply/forward marker. Only one prefix
// is removed per pass: "Fwd: Fwd: Meeting" becomes "Fwd: Meeting".
func CleanTitle(subject string) string {
	title := strings.TrimSpace(subject)
	title = replyPrefixPattern.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return truncateRunes(title, MaxSubjectLength)
}

var (
	dueDatePattern  = regexp.MustCompile(`(?i)due:\s*(\d{4}-\d{2}-\d{2})`)
	tomorrowPattern = regexp.MustCompile(`(?i)tomorrow`)
	nextWeekPattern = regexp.MustCompile(`(?i)next week`)
)

// InferDueDate infers a due date from the subject only. First match wins:
// an explicit "due: YYYY-MM-DD", then "tomorrow" (+1 day), then "next week"
// (+7 days). No match means no due date.
func InferDueDate(subject string, now time.Time) *time.Time {
	if m := dueDatePattern.FindStringSubmatch(subject); len(m) > 1 {
		if d, err := time.ParseInLocation("2006-01-02", m[1], now.Location()); err == nil {
			return &d
		}
	}
	if tomorrowPattern.MatchString(subject) {
		d := now.AddDate(0, 0, 1)
		return &d
	}
	if nextWeekPattern.MatchString(subject) {
		d := now.AddDate(0, 0, 7)
		return &d
	}
	return nil
}

var (
	urgentKeywordPattern = regexp.MustCompile(`(?i)urgent|asap|immediate`)
	highKeywordPattern   = regexp.MustCompile(`(?i)high|important`)
	lowKeywordPattern    = regexp.MustCompile(`(?i)low|minor`)
)

// InferImportance maps subject keywords to an importance score. First match
// wins; no keyword means the default.
func InferImportance(subject string) int {
	switch {
	case urgentKeywordPattern.MatchString(subject):
		return ImportanceUrgent
	case highKeywordPattern.MatchString(subject):
		return ImportanceHigh
	case lowKeywordPattern.MatchString(subject):
		return ImportanceLow
	}
	return ImportanceDefault
}

// ClampImportance bounds a score to [1, 10].
func ClampImportance(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// CleanBody runs the body cleaning pipeline over whichever body is
// available, preferring plain text over HTML. The passes discard forwarded
// header blocks, quoted reply lines and trailing signatures; when they
// over-trim a short legitimate message, the first real paragraph of the
// original tag-stripped text is used instead.
func CleanBody(text, html string) string {
	source := text
	if strings.TrimSpace(source) == "" {
		source = html
	}
	if strings.TrimSpace(source) == "" {
		return ""
	}

	stripped := stripTags(source)

	cleaned := dropForwardHeaders(stripped)
	cleaned = dropQuotedLines(cleaned)
	cleaned = dropSignature(cleaned)
	cleaned = dropOriginalMessage(cleaned)
	cleaned = collapseBlankLines(cleaned)

	if len(cleaned) < minCleanedLength {
		if p := firstParagraph(stripped); p != "" {
			cleaned = p
		}
	}
	return cleaned
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return htmlTagPattern.ReplaceAllString(s, " ")
}

var (
	headerLabelPattern = regexp.MustCompile(`(?mi)^[ \t]*(?:from|to|subject|date|sent|cc|bcc):`)
	headerLinePattern  = regexp.MustCompile(`(?i)^[ \t]*(?:from|to|subject|date|sent|cc|bcc):`)
)

// dropForwardHeaders discards a forwarded-message header block: everything
// up to the first header-like label, then the contiguous run of header
// lines that follows it.
func dropForwardHeaders(s string) string {
	loc := headerLabelPattern.FindStringIndex(s)
	if loc == nil {
		return s
	}
	lines := strings.Split(s[loc[0]:], "\n")
	i := 0
	for i < len(lines) && headerLinePattern.MatchString(lines[i]) {
		i++
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return strings.Join(lines[i:], "\n")
}

// dropQuotedLines removes quoted reply text (lines beginning with '>').
func dropQuotedLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// dropSignature removes a trailing signature block introduced by a "--"
// delimiter line.
func dropSignature(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		t := strings.TrimRight(strings.TrimSpace(line), " ")
		if t == "--" {
			return strings.Join(lines[:i], "\n")
		}
	}
	return s
}

var originalMessagePattern = regexp.MustCompile(`(?i)original message`)

// dropOriginalMessage is a second pass for the other common forwarding
// convention: an "Original Message" marker followed by a header block.
func dropOriginalMessage(s string) string {
	loc := originalMessagePattern.FindStringIndex(s)
	if loc == nil {
		return dropForwardHeaders(s)
	}
	rest := s[loc[1]:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = ""
	}
	return dropForwardHeaders(rest)
}

// collapseBlankLines trims each line, collapses runs of blank lines to one
// and trims the result overall.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(out) == 0 || out[len(out)-1] == "" {
				continue
			}
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

var paragraphSplitPattern = regexp.MustCompile(`\n\s*\n`)

// firstParagraph returns the first blank-line-delimited paragraph of the
// original tag-stripped text that is long enough to be a real message.
func firstParagraph(s string) string {
	for _, p := range paragraphSplitPattern.Split(s, -1) {
		p = collapseBlankLines(p)
		if len(p) > minParagraphLength {
			return p
		}
	}
	return ""
}
