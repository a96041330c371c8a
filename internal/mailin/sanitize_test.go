package mailin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeEmailAddress(t *testing.T) {
	cases := map[string]string{
		"alice@example.com":        "alice@example.com",
		"  Alice@Example.COM  ":    "alice@example.com",
		"john.doe+tag@example.org": "john.doe+tag@example.org",
		"not-an-email":             "",
		"@example.com":             "",
		"alice@":                   "",
		"alice@localhost":          "",
		"alice@example.c":          "",
		"a b@example.com":          "",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeEmailAddress(in), "input %q", in)
	}
}

func TestSanitizeEmailAddressLengthLimit(t *testing.T) {
	long := strings.Repeat("a", MaxAddressLength) + "@example.com"
	assert.Empty(t, SanitizeEmailAddress(long))
}

func TestLocalPartKeepsCasing(t *testing.T) {
	assert.Equal(t, "John.Doe", LocalPart("John.Doe@example.com"))
	assert.Equal(t, "Bob", LocalPart("  Bob@tasks.example.com"))
	assert.Empty(t, LocalPart("@example.com"))
	assert.Empty(t, LocalPart("no-at-sign"))
}

func TestSanitizeSubject(t *testing.T) {
	assert.Equal(t, "Budget review", SanitizeSubject("  Budget review  "))
	assert.Equal(t, DefaultSubject, SanitizeSubject(""))
	assert.Equal(t, DefaultSubject, SanitizeSubject("   "))
	assert.Equal(t, "scriptalert(1)/script", SanitizeSubject("<script>alert(1)</script>"))
	assert.Equal(t, "tab and newline", SanitizeSubject("tab\tand\nnewline"))
}

func TestSanitizeSubjectTruncation(t *testing.T) {
	got := SanitizeSubject(strings.Repeat("a", MaxSubjectLength+50))
	assert.Len(t, got, MaxSubjectLength)
}

func TestSanitizeBody(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", SanitizeBody("Tom &amp; Jerry"))
	assert.Equal(t, `say "hi" won't you`, SanitizeBody("say &quot;hi&quot; won&#39;t you"))
	assert.Equal(t, "keep\nlines\tand tabs", SanitizeBody("keep\r\nlines\tand tabs"))
	assert.Equal(t, "no bell", SanitizeBody("no\x07 bell"))
	assert.Empty(t, SanitizeBody(""))
}

func TestSanitizeBodyTruncation(t *testing.T) {
	got := SanitizeBody(strings.Repeat("b", MaxBodyLength+100))
	assert.Len(t, got, MaxBodyLength)
}
