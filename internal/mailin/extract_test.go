package mailin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extractNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestExtractDraftUrgentSubject(t *testing.T) {
	draft := ExtractDraft(NormalizedEmail{
		From:    "Ops.Alerts@Example.COM",
		To:      "bob@tasks.example.com",
		Subject: "URGENT: Server is down",
		Text:    "The production API started returning 500s at 09:10 and is still failing.",
	}, extractNow)

	assert.Equal(t, "URGENT: Server is down", draft.Title)
	assert.Equal(t, ImportanceUrgent, draft.Importance)
	assert.Equal(t, AreaEmail, draft.Area)
	assert.Nil(t, draft.DueDate)
	assert.Equal(t, "ops.alerts@example.com", draft.Source.Sender)
	assert.Equal(t, extractNow, draft.Source.ReceivedAt)
	assert.Equal(t, "URGENT: Server is down", draft.Source.OriginalSubject)
	assert.Contains(t, draft.Description, "production API")
}

func TestExtractDraftForwardedWithQuoteAndSignature(t *testing.T) {
	body := "Hi team,\n\n" +
		"Please complete the next Speexx session before Friday.\n\n" +
		"> On Mon, 9 Mar 2026, training wrote:\n" +
		"> Your session is waiting.\n\n" +
		"--\n" +
		"John Doe\n" +
		"Learning & Development"

	draft := ExtractDraft(NormalizedEmail{
		From:    "john.doe@example.com",
		To:      "bob@tasks.example.com",
		Subject: "Fw: Speexx learning journey",
		Text:    body,
	}, extractNow)

	assert.Equal(t, "Speexx learning journey", draft.Title)
	assert.Equal(t, "Fw: Speexx learning journey", draft.Source.OriginalSubject)
	assert.Contains(t, draft.Description, "Please complete the next Speexx session")
	assert.NotContains(t, draft.Description, "Your session is waiting")
	assert.NotContains(t, draft.Description, "John Doe")
	assert.Equal(t, ImportanceDefault, draft.Importance)
}

func TestExtractDraftForwardedHeaderBlock(t *testing.T) {
	body := "FYI, please handle the request below before the deadline passes.\n\n" +
		"From: customer@client.example\n" +
		"To: support@example.com\n" +
		"Subject: Contract renewal\n" +
		"Date: Mon, 9 Mar 2026\n\n" +
		"We would like to renew for another year starting April."

	draft := ExtractDraft(NormalizedEmail{
		From:    "support@example.com",
		To:      "bob@tasks.example.com",
		Subject: "Fwd: Contract renewal",
		Text:    body,
	}, extractNow)

	assert.Equal(t, "Contract renewal", draft.Title)
	assert.NotContains(t, draft.Description, "customer@client.example")
	assert.Contains(t, draft.Description, "renew for another year")
}

func TestExtractDraftEmptyBodyGetsPlaceholder(t *testing.T) {
	draft := ExtractDraft(NormalizedEmail{
		From:    "alice@example.com",
		To:      "bob@tasks.example.com",
		Subject: "Just a heads-up about the Tuesday sync",
	}, extractNow)

	assert.Equal(t, PlaceholderDescription, draft.Description)
}

func TestExtractDraftHTMLOnlyBody(t *testing.T) {
	draft := ExtractDraft(NormalizedEmail{
		From:    "alice@example.com",
		To:      "bob@tasks.example.com",
		Subject: "Newsletter follow-up",
		HTML:    "<p>Hello, please schedule the follow-up call with the vendor this month.</p>",
	}, extractNow)

	assert.Contains(t, draft.Description, "please schedule the follow-up call")
	assert.NotContains(t, draft.Description, "<p>")
}

func TestExtractDraftShortBodySurvives(t *testing.T) {
	draft := ExtractDraft(NormalizedEmail{
		From:    "alice@example.com",
		To:      "bob@tasks.example.com",
		Subject: "Ping",
		Text:    "ok",
	}, extractNow)

	assert.Equal(t, "ok", draft.Description)
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"Re: Budget review":   "Budget review",
		"FWD: Budget review":  "Budget review",
		"reply: quick note":   "quick note",
		"Fwd: Fwd: Meeting":   "Fwd: Meeting",
		"No prefix here":      "No prefix here",
		"Re:":                 DefaultTitle,
		"   ":                 DefaultTitle,
		"Forward: the thing":  "the thing",
		"Regrets: cannot go":  "Regrets: cannot go",
		"freshly: not a mark": "freshly: not a mark",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanTitle(in), "subject %q", in)
	}
}

func TestInferDueDate(t *testing.T) {
	t.Run("explicit date", func(t *testing.T) {
		got := InferDueDate("Submit report due: 2026-09-15", extractNow)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("tomorrow", func(t *testing.T) {
		got := InferDueDate("Call the dentist Tomorrow", extractNow)
		require.NotNil(t, got)
		assert.Equal(t, extractNow.AddDate(0, 0, 1), *got)
	})

	t.Run("next week", func(t *testing.T) {
		got := InferDueDate("Plan the offsite NEXT WEEK", extractNow)
		require.NotNil(t, got)
		assert.Equal(t, extractNow.AddDate(0, 0, 7), *got)
	})

	t.Run("explicit date wins over keywords", func(t *testing.T) {
		got := InferDueDate("due: 2026-04-01 or tomorrow", extractNow)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("no marker", func(t *testing.T) {
		assert.Nil(t, InferDueDate("Weekly digest", extractNow))
	})

	t.Run("invalid explicit date ignored", func(t *testing.T) {
		assert.Nil(t, InferDueDate("due: 2026-13-45", extractNow))
	})
}

func TestInferImportance(t *testing.T) {
	cases := map[string]int{
		"URGENT: pipeline broken":     ImportanceUrgent,
		"need this asap":              ImportanceUrgent,
		"Immediate action required":   ImportanceUrgent,
		"High priority deploy":        ImportanceHigh,
		"Important: renew the certs":  ImportanceHigh,
		"low priority cleanup":        ImportanceLow,
		"minor typo in docs":          ImportanceLow,
		"Weekly digest":               ImportanceDefault,
		"urgent but also low stakes":  ImportanceUrgent,
		"important and urgent rework": ImportanceUrgent,
	}
	for subject, want := range cases {
		assert.Equal(t, want, InferImportance(subject), "subject %q", subject)
	}
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, 1, ClampImportance(-3))
	assert.Equal(t, 1, ClampImportance(0))
	assert.Equal(t, 5, ClampImportance(5))
	assert.Equal(t, 10, ClampImportance(10))
	assert.Equal(t, 10, ClampImportance(42))
}

func TestCleanBodyOriginalMessageMarker(t *testing.T) {
	body := "Taking this over, will reply to the client by Thursday at the latest.\n\n" +
		"----- Original Message -----\n" +
		"From: someone@else.example\n" +
		"Sent: Monday\n\n" +
		"Old thread content we do not need."

	got := CleanBody(body, "")
	assert.Contains(t, got, "Taking this over")
	assert.NotContains(t, got, "Old thread content")
	assert.NotContains(t, got, "someone@else.example")
}

func TestCleanBodyCollapsesBlankRuns(t *testing.T) {
	body := "First actionable line of the message body stays intact here.\n\n\n\n" +
		"Second line after a pile of blanks."

	got := CleanBody(body, "")
	assert.Equal(t,
		"First actionable line of the message body stays intact here.\n\n"+
			"Second line after a pile of blanks.",
		got)
}

func TestCleanBodyPrefersTextOverHTML(t *testing.T) {
	got := CleanBody(
		"The plain text variant of this message is the one we should keep.",
		"<p>The HTML variant should be ignored when text exists.</p>")
	assert.Contains(t, got, "plain text variant")
	assert.NotContains(t, got, "HTML variant")
}
