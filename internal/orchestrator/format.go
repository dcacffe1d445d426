package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dpage/maildroid/internal/model"
)

const (
	// maxBodyChars caps how much of each message body is passed to
	// the model.
	maxBodyChars = 500

	// displayDateLayout is the human-readable date format used in
	// the formatted email block.
	displayDateLayout = "Jan 2, 2006 3:04 PM"

	emptyBlock = "[No emails found in the selected time range.]"
)

// systemInstruction frames the task for the provider and pins the
// marker line the actionability parser looks for.
const systemInstruction = `You are an email analysis assistant. The user provides a batch of ` +
	`recent emails followed by a request describing what to look for. ` +
	`Analyze the emails and answer the request concisely.

Your reply MUST end with exactly one line reading either ` +
	`"ACTIONABLE: YES" or "ACTIONABLE: NO", indicating whether the result ` +
	`needs the user's attention.`

// formatEmails renders messages into the structured text block the
// model receives.
func formatEmails(messages []model.Message) string {
	if len(messages) == 0 {
		return emptyBlock
	}

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var b strings.Builder
		b.WriteString("---\n")
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
		fmt.Fprintf(&b, "From: %s\n", msg.From)
		fmt.Fprintf(&b, "Date: %s\n", msg.Date.Format(displayDateLayout))
		fmt.Fprintf(&b, "Body: %s", truncateBody(msg.Body))
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}

// truncateBody trims the body and cuts it to maxBodyChars characters,
// marking the cut with an ellipsis.
func truncateBody(body string) string {
	trimmed := strings.TrimSpace(body)
	runes := []rune(trimmed)
	if len(runes) <= maxBodyChars {
		return trimmed
	}
	return string(runes[:maxBodyChars]) + "..."
}

// buildUserContent assembles the user-role message from the formatted
// email block and the prompt's instruction.
func buildUserContent(count int, block, instruction string) string {
	return fmt.Sprintf(
		"Analyzing %d email(s).\n\n%s\n\n---\n\nUser request: %s",
		count, block, instruction,
	)
}

// parseActionability scans the model's reply for ACTIONABLE marker
// lines, removes them, and reports the verdict. When several markers
// appear the last one wins; a reply without any marker counts as
// actionable.
func parseActionability(text string) (string, bool) {
	actionable := true

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if verdict, isMarker := markerValue(line); isMarker {
			actionable = verdict
			continue
		}
		kept = append(kept, line)
	}

	// Drop blank lines left dangling after marker removal.
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}

	return strings.Join(kept, "\n"), actionable
}

// markerValue reports whether line is an ACTIONABLE marker and which
// verdict it carries. Any casing is accepted and the space after the
// colon is optional.
func markerValue(line string) (verdict, isMarker bool) {
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case "ACTIONABLE: YES", "ACTIONABLE:YES":
		return true, true
	case "ACTIONABLE: NO", "ACTIONABLE:NO":
		return false, true
	}
	return false, false
}
