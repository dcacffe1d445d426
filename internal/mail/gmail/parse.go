package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/dpage/maildroid/internal/mail"
	"github.com/dpage/maildroid/internal/model"
)

// dateLayouts are the RFC 2822 variants observed in real Date
// headers, tried in order.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
}

// parseMessage converts a raw API message into the internal shape.
func parseMessage(accountID string, raw apiMessage) model.Message {
	msg := model.Message{
		ID:        raw.ID,
		ThreadID:  raw.ThreadID,
		AccountID: accountID,
		Subject:   headerValue(raw.Payload.Headers, "Subject"),
		From:      headerValue(raw.Payload.Headers, "From"),
		To:        headerValue(raw.Payload.Headers, "To"),
		Date:      parseDate(headerValue(raw.Payload.Headers, "Date")),
		Snippet:   raw.Snippet,
		Body:      extractBody(raw),
		Labels:    raw.LabelIDs,
	}

	for _, label := range raw.LabelIDs {
		if label == "UNREAD" {
			msg.Unread = true
			break
		}
	}

	return msg
}

// headerValue returns the value of the first header with the given
// name, or an empty string. Matching is exact, Gmail normalizes the
// canonical header names itself.
func headerValue(headers []header, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// parseDate tries the known layouts in order and falls back to the
// current time when none of them match.
func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}

// extractBody walks the body fallback chain: a text/plain part
// anywhere in the tree, then a stripped text/html part, then the
// top-level body of a partless message, then the snippet.
func extractBody(raw apiMessage) string {
	if part := findPart(raw.Payload.Parts, "text/plain"); part != nil {
		if text, ok := decodeBody(part.Body.Data); ok {
			return strings.TrimSpace(text)
		}
	}

	if part := findPart(raw.Payload.Parts, "text/html"); part != nil {
		if text, ok := decodeBody(part.Body.Data); ok {
			return strings.TrimSpace(mail.StripHTML(text))
		}
	}

	if len(raw.Payload.Parts) == 0 {
		if text, ok := decodeBody(raw.Payload.Body.Data); ok {
			if raw.Payload.MimeType == "text/html" {
				text = mail.StripHTML(text)
			}
			return strings.TrimSpace(text)
		}
	}

	return strings.TrimSpace(raw.Snippet)
}

// findPart depth-first searches the part tree for the first part
// whose MIME type matches exactly.
func findPart(parts []messagePart, mimeType string) *messagePart {
	for i := range parts {
		if parts[i].MimeType == mimeType {
			return &parts[i]
		}
		if found := findPart(parts[i].Parts, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// decodeBody decodes Gmail's URL-safe unpadded base64 variant.
func decodeBody(data string) (string, bool) {
	if data == "" {
		return "", false
	}

	normalized := strings.ReplaceAll(data, "-", "+")
	normalized = strings.ReplaceAll(normalized, "_", "/")
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
