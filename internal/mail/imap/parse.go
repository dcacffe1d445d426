package imap

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
)

// parseMIMEBody parses a raw RFC 822 message using go-message and
// extracts the text/plain and text/html bodies. A message that cannot
// be parsed at all is treated as one big plain-text body.
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := inline.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}
