package model

import "time"

// Message is a single fetched email, normalized across mailbox kinds.
type Message struct {
	// ID is the message's identifier within its mailbox.
	ID string `json:"id"`

	// ThreadID groups the message with its conversation, if the
	// mailbox exposes one.
	ThreadID string `json:"thread_id,omitempty"`

	// AccountID identifies the account the message was fetched from.
	AccountID string `json:"account_id"`

	// Subject is the decoded Subject header.
	Subject string `json:"subject"`

	// From is the sender as reported by the From header.
	From string `json:"from"`

	// To is the recipient list as reported by the To header.
	To string `json:"to"`

	// Date is the message timestamp parsed from the Date header,
	// defaulting to the fetch time when the header is missing or
	// unparsable.
	Date time.Time `json:"date"`

	// Snippet is the provider-supplied short preview, if any.
	Snippet string `json:"snippet,omitempty"`

	// Body is the best-effort plain-text body. It falls back to the
	// snippet when no part of the message could be decoded.
	Body string `json:"body"`

	// Labels holds the mailbox's label or flag set for the message.
	Labels []string `json:"labels,omitempty"`

	// Unread is derived from the presence of the UNREAD label.
	Unread bool `json:"unread"`
}
