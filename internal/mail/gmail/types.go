package gmail

// listResponse is one page of the message list endpoint.
type listResponse struct {
	Messages      []messageRef `json:"messages"`
	NextPageToken string       `json:"nextPageToken"`
}

// messageRef identifies one message within a list page.
type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// apiMessage is the full message representation returned by the get
// endpoint with format=full.
type apiMessage struct {
	ID       string      `json:"id"`
	ThreadID string      `json:"threadId"`
	Snippet  string      `json:"snippet"`
	LabelIDs []string    `json:"labelIds"`
	Payload  messagePart `json:"payload"`
}

// messagePart is one node of the MIME part tree. Parts may nest
// arbitrarily deep for multipart messages.
type messagePart struct {
	MimeType string        `json:"mimeType"`
	Headers  []header      `json:"headers"`
	Body     partBody      `json:"body"`
	Parts    []messagePart `json:"parts"`
}

// header is a single RFC 822 style message header.
type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// partBody carries the base64url-encoded content of one part.
type partBody struct {
	Data string `json:"data"`
	Size int    `json:"size"`
}
