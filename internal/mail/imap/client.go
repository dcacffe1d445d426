package imap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/mail"
	"github.com/dpage/maildroid/internal/model"
)

// PasswordSource supplies stored IMAP passwords for accounts.
type PasswordSource interface {
	Password(ctx context.Context, accountID string) (string, error)
}

// Client fetches messages over IMAP using go-imap v2. Each fetch
// opens a fresh connection, reads the INBOX, and logs out.
type Client struct {
	passwords PasswordSource
	logger    *zap.Logger
}

// NewClient creates an IMAP mail client.
func NewClient(passwords PasswordSource, logger *zap.Logger) *Client {
	return &Client{
		passwords: passwords,
		logger:    logger,
	}
}

// FetchEmails retrieves every INBOX message received by the account
// after the given instant.
func (c *Client) FetchEmails(
	ctx context.Context,
	account model.MailAccount,
	since time.Time,
) ([]model.Message, error) {
	password, err := c.passwords.Password(ctx, account.ID)
	if err != nil {
		return nil, &mail.AuthError{
			AccountID: account.ID,
			Message:   fmt.Sprintf("no password stored: %v", err),
		}
	}

	client, err := c.connect(account, password)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		Since: since,
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		converted := messageFromBuffer(account, buf, bodySection)

		// IMAP SINCE has day granularity, so filter precisely here.
		if !converted.Date.After(since) {
			continue
		}
		messages = append(messages, converted)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	c.logger.Debug("fetched imap messages",
		zap.String("account", account.Email),
		zap.Int("count", len(messages)))

	return messages, nil
}

// connect dials the account's IMAP server and authenticates.
func (c *Client) connect(
	account model.MailAccount,
	password string,
) (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", account.IMAPHost, account.IMAPPort)

	var client *imapclient.Client
	var err error

	if account.IMAPTLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &mail.TransportError{
			Message: fmt.Sprintf("connecting to %s: %v", addr, err),
		}
	}

	username := account.Username
	if username == "" {
		username = account.Email
	}

	if err := client.Login(username, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &mail.AuthError{
			AccountID: account.ID,
			Message:   fmt.Sprintf("login failed for %s: %v", username, err),
		}
	}

	return client, nil
}

// messageFromBuffer converts one fetched IMAP message into the
// internal shape. Unread state comes from the absence of \Seen, and
// an UNREAD label is synthesized so downstream consumers see the same
// label convention as the Gmail backend.
func messageFromBuffer(
	account model.MailAccount,
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) model.Message {
	msg := model.Message{
		ID:        strconv.FormatUint(uint64(buf.UID), 10),
		AccountID: account.ID,
		Date:      time.Now(),
	}

	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		if !buf.Envelope.Date.IsZero() {
			msg.Date = buf.Envelope.Date
		}
		if buf.Envelope.MessageID != "" {
			msg.ThreadID = buf.Envelope.MessageID
		}

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				msg.From = from.Addr()
			}
		}
		if len(buf.Envelope.To) > 0 {
			msg.To = buf.Envelope.To[0].Addr()
		}
	}

	seen := false
	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			seen = true
		}
		msg.Labels = append(msg.Labels, string(flag))
	}
	if !seen {
		msg.Unread = true
		msg.Labels = append(msg.Labels, "UNREAD")
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		textBody, htmlBody := parseMIMEBody(raw)
		switch {
		case textBody != "":
			msg.Body = textBody
		case htmlBody != "":
			msg.Body = mail.StripHTML(htmlBody)
		}
		msg.Body = strings.TrimSpace(msg.Body)
		msg.Snippet = snippet(msg.Body)
	}

	return msg
}

// snippet returns the first line of the body shortened to at most 100
// characters.
func snippet(body string) string {
	line := body
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return strings.TrimSpace(string(runes))
}
