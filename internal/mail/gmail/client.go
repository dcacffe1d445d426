package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/mail"
	"github.com/dpage/maildroid/internal/model"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com"

	// tokenExpiryMargin is how close to expiry a cached access token
	// may get before it is refreshed ahead of a request.
	tokenExpiryMargin = 60 * time.Second
)

// Client fetches messages through the Gmail REST API. It handles
// OAuth bearer authentication with a single refresh-and-retry on 401,
// pagination, and conversion of the raw MIME part tree into messages.
type Client struct {
	baseURL    string
	tokens     mail.TokenSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Gmail API client. An empty baseURL selects the
// public Gmail endpoint.
func NewClient(baseURL string, tokens mail.TokenSource, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchEmails retrieves every message the account received after the
// given instant.
func (c *Client) FetchEmails(
	ctx context.Context,
	account model.MailAccount,
	since time.Time,
) ([]model.Message, error) {
	ids, err := c.listMessageIDs(ctx, account, since)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.getMessage(ctx, account, id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	c.logger.Debug("fetched gmail messages",
		zap.String("account", account.Email),
		zap.Int("count", len(messages)))

	return messages, nil
}

// listMessageIDs pages through the message list endpoint, following
// the continuation token until it is exhausted.
func (c *Client) listMessageIDs(
	ctx context.Context,
	account model.MailAccount,
	since time.Time,
) ([]string, error) {
	query := url.QueryEscape(fmt.Sprintf("after:%d", since.Unix()))

	var ids []string
	pageToken := ""
	for {
		endpoint := fmt.Sprintf(
			"%s/gmail/v1/users/me/messages?q=%s", c.baseURL, query,
		)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page listResponse
		if err := c.authenticatedRequest(ctx, account.ID, endpoint, &page); err != nil {
			return nil, err
		}

		for _, ref := range page.Messages {
			ids = append(ids, ref.ID)
		}

		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

// getMessage fetches the full representation of one message.
func (c *Client) getMessage(
	ctx context.Context,
	account model.MailAccount,
	id string,
) (model.Message, error) {
	endpoint := fmt.Sprintf(
		"%s/gmail/v1/users/me/messages/%s?format=full", c.baseURL, id,
	)

	var raw apiMessage
	if err := c.authenticatedRequest(ctx, account.ID, endpoint, &raw); err != nil {
		return model.Message{}, err
	}

	return parseMessage(account.ID, raw), nil
}

// authenticatedRequest performs a GET with the account's access token
// and decodes the JSON response into result. A token about to expire
// is refreshed before the request; a 401 triggers exactly one refresh
// and retry, and a second 401 is a hard auth failure.
func (c *Client) authenticatedRequest(
	ctx context.Context,
	accountID string,
	endpoint string,
	result interface{},
) error {
	tok, err := c.tokens.Token(ctx, accountID)
	if err != nil {
		return &mail.AuthError{AccountID: accountID, Message: err.Error()}
	}

	if !tok.Expiry.IsZero() && time.Until(tok.Expiry) < tokenExpiryMargin {
		tok, err = c.tokens.Refresh(ctx, accountID)
		if err != nil {
			return &mail.AuthError{AccountID: accountID, Message: err.Error()}
		}
	}

	status, body, err := c.issue(ctx, endpoint, tok.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		tok, err = c.tokens.Refresh(ctx, accountID)
		if err != nil {
			return &mail.AuthError{AccountID: accountID, Message: err.Error()}
		}

		status, body, err = c.issue(ctx, endpoint, tok.AccessToken)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &mail.AuthError{
				AccountID: accountID,
				Message:   "access token rejected after refresh",
			}
		}
	}

	if status < 200 || status >= 300 {
		return &mail.TransportError{
			StatusCode: status,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &mail.ParseError{
			Message: fmt.Sprintf("decoding response from %s: %v", endpoint, err),
		}
	}

	return nil
}

// issue sends one GET and returns the status code and raw body.
// Failing to produce any response at all is a transport error with a
// zero status.
func (c *Client) issue(
	ctx context.Context,
	endpoint string,
	accessToken string,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, &mail.TransportError{
			Message: fmt.Sprintf("creating request: %v", err),
		}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &mail.TransportError{
			Message: fmt.Sprintf("executing request: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &mail.TransportError{
			Message: fmt.Sprintf("reading response body: %v", err),
		}
	}

	return resp.StatusCode, body, nil
}
