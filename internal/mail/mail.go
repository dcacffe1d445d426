package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dpage/maildroid/internal/model"
)

// AuthError indicates that authentication has failed or expired for a
// mail account. It is returned when a token refresh fails or when the
// backend rejects freshly refreshed credentials.
type AuthError struct {
	AccountID string
	Message   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (account %s): %s", e.AccountID, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// TransportError indicates that the mail backend could not be reached
// or answered with an unexpected status. StatusCode is zero when the
// request never produced a response.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error: %s", e.Message)
	}
	return fmt.Sprintf("transport error (status %d): %s", e.StatusCode, e.Message)
}

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// ParseError indicates that a backend response could not be decoded.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// IsParseError reports whether err (or any error in its chain) is a
// ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// Token is a short-lived access token for a mail account.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// TokenSource supplies and renews OAuth access tokens for accounts.
type TokenSource interface {
	// Token returns the currently stored token for the account.
	Token(ctx context.Context, accountID string) (Token, error)

	// Refresh exchanges the account's refresh token for a new access
	// token, persists the replacement, and returns it.
	Refresh(ctx context.Context, accountID string) (Token, error)
}

// Fetcher defines the contract that every mail backend must implement.
type Fetcher interface {
	// FetchEmails retrieves the messages received by the account
	// after the given instant.
	FetchEmails(
		ctx context.Context,
		account model.MailAccount,
		since time.Time,
	) ([]model.Message, error)
}
