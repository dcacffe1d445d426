package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/mail"
)

// ErrTokenRevoked indicates the refresh token was rejected outright;
// the account must be re-authorized by the user.
var ErrTokenRevoked = errors.New("refresh token revoked")

// Token returns the currently stored access token for an account.
func (s *Store) Token(_ context.Context, accountID string) (mail.Token, error) {
	tok, err := s.loadToken(accountID)
	if err != nil {
		return mail.Token{}, err
	}
	return mail.Token{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}, nil
}

// Refresh exchanges the account's refresh token for a new access
// token at Google's token endpoint. The replacement is persisted
// before it is returned, so subsequent Token calls see it.
func (s *Store) Refresh(ctx context.Context, accountID string) (mail.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadToken(accountID)
	if err != nil {
		return mail.Token{}, err
	}
	if stored.RefreshToken == "" {
		return mail.Token{}, fmt.Errorf("no refresh token stored for account %s", accountID)
	}

	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("refresh_token", stored.RefreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return mail.Token{}, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return mail.Token{}, fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mail.Token{}, fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr oauthErrorResponse
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error == "invalid_grant" {
			return mail.Token{}, fmt.Errorf(
				"account %s: %w", accountID, ErrTokenRevoked,
			)
		}
		return mail.Token{}, fmt.Errorf(
			"refresh failed (%d): %s", resp.StatusCode, string(body),
		)
	}

	var refreshed oauthTokenResponse
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return mail.Token{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return mail.Token{}, fmt.Errorf("refresh response carried no access token")
	}

	stored.AccessToken = refreshed.AccessToken
	stored.Expiry = time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	// Google may rotate the refresh token; keep the old one otherwise.
	if refreshed.RefreshToken != "" {
		stored.RefreshToken = refreshed.RefreshToken
	}

	if err := s.saveToken(accountID, stored); err != nil {
		return mail.Token{}, fmt.Errorf("persisting refreshed token: %w", err)
	}

	s.logger.Debug("refreshed access token",
		zap.String("account", accountID),
		zap.Time("expiry", stored.Expiry))

	return mail.Token{
		AccessToken: stored.AccessToken,
		Expiry:      stored.Expiry,
	}, nil
}

// --- Google OAuth wire types ---

type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
