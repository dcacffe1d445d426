// Package credential keeps account secrets in the system keyring:
// Gmail OAuth tokens, IMAP passwords, and LLM provider API keys. The
// OAuth refresh flow lives here too so a refreshed token is always
// persisted before anyone uses it.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/model"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

// Store reads and writes per-account secrets. It implements
// mail.TokenSource for the Gmail client and imap.PasswordSource for
// the IMAP client.
type Store struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	logger       *zap.Logger
	secrets      secrets

	// mu serializes refreshes so concurrent callers cannot interleave
	// their write-backs.
	mu sync.Mutex
}

// NewStore creates a credential store backed by the system keyring.
func NewStore(google model.GoogleConfig, logger *zap.Logger) *Store {
	return &Store{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokenURL:     googleTokenURL,
		clientID:     google.ClientID,
		clientSecret: google.ClientSecret,
		logger:       logger,
		secrets:      keyringSecrets{},
	}
}

func gmailTokenKey(accountID string) string {
	return "gmail-token-" + accountID
}

func imapPasswordKey(accountID string) string {
	return "imap-password-" + accountID
}

func providerKeyKey(kind model.ProviderKind) string {
	return "llm-key-" + string(kind)
}

// storedToken is the JSON shape persisted in the keyring for a Gmail
// account.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

func (s *Store) loadToken(accountID string) (storedToken, error) {
	raw, err := s.secrets.Get(gmailTokenKey(accountID))
	if err != nil {
		return storedToken{}, fmt.Errorf("no token stored for account %s: %w", accountID, err)
	}

	var tok storedToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return storedToken{}, fmt.Errorf("decoding stored token for account %s: %w", accountID, err)
	}
	return tok, nil
}

func (s *Store) saveToken(accountID string, tok storedToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return s.secrets.Set(gmailTokenKey(accountID), string(data))
}

// SaveGmailToken stores a freshly authorized OAuth token pair for an
// account, replacing whatever was there.
func (s *Store) SaveGmailToken(
	accountID string,
	accessToken string,
	refreshToken string,
	expiry time.Time,
) error {
	return s.saveToken(accountID, storedToken{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       expiry,
	})
}

// DeleteGmailToken removes an account's stored OAuth token.
func (s *Store) DeleteGmailToken(accountID string) error {
	return s.secrets.Delete(gmailTokenKey(accountID))
}

// Password returns the stored IMAP password for an account.
func (s *Store) Password(_ context.Context, accountID string) (string, error) {
	return s.secrets.Get(imapPasswordKey(accountID))
}

// SetPassword stores an account's IMAP password.
func (s *Store) SetPassword(accountID, password string) error {
	return s.secrets.Set(imapPasswordKey(accountID), password)
}

// ProviderKey returns the stored API key for an LLM provider. A
// missing key is not an error here; the llm package reports missing
// credentials itself.
func (s *Store) ProviderKey(kind model.ProviderKind) string {
	key, err := s.secrets.Get(providerKeyKey(kind))
	if err != nil {
		return ""
	}
	return key
}

// SetProviderKey stores an API key for an LLM provider.
func (s *Store) SetProviderKey(kind model.ProviderKind, key string) error {
	return s.secrets.Set(providerKeyKey(kind), key)
}
