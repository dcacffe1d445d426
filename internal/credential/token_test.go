package credential

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/model"
)

// memSecrets is an in-memory stand-in for the system keyring.
type memSecrets struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemSecrets() *memSecrets {
	return &memSecrets{items: make(map[string]string)}
}

func (m *memSecrets) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.items[key]
	if !ok {
		return "", fmt.Errorf("key %q not found", key)
	}
	return value, nil
}

func (m *memSecrets) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memSecrets) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func newTestStore(tokenURL string) *Store {
	s := NewStore(model.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, zap.NewNop())
	s.secrets = newMemSecrets()
	if tokenURL != "" {
		s.tokenURL = tokenURL
	}
	return s
}

func TestStore_TokenRoundTrip(t *testing.T) {
	s := newTestStore("")
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "refresh-1", expiry))

	tok, err := s.Token(context.Background(), "acct1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.True(t, tok.Expiry.Equal(expiry))

	// Test unknown account
	_, err = s.Token(context.Background(), "nobody")
	assert.Error(t, err)

	// Test deletion
	require.NoError(t, s.DeleteGmailToken("acct1"))
	_, err = s.Token(context.Background(), "acct1")
	assert.Error(t, err)
}

func TestStore_Refresh_PersistsBeforeReturn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))

		fmt.Fprint(w, `{"access_token":"access-2","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "refresh-1", time.Now()))

	tok, err := s.Refresh(context.Background(), "acct1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, 10*time.Second)

	// The replacement is already persisted: a plain Token read sees it.
	stored, err := s.Token(context.Background(), "acct1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)

	// The refresh token was not rotated, so the old one survives.
	raw, err := s.loadToken("acct1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", raw.RefreshToken)
}

func TestStore_Refresh_RotatesRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600}`)
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "refresh-1", time.Now()))

	_, err := s.Refresh(context.Background(), "acct1")
	require.NoError(t, err)

	raw, err := s.loadToken("acct1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", raw.RefreshToken)
}

func TestStore_Refresh_InvalidGrantMeansRevoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been revoked."}`)
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "refresh-1", time.Now()))

	_, err := s.Refresh(context.Background(), "acct1")
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The stale token is left in place for later re-authorization.
	raw, loadErr := s.loadToken("acct1")
	require.NoError(t, loadErr)
	assert.Equal(t, "access-1", raw.AccessToken)
}

func TestStore_Refresh_MissingRefreshToken(t *testing.T) {
	s := newTestStore("")
	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "", time.Now()))

	_, err := s.Refresh(context.Background(), "acct1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no refresh token")
}

func TestStore_Refresh_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "upstream unavailable")
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	require.NoError(t, s.SaveGmailToken("acct1", "access-1", "refresh-1", time.Now()))

	_, err := s.Refresh(context.Background(), "acct1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestStore_Passwords(t *testing.T) {
	s := newTestStore("")

	require.NoError(t, s.SetPassword("acct2", "hunter2"))

	password, err := s.Password(context.Background(), "acct2")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	_, err = s.Password(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestStore_ProviderKeys(t *testing.T) {
	s := newTestStore("")

	// Missing keys read as empty, the llm layer reports the absence.
	assert.Equal(t, "", s.ProviderKey(model.ProviderOpenAI))

	require.NoError(t, s.SetProviderKey(model.ProviderOpenAI, "sk-test"))
	assert.Equal(t, "sk-test", s.ProviderKey(model.ProviderOpenAI))
}
