package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/staffhub-dev/staffhub/internal/cli/auth"
	"github.com/staffhub-dev/staffhub/internal/cli/config"
)

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]string)}
}

func (m *mockTokenStore) SaveToken(serverURL, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[serverURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(serverURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, exists := m.tokens[serverURL]
	if !exists {
		return "", auth.ErrNotFound
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, serverURL)
	return nil
}

func (m *mockTokenStore) get(serverURL string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[serverURL]
}

// mockAPI is an httptest server with per-route handlers and a record of the calls made
type mockAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu    sync.Mutex
	calls []string
}

func newMockAPI(t *testing.T) *mockAPI {
	t.Helper()

	m := &mockAPI{mux: http.NewServeMux()}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.calls = append(m.calls, r.Method+" "+r.URL.Path)
		m.mu.Unlock()
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockAPI) handle(pattern string, fn http.HandlerFunc) {
	m.mux.HandleFunc(pattern, fn)
}

func (m *mockAPI) called(call string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

// requireBearer answers 401 unless the request carries token
func requireBearer(w http.ResponseWriter, r *http.Request, token string) bool {
	if r.Header.Get("Authorization") != "Bearer "+token {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

var (
	testUser = map[string]any{"id": "u1", "email": "sanne@acme.nl", "name": "Sanne", "user_type": "BEDRIJF"}
	acme     = map[string]any{"id": "org-1", "name": "Acme", "type": "BEDRIJF", "subscription_tier": "FREE", "role": "OWNER"}
	globex   = map[string]any{"id": "org-2", "name": "Globex", "type": "BUREAU", "subscription_tier": "PRO", "role": "MEMBER"}
)

type testEnv struct {
	api   *mockAPI
	store *mockTokenStore
	out   *bytes.Buffer
}

// newTestEnv isolates HOME so the user config is per test
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STAFFHUB_EMAIL", "")
	t.Setenv("STAFFHUB_PASSWORD", "")

	return &testEnv{
		api:   newMockAPI(t),
		store: newMockTokenStore(),
		out:   &bytes.Buffer{},
	}
}

func (e *testEnv) options(extra ...Option) *options {
	opts := []Option{
		WithServer(&config.Server{URL: e.api.URL, Alias: "test"}),
		WithStore(e.store),
		WithOutput(e.out),
		WithPasswordPrompt(func(string) (string, error) {
			return "", errNoPrompt
		}),
	}
	return applyOptions(append(opts, extra...))
}

// signedIn stores tok0 and serves /identity/me for it
func (e *testEnv) signedIn(tenant map[string]any) {
	_ = e.store.SaveToken(e.api.URL, "tok0")
	e.api.handle("GET /api/identity/me", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(w, r, "tok0") {
			return
		}
		writeData(w, http.StatusOK, map[string]any{"user": testUser, "tenant": tenant})
	})
}

var errNoPrompt = errors.New("password is required in non-interactive mode")
