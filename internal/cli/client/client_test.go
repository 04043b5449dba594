package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPIServer answers every request with the given status and raw body and records the last request
type mockAPIServer struct {
	*httptest.Server
	lastRequest *http.Request
	lastBody    map[string]any
}

func newMockAPIServer(t *testing.T, status int, body string) *mockAPIServer {
	t.Helper()

	m := &mockAPIServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.lastRequest = r
		m.lastBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&m.lastBody)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(m.Close)
	return m
}

func newTestClient(m *mockAPIServer) *Client {
	c := New(m.URL+"/", false)
	c.SetHTTPClient(m.Client())
	return c
}

func TestLogin_Success(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{"token":"tok1","user":{"id":"u1","email":"a@b.com","name":"A"},"tenant":null}}`)
	c := newTestClient(m)

	resp, err := c.Login(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "tok1", resp.Token)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Nil(t, resp.Tenant)

	assert.Equal(t, http.MethodPost, m.lastRequest.Method)
	assert.Equal(t, "/api/auth/login", m.lastRequest.URL.Path)
	assert.Empty(t, m.lastRequest.Header.Get("Authorization"))
	assert.Equal(t, "a@b.com", m.lastBody["email"])
}

func TestLogin_401IsNotAuthRejected(t *testing.T) {
	m := newMockAPIServer(t, http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
	c := newTestClient(m)

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, KindRequestFailed, KindOf(err))
	assert.False(t, IsAuthRejected(err))
}

func TestMe_SendsBearerToken(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{"user":{"id":"u1"},"tenant":{"id":"t1","name":"Acme"}}}`)
	c := newTestClient(m)

	identity, err := c.Me(context.Background(), "tok1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok1", m.lastRequest.Header.Get("Authorization"))
	assert.Equal(t, "u1", identity.User.ID)
	assert.Equal(t, "Acme", identity.Tenant.Name)
}

func TestDecode_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"401 on authenticated call", http.StatusUnauthorized, `{"error":"Session has ended"}`, KindAuthRejected, "Session has ended"},
		{"401 without envelope", http.StatusUnauthorized, `<html>nope</html>`, KindAuthRejected, "Your session has expired, please log in again"},
		{"400 is validation", http.StatusBadRequest, `{"error":"tenant_id is required"}`, KindValidation, "tenant_id is required"},
		{"422 is validation", http.StatusUnprocessableEntity, `{"error":"bad"}`, KindValidation, "bad"},
		{"403 is request failed", http.StatusForbidden, `{"error":"You are not a member of this organization"}`, KindRequestFailed, "You are not a member of this organization"},
		{"500 with empty message", http.StatusInternalServerError, `{"error":""}`, KindRequestFailed, genericMessage},
		{"502 html body", http.StatusBadGateway, `<html>bad gateway</html>`, KindRequestFailed, genericMessage},
		{"200 without data key", http.StatusOK, `{"tenant":{"id":"t1"}}`, KindRequestFailed, genericMessage},
		{"200 with undecodable data", http.StatusOK, `{"data":"not an object"}`, KindRequestFailed, genericMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockAPIServer(t, tt.status, tt.body)
			c := newTestClient(m)

			_, err := c.SwitchTenant(context.Background(), "tok1", "t1")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestSwitchTenant(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{"tenant":{"id":"org-42","name":"Acme"},"token":"tok2"}}`)
	c := newTestClient(m)

	resp, err := c.SwitchTenant(context.Background(), "tok1", "org-42")
	require.NoError(t, err)

	assert.Equal(t, "org-42", m.lastBody["tenant_id"])
	assert.Equal(t, "org-42", resp.Tenant.ID)
	assert.Equal(t, "tok2", resp.Token)
}

func TestUpdateProfile_OmitsNilFields(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{"id":"u1","name":"New"}}`)
	c := newTestClient(m)

	name := "New"
	user, err := c.UpdateProfile(context.Background(), "tok1", ProfileUpdate{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, m.lastRequest.Method)
	assert.Equal(t, map[string]any{"name": "New"}, m.lastBody)
	assert.Equal(t, "New", user.Name)
}

func TestRegisterAndPasswordFlows(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{}}`)
	c := newTestClient(m)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, RegisterRequest{Name: "A", Email: "a@b.com", Password: "password1", Role: "ZZP"}))
	assert.Equal(t, "/api/auth/register", m.lastRequest.URL.Path)
	assert.NotContains(t, m.lastBody, "organization_name")

	require.NoError(t, c.ForgotPassword(ctx, "a@b.com"))
	assert.Equal(t, "/api/auth/forgot-password", m.lastRequest.URL.Path)

	require.NoError(t, c.ResetPassword(ctx, "reset-token", "newpassword"))
	assert.Equal(t, "/api/auth/reset-password", m.lastRequest.URL.Path)
	assert.Equal(t, "reset-token", m.lastBody["token"])

	require.NoError(t, c.VerifyEmail(ctx, "verify-token"))
	assert.Equal(t, "/api/auth/verify-email", m.lastRequest.URL.Path)
}

func TestListTenants(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":[{"id":"t1","name":"Acme","role":"owner"},{"id":"t2","name":"Globex"}]}`)
	c := newTestClient(m)

	tenants, err := c.ListTenants(context.Background(), "tok1")
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "owner", tenants[0].Role)
	assert.Equal(t, "/api/tenants", m.lastRequest.URL.Path)
}

func TestTransportFailure(t *testing.T) {
	m := newMockAPIServer(t, http.StatusOK, `{"data":{}}`)
	c := newTestClient(m)
	m.Close()

	err := c.Logout(context.Background(), "tok1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestFailed))
	assert.Zero(t, err.(*Error).Status)
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewError(KindValidation, "email is required")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrAuthRejected))
	assert.Equal(t, KindRequestFailed, KindOf(errors.New("plain")))
}
