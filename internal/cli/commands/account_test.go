package commands

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub-dev/staffhub/internal/cli/session"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	var sent map[string]any
	env.api.handle("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		sent = decodeBody(t, r)
		writeData(w, http.StatusCreated, map[string]any{})
	})

	cmd := NewRegisterCmd(WithServer(env.options().server), WithStore(env.store), WithOutput(env.out))
	cmd.SetArgs([]string{
		"--name", "Sanne", "--email", "sanne@acme.nl", "--password", "password123",
		"--organization", "Acme", "--role", "bedrijf",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "BEDRIJF", sent["role"])
	assert.Equal(t, "Acme", sent["organization_name"])
	assert.Contains(t, env.out.String(), "Account created for sanne@acme.nl")

	// Registering never signs in
	assert.Empty(t, env.store.get(env.api.URL))
}

func TestRegister_ValidatedLocally(t *testing.T) {
	tests := []struct {
		name string
		data session.RegisterData
		want string
	}{
		{
			name: "missing name",
			data: session.RegisterData{Email: "a@b.nl", Password: "password123", Role: session.RoleFreelancer},
			want: "name is required",
		},
		{
			name: "short password",
			data: session.RegisterData{Name: "A", Email: "a@b.nl", Password: "short", Role: session.RoleFreelancer},
			want: "password must be at least 8 characters",
		},
		{
			name: "unknown role",
			data: session.RegisterData{Name: "A", Email: "a@b.nl", Password: "password123", Role: "ADMIN"},
			want: "role must be one of BEDRIJF, BUREAU, ZZP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			err := runRegister(context.Background(), env.options(), tt.data)
			require.Error(t, err)
			assert.Equal(t, "registration failed: "+tt.want, err.Error())
			assert.False(t, env.api.called("POST /api/auth/register"))
		})
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.api.handle("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "An account with this email already exists")
	})

	err := runRegister(context.Background(), env.options(), session.RegisterData{
		Name: "Sanne", Email: "sanne@acme.nl", Password: "password123", Role: session.RoleBureau,
	})
	require.Error(t, err)
	assert.Equal(t, "registration failed: An account with this email already exists", err.Error())
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	env.api.handle("POST /api/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sanne@acme.nl", decodeBody(t, r)["email"])
		writeData(w, http.StatusOK, map[string]any{})
	})

	require.NoError(t, runForgotPassword(context.Background(), env.options(), "sanne@acme.nl"))
	assert.Contains(t, env.out.String(), "a reset link is on its way")
}

func TestForgotPassword_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	err := runForgotPassword(context.Background(), env.options(), "sanne")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")
}

func TestResetPassword_Prompt(t *testing.T) {
	env := newTestEnv(t)

	var sent map[string]any
	env.api.handle("POST /api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		sent = decodeBody(t, r)
		writeData(w, http.StatusOK, map[string]any{})
	})

	var labels []string
	prompt := WithPasswordPrompt(func(label string) (string, error) {
		labels = append(labels, label)
		return "new-password", nil
	})

	require.NoError(t, runResetPassword(context.Background(), env.options(prompt), "reset-tok", ""))

	assert.Equal(t, []string{"New password", "Repeat new password"}, labels)
	assert.Equal(t, "reset-tok", sent["token"])
	assert.Equal(t, "new-password", sent["password"])
	assert.Contains(t, env.out.String(), "Password updated")
}

func TestResetPassword_Mismatch(t *testing.T) {
	env := newTestEnv(t)

	answers := []string{"new-password", "other-password"}
	prompt := WithPasswordPrompt(func(string) (string, error) {
		answer := answers[0]
		answers = answers[1:]
		return answer, nil
	})

	err := runResetPassword(context.Background(), env.options(prompt), "reset-tok", "")
	require.EqualError(t, err, "passwords do not match")
	assert.False(t, env.api.called("POST /api/auth/reset-password"))
}

func TestResetPassword_ExpiredLink(t *testing.T) {
	env := newTestEnv(t)
	env.api.handle("POST /api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link")
	})

	err := runResetPassword(context.Background(), env.options(), "old-tok", "new-password")
	require.Error(t, err)
	assert.Equal(t, "password reset failed: Invalid or expired reset link", err.Error())
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	env.api.handle("POST /api/auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		if decodeBody(t, r)["token"] != "verify-tok" {
			writeError(w, http.StatusBadRequest, "Invalid or expired verification link")
			return
		}
		writeData(w, http.StatusOK, map[string]any{})
	})

	require.NoError(t, runVerifyEmail(context.Background(), env.options(), "verify-tok"))
	assert.Contains(t, env.out.String(), "Email verified")

	err := runVerifyEmail(context.Background(), env.options(), "other")
	require.Error(t, err)
	assert.Equal(t, "verification failed: Invalid or expired verification link", err.Error())
}
