package serverselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub-dev/staffhub/internal/cli/config"
	"github.com/staffhub-dev/staffhub/internal/cli/userconfig"
)

func twoServers() *config.Config {
	return &config.Config{Servers: []config.Server{
		{URL: "https://a.staffhub.nl", Alias: "a"},
		{URL: "https://b.staffhub.nl", Alias: "b"},
	}}
}

func TestResolveServer_AliasWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("https://a.staffhub.nl"))

	server, err := ResolveServer(twoServers(), "b")
	require.NoError(t, err)
	assert.Equal(t, "https://b.staffhub.nl", server.URL)

	_, err = ResolveServer(twoServers(), "missing")
	assert.Error(t, err)
}

func TestResolveServer_SelectedServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("https://b.staffhub.nl"))

	server, err := ResolveServer(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "b", server.Alias)
}

func TestResolveServer_SingleServerIsRemembered(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	// A stale selection is cleared and the only server is used
	require.NoError(t, userconfig.SetSelectedServer("https://gone.staffhub.nl"))

	cfg := &config.Config{Servers: []config.Server{{URL: "https://only.staffhub.nl", Alias: "only"}}}
	server, err := ResolveServer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "only", server.Alias)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "https://only.staffhub.nl", selected)
}

func TestPromptTenantSelection_Empty(t *testing.T) {
	_, err := PromptTenantSelection(nil, "")
	assert.Error(t, err)
}
