package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `servers:
  - url: https://api.staffhub.nl/
    alias: production
  - url: localhost:8080
    alias: dev
    insecure: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)

	assert.Equal(t, "https://api.staffhub.nl", cfg.Servers[0].URL)
	assert.False(t, cfg.Servers[0].Insecure)
	assert.Equal(t, "https://localhost:8080", cfg.Servers[1].URL)
	assert.True(t, cfg.Servers[1].Insecure)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), JSONConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"servers":[{"url":"http://127.0.0.1:8080","alias":"local"}]}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	server, err := cfg.GetServerByAlias("local")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", server.URL)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("servers: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveRoundTripKeepsFormat(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{ConfigFileName, JSONConfigFileName} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, DefaultConfig("api.staffhub.nl")))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://api.staffhub.nl", cfg.Servers[0].URL)
		assert.Equal(t, "default", cfg.Servers[0].Alias)
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "url: https://api.staffhub.nl")
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), DefaultConfig("https://api.staffhub.nl")))

	t.Chdir(nested)

	path, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, ConfigFileName, filepath.Base(path))

	cfg, err := LoadFromCurrentDir()
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
}

func TestFindConfigFile_Missing(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FindConfigFile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staffhub.yaml not found")
}

func TestServerLookup(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{URL: "https://a.staffhub.nl", Alias: "a"},
		{URL: "https://b.staffhub.nl", Alias: "b"},
	}}

	s, err := cfg.GetServerByURLOrAlias("b")
	require.NoError(t, err)
	assert.Equal(t, "https://b.staffhub.nl", s.URL)

	s, err = cfg.GetServerByURLOrAlias("https://a.staffhub.nl/")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Alias)

	_, err = cfg.GetServerByURLOrAlias("c")
	assert.Error(t, err)

	def, err := cfg.GetDefaultServer()
	require.NoError(t, err)
	assert.Equal(t, "a", def.Alias)

	_, err = (&Config{}).GetDefaultServer()
	assert.Error(t, err)
}

func TestServerValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://api.staffhub.nl", false},
		{"http://localhost:8080", false},
		{"", true},
		{"ftp://api.staffhub.nl", true},
		{"https://", true},
	}

	for _, tt := range tests {
		s := Server{URL: tt.url, Alias: "x"}
		err := s.Validate()
		if tt.wantErr {
			assert.Error(t, err, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}
