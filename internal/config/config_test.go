package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so a developer's .env
// file does not leak into the result.
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	for _, k := range []string{"STYLIST_PORT", "STYLIST_LLM_PROVIDER", "STYLIST_CLASSIFIER", "STYLIST_STORE", "STYLIST_STRICT_PERSIST"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, ProviderGemini, cfg.Provider)
	require.Equal(t, "llm", cfg.Classifier)
	require.Equal(t, StoreMemory, cfg.Store)
	require.False(t, cfg.StrictPersist)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STYLIST_PORT", "9090")
	t.Setenv("STYLIST_LLM_PROVIDER", " Anthropic ")
	t.Setenv("STYLIST_CLASSIFIER", "hybrid")
	t.Setenv("STYLIST_STORE", "sqlite")
	t.Setenv("STYLIST_STRICT_PERSIST", "true")
	t.Setenv("STYLIST_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, ProviderAnthropic, cfg.Provider)
	require.Equal(t, "hybrid", cfg.Classifier)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.True(t, cfg.StrictPersist)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	os.Unsetenv("STYLIST_CLASSIFIER")
	t.Cleanup(func() { os.Unsetenv("STYLIST_CLASSIFIER") })
	require.NoError(t, os.WriteFile(".env", []byte("STYLIST_CLASSIFIER=keyword\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "keyword", cfg.Classifier)
}

func TestValidate(t *testing.T) {
	base := Config{Provider: ProviderGemini, Classifier: "llm", Store: StoreMemory}
	require.NoError(t, base.Validate())

	bad := base
	bad.Provider = "openai"
	require.Error(t, bad.Validate())

	bad = base
	bad.Classifier = "regex"
	require.Error(t, bad.Validate())

	bad = base
	bad.Store = StoreDynamo
	require.Error(t, bad.Validate())
	bad.DynamoTable = "stylist"
	require.NoError(t, bad.Validate())
}

func TestLexicon(t *testing.T) {
	lex, err := Config{}.Lexicon()
	require.NoError(t, err)
	require.NotEmpty(t, lex.Triggers)

	path := filepath.Join(t.TempDir(), "lex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("triggers:\n  - phrase: lack\n    direction: after\n"), 0o600))
	lex, err = Config{LexiconPath: path}.Lexicon()
	require.NoError(t, err)
	require.Len(t, lex.Triggers, 1)
}
