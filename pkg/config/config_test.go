package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(orig) })
	_ = os.Chdir(tmp)
	return tmp
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GROQ_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "FONADA_API_KEY",
		"GOOGLE_CLOUD_PROJECT", "DATABASE_URL", "DATABASE_DRIVER", "REDIS_ADDR",
		"REDIS_PASSWORD", "GCS_BUCKET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)
	tmp := chdirTemp(t)

	yaml := `
llm:
  provider: openai
  temperature: 0.2
openai:
  model: test-model
speech:
  provider: fonada
  pacing: 250ms
  max_retries: 2
content:
  await: true
  fps: 60
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OpenAI.Model != "test-model" {
		t.Errorf("OpenAI.Model = %q, want test-model", cfg.OpenAI.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("LLM.Temperature = %v, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.Speech.Pacing != 250*time.Millisecond {
		t.Errorf("Speech.Pacing = %v, want 250ms", cfg.Speech.Pacing)
	}
	if cfg.Speech.MaxRetries != 2 {
		t.Errorf("Speech.MaxRetries = %d, want 2", cfg.Speech.MaxRetries)
	}
	if !cfg.Content.Await || cfg.Content.FPS != 60 {
		t.Errorf("Content = %+v, want await and fps 60", cfg.Content)
	}
	if cfg.Fonada.Voice != "Vaanee" {
		t.Errorf("Fonada.Voice = %q, want Vaanee", cfg.Fonada.Voice)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("{}"), 0644)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LLM.Provider != "groq" {
		t.Errorf("LLM.Provider = %q, want groq", cfg.LLM.Provider)
	}
	if cfg.Speech.Provider != "stub" {
		t.Errorf("Speech.Provider = %q, want stub", cfg.Speech.Provider)
	}
	if cfg.Speech.Pacing != 100*time.Millisecond {
		t.Errorf("Speech.Pacing = %v, want 100ms", cfg.Speech.Pacing)
	}
	if cfg.Speech.Timeout != 30*time.Second {
		t.Errorf("Speech.Timeout = %v, want 30s", cfg.Speech.Timeout)
	}
	if cfg.Speech.MaxRetries != 0 {
		t.Errorf("Speech.MaxRetries = %d, want 0", cfg.Speech.MaxRetries)
	}
	if cfg.Content.FPS != 30 {
		t.Errorf("Content.FPS = %d, want 30", cfg.Content.FPS)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN == "" {
		t.Errorf("Database = %+v, want sqlite with dsn", cfg.Database)
	}
	if cfg.Storage.Provider != "local" || cfg.Storage.PublicDir != "./public" {
		t.Errorf("Storage = %+v, want local ./public", cfg.Storage)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("groq:\n  model: x"), 0644)

	t.Setenv("GROQ_API_KEY", "test-groq")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("ELEVENLABS_API_KEY", "k1, k2,")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/coursecraft")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.GroqAPIKey != "test-groq" {
		t.Errorf("GroqAPIKey = %q, want test-groq", cfg.GroqAPIKey)
	}
	if cfg.GCPProject != "test-project" {
		t.Errorf("GCPProject = %q, want test-project", cfg.GCPProject)
	}
	if len(cfg.ElevenLabsAPIKeys) != 2 || cfg.ElevenLabsAPIKeys[1] != "k2" {
		t.Errorf("ElevenLabsAPIKeys = %v, want [k1 k2]", cfg.ElevenLabsAPIKeys)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/coursecraft" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.LLMAPIKey() != "test-groq" {
		t.Errorf("LLMAPIKey() = %q, want test-groq", cfg.LLMAPIKey())
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Load() should fail when config.yaml missing")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown llm", "llm:\n  provider: bard"},
		{"unknown speech", "speech:\n  provider: espeak"},
		{"gcs without bucket", "storage:\n  provider: gcs"},
		{"unknown driver", "database:\n  driver: mysql\n  dsn: x"},
		{"postgres without dsn", "database:\n  driver: postgres"},
		{"negative retries", "speech:\n  max_retries: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tmp := chdirTemp(t)
			_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(tt.yaml), 0644)

			if _, err := Load(context.Background()); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

type fakeSecrets struct {
	values   map[string]string
	accessed []string
	closed   bool
}

func (f *fakeSecrets) Access(_ context.Context, name string) (string, error) {
	f.accessed = append(f.accessed, name)
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeSecrets) Close() error {
	f.closed = true
	return nil
}

func TestResolveSecrets(t *testing.T) {
	clearEnv(t)
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("secrets:\n  enabled: true\n"), 0644)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")
	t.Setenv("OPENAI_API_KEY", "from-env")

	fake := &fakeSecrets{values: map[string]string{
		"projects/proj/secrets/groq-api-key/versions/latest":       "from-secret",
		"projects/proj/secrets/elevenlabs-api-key/versions/latest": "a,b",
	}}
	orig := newSecretSource
	newSecretSource = func(context.Context) (secretSource, error) { return fake, nil }
	t.Cleanup(func() { newSecretSource = orig })

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.GroqAPIKey != "from-secret" {
		t.Errorf("GroqAPIKey = %q, want from-secret", cfg.GroqAPIKey)
	}
	if cfg.OpenAIAPIKey != "from-env" {
		t.Errorf("OpenAIAPIKey = %q, want from-env", cfg.OpenAIAPIKey)
	}
	if len(cfg.ElevenLabsAPIKeys) != 2 {
		t.Errorf("ElevenLabsAPIKeys = %v, want 2 keys", cfg.ElevenLabsAPIKeys)
	}
	if cfg.FonadaAPIKey != "" {
		t.Errorf("FonadaAPIKey = %q, want empty", cfg.FonadaAPIKey)
	}
	for _, name := range fake.accessed {
		if name == "projects/proj/secrets/openai-api-key/versions/latest" {
			t.Error("secret fetched for key already set in env")
		}
	}
	if !fake.closed {
		t.Error("secret source not closed")
	}
}

func TestResolveSecretsRequiresProject(t *testing.T) {
	clearEnv(t)
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("secrets:\n  enabled: true\n"), 0644)

	if _, err := Load(context.Background()); err == nil {
		t.Error("Load() should fail without a project id")
	}
}
