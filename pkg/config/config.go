package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "config.yaml"
	defaultLLMProvider     = "groq"
	defaultGroqModel       = "llama-3.3-70b-versatile"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultTemperature     = 0.7
	defaultSpeechProvider  = "stub"
	defaultSpeechPacing    = 100 * time.Millisecond
	defaultSpeechTimeout   = 30 * time.Second
	defaultElevenLabsVoice = "JBFqnCBsd6RMkjVDRZzb"
	defaultElevenLabsModel = "eleven_flash_v2_5"
	defaultStability       = 0.5
	defaultSimilarity      = 0.5
	defaultFonadaVoice     = "Vaanee"
	defaultFonadaLanguage  = "English"
	defaultGoogleVoice     = "en-US-Chirp3-HD-Charon"
	defaultGoogleLanguage  = "en-US"
	defaultStorageProvider = "local"
	defaultPublicDir       = "./public"
	defaultURLPrefix       = "/"
	defaultDatabaseDriver  = "sqlite"
	defaultDatabaseDSN     = "coursecraft.db?_foreign_keys=on&_busy_timeout=5000"
	defaultRedisPrefix     = "coursecraft:lock:"
	defaultServerPort      = 8080
	defaultFPS             = 30
	defaultLockTTL         = 10 * time.Minute
	defaultTracingService  = "coursecraft"
)

type Config struct {
	GroqAPIKey        string
	OpenAIAPIKey      string
	ElevenLabsAPIKeys []string
	FonadaAPIKey      string
	GCPProject        string

	LLM        LLMConfig        `yaml:"llm"`
	Groq       ModelConfig      `yaml:"groq"`
	OpenAI     ModelConfig      `yaml:"openai"`
	Speech     SpeechConfig     `yaml:"speech"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Fonada     FonadaConfig     `yaml:"fonada"`
	GoogleTTS  GoogleTTSConfig  `yaml:"google_tts"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Server     ServerConfig     `yaml:"server"`
	Content    ContentConfig    `yaml:"content"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Secrets    SecretsConfig    `yaml:"secrets"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "groq" or "openai"
	Temperature float64 `yaml:"temperature"`
}

type ModelConfig struct {
	Model string `yaml:"model"`
}

type SpeechConfig struct {
	Provider   string        `yaml:"provider"` // "stub", "elevenlabs", "fonada" or "google"
	Pacing     time.Duration `yaml:"pacing"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type ElevenLabsConfig struct {
	VoiceID    string  `yaml:"voice_id"`
	Model      string  `yaml:"model"`
	Speed      float64 `yaml:"speed"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
}

type FonadaConfig struct {
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`
}

type GoogleTTSConfig struct {
	Voice        string  `yaml:"voice"`
	LanguageCode string  `yaml:"language_code"`
	SpeakingRate float64 `yaml:"speaking_rate"`
}

type StorageConfig struct {
	Provider      string `yaml:"provider"` // "local" or "gcs"
	PublicDir     string `yaml:"public_dir"`
	URLPrefix     string `yaml:"url_prefix"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type ContentConfig struct {
	Await   bool          `yaml:"await"`
	FPS     int           `yaml:"fps"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// SecretsConfig maps config keys to Secret Manager secret names. Secrets are
// only consulted for keys still empty after .env and the environment.
type SecretsConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Names     map[string]string `yaml:"names"`
	ProjectID string            `yaml:"project_id"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKeys: splitKeys(os.Getenv("ELEVENLABS_API_KEY")),
		FonadaAPIKey:      os.Getenv("FONADA_API_KEY"),
		GCPProject:        os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Database.DSN = getEnvOrDefault("DATABASE_URL", cfg.Database.DSN)
	cfg.Database.Driver = getEnvOrDefault("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Storage.Bucket = getEnvOrDefault("GCS_BUCKET", cfg.Storage.Bucket)
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applySpeechDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyFonadaDefaults(cfg)
	applyGoogleTTSDefaults(cfg)
	applyStorageDefaults(cfg)
	applyDatabaseDefaults(cfg)
	applyRedisDefaults(cfg)
	applyServerDefaults(cfg)
	applyContentDefaults(cfg)
	applyTracingDefaults(cfg)
	applySecretsDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultLLMProvider
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
}

func applySpeechDefaults(cfg *Config) {
	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = defaultSpeechProvider
	}
	if cfg.Speech.Pacing == 0 {
		cfg.Speech.Pacing = defaultSpeechPacing
	}
	if cfg.Speech.Timeout == 0 {
		cfg.Speech.Timeout = defaultSpeechTimeout
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.VoiceID == "" {
		cfg.ElevenLabs.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyFonadaDefaults(cfg *Config) {
	if cfg.Fonada.Voice == "" {
		cfg.Fonada.Voice = defaultFonadaVoice
	}
	if cfg.Fonada.Language == "" {
		cfg.Fonada.Language = defaultFonadaLanguage
	}
}

func applyGoogleTTSDefaults(cfg *Config) {
	if cfg.GoogleTTS.Voice == "" {
		cfg.GoogleTTS.Voice = defaultGoogleVoice
	}
	if cfg.GoogleTTS.LanguageCode == "" {
		cfg.GoogleTTS.LanguageCode = defaultGoogleLanguage
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaultStorageProvider
	}
	if cfg.Storage.PublicDir == "" {
		cfg.Storage.PublicDir = defaultPublicDir
	}
	if cfg.Storage.URLPrefix == "" {
		cfg.Storage.URLPrefix = defaultURLPrefix
	}
}

func applyDatabaseDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDatabaseDriver
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == defaultDatabaseDriver {
		cfg.Database.DSN = defaultDatabaseDSN
	}
}

func applyRedisDefaults(cfg *Config) {
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = defaultRedisPrefix
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
}

func applyContentDefaults(cfg *Config) {
	if cfg.Content.FPS == 0 {
		cfg.Content.FPS = defaultFPS
	}
	if cfg.Content.LockTTL == 0 {
		cfg.Content.LockTTL = defaultLockTTL
	}
}

func applyTracingDefaults(cfg *Config) {
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = defaultTracingService
	}
}

func applySecretsDefaults(cfg *Config) {
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.GCPProject
	}
	if cfg.Secrets.Names == nil {
		cfg.Secrets.Names = map[string]string{}
	}
	defaults := map[string]string{
		"groq":       "groq-api-key",
		"openai":     "openai-api-key",
		"elevenlabs": "elevenlabs-api-key",
		"fonada":     "fonada-api-key",
	}
	for k, v := range defaults {
		if cfg.Secrets.Names[k] == "" {
			cfg.Secrets.Names[k] = v
		}
	}
}

// Validate checks the provider selections and the keys they need.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "groq", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Speech.Provider {
	case "stub", "elevenlabs", "fonada", "google":
	default:
		return fmt.Errorf("unknown speech provider %q", c.Speech.Provider)
	}
	switch c.Storage.Provider {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage provider gcs requires a bucket")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
	}
	if c.Speech.MaxRetries < 0 {
		return fmt.Errorf("speech.max_retries must not be negative")
	}
	return nil
}

// LLMAPIKey returns the key for the selected LLM provider.
func (c *Config) LLMAPIKey() string {
	if c.LLM.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GroqAPIKey
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
