package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

type secretSource interface {
	Access(ctx context.Context, name string) (string, error)
	Close() error
}

var newSecretSource = func(ctx context.Context) (secretSource, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &gcpSecrets{client: client}, nil
}

type gcpSecrets struct {
	client *secretmanager.Client
}

func (g *gcpSecrets) Access(ctx context.Context, name string) (string, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (g *gcpSecrets) Close() error {
	return g.client.Close()
}

func secretVersionName(project, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secret)
}

// resolveSecrets fills API keys that are still empty from Secret Manager.
// A secret that cannot be read is logged and left empty.
func resolveSecrets(ctx context.Context, cfg *Config) error {
	if !cfg.Secrets.Enabled {
		return nil
	}
	if cfg.Secrets.ProjectID == "" {
		return fmt.Errorf("secrets enabled but no project id (set GOOGLE_CLOUD_PROJECT)")
	}

	type target struct {
		name string
		set  func(string)
	}
	var missing []target
	if cfg.GroqAPIKey == "" {
		missing = append(missing, target{"groq", func(v string) { cfg.GroqAPIKey = v }})
	}
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, target{"openai", func(v string) { cfg.OpenAIAPIKey = v }})
	}
	if len(cfg.ElevenLabsAPIKeys) == 0 {
		missing = append(missing, target{"elevenlabs", func(v string) { cfg.ElevenLabsAPIKeys = splitKeys(v) }})
	}
	if cfg.FonadaAPIKey == "" {
		missing = append(missing, target{"fonada", func(v string) { cfg.FonadaAPIKey = v }})
	}
	if len(missing) == 0 {
		return nil
	}

	src, err := newSecretSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	for _, m := range missing {
		secret := cfg.Secrets.Names[m.name]
		if secret == "" {
			continue
		}
		value, err := src.Access(ctx, secretVersionName(cfg.Secrets.ProjectID, secret))
		if err != nil {
			slog.Warn("Secret not available", "secret", secret, "error", err)
			continue
		}
		m.set(value)
		slog.Debug("Loaded secret", "secret", secret)
	}
	return nil
}
