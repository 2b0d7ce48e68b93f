package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const (
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	defaultConfigFile  = "config.yaml"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Coursecraft",
	Long:  `Configure API keys, create directories, and write config.yaml and .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupChoices collects the answers that end up in config.yaml.
type setupChoices struct {
	llm     string
	speech  string
	storage string
	bucket  string
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎓 Coursecraft Setup"))

	env := make(map[string]string)
	choices := &setupChoices{}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Creating directories", createDirectories},
		{"Choosing providers", func() error { return chooseProviders(choices) }},
		{"Configuring Google Cloud", func() error { return configureGCP(cmd.Context(), env, choices) }},
		{"Configuring API keys", func() error { return configureKeys(env, choices) }},
		{"Writing config.yaml", func() error { return writeConfigFile(choices) }},
		{"Writing .env", func() error { return writeEnvFile(env) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps()
	return nil
}

func createDirectories() error {
	dirs := []string{filepath.Join("public", "audio")}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func chooseProviders(choices *setupChoices) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language model").
				Options(
					huh.NewOption("Groq", "groq"),
					huh.NewOption("OpenAI (strict JSON schema)", "openai"),
				).
				Value(&choices.llm),
			huh.NewSelect[string]().
				Title("Narration voice").
				Options(
					huh.NewOption("Silent stub (no API key)", "stub"),
					huh.NewOption("ElevenLabs", "elevenlabs"),
					huh.NewOption("Fonada", "fonada"),
					huh.NewOption("Google Cloud Text-to-Speech", "google"),
				).
				Value(&choices.speech),
			huh.NewSelect[string]().
				Title("Audio storage").
				Options(
					huh.NewOption("Local ./public directory", "local"),
					huh.NewOption("Google Cloud Storage bucket", "gcs"),
				).
				Value(&choices.storage),
		),
	)
	return form.Run()
}

func needsGCP(choices *setupChoices) bool {
	return choices.speech == "google" || choices.storage == "gcs"
}

func configureGCP(ctx context.Context, env map[string]string, choices *setupChoices) error {
	if !needsGCP(choices) {
		var useSecrets bool
		if err := huh.NewConfirm().
			Title("Setup Google Cloud anyway?").
			Description("Lets API keys be read from Secret Manager").
			Value(&useSecrets).
			Run(); err != nil || !useSecrets {
			return err
		}
	}

	if err := checkCredentials(ctx); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Application default credentials not found: %v", err)))
		if commandExists("gcloud") {
			_ = runWithSpinner("Logging in to Google Cloud", func() error {
				return runSetupCmd("gcloud", "auth", "application-default", "login")
			})
		} else {
			fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		}
	}

	project := activeProject(ctx)
	if err := huh.NewInput().
		Title("Google Cloud project ID").
		Value(&project).
		Run(); err != nil {
		return err
	}
	project = strings.TrimSpace(project)
	if project == "" {
		fmt.Println(warnStyle.Render("No project set, skipping Google Cloud"))
		return nil
	}
	env["GOOGLE_CLOUD_PROJECT"] = project

	if commandExists("gcloud") {
		if err := enableGCPAPIs(project); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
		}
	}

	if choices.storage == "gcs" {
		if err := huh.NewInput().
			Title("GCS bucket for audio").
			Value(&choices.bucket).
			Validate(required("Bucket")).
			Run(); err != nil {
			return err
		}
		env["GCS_BUCKET"] = strings.TrimSpace(choices.bucket)
	}
	return nil
}

func checkCredentials(ctx context.Context) error {
	_, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Found application default credentials"))
	return nil
}

// activeProject prefers the project of the default credentials, then gcloud.
func activeProject(ctx context.Context) string {
	if creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope); err == nil && creds.ProjectID != "" {
		return creds.ProjectID
	}
	if !commandExists("gcloud") {
		return ""
	}
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"texttospeech.googleapis.com",
		"storage.googleapis.com",
		"secretmanager.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func configureKeys(env map[string]string, choices *setupChoices) error {
	var fields []huh.Field
	values := map[string]*string{}

	addKey := func(envName, title, link string, validate bool) {
		v := new(string)
		values[envName] = v
		in := huh.NewInput().
			Title(title).
			Description(link).
			EchoMode(huh.EchoModePassword).
			Value(v)
		if validate {
			in = in.Validate(required(title))
		}
		fields = append(fields, in)
	}

	switch choices.llm {
	case "openai":
		addKey("OPENAI_API_KEY", "OpenAI API Key", "https://platform.openai.com/api-keys", true)
	default:
		addKey("GROQ_API_KEY", "GROQ API Key", "https://console.groq.com/keys", true)
	}
	switch choices.speech {
	case "elevenlabs":
		addKey("ELEVENLABS_API_KEY", "ElevenLabs API Key(s)", "Comma separated keys rotate on quota errors", true)
	case "fonada":
		addKey("FONADA_API_KEY", "Fonada API Key", "https://fonada.ai", true)
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}
	for name, v := range values {
		if s := strings.TrimSpace(*v); s != "" {
			env[name] = s
		}
	}
	return nil
}

func writeConfigFile(choices *setupChoices) error {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing " + defaultConfigFile).
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing " + defaultConfigFile))
			return nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "llm:\n  provider: %s\n", choices.llm)
	fmt.Fprintf(&b, "speech:\n  provider: %s\n  pacing: 100ms\n  timeout: 30s\n", choices.speech)
	fmt.Fprintf(&b, "storage:\n  provider: %s\n", choices.storage)
	if choices.storage == "local" {
		b.WriteString("  public_dir: ./public\n")
	}
	b.WriteString("database:\n  driver: sqlite\n")
	b.WriteString("content:\n  fps: 30\n")

	if err := os.WriteFile(defaultConfigFile, []byte(b.String()), 0644); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created " + defaultConfigFile))
	return nil
}

func writeEnvFile(env map[string]string) error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GOOGLE_CLOUD_PROJECT",
		"GROQ_API_KEY",
		"OPENAI_API_KEY",
		"ELEVENLABS_API_KEY",
		"FONADA_API_KEY",
		"GCS_BUCKET",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Run: coursecraft generate -t \"your topic\"")
	fmt.Println("  2. Or serve the API: coursecraft serve")
	fmt.Println("  3. Try demo data: coursecraft seed --owner you")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
