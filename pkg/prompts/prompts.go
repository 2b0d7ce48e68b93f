package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Course CoursePrompts `yaml:"course"`
}

type SystemPrompts struct {
	Outline string `yaml:"outline"`
	Slides  string `yaml:"slides"`
}

type CoursePrompts struct {
	Outline string `yaml:"outline"`
	Slides  string `yaml:"slides"`
}

type OutlineParams struct {
	Topic        string
	MaxChapters  int
	MaxSubTopics int
}

type SlidesParams struct {
	CourseName   string
	ChapterTitle string
	SubTopics    []string
	MinSlides    int
	MaxSlides    int
}

// Load reads prompts.yaml from the working directory, falling back to the
// built-in prompts when the file does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	p, err := parse(data)
	if err != nil {
		return nil, err
	}
	return p.withDefaults()
}

func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

// withDefaults fills prompts missing from a user file with the built-in ones.
func (p *Prompts) withDefaults() (*Prompts, error) {
	def, err := Default()
	if err != nil {
		return nil, err
	}
	if p.System.Outline == "" {
		p.System.Outline = def.System.Outline
	}
	if p.System.Slides == "" {
		p.System.Slides = def.System.Slides
	}
	if p.Course.Outline == "" {
		p.Course.Outline = def.Course.Outline
	}
	if p.Course.Slides == "" {
		p.Course.Slides = def.Course.Slides
	}
	return p, nil
}

func (p *Prompts) RenderOutlineSystem(params OutlineParams) (string, error) {
	return render(p.System.Outline, params)
}

func (p *Prompts) RenderOutline(params OutlineParams) (string, error) {
	return render(p.Course.Outline, params)
}

func (p *Prompts) RenderSlidesSystem(params SlidesParams) (string, error) {
	return render(p.System.Slides, params)
}

func (p *Prompts) RenderSlides(params SlidesParams) (string, error) {
	return render(p.Course.Slides, params)
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
