package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptConfig holds the prompts and sampling parameters of both operations
type PromptConfig struct {
	Extraction struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		System      string  `yaml:"system"`
		User        string  `yaml:"user"`
	} `yaml:"extraction"`

	Assistant struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"assistant"`

	assistantTmpl *template.Template
}

// DefaultPrompts returns the embedded prompt configuration
func DefaultPrompts() *PromptConfig {
	p, err := parsePrompts(defaultPrompts, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return p
}

// LoadPrompts reads prompts from a YAML file layered over the defaults.
// An empty path returns DefaultPrompts.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	if promptsPath == "" {
		return DefaultPrompts(), nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parsePrompts(data, DefaultPrompts())
}

func parsePrompts(data []byte, base *PromptConfig) (*PromptConfig, error) {
	var prompts PromptConfig
	if base != nil {
		prompts = *base
	}
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	tmpl, err := template.New("assistant").Parse(prompts.Assistant.UserTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse assistant template: %w", err)
	}
	prompts.assistantTmpl = tmpl
	return &prompts, nil
}

// renderQuestion fills the assistant user template
func (p *PromptConfig) renderQuestion(contextJSON, question string) (string, error) {
	var buf bytes.Buffer
	err := p.assistantTmpl.Execute(&buf, struct {
		Context  string
		Question string
	}{contextJSON, question})
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
