/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package answering

import (
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed prompt.yaml
var defaultPrompt []byte

type Style struct {
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Prompt is the instruction set sent ahead of every transcript.
type Prompt struct {
	System      string `yaml:"system"`
	Opening     string `yaml:"opening"`
	Progress    string `yaml:"progress"`
	FinalChance string `yaml:"final_chance"`
	Style       Style  `yaml:"style"`

	progress *template.Template
}

type progressData struct {
	Asked     int
	Remaining int
	Limit     int
}

// LoadPrompt reads a prompt file, or returns the built-in prompt when path
// is empty.
func LoadPrompt(path string) (*Prompt, error) {
	if path == "" {
		return ParsePrompt(defaultPrompt)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read prompt file")
	}

	p, err := ParsePrompt(b)
	if err != nil {
		return nil, errors.Wrapf(err, "prompt file %s", path)
	}
	return p, nil
}

func ParsePrompt(b []byte) (*Prompt, error) {
	var p Prompt
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, errors.Wrap(err, "parse prompt")
	}

	p.System = strings.TrimSpace(p.System)
	if p.System == "" {
		return nil, errors.New("prompt has no system instructions")
	}

	tmpl, err := template.New("progress").Option("missingkey=error").Parse(p.Progress)
	if err != nil {
		return nil, errors.Wrap(err, "parse progress template")
	}
	p.progress = tmpl

	if p.Style.Temperature <= 0 {
		p.Style.Temperature = 0.7
	}
	if p.Style.TopP <= 0 {
		p.Style.TopP = 0.9
	}
	if p.Style.MaxTokens <= 0 {
		p.Style.MaxTokens = 150
	}

	return &p, nil
}

// Context tells the model where it stands, given how many questions it has
// already asked.
func (p *Prompt) Context(asked, limit int) (string, error) {
	if asked+1 >= limit && p.FinalChance != "" {
		return p.FinalChance, nil
	}

	remaining := limit - asked
	if remaining < 0 {
		remaining = 0
	}

	var b strings.Builder
	if err := p.progress.Execute(&b, progressData{Asked: asked, Remaining: remaining, Limit: limit}); err != nil {
		return "", errors.Wrap(err, "render progress")
	}
	return b.String(), nil
}
