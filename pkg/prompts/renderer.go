// Package prompts renders the generation prompts from an embedded YAML catalogue.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalogue []byte

// Name identifies a prompt in the catalogue.
type Name string

const (
	// SolarScore asks for a bare 1-100 integer.
	SolarScore Name = "solar_score"
	// RooftopLayout asks for an aerial image with a panel layout.
	RooftopLayout Name = "rooftop_layout"
	// ProposalSummary asks for the markdown proposal.
	ProposalSummary Name = "proposal_summary"
	// SavingsInfographic asks for the bill comparison chart.
	SavingsInfographic Name = "savings_infographic"
)

// Required lists every prompt the gateway renders.
var Required = []Name{SolarScore, RooftopLayout, ProposalSummary, SavingsInfographic} //nolint:gochecknoglobals

// Data holds the values substituted into prompt templates.
type Data struct {
	Address     string
	EnergyNeeds string
	Score       string
}

type catalogueFile struct {
	Prompts map[Name]struct {
		Description string `yaml:"description"`
		Template    string `yaml:"template"`
	} `yaml:"prompts"`
	Version int `yaml:"version"`
}

// Renderer executes parsed prompt templates.
type Renderer struct {
	templates map[Name]*template.Template
}

// NewRenderer parses the embedded catalogue.
func NewRenderer() (*Renderer, error) {
	return Parse(defaultCatalogue)
}

// NewRendererFromFile parses a catalogue from disk. Prompts missing from the file
// fall back to the embedded defaults.
func NewRendererFromFile(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalogue %s: %w", path, err)
	}

	base, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	override, err := parse(data, false)
	if err != nil {
		return nil, fmt.Errorf("prompt catalogue %s: %w", path, err)
	}
	for name, tmpl := range override.templates {
		base.templates[name] = tmpl
	}
	return base, nil
}

// Parse builds a renderer from catalogue YAML. Every Required prompt must be present.
func Parse(data []byte) (*Renderer, error) {
	return parse(data, true)
}

func parse(data []byte, requireAll bool) (*Renderer, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalogue: %w", err)
	}

	r := &Renderer{templates: make(map[Name]*template.Template, len(file.Prompts))}
	for name, entry := range file.Prompts {
		if entry.Template == "" {
			return nil, fmt.Errorf("prompt %s has an empty template", name)
		}
		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(entry.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	if requireAll {
		for _, name := range Required {
			if _, ok := r.templates[name]; !ok {
				return nil, fmt.Errorf("prompt catalogue is missing %s", name)
			}
		}
	}
	return r, nil
}

// Render executes the named prompt with data.
func (r *Renderer) Render(name Name, data Data) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// MustNewRenderer parses the embedded catalogue and panics on failure.
// The catalogue ships with the binary, so failure is a build defect.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}
