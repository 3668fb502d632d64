package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/promptstyle"
)

type Spec struct {
	Name       PromptName
	Version    int
	SchemaName string
	Schema     func() map[string]any
	System     string
	User       string
	Validators []Validator
}

type compiled struct {
	spec   Spec
	system *template.Template
	user   *template.Template
	schema map[string]any
}

// Prompt is a rendered spec ready to send.
type Prompt struct {
	Name       PromptName
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

func (p Prompt) Messages() []llm.Message {
	return []llm.Message{llm.System(p.System), llm.User(p.User)}
}

var (
	registryMu sync.RWMutex
	registry   = map[PromptName]*compiled{}
	registered sync.Once
)

// RegisterSpec compiles and stores a spec, replacing any previous version.
func RegisterSpec(s Spec) {
	c := &compiled{
		spec:   s,
		system: template.Must(template.New(string(s.Name) + ".system").Option("missingkey=zero").Parse(strings.TrimSpace(s.System))),
		user:   template.Must(template.New(string(s.Name) + ".user").Option("missingkey=zero").Parse(strings.TrimSpace(s.User))),
	}
	if s.Schema != nil {
		c.schema = s.Schema()
	}
	registryMu.Lock()
	registry[s.Name] = c
	registryMu.Unlock()
}

// Build validates in and renders the named prompt.
func Build(name PromptName, in Input) (Prompt, error) {
	registered.Do(RegisterAll)

	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Prompt{}, fmt.Errorf("prompts: unknown prompt %q", name)
	}
	for _, v := range c.spec.Validators {
		if err := v(in); err != nil {
			return Prompt{}, fmt.Errorf("prompts: %s: %w", name, err)
		}
	}
	system, err := render(c.system, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("prompts: %s system: %w", name, err)
	}
	user, err := render(c.user, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("prompts: %s user: %w", name, err)
	}
	mode := "text"
	if c.schema != nil {
		mode = "json"
	}
	return Prompt{
		Name:       name,
		Version:    c.spec.Version,
		System:     promptstyle.ApplySystem(system, mode),
		User:       user,
		SchemaName: c.spec.SchemaName,
		Schema:     c.schema,
	}, nil
}

func render(t *template.Template, in Input) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
