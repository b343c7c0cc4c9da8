package oracle

import (
	"strings"
	"sync"

	"github.com/evoforge/evoforge/pkg/errors"
)

// TemplateRegistry is the centralized store of prompt templates. Gene
// packages register their task-specific templates at init time; the adapter
// renders them with the variables a PromptSpec carries.
//
// Templates use {{name}} placeholders. Unreferenced variables are ignored;
// placeholders with no matching variable are left in place so prompt bugs
// are visible in logs rather than silently blanked.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewTemplateRegistry creates a registry preloaded with the shared
// reproduction templates and everything registered via
// RegisterSharedTemplate.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{templates: make(map[string]string)}
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	for name, tmpl := range sharedTemplates {
		r.templates[name] = tmpl
	}
	return r
}

// RegisterSharedTemplate adds a template to the shared preload set. Gene
// packages call this from init so every registry built afterwards carries
// their task templates.
func RegisterSharedTemplate(name, template string) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedTemplates[name] = template
}

var sharedMu sync.RWMutex

// Register adds or replaces a template.
func (r *TemplateRegistry) Register(name, template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = template
}

// Get returns the raw template registered under name.
func (r *TemplateRegistry) Get(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[name]
	if !ok {
		return "", errors.WithFields(
			errors.New(errors.InvalidConfiguration, "prompt template not found"),
			errors.Fields{"template": name})
	}
	return tmpl, nil
}

// Render substitutes variables into the named template.
func (r *TemplateRegistry) Render(name string, variables map[string]string) (string, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return "", err
	}

	rendered := tmpl
	for key, value := range variables {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered, nil
}

// TemplateCrossoverSynthesis merges two parent candidates into one improved
// offspring. Variables: parent_a, parent_b, task.
const TemplateCrossoverSynthesis = "crossover_synthesis"

// TemplateMutateVariant rewrites one candidate into a varied form.
// Variables: candidate, task.
const TemplateMutateVariant = "mutate_variant"

var sharedTemplates = map[string]string{
	TemplateCrossoverSynthesis: `Synthesize the best from the two candidates below.

Candidate A:
{{parent_a}}

Candidate B:
{{parent_b}}

{{task}}

Output ONLY the improved JSON.
No markdown, no explanation.`,

	TemplateMutateVariant: `Improve the candidate below by changing one meaningful aspect of it.

Candidate:
{{candidate}}

{{task}}

Output ONLY the improved JSON.
No markdown, no explanation.`,
}
