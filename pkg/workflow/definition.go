package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docuvault/docuvault/pkg/docs"
)

// DefinitionFile is the top-level structure of the workflow definitions YAML file.
type DefinitionFile struct {
	Workflows []Definition `yaml:"workflows" json:"workflows"`
}

// Definition is a named, ordered list of approval steps. Step order is fixed
// after load; a definition with zero steps is invalid.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	// PendingStatus is the canonical pending state documents enter while this
	// workflow runs: pending_review or pending_approval.
	PendingStatus string `yaml:"pendingStatus" json:"pendingStatus"`
	Steps         []Step `yaml:"steps" json:"steps"`
}

// Step is one approval gate with its own approver set and required count.
type Step struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description,omitempty"`
	Approvers     []string `yaml:"approvers" json:"approvers"`
	RequiredCount int      `yaml:"requiredCount" json:"requiredCount"`
	IsFinal       bool     `yaml:"isFinal" json:"isFinal"`
}

// Validate checks the structural invariants of a definition: at least one
// step, required counts >= 1, a known pending status, and exactly one final
// step which must be last in order.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow definition requires a name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %q has zero steps", d.Name)
	}

	switch docs.Status(d.PendingStatus) {
	case docs.StatusPendingReview, docs.StatusPendingApproval:
	case "":
		d.PendingStatus = string(docs.StatusPendingApproval)
	default:
		return fmt.Errorf("workflow %q has invalid pendingStatus %q", d.Name, d.PendingStatus)
	}

	finals := 0
	for i := range d.Steps {
		step := &d.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("workflow %q step %d requires a name", d.Name, i)
		}
		if len(step.Approvers) == 0 {
			return fmt.Errorf("workflow %q step %q has no approvers", d.Name, step.Name)
		}
		if step.RequiredCount < 1 {
			return fmt.Errorf("workflow %q step %q requires a required count >= 1", d.Name, step.Name)
		}
		if step.RequiredCount > len(step.Approvers) {
			return fmt.Errorf("workflow %q step %q requires more approvals than it has approvers", d.Name, step.Name)
		}
		if step.IsFinal {
			finals++
			if i != len(d.Steps)-1 {
				return fmt.Errorf("workflow %q final step %q must be last", d.Name, step.Name)
			}
		}
	}
	if finals != 1 {
		return fmt.Errorf("workflow %q must have exactly one final step, got %d", d.Name, finals)
	}

	return nil
}

// Registry holds validated workflow definitions keyed by name.
type Registry struct {
	definitions map[string]Definition
	order       []string
}

// NewRegistry creates a registry from the given definitions, validating each.
func NewRegistry(definitions []Definition) (*Registry, error) {
	r := &Registry{definitions: make(map[string]Definition, len(definitions))}
	for i := range definitions {
		d := definitions[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.definitions[d.Name]; dup {
			return nil, fmt.Errorf("duplicate workflow definition %q", d.Name)
		}
		r.definitions[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// LoadDefinitions loads workflow definitions from a YAML file.
// Returns an empty registry if the file does not exist.
func LoadDefinitions(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(nil)
		}
		return nil, fmt.Errorf("read workflow definitions: %w", err)
	}

	var df DefinitionFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse workflow definitions: %w", err)
	}

	return NewRegistry(df.Workflows)
}

// Get returns a definition by name, or nil if not found.
func (r *Registry) Get(name string) *Definition {
	if d, ok := r.definitions[name]; ok {
		return &d
	}
	return nil
}

// List returns all definitions in load order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.definitions[name])
	}
	return out
}
