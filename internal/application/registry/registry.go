package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

// Registry is a read-only cache of workflow definitions, loaded from YAML
// files in a directory. It is constructed explicitly and injected into the
// engine; Reload replaces the cached set atomically.
type Registry struct {
	dir    string
	logger *zap.Logger

	mu          sync.RWMutex
	definitions map[string]*entity.WorkflowDefinition
	ordered     []*entity.WorkflowDefinition
}

// New creates a registry and performs the initial load.
func New(dir string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		dir:    dir,
		logger: logger,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads every *.yaml file in the registry directory. The cached
// set is only replaced when the whole directory loads and validates.
func (r *Registry) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read workflow directory: %w", err)
	}

	defs := make(map[string]*entity.WorkflowDefinition)
	var ordered []*entity.WorkflowDefinition

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var def entity.WorkflowDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := Validate(&def); err != nil {
			return fmt.Errorf("invalid definition in %s: %w", path, err)
		}
		if _, exists := defs[def.ID]; exists {
			return fmt.Errorf("duplicate workflow definition id %s in %s", def.ID, path)
		}

		defs[def.ID] = &def
		ordered = append(ordered, &def)
	}

	r.mu.Lock()
	r.definitions = defs
	r.ordered = ordered
	r.mu.Unlock()

	r.logger.Info("Workflow definitions loaded",
		zap.String("dir", r.dir),
		zap.Int("count", len(ordered)))
	return nil
}

// Get returns the definition with the given ID, or nil.
func (r *Registry) Get(id string) *entity.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.definitions[id]
}

// SelectForContent returns the first definition (in load order) whose
// criteria match the content item, falling back to the definition flagged
// as default. Returns ErrNoWorkflowFound when neither exists.
//
// The matching pass considers every definition that declares criteria,
// default or not. A definition with no criteria expresses no preference
// and is only reachable as the default fallback or by explicit ID.
func (r *Registry) SelectForContent(content *entity.Content) (*entity.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.ordered {
		if !def.Criteria.IsZero() && def.Criteria.Matches(content) {
			return def, nil
		}
	}
	for _, def := range r.ordered {
		if def.IsDefault {
			return def, nil
		}
	}
	return nil, workflow.ErrNoWorkflowFound
}

// List returns all loaded definitions in load order.
func (r *Registry) List() []*entity.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.WorkflowDefinition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Validate checks structural invariants of a workflow definition.
func Validate(def *entity.WorkflowDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("definition id is required")
	}
	if len(def.Stages) == 0 {
		return fmt.Errorf("definition %s has no stages", def.ID)
	}

	seen := make(map[string]bool, len(def.Stages))
	for i := range def.Stages {
		stage := &def.Stages[i]
		if stage.ID == "" {
			return fmt.Errorf("definition %s: stage %d has no id", def.ID, i)
		}
		if seen[stage.ID] {
			return fmt.Errorf("definition %s: duplicate stage id %s", def.ID, stage.ID)
		}
		seen[stage.ID] = true

		switch stage.Type {
		case entity.StageTypeReview, entity.StageTypeApproval, entity.StageTypeRevision,
			entity.StageTypePublish, entity.StageTypeArchive:
		default:
			return fmt.Errorf("definition %s: stage %s has unknown type %q", def.ID, stage.ID, stage.Type)
		}

		if stage.Requirements.MinApprovals < 0 {
			return fmt.Errorf("definition %s: stage %s has negative min_approvals", def.ID, stage.ID)
		}
		if stage.Requirements.EscalationHours > 0 && stage.Requirements.EscalationTarget == "" {
			return fmt.Errorf("definition %s: stage %s sets escalation_hours without a target", def.ID, stage.ID)
		}
		for _, ref := range stage.AssigneeReferences {
			switch ref.Kind {
			case entity.AssigneeRefUser, entity.AssigneeRefTeam, entity.AssigneeRefRole:
			default:
				return fmt.Errorf("definition %s: stage %s has unknown assignee kind %q", def.ID, stage.ID, ref.Kind)
			}
		}
	}
	return nil
}
