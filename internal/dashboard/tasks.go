package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"brainzzz/internal/model"
)

var (
	ErrTaskExists   = errors.New("task already exists")
	ErrTaskNotFound = errors.New("task not found")
)

// taskRegistry holds the evaluation-task definitions shown in the task
// panel. The simulation exposes no task routes, so the registry lives in the
// dashboard process: seeded with the simulation's default tasks and merged
// with task_update feed events.
type taskRegistry struct {
	mu     sync.RWMutex
	byID   map[string]model.TaskInfo
	byName map[string]string
}

func newTaskRegistry() *taskRegistry {
	r := &taskRegistry{
		byID:   make(map[string]model.TaskInfo),
		byName: make(map[string]string),
	}
	for _, t := range defaultTasks() {
		r.byID[t.ID] = t
		r.byName[strings.ToLower(t.Name)] = t.ID
	}
	return r
}

// defaultTasks mirrors the evaluation tasks the simulation registers at
// startup.
func defaultTasks() []model.TaskInfo {
	return []model.TaskInfo{
		{ID: "task-xor", Name: "XOR", Kind: "xor", Weight: 1.0, Enabled: true},
		{ID: "task-sequence", Name: "Sequence", Kind: "sequence", Weight: 1.0, Enabled: true},
	}
}

func (r *taskRegistry) List() []model.TaskInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.TaskInfo, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *taskRegistry) Get(id string) (model.TaskInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return model.TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// Add registers a new task. A missing id gets a generated one; a missing
// weight defaults to 1.
func (r *taskRegistry) Add(t model.TaskInfo) (model.TaskInfo, error) {
	if t.Name == "" {
		return model.TaskInfo{}, errors.New("task name is required")
	}
	if t.Weight < 0 {
		return model.TaskInfo{}, fmt.Errorf("task weight must not be negative: %v", t.Weight)
	}
	if t.Weight == 0 {
		t.Weight = 1.0
	}
	if t.Kind == "" {
		t.Kind = strings.ToLower(t.Name)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[t.ID]; exists {
		return model.TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskExists, t.ID)
	}
	if _, exists := r.byName[strings.ToLower(t.Name)]; exists {
		return model.TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskExists, t.Name)
	}
	r.byID[t.ID] = t
	r.byName[strings.ToLower(t.Name)] = t.ID
	return t, nil
}

// Update overwrites the mutable fields of an existing task. Zero weight is
// allowed here so a task can be muted without deleting it.
func (r *taskRegistry) Update(id string, patch model.TaskInfo) (model.TaskInfo, error) {
	if patch.Weight < 0 {
		return model.TaskInfo{}, fmt.Errorf("task weight must not be negative: %v", patch.Weight)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return model.TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if patch.Name != "" && !strings.EqualFold(patch.Name, t.Name) {
		if _, exists := r.byName[strings.ToLower(patch.Name)]; exists {
			return model.TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskExists, patch.Name)
		}
		delete(r.byName, strings.ToLower(t.Name))
		t.Name = patch.Name
		r.byName[strings.ToLower(t.Name)] = id
	}
	if patch.Kind != "" {
		t.Kind = patch.Kind
	}
	t.Weight = patch.Weight
	t.Enabled = patch.Enabled
	r.byID[id] = t
	return t, nil
}

func (r *taskRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(r.byID, id)
	delete(r.byName, strings.ToLower(t.Name))
	return nil
}

// ApplyEvent merges a task_update payload. Tasks are matched by name so the
// simulation's announcements update seeded entries in place.
func (r *taskRegistry) ApplyEvent(data json.RawMessage) error {
	var payload struct {
		Tasks []model.TaskInfo `json:"tasks"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("task update payload: %w", err)
	}
	if len(payload.Tasks) == 0 {
		// Single-task form.
		var one model.TaskInfo
		if err := json.Unmarshal(data, &one); err != nil || one.Name == "" {
			return nil
		}
		payload.Tasks = []model.TaskInfo{one}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range payload.Tasks {
		if t.Name == "" {
			continue
		}
		key := strings.ToLower(t.Name)
		if id, ok := r.byName[key]; ok {
			existing := r.byID[id]
			if t.Kind != "" {
				existing.Kind = t.Kind
			}
			if t.Weight > 0 {
				existing.Weight = t.Weight
			}
			existing.Enabled = t.Enabled
			r.byID[id] = existing
			continue
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Kind == "" {
			t.Kind = key
		}
		if t.Weight == 0 {
			t.Weight = 1.0
		}
		r.byID[t.ID] = t
		r.byName[key] = t.ID
	}
	return nil
}
