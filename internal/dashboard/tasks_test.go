package dashboard

import (
	"encoding/json"
	"errors"
	"testing"

	"brainzzz/internal/model"
)

func TestTaskRegistrySeedsDefaults(t *testing.T) {
	r := newTaskRegistry()
	tasks := r.List()
	if len(tasks) != 2 {
		t.Fatalf("seeded %d tasks", len(tasks))
	}
	for _, task := range tasks {
		if !task.Enabled || task.Weight != 1.0 {
			t.Fatalf("seed task %+v", task)
		}
	}
	if tasks[0].Name != "Sequence" || tasks[1].Name != "XOR" {
		t.Fatalf("seed order: %s, %s", tasks[0].Name, tasks[1].Name)
	}
}

func TestTaskAddValidatesAndDefaults(t *testing.T) {
	r := newTaskRegistry()

	if _, err := r.Add(model.TaskInfo{}); err == nil {
		t.Fatal("nameless task accepted")
	}
	if _, err := r.Add(model.TaskInfo{Name: "Maze", Weight: -1}); err == nil {
		t.Fatal("negative weight accepted")
	}

	added, err := r.Add(model.TaskInfo{Name: "Maze"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == "" || added.Kind != "maze" || added.Weight != 1.0 {
		t.Fatalf("defaults not applied: %+v", added)
	}

	if _, err := r.Add(model.TaskInfo{Name: "maze"}); !errors.Is(err, ErrTaskExists) {
		t.Fatalf("case-insensitive duplicate: err = %v", err)
	}
}

func TestTaskUpdateRename(t *testing.T) {
	r := newTaskRegistry()
	added, err := r.Add(model.TaskInfo{Name: "Maze", Weight: 0.5, Enabled: true})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := r.Update(added.ID, model.TaskInfo{Name: "XOR"}); !errors.Is(err, ErrTaskExists) {
		t.Fatalf("rename onto existing: err = %v", err)
	}

	renamed, err := r.Update(added.ID, model.TaskInfo{Name: "Labyrinth", Weight: 0.5, Enabled: true})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Labyrinth" {
		t.Fatalf("renamed = %+v", renamed)
	}
	// The old name is free again.
	if _, err := r.Add(model.TaskInfo{Name: "Maze"}); err != nil {
		t.Fatalf("re-add old name: %v", err)
	}

	if _, err := r.Update("missing", model.TaskInfo{}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("update missing: err = %v", err)
	}
}

func TestTaskApplyEventSingleForm(t *testing.T) {
	r := newTaskRegistry()
	if err := r.ApplyEvent(json.RawMessage(`{"name":"XOR","weight":3,"enabled":true}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, task := range r.List() {
		if task.Name == "XOR" {
			if task.Weight != 3 || !task.Enabled {
				t.Fatalf("XOR = %+v", task)
			}
			return
		}
	}
	t.Fatal("XOR missing after event")
}
