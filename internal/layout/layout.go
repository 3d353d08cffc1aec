// Package layout assigns 2D positions to graph nodes. Layouts are pure
// placement functions over node ids and endpoint pairs, selected by name
// through a registry, so render back-ends stay decoupled from the placement
// algorithms and from snapshot semantics.
package layout

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var (
	ErrLayoutExists   = errors.New("layout already registered")
	ErrLayoutNotFound = errors.New("layout not found")
)

// DefaultName is the layout applied when a view does not choose one.
const DefaultName = "concentric"

// Position is a node placement on the drawing surface, in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config describes the surface a layout fills. Rand seeds the random layout;
// nil falls back to the shared source.
type Config struct {
	Width   float64
	Height  float64
	Padding float64
	Rand    *rand.Rand
}

// Func places every listed node. edges carries the [from, to] pairs shown in
// the current view; degree-driven layouts count both directions. Pairs whose
// endpoints are not listed in ids are ignored.
type Func func(ids []int, edges [][2]int, cfg Config) map[int]Position

var layoutRegistry = struct {
	mu sync.RWMutex
	m  map[string]Func
}{
	m: make(map[string]Func),
}

func init() {
	initializeBuiltInLayouts()
}

func initializeBuiltInLayouts() {
	MustRegister("concentric", Concentric)
	MustRegister("circle", Circle)
	MustRegister("grid", Grid)
	MustRegister("random", Random)
}

func Register(name string, fn Func) error {
	if name == "" {
		return errors.New("layout name is required")
	}
	if fn == nil {
		return errors.New("layout function is required")
	}

	layoutRegistry.mu.Lock()
	defer layoutRegistry.mu.Unlock()

	if _, exists := layoutRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrLayoutExists, name)
	}
	layoutRegistry.m[name] = fn
	return nil
}

func MustRegister(name string, fn Func) {
	if err := Register(name, fn); err != nil {
		panic(err)
	}
}

func Get(name string) (Func, error) {
	layoutRegistry.mu.RLock()
	fn, ok := layoutRegistry.m[name]
	layoutRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	return fn, nil
}

func List() []string {
	layoutRegistry.mu.RLock()
	defer layoutRegistry.mu.RUnlock()

	names := make([]string, 0, len(layoutRegistry.m))
	for name := range layoutRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	layoutRegistry.mu.Lock()
	layoutRegistry.m = make(map[string]Func)
	layoutRegistry.mu.Unlock()
	initializeBuiltInLayouts()
}
