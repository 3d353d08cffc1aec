package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"brainzzz/internal/graphview"
	"brainzzz/internal/model"
	"brainzzz/internal/render"
	"brainzzz/internal/snapshot"
)

// errNoView reports interaction with a view that is not mounted or shows a
// different brain.
var errNoView = errors.New("view out of date")

// stateParams carries the view-state knobs a request may set. Nil fields are
// left untouched so toggles survive across requests.
type stateParams struct {
	Layout       *string
	ShowWeights  *bool
	ShowDisabled *bool
	NodeScale    *float64
}

// viewHost owns the server-side graph view. One live view exists at a time;
// requesting a different brain swaps the snapshot under the same view so
// layout and toggle state carry over.
type viewHost struct {
	loader *snapshot.Loader

	mu       sync.Mutex
	surface  render.Surface
	view     *graphview.View
	lastSnap *model.BrainSnapshot
}

func newViewHost(loader *snapshot.Loader, surface render.Surface) *viewHost {
	return &viewHost{loader: loader, surface: surface}
}

// acquire returns the live view showing brain id, fetching the snapshot and
// mounting or swapping the view as needed. Callers hold no lock; the host
// serializes itself.
func (h *viewHost) acquire(ctx context.Context, id int, params stateParams) (*graphview.View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.view == nil {
		view, err := graphview.New(snap, h.surface, graphview.ViewState{})
		if err != nil {
			return nil, fmt.Errorf("mount view: %w", err)
		}
		h.view = view
		h.lastSnap = snap
	} else if snap != h.lastSnap {
		if err := h.view.ReplaceSnapshot(snap); err != nil {
			// A failed swap destroys the view; drop the reference so the
			// next request mounts fresh.
			h.view = nil
			h.lastSnap = nil
			return nil, fmt.Errorf("swap snapshot: %w", err)
		}
		h.lastSnap = snap
	}

	if err := h.apply(h.view, params); err != nil {
		return nil, err
	}
	return h.view, nil
}

// current returns the live view only if it already shows brain id.
func (h *viewHost) current(id int) (*graphview.View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.view == nil {
		return nil, fmt.Errorf("%w: no view mounted", errNoView)
	}
	if h.view.BrainID() != id {
		return nil, fmt.Errorf("%w: view shows brain %d, not %d", errNoView, h.view.BrainID(), id)
	}
	return h.view, nil
}

func (h *viewHost) apply(view *graphview.View, params stateParams) error {
	state := view.State()
	if params.Layout != nil && *params.Layout != state.Layout {
		if err := view.SetLayout(*params.Layout); err != nil {
			return err
		}
	}
	if params.ShowWeights != nil && *params.ShowWeights != state.ShowWeights {
		if err := view.SetShowWeights(*params.ShowWeights); err != nil {
			return err
		}
	}
	if params.ShowDisabled != nil && *params.ShowDisabled != state.ShowDisabled {
		if err := view.SetShowDisabled(*params.ShowDisabled); err != nil {
			return err
		}
	}
	if params.NodeScale != nil && *params.NodeScale != state.NodeScale {
		if err := view.SetNodeScale(*params.NodeScale); err != nil {
			return err
		}
	}
	return nil
}

// resize updates the drawing surface for the live view and for views mounted
// later.
func (h *viewHost) resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if width > 0 && height > 0 {
		h.surface = render.Surface{Width: width, Height: height}
	}
	if h.view == nil {
		return nil
	}
	return h.view.Resize(width, height)
}

func (h *viewHost) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.view != nil {
		_ = h.view.Close()
		h.view = nil
		h.lastSnap = nil
	}
}
