package render

// PlacedNode is a node element with its world position, as exported in the
// structural dump.
type PlacedNode struct {
	NodeItem
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Structure is the engine state a JSON export captures. Nodes and Edges are
// always non-nil so an empty scene still dumps as valid arrays.
type Structure struct {
	Surface Surface      `json:"surface"`
	Camera  Camera       `json:"camera"`
	Layout  string       `json:"layout"`
	Nodes   []PlacedNode `json:"nodes"`
	Edges   []EdgeItem   `json:"edges"`
}

// Dump captures the current scene for the structural JSON export.
func (e *Engine) Dump() (Structure, error) {
	if err := e.guard(); err != nil {
		return Structure{}, err
	}
	st := Structure{
		Surface: e.surface,
		Camera:  e.camera,
		Layout:  e.layoutName,
		Nodes:   make([]PlacedNode, 0, len(e.nodeOrder)),
		Edges:   e.Edges(),
	}
	for _, id := range e.nodeOrder {
		p := e.positions[id]
		st.Nodes = append(st.Nodes, PlacedNode{NodeItem: e.nodes[id], X: p.X, Y: p.Y})
	}
	return st, nil
}
