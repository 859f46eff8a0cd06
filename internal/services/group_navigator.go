package services

// GroupNavigator picks the active group of a grouped list from an abstract
// viewport signal and steps between groups. It holds no UI state.
type GroupNavigator struct {
	labels []string
}

func NewGroupNavigator(labels []string) GroupNavigator {
	out := make([]string, len(labels))
	copy(out, labels)
	return GroupNavigator{labels: out}
}

// NavigatorFor builds a navigator over already grouped items
func NavigatorFor[T any](groups []Group[T]) GroupNavigator {
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	return GroupNavigator{labels: labels}
}

func (n GroupNavigator) Len() int {
	return len(n.labels)
}

// Visible reports whether the navigation control should render at all
func (n GroupNavigator) Visible() bool {
	return len(n.labels) > 0
}

func (n GroupNavigator) clamp(i int) int {
	if len(n.labels) == 0 {
		return -1
	}
	if i < 0 {
		return 0
	}
	if i >= len(n.labels) {
		return len(n.labels) - 1
	}
	return i
}

// ActiveFromVisible returns the first group currently in view.
// With nothing in view the previous active group is kept.
func (n GroupNavigator) ActiveFromVisible(visible []int, previous int) int {
	best := -1
	for _, i := range visible {
		if i < 0 || i >= len(n.labels) {
			continue
		}
		if best == -1 || i < best {
			best = i
		}
	}
	if best == -1 {
		return n.clamp(previous)
	}
	return best
}

// ActiveFromOffset returns the last group whose top offset is at or above
// the scroll position. offsets are the group tops in list order.
func (n GroupNavigator) ActiveFromOffset(offsets []int, scrollTop int) int {
	if len(n.labels) == 0 {
		return -1
	}
	active := 0
	for i, top := range offsets {
		if i >= len(n.labels) {
			break
		}
		if top <= scrollTop {
			active = i
		}
	}
	return active
}

// Step moves delta groups from current, clamped to the bounds
func (n GroupNavigator) Step(current, delta int) int {
	return n.clamp(n.clamp(current) + delta)
}

// Viewport is what the client reports about the grouped list: the groups
// in view, or the group tops plus the scroll position, and an optional
// prev/next step applied afterwards.
type Viewport struct {
	Visible   []int
	Offsets   []int
	ScrollTop *int
	Step      int
}

// Resolve picks the active group for a viewport report. Visible groups win
// over offsets; with neither the previous group is kept.
func (n GroupNavigator) Resolve(previous int, vp Viewport) int {
	active := n.clamp(previous)
	switch {
	case len(vp.Visible) > 0:
		active = n.ActiveFromVisible(vp.Visible, previous)
	case len(vp.Offsets) > 0 && vp.ScrollTop != nil:
		active = n.ActiveFromOffset(vp.Offsets, *vp.ScrollTop)
	}
	if vp.Step != 0 {
		active = n.Step(active, vp.Step)
	}
	return active
}

// Label of group i, or the placeholder when there is no such group
func (n GroupNavigator) Label(i int) string {
	if i < 0 || i >= len(n.labels) {
		return DefaultGroupLabel
	}
	return n.labels[i]
}

type NavigatorState struct {
	Visible bool   `json:"visible"`
	Active  int    `json:"active"`
	Label   string `json:"label"`
	Total   int    `json:"total"`
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
}

func (n GroupNavigator) State(active int) NavigatorState {
	active = n.clamp(active)
	return NavigatorState{
		Visible: n.Visible(),
		Active:  active,
		Label:   n.Label(active),
		Total:   len(n.labels),
		HasPrev: active > 0,
		HasNext: active >= 0 && active < len(n.labels)-1,
	}
}
