// Package viewstate holds the per-view state behind the status, BRD and
// ticket pages: which key points are selected and when a form may be submitted.
package viewstate

import "net/url"

// Selection is an insertion-ordered set of key point texts.
type Selection struct {
	items []string
	index map[string]int
}

func NewSelection(points ...string) *Selection {
	s := &Selection{index: make(map[string]int)}
	for _, p := range points {
		s.Add(p)
	}
	return s
}

// SelectionFromQuery rebuilds a selection from the repeated "selected"
// parameter and applies the optional "toggle" parameter on top.
func SelectionFromQuery(q url.Values) *Selection {
	s := NewSelection(q["selected"]...)
	if t := q.Get("toggle"); t != "" {
		s.Toggle(t)
	}
	return s
}

// Add inserts point unless it is already selected.
func (s *Selection) Add(point string) {
	if point == "" || s.Contains(point) {
		return
	}
	s.index[point] = len(s.items)
	s.items = append(s.items, point)
}

// Toggle selects point if absent and deselects it if present.
func (s *Selection) Toggle(point string) {
	if point == "" {
		return
	}
	i, ok := s.index[point]
	if !ok {
		s.Add(point)
		return
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, point)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
}

func (s *Selection) Contains(point string) bool {
	_, ok := s.index[point]
	return ok
}

func (s *Selection) Len() int {
	return len(s.items)
}

func (s *Selection) Empty() bool {
	return len(s.items) == 0
}

// Items returns a copy of the selected points in insertion order.
func (s *Selection) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// CanCreateBRD reports whether a BRD may be composed from the selection.
func (s *Selection) CanCreateBRD() bool {
	return !s.Empty()
}

// ToggleQuery returns the query string that renders the status view with
// point toggled relative to the current selection.
func (s *Selection) ToggleQuery(point string) string {
	q := url.Values{}
	for _, item := range s.items {
		q.Add("selected", item)
	}
	q.Set("toggle", point)
	return q.Encode()
}
