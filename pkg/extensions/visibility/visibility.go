// Package visibility reports items entering and leaving the visible rect.
// It observes mounts and never holds mount references.
package visibility

import (
	"slices"

	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
)

// Name is the registration name of the extension.
const Name = "visibility"

// Handlers receive visibility events. Nil handlers are skipped.
type Handlers struct {
	OnVisible   func(id int64)
	OnInvisible func(id int64)
}

// State is the per-session state of the extension.
type State struct {
	tree    *mount.RenderTree
	visible geometry.Rect
	shown   map[int64]bool
}

// VisibleIDs returns the ids currently reported visible, ascending.
func (s *State) VisibleIDs() []int64 {
	ids := make([]int64, 0, len(s.shown))
	for id := range s.shown {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Extension is the visibility extension.
type Extension struct {
	mount.ExtensionBase[*State]
	handlers Handlers
}

// New returns the extension. Register it after any extension that mounts
// items so visibility is computed on the final mount state of a pass.
func New(h Handlers) *Extension {
	return &Extension{handlers: h}
}

func (e *Extension) Name() string {
	return Name
}

func (e *Extension) CreateState() *State {
	return &State{shown: make(map[int64]bool)}
}

func (e *Extension) BeforeMount(es *mount.ExtensionState[*State], tree *mount.RenderTree, visible geometry.Rect) error {
	s := es.State()
	s.tree = tree
	s.visible = visible
	return nil
}

func (e *Extension) AfterMount(es *mount.ExtensionState[*State]) error {
	e.process(es)
	return nil
}

func (e *Extension) OnVisibleBoundsChanged(es *mount.ExtensionState[*State], visible geometry.Rect) error {
	es.State().visible = visible
	e.process(es)
	return nil
}

func (e *Extension) OnUnbind(es *mount.ExtensionState[*State]) error {
	e.clear(es)
	return nil
}

func (e *Extension) OnUnmount(es *mount.ExtensionState[*State]) error {
	e.clear(es)
	es.State().tree = nil
	return nil
}

func (e *Extension) process(es *mount.ExtensionState[*State]) {
	s := es.State()
	if s.tree == nil {
		return
	}
	d := es.Delegate()
	now := make(map[int64]bool)
	for i := 0; i < s.tree.Len(); i++ {
		node := s.tree.Node(i)
		id := node.ID()
		if d.IsMounted(id) && node.Bounds.Overlaps(s.visible) {
			now[id] = true
		}
	}
	for _, id := range s.VisibleIDs() {
		if !now[id] {
			delete(s.shown, id)
			e.fire(e.handlers.OnInvisible, id)
		}
	}
	for i := 0; i < s.tree.Len(); i++ {
		id := s.tree.Node(i).ID()
		if now[id] && !s.shown[id] {
			s.shown[id] = true
			e.fire(e.handlers.OnVisible, id)
		}
	}
}

func (e *Extension) clear(es *mount.ExtensionState[*State]) {
	s := es.State()
	for _, id := range s.VisibleIDs() {
		delete(s.shown, id)
		e.fire(e.handlers.OnInvisible, id)
	}
}

func (e *Extension) fire(fn func(int64), id int64) {
	if fn != nil {
		fn(id)
	}
}
