// Package transition keeps items that leave the tree mounted while their
// disappear animation runs.
//
// When an item present in the previous tree is missing from the next one
// and a transition unit with a disappear animation targets it, the
// extension takes a latent reference on it. The host sees the item as
// locked and leaves it mounted. EndDisappearing releases the reference
// through the mounting path, which unmounts the item unless another
// extension still holds it.
package transition

import (
	"slices"

	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
	"github.com/go-drift/mountref/pkg/transitions"
)

// Name is the registration name of the extension.
const Name = "transition"

// IDResolver maps a render unit to its transition id. ok is false for units
// that cannot be animated.
type IDResolver func(unit mount.RenderUnit) (id transitions.ID, ok bool)

// Options configures the extension.
type Options struct {
	// Resolve maps render units to transition ids.
	Resolve IDResolver
	// RootID is the transition id of the root item, used to report root
	// bounds animations.
	RootID transitions.ID
	// OwnerKey is assigned to every unit when set.
	OwnerKey string
}

// State is the per-session state of the extension.
type State struct {
	prev       *mount.RenderTree
	disappear  map[int64]bool
	appearing  []int64
	rootWidth  transitions.RootBoundsTransition
	rootHeight transitions.RootBoundsTransition
}

// Disappearing returns ids kept mounted for a disappear animation, ascending.
func (s *State) Disappearing() []int64 {
	ids := make([]int64, 0, len(s.disappear))
	for id := range s.disappear {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Appearing returns ids that entered the tree in the last pass with an
// appear animation, in tree order.
func (s *State) Appearing() []int64 {
	return s.appearing
}

// RootBounds returns the root width and height animations of the last pass.
func (s *State) RootBounds() (width, height transitions.RootBoundsTransition) {
	return s.rootWidth, s.rootHeight
}

// Extension is the transition extension.
type Extension struct {
	mount.ExtensionBase[*State]
	opts  Options
	units []*transitions.Unit
}

// New builds the extension from the transitions declared for the session.
func New(opts Options, declared ...transitions.Transition) (*Extension, error) {
	var list []transitions.Transition
	for _, t := range declared {
		if err := transitions.AddTransitions(t, &list, Name); err != nil {
			return nil, err
		}
	}
	root := &transitions.Set{Children: list}
	if opts.OwnerKey != "" {
		if err := transitions.SetOwnerKey(root, opts.OwnerKey); err != nil {
			return nil, err
		}
	}
	units, err := transitions.Units(root)
	if err != nil {
		return nil, err
	}
	return &Extension{opts: opts, units: units}, nil
}

func (e *Extension) Name() string {
	return Name
}

func (e *Extension) CreateState() *State {
	return &State{disappear: make(map[int64]bool)}
}

func (e *Extension) animates(unit mount.RenderUnit, match func(*transitions.Unit) bool) bool {
	if e.opts.Resolve == nil {
		return false
	}
	id, ok := e.opts.Resolve(unit)
	if !ok {
		return false
	}
	for _, u := range e.units {
		if u.TargetsID(id) && match(u) {
			return true
		}
	}
	return false
}

func (e *Extension) BeforeMount(es *mount.ExtensionState[*State], tree *mount.RenderTree, visible geometry.Rect) error {
	s := es.State()
	s.appearing = nil

	// Items back in the tree no longer need the extension to keep them.
	for _, id := range s.Disappearing() {
		if _, _, ok := tree.NodeByID(id); !ok {
			continue
		}
		delete(s.disappear, id)
		if err := es.ReleaseMountReference(id, false); err != nil {
			return err
		}
	}

	if s.prev != nil {
		for i := 0; i < s.prev.Len(); i++ {
			node := s.prev.Node(i)
			id := node.ID()
			if _, _, ok := tree.NodeByID(id); ok || s.disappear[id] || !es.Delegate().IsMounted(id) {
				continue
			}
			if !e.animates(node.Unit, (*transitions.Unit).HasDisappearAnimation) {
				continue
			}
			if err := es.AcquireMountReference(id, false); err != nil {
				return err
			}
			s.disappear[id] = true
		}
		for i := 0; i < tree.Len(); i++ {
			node := tree.Node(i)
			if _, _, ok := s.prev.NodeByID(node.ID()); ok {
				continue
			}
			if e.animates(node.Unit, (*transitions.Unit).HasAppearAnimation) {
				s.appearing = append(s.appearing, node.ID())
			}
		}
	}

	s.rootWidth = transitions.RootBoundsTransition{}
	s.rootHeight = transitions.RootBoundsTransition{}
	for _, u := range e.units {
		if err := transitions.CollectRootBoundsTransitions(e.opts.RootID, u, transitions.PropertyWidth, &s.rootWidth); err != nil {
			return err
		}
		if err := transitions.CollectRootBoundsTransitions(e.opts.RootID, u, transitions.PropertyHeight, &s.rootHeight); err != nil {
			return err
		}
	}
	s.prev = tree
	return nil
}

// EndDisappearing finishes the disappear animation of id and lets the host
// unmount it.
func (e *Extension) EndDisappearing(es *mount.ExtensionState[*State], id int64) error {
	s := es.State()
	if !s.disappear[id] {
		return nil
	}
	delete(s.disappear, id)
	return es.ReleaseMountReference(id, true)
}

// EndAll finishes every running disappear animation.
func (e *Extension) EndAll(es *mount.ExtensionState[*State]) error {
	for _, id := range es.State().Disappearing() {
		if err := e.EndDisappearing(es, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extension) OnUnmount(es *mount.ExtensionState[*State]) error {
	s := es.State()
	for _, id := range s.Disappearing() {
		delete(s.disappear, id)
		if err := es.ReleaseMountReference(id, false); err != nil {
			return err
		}
	}
	s.prev = nil
	return nil
}
