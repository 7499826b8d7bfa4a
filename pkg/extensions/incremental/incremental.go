// Package incremental mounts only the items whose bounds intersect the
// visible rect.
//
// The extension holds a reference for every visible item. During a mount
// pass the references are bookkeeping only and the host mounts or unmounts
// items after every extension has prepared. When the visible rect changes
// between passes, references go through the mounting path so items are
// mounted and unmounted right away.
package incremental

import (
	"slices"

	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
)

// Name is the registration name of the extension.
const Name = "incremental"

// State is the per-session state of the extension.
type State struct {
	tree    *mount.RenderTree
	visible geometry.Rect
}

// Visible returns the visible rect last applied.
func (s *State) Visible() geometry.Rect {
	return s.visible
}

// Extension is the incremental mount extension.
type Extension struct {
	mount.ExtensionBase[*State]
}

// New returns the extension. Register it with mount.Register.
func New() *Extension {
	return &Extension{}
}

func (e *Extension) Name() string {
	return Name
}

func (e *Extension) CreateState() *State {
	return &State{}
}

func (e *Extension) BeforeMount(es *mount.ExtensionState[*State], tree *mount.RenderTree, visible geometry.Rect) error {
	s := es.State()
	s.tree = tree
	s.visible = visible
	return e.sync(es, false)
}

func (e *Extension) OnVisibleBoundsChanged(es *mount.ExtensionState[*State], visible geometry.Rect) error {
	es.State().visible = visible
	return e.sync(es, true)
}

// OnUnmount drops every reference without unmounting; the host is tearing
// the whole tree down itself.
func (e *Extension) OnUnmount(es *mount.ExtensionState[*State]) error {
	ids := es.OwnedIDs()
	slices.Sort(ids)
	for _, id := range ids {
		if err := es.ReleaseMountReference(id, false); err != nil {
			return err
		}
	}
	es.State().tree = nil
	return nil
}

func wanted(node *mount.RenderTreeNode, visible geometry.Rect) bool {
	return node.ID() == mount.RootID || node.Bounds.Overlaps(visible)
}

// sync releases references to items that left the visible rect or the tree,
// then acquires references to newly visible items in tree order.
func (e *Extension) sync(es *mount.ExtensionState[*State], mounting bool) error {
	s := es.State()
	if s.tree == nil {
		return nil
	}
	owned := es.OwnedIDs()
	slices.Sort(owned)
	for _, id := range owned {
		if node, _, ok := s.tree.NodeByID(id); ok && wanted(node, s.visible) {
			continue
		}
		if err := es.ReleaseMountReference(id, mounting); err != nil {
			return err
		}
	}
	for i := 0; i < s.tree.Len(); i++ {
		node := s.tree.Node(i)
		if !wanted(node, s.visible) || es.OwnsReference(node.ID()) {
			continue
		}
		if err := es.AcquireMountReference(node.ID(), mounting); err != nil {
			return err
		}
	}
	return nil
}
