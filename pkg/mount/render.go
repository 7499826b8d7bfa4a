package mount

import (
	"fmt"

	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
)

// RootID is the id of the root render unit. The host always mounts it.
const RootID int64 = 0

// RenderUnit describes one renderable item produced by layout.
type RenderUnit interface {
	// ID is stable across passes for the same logical item.
	ID() int64
	// Description is a short human readable label.
	Description() string
	// CreateContent returns the native content to attach for this unit.
	CreateContent() any
}

// Unit is a RenderUnit backed by plain fields. Its content is the label.
type Unit struct {
	UnitID int64
	Label  string
}

func (u Unit) ID() int64 { return u.UnitID }

func (u Unit) Description() string {
	if u.Label != "" {
		return u.Label
	}
	return fmt.Sprintf("unit-%d", u.UnitID)
}

func (u Unit) CreateContent() any { return u.Description() }

// RenderTreeNode places a RenderUnit in a RenderTree.
type RenderTreeNode struct {
	Unit       RenderUnit
	Bounds     geometry.Rect
	LayoutData any
}

// ID returns the id of the node's render unit.
func (n *RenderTreeNode) ID() int64 {
	return n.Unit.ID()
}

// RenderTree is the flattened output of one layout pass, in mount order.
type RenderTree struct {
	id    int
	nodes []*RenderTreeNode
	index map[int64]int
}

// NewRenderTree builds a tree from nodes. The first node must be the root.
func NewRenderTree(id int, nodes ...*RenderTreeNode) (*RenderTree, error) {
	const op = "mount.NewRenderTree"
	t := &RenderTree{id: id, nodes: nodes, index: make(map[int64]int, len(nodes))}
	for i, n := range nodes {
		if n == nil || n.Unit == nil {
			return nil, &errors.MountError{
				Op:   op,
				Kind: errors.KindNilInput,
				Err:  fmt.Errorf("render tree %d: node %d has no render unit", id, i),
			}
		}
		if i == 0 && n.ID() != RootID {
			return nil, &errors.MountError{
				Op:   op,
				Kind: errors.KindInvalidState,
				Err:  fmt.Errorf("render tree %d: first node is %d, want root %d", id, n.ID(), RootID),
			}
		}
		if _, dup := t.index[n.ID()]; dup {
			return nil, errors.InvalidState(op, n.ID(), fmt.Errorf("render tree %d: duplicate render unit id", id))
		}
		t.index[n.ID()] = i
	}
	return t, nil
}

// ID identifies the layout pass that produced the tree.
func (t *RenderTree) ID() int {
	return t.id
}

// Len returns the number of nodes.
func (t *RenderTree) Len() int {
	return len(t.nodes)
}

// Node returns the node at position i.
func (t *RenderTree) Node(i int) *RenderTreeNode {
	return t.nodes[i]
}

// NodeByID returns the node with the given id and its position.
func (t *RenderTree) NodeByID(id int64) (*RenderTreeNode, int, bool) {
	if t == nil {
		return nil, -1, false
	}
	i, ok := t.index[id]
	if !ok {
		return nil, -1, false
	}
	return t.nodes[i], i, true
}

// Host attaches and detaches item content. It is the physical mount primitive.
type Host interface {
	Attach(id int64, index int, content any, bounds geometry.Rect)
	Detach(id int64, content any)
}

// Target performs physical mounts on behalf of a Delegate.
type Target interface {
	// NotifyMount mounts the item with id if it is part of the current tree
	// and not already mounted.
	NotifyMount(id int64) error
	// NotifyUnmount unmounts the item with id if it is mounted.
	NotifyUnmount(id int64) error
	// RenderStateID is stable for the lifetime of the mount session.
	RenderStateID() int
	// RootHost is the root visual container.
	RootHost() Host
}
