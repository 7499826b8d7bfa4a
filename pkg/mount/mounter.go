package mount

import (
	"fmt"
	"slices"

	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
)

// Options configures a Mounter.
type Options struct {
	// RenderStateID identifies the session's render state.
	RenderStateID int
	// DelegateMounting hands mount decisions for non-root items to the
	// extensions. When false the host mounts every item of the tree itself.
	DelegateMounting bool
	// Delegate options applied when the Mounter creates its Delegate.
	DelegateOptions []DelegateOption
}

type mountedItem struct {
	node    *RenderTreeNode
	content any
	index   int
	bound   bool
}

// Mounter is the host mount pipeline. It owns the physical content of every
// mounted item and implements Target for its Delegate.
type Mounter struct {
	host     Host
	opts     Options
	delegate *Delegate

	tree    *RenderTree
	items   map[int64]*mountedItem
	visible geometry.Rect
	pass    int

	// Set while extensions run BeforeMount. Mount notifications are left to
	// the item loop and the release sweep until every extension has run.
	preparing bool
}

// NewMounter creates a Mounter attaching content to host.
func NewMounter(host Host, opts Options) *Mounter {
	m := &Mounter{
		host:  host,
		opts:  opts,
		items: make(map[int64]*mountedItem),
	}
	m.delegate = NewDelegate(m, opts.DelegateOptions...)
	return m
}

// Delegate returns the broker extensions register with.
func (m *Mounter) Delegate() *Delegate {
	return m.delegate
}

// Tree returns the tree of the last mount pass.
func (m *Mounter) Tree() *RenderTree {
	return m.tree
}

// Pass returns the number of mount passes started.
func (m *Mounter) Pass() int {
	return m.pass
}

// VisibleBounds returns the visible rect of the last pass or bounds change.
func (m *Mounter) VisibleBounds() geometry.Rect {
	return m.visible
}

// IsMounted reports whether the host currently has content for id.
func (m *Mounter) IsMounted(id int64) bool {
	_, ok := m.items[id]
	return ok
}

// MountedIDs returns the mounted ids in ascending order.
func (m *Mounter) MountedIDs() []int64 {
	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Content returns the content mounted for id.
func (m *Mounter) Content(id int64) (any, bool) {
	item, ok := m.items[id]
	if !ok {
		return nil, false
	}
	return item.content, true
}

// RenderStateID returns the configured render state id.
func (m *Mounter) RenderStateID() int {
	return m.opts.RenderStateID
}

// RootHost returns the host content is attached to.
func (m *Mounter) RootHost() Host {
	return m.host
}

// Mount runs one mount pass for tree with the given visible rect. Any error
// or panic raised by an extension aborts the pass and is returned.
func (m *Mounter) Mount(tree *RenderTree, visible geometry.Rect) (err error) {
	const op = "mount.Mounter.Mount"
	defer func() { err = m.annotate(err) }()
	defer errors.Recover(op, &err)

	if tree == nil || tree.Len() == 0 {
		return &errors.MountError{Op: op, Kind: errors.KindNilInput, Err: fmt.Errorf("mount pass %d: empty render tree", m.pass+1)}
	}
	m.pass++
	m.tree = tree
	m.visible = visible

	if err := m.beforeMount(tree, visible); err != nil {
		return err
	}
	if err := m.unmountReleased(tree); err != nil {
		return err
	}
	for i := 0; i < tree.Len(); i++ {
		node := tree.Node(i)
		if err := m.delegate.BeforeMountItem(node, i); err != nil {
			return err
		}
		if item, ok := m.items[node.ID()]; ok {
			if err := m.updateItem(item, node, i); err != nil {
				return err
			}
			continue
		}
		if m.hostMounts(node.ID()) {
			if err := m.mountItem(node, i); err != nil {
				return err
			}
		}
	}
	return m.delegate.AfterMount()
}

func (m *Mounter) beforeMount(tree *RenderTree, visible geometry.Rect) error {
	m.preparing = true
	defer func() { m.preparing = false }()
	return m.delegate.BeforeMount(tree, visible)
}

func (m *Mounter) hostMounts(id int64) bool {
	return id == RootID || !m.opts.DelegateMounting || m.delegate.IsLockedForMount(id)
}

// unmountReleased unmounts every non-root item no extension holds a
// reference to. Without delegated mounting only items that left the tree
// are unmounted.
func (m *Mounter) unmountReleased(tree *RenderTree) error {
	removed := make([]*mountedItem, 0)
	for id, item := range m.items {
		if id == RootID || m.delegate.IsLockedForMount(id) {
			continue
		}
		if _, _, ok := tree.NodeByID(id); ok && !m.opts.DelegateMounting {
			continue
		}
		removed = append(removed, item)
	}
	slices.SortFunc(removed, func(a, b *mountedItem) int {
		return b.index - a.index
	})
	for _, item := range removed {
		if err := m.unmountItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mounter) updateItem(item *mountedItem, next *RenderTreeNode, index int) error {
	prev := item.node
	item.index = index
	if prev == next {
		return nil
	}
	update, err := m.delegate.ShouldUpdateItem(prev.Unit, prev.LayoutData, next.Unit, next.LayoutData)
	if err != nil {
		return err
	}
	if update && item.bound {
		if err := m.delegate.OnUnbindItem(prev.Unit, item.content, prev.LayoutData); err != nil {
			return err
		}
		item.bound = false
	}
	item.node = next
	if update {
		if err := m.delegate.OnBindItem(next.Unit, item.content, next.LayoutData); err != nil {
			return err
		}
		item.bound = true
	}
	if update || prev.Bounds != next.Bounds {
		m.host.Attach(next.ID(), index, item.content, next.Bounds)
		return m.delegate.OnBoundsAppliedToItem(next.Unit, item.content, next.LayoutData)
	}
	return nil
}

func (m *Mounter) mountItem(node *RenderTreeNode, index int) error {
	id := node.ID()
	item := &mountedItem{node: node, content: node.Unit.CreateContent(), index: index}
	m.host.Attach(id, index, item.content, node.Bounds)
	m.items[id] = item
	m.delegate.MarkMounted(id)

	if err := m.delegate.OnMountItem(node.Unit, item.content, node.LayoutData); err != nil {
		return err
	}
	if err := m.delegate.OnBindItem(node.Unit, item.content, node.LayoutData); err != nil {
		return err
	}
	item.bound = true
	return m.delegate.OnBoundsAppliedToItem(node.Unit, item.content, node.LayoutData)
}

func (m *Mounter) unmountItem(item *mountedItem) error {
	node := item.node
	id := node.ID()
	if item.bound {
		if err := m.delegate.OnUnbindItem(node.Unit, item.content, node.LayoutData); err != nil {
			return err
		}
		item.bound = false
	}
	if err := m.delegate.OnUnmountItem(node.Unit, item.content, node.LayoutData); err != nil {
		return err
	}
	m.host.Detach(id, item.content)
	delete(m.items, id)
	m.delegate.MarkUnmounted(id)
	return nil
}

// NotifyMount mounts id from the current tree. Unknown or already mounted
// ids are ignored, as is any request made while extensions run BeforeMount.
func (m *Mounter) NotifyMount(id int64) error {
	if _, ok := m.items[id]; ok || m.preparing {
		return nil
	}
	node, index, ok := m.tree.NodeByID(id)
	if !ok {
		return nil
	}
	return m.mountItem(node, index)
}

// NotifyUnmount unmounts id. The root is never unmounted this way, and
// requests made while extensions run BeforeMount wait for the release sweep.
func (m *Mounter) NotifyUnmount(id int64) error {
	if id == RootID || m.preparing {
		return nil
	}
	item, ok := m.items[id]
	if !ok {
		return nil
	}
	return m.unmountItem(item)
}

// SetVisibleBounds reports a new visible rect to every extension.
func (m *Mounter) SetVisibleBounds(visible geometry.Rect) (err error) {
	defer func() { err = m.annotate(err) }()
	defer errors.Recover("mount.Mounter.SetVisibleBounds", &err)
	m.visible = visible
	return m.delegate.OnVisibleBoundsChanged(visible)
}

// Unbind unbinds every mounted item, then notifies the extensions.
func (m *Mounter) Unbind() (err error) {
	defer func() { err = m.annotate(err) }()
	defer errors.Recover("mount.Mounter.Unbind", &err)
	for _, item := range m.itemsInOrder() {
		if !item.bound {
			continue
		}
		if err := m.delegate.OnUnbindItem(item.node.Unit, item.content, item.node.LayoutData); err != nil {
			return err
		}
		item.bound = false
	}
	return m.delegate.OnUnbind()
}

// Bind re-binds every mounted item left unbound by Unbind.
func (m *Mounter) Bind() (err error) {
	defer func() { err = m.annotate(err) }()
	defer errors.Recover("mount.Mounter.Bind", &err)
	for _, item := range m.itemsInOrder() {
		if item.bound {
			continue
		}
		if err := m.delegate.OnBindItem(item.node.Unit, item.content, item.node.LayoutData); err != nil {
			return err
		}
		item.bound = true
	}
	return nil
}

// Detach ends the session: extensions are told to unmount, remaining items
// are unmounted in reverse order and every extension state is released.
func (m *Mounter) Detach() (err error) {
	defer func() { err = m.annotate(err) }()
	defer errors.Recover("mount.Mounter.Detach", &err)
	if err := m.delegate.OnUnmount(); err != nil {
		return err
	}
	items := m.itemsInOrder()
	for i := len(items) - 1; i >= 0; i-- {
		if err := m.unmountItem(items[i]); err != nil {
			return err
		}
	}
	m.tree = nil
	return m.delegate.ReleaseAll()
}

func (m *Mounter) itemsInOrder() []*mountedItem {
	items := make([]*mountedItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b *mountedItem) int {
		return a.index - b.index
	})
	return items
}

// annotate stamps session and pass context onto mount errors.
func (m *Mounter) annotate(err error) error {
	if err == nil {
		return nil
	}
	me, ok := errors.AsMountError(err)
	if !ok {
		return err
	}
	if me.Session == "" {
		me.Session = m.delegate.SessionID().String()
	}
	m.delegate.logger.Debug().Int("pass", m.pass).Msg("mount aborted")
	// Recover already handed panics to the handler.
	if me.Kind != errors.KindPanic {
		errors.Report(me)
	}
	return err
}
