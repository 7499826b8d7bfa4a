package mount

import (
	"fmt"

	"github.com/go-drift/mountref/pkg/geometry"
)

type testUnit struct {
	id      int64
	version int
}

func (u testUnit) ID() int64           { return u.id }
func (u testUnit) Description() string { return fmt.Sprintf("unit-%d", u.id) }
func (u testUnit) CreateContent() any  { return fmt.Sprintf("content-%d", u.id) }

func node(id int64, top float64) *RenderTreeNode {
	return &RenderTreeNode{
		Unit:   testUnit{id: id},
		Bounds: geometry.RectFromLTWH(0, top, 100, 10),
	}
}

// fakeTarget counts physical transitions requested by a Delegate.
type fakeTarget struct {
	d        *Delegate
	mounts   map[int64]int
	unmounts map[int64]int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mounts: map[int64]int{}, unmounts: map[int64]int{}}
}

func (t *fakeTarget) NotifyMount(id int64) error {
	t.mounts[id]++
	t.d.MarkMounted(id)
	return nil
}

func (t *fakeTarget) NotifyUnmount(id int64) error {
	t.unmounts[id]++
	t.d.MarkUnmounted(id)
	return nil
}

func (t *fakeTarget) RenderStateID() int { return 7 }
func (t *fakeTarget) RootHost() Host     { return nil }

func newTestDelegate(opts ...DelegateOption) (*Delegate, *fakeTarget) {
	target := newFakeTarget()
	d := NewDelegate(target, opts...)
	target.d = d
	return d, target
}

type callLog struct {
	calls []string
}

// hookExtension forwards callbacks to optional hooks and logs every call.
type hookExtension struct {
	ExtensionBase[*callLog]
	name string

	onMountItem   func(es *ExtensionState[*callLog], unit RenderUnit) error
	onUnmountItem func(es *ExtensionState[*callLog], unit RenderUnit) error
	onBindItem    func(es *ExtensionState[*callLog], unit RenderUnit) error
	beforeMount   func(es *ExtensionState[*callLog], tree *RenderTree, visible geometry.Rect) error
	shouldUpdate  func(prev, next RenderUnit) bool
}

func (e *hookExtension) Name() string          { return e.name }
func (e *hookExtension) CreateState() *callLog { return &callLog{} }

func (e *hookExtension) record(es *ExtensionState[*callLog], call string) {
	es.State().calls = append(es.State().calls, call)
}

func (e *hookExtension) BeforeMount(es *ExtensionState[*callLog], tree *RenderTree, visible geometry.Rect) error {
	e.record(es, "beforeMount")
	if e.beforeMount != nil {
		return e.beforeMount(es, tree, visible)
	}
	return nil
}

func (e *hookExtension) AfterMount(es *ExtensionState[*callLog]) error {
	e.record(es, "afterMount")
	return nil
}

func (e *hookExtension) OnMountItem(es *ExtensionState[*callLog], unit RenderUnit, content, data any) error {
	e.record(es, fmt.Sprintf("mount %d", unit.ID()))
	if e.onMountItem != nil {
		return e.onMountItem(es, unit)
	}
	return nil
}

func (e *hookExtension) OnUnmountItem(es *ExtensionState[*callLog], unit RenderUnit, content, data any) error {
	e.record(es, fmt.Sprintf("unmount %d", unit.ID()))
	if e.onUnmountItem != nil {
		return e.onUnmountItem(es, unit)
	}
	return nil
}

func (e *hookExtension) OnBindItem(es *ExtensionState[*callLog], unit RenderUnit, content, data any) error {
	e.record(es, fmt.Sprintf("bind %d", unit.ID()))
	if e.onBindItem != nil {
		return e.onBindItem(es, unit)
	}
	return nil
}

func (e *hookExtension) OnUnbindItem(es *ExtensionState[*callLog], unit RenderUnit, content, data any) error {
	e.record(es, fmt.Sprintf("unbind %d", unit.ID()))
	return nil
}

func (e *hookExtension) OnBoundsAppliedToItem(es *ExtensionState[*callLog], unit RenderUnit, content, data any) error {
	e.record(es, fmt.Sprintf("bounds %d", unit.ID()))
	return nil
}

func (e *hookExtension) OnUnbind(es *ExtensionState[*callLog]) error {
	e.record(es, "unbind")
	return nil
}

func (e *hookExtension) OnUnmount(es *ExtensionState[*callLog]) error {
	e.record(es, "unmount")
	return nil
}

func (e *hookExtension) ShouldUpdateItem(es *ExtensionState[*callLog], prev RenderUnit, prevData any, next RenderUnit, nextData any) (bool, error) {
	if e.shouldUpdate != nil {
		return e.shouldUpdate(prev, next), nil
	}
	return false, nil
}
