package mount

import (
	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/trace"
)

// ExtensionState owns the state payload and held references of one
// extension registered with a Delegate.
type ExtensionState[S any] struct {
	extension Extension[S]
	delegate  *Delegate
	state     S
	owned     map[int64]struct{}
	released  bool
}

func newExtensionState[S any](ext Extension[S], d *Delegate, state S) *ExtensionState[S] {
	return &ExtensionState[S]{
		extension: ext,
		delegate:  d,
		state:     state,
		owned:     make(map[int64]struct{}),
	}
}

// RenderStateID returns the render state id of the delegate's target.
func (es *ExtensionState[S]) RenderStateID() int {
	return es.delegate.Target().RenderStateID()
}

// RootHost returns the root host of the delegate's target.
func (es *ExtensionState[S]) RootHost() Host {
	return es.delegate.Target().RootHost()
}

// Extension returns the extension owning this state.
func (es *ExtensionState[S]) Extension() Extension[S] {
	return es.extension
}

// Delegate returns the broker the state acquires references through.
func (es *ExtensionState[S]) Delegate() *Delegate {
	return es.delegate
}

// Tracer returns the delegate's tracer.
func (es *ExtensionState[S]) Tracer() trace.Tracer {
	return es.delegate.Tracer()
}

// State returns the extension's payload. Pointer payloads may be mutated in place.
func (es *ExtensionState[S]) State() S {
	return es.state
}

// ExtensionName returns the name of the owning extension.
func (es *ExtensionState[S]) ExtensionName() string {
	return es.extension.Name()
}

// OwnsReference reports whether the extension holds a reference to id.
func (es *ExtensionState[S]) OwnsReference(id int64) bool {
	_, ok := es.owned[id]
	return ok
}

// OwnedCount returns the number of references currently held.
func (es *ExtensionState[S]) OwnedCount() int {
	return len(es.owned)
}

// OwnedIDs returns the held ids in no particular order.
func (es *ExtensionState[S]) OwnedIDs() []int64 {
	ids := make([]int64, 0, len(es.owned))
	for id := range es.owned {
		ids = append(ids, id)
	}
	return ids
}

// AcquireMountReference records a reference to id. With isMounting the
// delegate mounts the item if nobody held it yet.
func (es *ExtensionState[S]) AcquireMountReference(id int64, isMounting bool) error {
	const op = "mount.AcquireMountReference"
	if es.released {
		return es.invalid(op, id, errors.ErrStateReleased)
	}
	if _, ok := es.owned[id]; ok {
		return es.invalid(op, id, errors.ErrDuplicateAcquire)
	}
	es.owned[id] = struct{}{}
	if isMounting {
		return es.delegate.AcquireAndMountRef(id)
	}
	return es.delegate.AcquireMountRef(id)
}

// ReleaseMountReference drops the reference to id. With isMounting the
// delegate unmounts the item if this was the last reference.
func (es *ExtensionState[S]) ReleaseMountReference(id int64, isMounting bool) error {
	const op = "mount.ReleaseMountReference"
	if es.released {
		return es.invalid(op, id, errors.ErrStateReleased)
	}
	if _, ok := es.owned[id]; !ok {
		return es.invalid(op, id, errors.ErrReleaseWithoutAcquire)
	}
	delete(es.owned, id)
	if isMounting {
		return es.delegate.ReleaseAndUnmountRef(id)
	}
	return es.delegate.ReleaseMountRef(id)
}

// ReleaseAllAcquiredReferences releases every held id without unmounting
// and retires the state. Any later acquire or release fails.
func (es *ExtensionState[S]) ReleaseAllAcquiredReferences() error {
	const op = "mount.ReleaseAllAcquiredReferences"
	if es.released {
		return &errors.MountError{
			Op:        op,
			Kind:      errors.KindInvalidState,
			Session:   es.delegate.SessionID().String(),
			Extension: es.extension.Name(),
			Err:       errors.ErrStateReleased,
		}
	}
	es.released = true
	var first error
	for id := range es.owned {
		if err := es.delegate.ReleaseMountRef(id); err != nil && first == nil {
			first = err
		}
	}
	clear(es.owned)
	return first
}

func (es *ExtensionState[S]) invalid(op string, id int64, cause error) error {
	err := errors.InvalidState(op, id, cause)
	err.Session = es.delegate.SessionID().String()
	err.Extension = es.extension.Name()
	return err
}

// section opens a trace section for a per-item callback and returns the
// function that closes it.
func (es *ExtensionState[S]) section(tracer trace.Tracer, callback string) func() {
	if tracer == nil || !tracer.IsTracing() {
		return func() {}
	}
	tracer.BeginSection("Extension:" + callback + " " + es.extension.Name())
	return tracer.EndSection
}

// BeforeMount forwards the pass start to the extension.
func (es *ExtensionState[S]) BeforeMount(visible geometry.Rect, tree *RenderTree) error {
	return es.extension.BeforeMount(es, tree, visible)
}

// AfterMount forwards the pass end to the extension.
func (es *ExtensionState[S]) AfterMount() error {
	return es.extension.AfterMount(es)
}

// BeforeMountItem forwards a tree node to the extension before the host handles it.
func (es *ExtensionState[S]) BeforeMountItem(node *RenderTreeNode, index int) error {
	return es.extension.BeforeMountItem(es, node, index)
}

// OnVisibleBoundsChanged forwards a new visible rect to the extension.
func (es *ExtensionState[S]) OnVisibleBoundsChanged(visible geometry.Rect) error {
	return es.extension.OnVisibleBoundsChanged(es, visible)
}

// OnUnbind tells the extension every item was unbound.
func (es *ExtensionState[S]) OnUnbind() error {
	return es.extension.OnUnbind(es)
}

// OnUnmount tells the extension the session is being detached.
func (es *ExtensionState[S]) OnUnmount() error {
	return es.extension.OnUnmount(es)
}

// OnBindItem forwards a bound item. Per-item callbacks run inside a trace
// section.
func (es *ExtensionState[S]) OnBindItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error {
	defer es.section(tracer, "onBindItem")()
	return es.extension.OnBindItem(es, unit, content, layoutData)
}

// OnUnbindItem forwards an unbound item.
func (es *ExtensionState[S]) OnUnbindItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error {
	defer es.section(tracer, "onUnbindItem")()
	return es.extension.OnUnbindItem(es, unit, content, layoutData)
}

// OnMountItem forwards a mounted item.
func (es *ExtensionState[S]) OnMountItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error {
	defer es.section(tracer, "onMountItem")()
	return es.extension.OnMountItem(es, unit, content, layoutData)
}

// OnUnmountItem forwards an item about to be detached.
func (es *ExtensionState[S]) OnUnmountItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error {
	defer es.section(tracer, "onUnmountItem")()
	return es.extension.OnUnmountItem(es, unit, content, layoutData)
}

// OnBoundsAppliedToItem forwards an item whose bounds were applied.
func (es *ExtensionState[S]) OnBoundsAppliedToItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error {
	defer es.section(tracer, "onBoundsAppliedToItem")()
	return es.extension.OnBoundsAppliedToItem(es, unit, content, layoutData)
}

// ShouldUpdateItem asks the extension whether a changed item needs re-binding.
// It never acquires or releases references.
func (es *ExtensionState[S]) ShouldUpdateItem(
	prevUnit RenderUnit,
	prevData any,
	nextUnit RenderUnit,
	nextData any,
	tracer trace.Tracer,
) (bool, error) {
	defer es.section(tracer, "shouldUpdateItem")()
	return es.extension.ShouldUpdateItem(es, prevUnit, prevData, nextUnit, nextData)
}
