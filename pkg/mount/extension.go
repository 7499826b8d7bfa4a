package mount

import "github.com/go-drift/mountref/pkg/geometry"

// Extension is a pluggable participant in the mount lifecycle. Extensions
// hold no mutable state of their own; everything they track lives in the
// S value owned by their ExtensionState.
//
// Every callback receives the extension's ExtensionState so it can acquire
// or release mount references. A returned error aborts the mount pass.
type Extension[S any] interface {
	// Name identifies the extension in traces, logs and errors. It must be
	// unique within a Delegate.
	Name() string
	// CreateState returns the initial state payload for a new session.
	CreateState() S

	BeforeMount(es *ExtensionState[S], tree *RenderTree, visible geometry.Rect) error
	AfterMount(es *ExtensionState[S]) error
	BeforeMountItem(es *ExtensionState[S], node *RenderTreeNode, index int) error
	OnVisibleBoundsChanged(es *ExtensionState[S], visible geometry.Rect) error
	OnUnbind(es *ExtensionState[S]) error
	OnUnmount(es *ExtensionState[S]) error

	OnBindItem(es *ExtensionState[S], unit RenderUnit, content, layoutData any) error
	OnUnbindItem(es *ExtensionState[S], unit RenderUnit, content, layoutData any) error
	OnMountItem(es *ExtensionState[S], unit RenderUnit, content, layoutData any) error
	OnUnmountItem(es *ExtensionState[S], unit RenderUnit, content, layoutData any) error
	OnBoundsAppliedToItem(es *ExtensionState[S], unit RenderUnit, content, layoutData any) error

	// ShouldUpdateItem decides whether a mounted item must be re-bound when
	// its render unit or layout data changed between two trees.
	ShouldUpdateItem(es *ExtensionState[S], prevUnit RenderUnit, prevData any, nextUnit RenderUnit, nextData any) (bool, error)
}

// ExtensionBase supplies no-op callbacks. Embed it and override the
// callbacks an extension cares about.
type ExtensionBase[S any] struct{}

func (ExtensionBase[S]) BeforeMount(*ExtensionState[S], *RenderTree, geometry.Rect) error {
	return nil
}

func (ExtensionBase[S]) AfterMount(*ExtensionState[S]) error { return nil }

func (ExtensionBase[S]) BeforeMountItem(*ExtensionState[S], *RenderTreeNode, int) error {
	return nil
}

func (ExtensionBase[S]) OnVisibleBoundsChanged(*ExtensionState[S], geometry.Rect) error {
	return nil
}

func (ExtensionBase[S]) OnUnbind(*ExtensionState[S]) error  { return nil }
func (ExtensionBase[S]) OnUnmount(*ExtensionState[S]) error { return nil }

func (ExtensionBase[S]) OnBindItem(*ExtensionState[S], RenderUnit, any, any) error   { return nil }
func (ExtensionBase[S]) OnUnbindItem(*ExtensionState[S], RenderUnit, any, any) error { return nil }
func (ExtensionBase[S]) OnMountItem(*ExtensionState[S], RenderUnit, any, any) error  { return nil }

func (ExtensionBase[S]) OnUnmountItem(*ExtensionState[S], RenderUnit, any, any) error {
	return nil
}

func (ExtensionBase[S]) OnBoundsAppliedToItem(*ExtensionState[S], RenderUnit, any, any) error {
	return nil
}

func (ExtensionBase[S]) ShouldUpdateItem(*ExtensionState[S], RenderUnit, any, RenderUnit, any) (bool, error) {
	return false, nil
}
