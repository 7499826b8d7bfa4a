// Package mount coordinates mount references between pluggable extensions
// and the host that physically attaches item content.
//
// # Core Types
//
// Delegate is the broker shared by every extension of a mount session. It
// keeps one reference count per render unit id and a mounted/unmounted state
// per id. An item is physically mounted on the 0→1 edge of a mount-triggering
// acquisition and unmounted on the 1→0 edge of a mount-triggering release,
// exactly once no matter how many extensions contributed references.
//
// ExtensionState is the private gateway of one extension into the Delegate.
// It remembers which ids its extension holds and rejects duplicate
// acquisitions and unmatched releases with KindInvalidState errors:
//
//	func (e *myExtension) OnMountItem(es *mount.ExtensionState[myState], unit mount.RenderUnit, content, data any) error {
//	    if !es.OwnsReference(unit.ID()) {
//	        return es.AcquireMountReference(unit.ID(), false)
//	    }
//	    return nil
//	}
//
// Mounter is the host pipeline. It implements Target, walks a RenderTree once
// per pass and fans lifecycle callbacks out to every registered extension.
//
// # Threading
//
// A mount session is single-threaded. Every call into a Delegate, its
// ExtensionStates and its Mounter must come from the goroutine driving the
// session. Callbacks re-enter the Delegate synchronously, so none of these
// types take locks.
package mount
