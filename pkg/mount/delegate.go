package mount

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/trace"
)

// dispatcher is the type-erased view of an *ExtensionState[S] the Delegate
// fans callbacks out to.
type dispatcher interface {
	ExtensionName() string
	OwnsReference(id int64) bool
	ReleaseAllAcquiredReferences() error

	BeforeMount(visible geometry.Rect, tree *RenderTree) error
	AfterMount() error
	BeforeMountItem(node *RenderTreeNode, index int) error
	OnVisibleBoundsChanged(visible geometry.Rect) error
	OnUnbind() error
	OnUnmount() error
	OnBindItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error
	OnUnbindItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error
	OnMountItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error
	OnUnmountItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error
	OnBoundsAppliedToItem(unit RenderUnit, content, layoutData any, tracer trace.Tracer) error
	ShouldUpdateItem(prevUnit RenderUnit, prevData any, nextUnit RenderUnit, nextData any, tracer trace.Tracer) (bool, error)
}

// Delegate is the mount reference broker shared by all extensions of a
// session. The reference counts and mount states are only reachable through
// its methods.
type Delegate struct {
	target  Target
	tracer  trace.Tracer
	logger  zerolog.Logger
	session uuid.UUID

	refs    map[int64]int
	mounted map[int64]bool

	states []dispatcher
	byName map[string]dispatcher
}

// DelegateOption configures a Delegate.
type DelegateOption func(*Delegate)

// WithTracer sets the tracer handed to per-item callbacks.
func WithTracer(t trace.Tracer) DelegateOption {
	return func(d *Delegate) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithLogger sets the logger used for session events.
func WithLogger(l zerolog.Logger) DelegateOption {
	return func(d *Delegate) {
		d.logger = l
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id uuid.UUID) DelegateOption {
	return func(d *Delegate) {
		d.session = id
	}
}

// NewDelegate creates a broker that mounts through target.
func NewDelegate(target Target, opts ...DelegateOption) *Delegate {
	d := &Delegate{
		target:  target,
		tracer:  trace.Nop{},
		logger:  log.Logger,
		session: uuid.New(),
		refs:    make(map[int64]int),
		mounted: make(map[int64]bool),
		byName:  make(map[string]dispatcher),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("session", d.session.String()).Logger()
	return d
}

// Register creates the ExtensionState for ext and adds it to d. Callbacks
// are dispatched in registration order. Registering two extensions with the
// same name panics.
func Register[S any](d *Delegate, ext Extension[S]) *ExtensionState[S] {
	name := ext.Name()
	if _, exists := d.byName[name]; exists {
		panic("mount: extension already registered: " + name)
	}
	es := newExtensionState(ext, d, ext.CreateState())
	d.states = append(d.states, es)
	d.byName[name] = es
	d.logger.Debug().Str("extension", name).Msg("extension registered")
	return es
}

// Unregister releases every reference held by the named extension and
// removes it from d.
func (d *Delegate) Unregister(name string) error {
	es, ok := d.byName[name]
	if !ok {
		return &errors.MountError{
			Op:        "mount.Delegate.Unregister",
			Kind:      errors.KindInvalidState,
			Session:   d.session.String(),
			Extension: name,
			Err:       fmt.Errorf("extension not registered"),
		}
	}
	delete(d.byName, name)
	for i, s := range d.states {
		if s == es {
			d.states = append(d.states[:i], d.states[i+1:]...)
			break
		}
	}
	d.logger.Debug().Str("extension", name).Msg("extension unregistered")
	return es.ReleaseAllAcquiredReferences()
}

// Extensions returns the registered extension names in dispatch order.
func (d *Delegate) Extensions() []string {
	names := make([]string, len(d.states))
	for i, s := range d.states {
		names[i] = s.ExtensionName()
	}
	return names
}

// Target returns the host the delegate mounts through.
func (d *Delegate) Target() Target {
	return d.target
}

// Tracer returns the tracer handed to per-item callbacks.
func (d *Delegate) Tracer() trace.Tracer {
	return d.tracer
}

// Logger returns the session logger.
func (d *Delegate) Logger() zerolog.Logger {
	return d.logger
}

// SessionID returns the mount session id.
func (d *Delegate) SessionID() uuid.UUID {
	return d.session
}

// AcquireMountRef adds a reference to id without mounting it.
func (d *Delegate) AcquireMountRef(id int64) error {
	d.refs[id]++
	return nil
}

// AcquireAndMountRef adds a reference to id and mounts the item if it is not
// mounted yet.
func (d *Delegate) AcquireAndMountRef(id int64) error {
	d.refs[id]++
	if d.mounted[id] {
		return nil
	}
	return d.target.NotifyMount(id)
}

// ReleaseMountRef drops a reference to id without unmounting it.
func (d *Delegate) ReleaseMountRef(id int64) error {
	_, err := d.decrement("mount.Delegate.ReleaseMountRef", id)
	return err
}

// ReleaseAndUnmountRef drops a reference to id and unmounts the item when no
// references remain.
func (d *Delegate) ReleaseAndUnmountRef(id int64) error {
	remaining, err := d.decrement("mount.Delegate.ReleaseAndUnmountRef", id)
	if err != nil {
		return err
	}
	if remaining == 0 && d.mounted[id] {
		return d.target.NotifyUnmount(id)
	}
	return nil
}

func (d *Delegate) decrement(op string, id int64) (int, error) {
	n := d.refs[id]
	if n <= 0 {
		err := errors.InvalidState(op, id, errors.ErrRefUnderflow)
		err.Session = d.session.String()
		return 0, err
	}
	n--
	if n == 0 {
		delete(d.refs, id)
	} else {
		d.refs[id] = n
	}
	return n, nil
}

// IsLockedForMount reports whether any extension holds a reference to id.
func (d *Delegate) IsLockedForMount(id int64) bool {
	return d.refs[id] > 0
}

// RefCount returns the aggregate reference count of id.
func (d *Delegate) RefCount(id int64) int {
	return d.refs[id]
}

// IsMounted reports the physical mount state of id.
func (d *Delegate) IsMounted(id int64) bool {
	return d.mounted[id]
}

// MarkMounted records that the target attached id. Targets call it before
// firing mount callbacks.
func (d *Delegate) MarkMounted(id int64) {
	d.mounted[id] = true
}

// MarkUnmounted records that the target detached id.
func (d *Delegate) MarkUnmounted(id int64) {
	delete(d.mounted, id)
}

// BeforeMount starts a pass on every extension in registration order.
func (d *Delegate) BeforeMount(tree *RenderTree, visible geometry.Rect) error {
	for _, s := range d.states {
		if err := s.BeforeMount(visible, tree); err != nil {
			return err
		}
	}
	return nil
}

// AfterMount ends a pass on every extension.
func (d *Delegate) AfterMount() error {
	for _, s := range d.states {
		if err := s.AfterMount(); err != nil {
			return err
		}
	}
	return nil
}

// BeforeMountItem hands node to every extension before the host handles it.
func (d *Delegate) BeforeMountItem(node *RenderTreeNode, index int) error {
	for _, s := range d.states {
		if err := s.BeforeMountItem(node, index); err != nil {
			return err
		}
	}
	return nil
}

// OnVisibleBoundsChanged reports a new visible rect to every extension.
func (d *Delegate) OnVisibleBoundsChanged(visible geometry.Rect) error {
	for _, s := range d.states {
		if err := s.OnVisibleBoundsChanged(visible); err != nil {
			return err
		}
	}
	return nil
}

// OnUnbind tells every extension the items were unbound.
func (d *Delegate) OnUnbind() error {
	for _, s := range d.states {
		if err := s.OnUnbind(); err != nil {
			return err
		}
	}
	return nil
}

// OnUnmount tells every extension the session is being detached.
func (d *Delegate) OnUnmount() error {
	for _, s := range d.states {
		if err := s.OnUnmount(); err != nil {
			return err
		}
	}
	return nil
}

// OnMountItem reports a mounted item to every extension.
func (d *Delegate) OnMountItem(unit RenderUnit, content, layoutData any) error {
	for _, s := range d.states {
		if err := s.OnMountItem(unit, content, layoutData, d.tracer); err != nil {
			return err
		}
	}
	return nil
}

// OnUnmountItem reports an item about to be detached.
func (d *Delegate) OnUnmountItem(unit RenderUnit, content, layoutData any) error {
	for _, s := range d.states {
		if err := s.OnUnmountItem(unit, content, layoutData, d.tracer); err != nil {
			return err
		}
	}
	return nil
}

// OnBindItem reports a bound item.
func (d *Delegate) OnBindItem(unit RenderUnit, content, layoutData any) error {
	for _, s := range d.states {
		if err := s.OnBindItem(unit, content, layoutData, d.tracer); err != nil {
			return err
		}
	}
	return nil
}

// OnUnbindItem reports an unbound item.
func (d *Delegate) OnUnbindItem(unit RenderUnit, content, layoutData any) error {
	for _, s := range d.states {
		if err := s.OnUnbindItem(unit, content, layoutData, d.tracer); err != nil {
			return err
		}
	}
	return nil
}

// OnBoundsAppliedToItem reports that the host applied an item's bounds.
func (d *Delegate) OnBoundsAppliedToItem(unit RenderUnit, content, layoutData any) error {
	for _, s := range d.states {
		if err := s.OnBoundsAppliedToItem(unit, content, layoutData, d.tracer); err != nil {
			return err
		}
	}
	return nil
}

// ShouldUpdateItem reports whether any extension wants the item re-bound.
func (d *Delegate) ShouldUpdateItem(prevUnit RenderUnit, prevData any, nextUnit RenderUnit, nextData any) (bool, error) {
	for _, s := range d.states {
		update, err := s.ShouldUpdateItem(prevUnit, prevData, nextUnit, nextData, d.tracer)
		if err != nil {
			return false, err
		}
		if update {
			return true, nil
		}
	}
	return false, nil
}

// ReleaseAll tears down every registered extension state. All states are
// released even if one fails; the first error is returned.
func (d *Delegate) ReleaseAll() error {
	var first error
	for _, s := range d.states {
		if err := s.ReleaseAllAcquiredReferences(); err != nil && first == nil {
			first = err
		}
	}
	d.logger.Debug().Int("extensions", len(d.states)).Msg("released all references")
	return first
}
