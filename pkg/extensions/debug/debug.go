// Package debug records per-item mount statistics and logs every lifecycle
// callback at trace level. It never holds mount references.
package debug

import (
	"cmp"
	"slices"

	"github.com/rs/zerolog"

	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
)

// Name is the registration name of the extension.
const Name = "debug"

// ItemStats counts the lifecycle events seen for one item.
type ItemStats struct {
	ID       int64         `yaml:"id"`
	Mounts   int           `yaml:"mounts"`
	Unmounts int           `yaml:"unmounts"`
	Binds    int           `yaml:"binds"`
	Unbinds  int           `yaml:"unbinds"`
	Bounds   geometry.Rect `yaml:"bounds"`
}

// Snapshot is a copy of the collected statistics.
type Snapshot struct {
	Passes        int         `yaml:"passes"`
	VisibleEvents int         `yaml:"visibleEvents"`
	Items         []ItemStats `yaml:"items"`
}

// State is the per-session state of the extension.
type State struct {
	tree    *mount.RenderTree
	passes  int
	changes int
	items   map[int64]*ItemStats
}

func (s *State) item(id int64) *ItemStats {
	st, ok := s.items[id]
	if !ok {
		st = &ItemStats{ID: id}
		s.items[id] = st
	}
	return st
}

// Snapshot returns the statistics sorted by id.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{Passes: s.passes, VisibleEvents: s.changes}
	for _, st := range s.items {
		snap.Items = append(snap.Items, *st)
	}
	slices.SortFunc(snap.Items, func(a, b ItemStats) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return snap
}

// Extension is the debug extension.
type Extension struct {
	mount.ExtensionBase[*State]
}

func New() *Extension {
	return &Extension{}
}

func (e *Extension) Name() string {
	return Name
}

func (e *Extension) CreateState() *State {
	return &State{items: make(map[int64]*ItemStats)}
}

func (e *Extension) log(es *mount.ExtensionState[*State]) *zerolog.Event {
	l := es.Delegate().Logger()
	return l.Trace().Str("extension", Name)
}

func (e *Extension) BeforeMount(es *mount.ExtensionState[*State], tree *mount.RenderTree, visible geometry.Rect) error {
	s := es.State()
	s.tree = tree
	s.passes++
	e.log(es).Int("pass", s.passes).Int("items", tree.Len()).Stringer("visible", visible).Msg("before mount")
	return nil
}

func (e *Extension) AfterMount(es *mount.ExtensionState[*State]) error {
	e.log(es).Int("pass", es.State().passes).Msg("after mount")
	return nil
}

func (e *Extension) OnVisibleBoundsChanged(es *mount.ExtensionState[*State], visible geometry.Rect) error {
	es.State().changes++
	e.log(es).Stringer("visible", visible).Msg("visible bounds changed")
	return nil
}

func (e *Extension) OnMountItem(es *mount.ExtensionState[*State], unit mount.RenderUnit, _, _ any) error {
	s := es.State()
	st := s.item(unit.ID())
	st.Mounts++
	if s.tree != nil {
		if node, _, ok := s.tree.NodeByID(unit.ID()); ok {
			st.Bounds = node.Bounds
		}
	}
	e.log(es).Int64("id", unit.ID()).Str("unit", unit.Description()).Msg("mount item")
	return nil
}

func (e *Extension) OnUnmountItem(es *mount.ExtensionState[*State], unit mount.RenderUnit, _, _ any) error {
	es.State().item(unit.ID()).Unmounts++
	e.log(es).Int64("id", unit.ID()).Msg("unmount item")
	return nil
}

func (e *Extension) OnBindItem(es *mount.ExtensionState[*State], unit mount.RenderUnit, _, _ any) error {
	es.State().item(unit.ID()).Binds++
	e.log(es).Int64("id", unit.ID()).Msg("bind item")
	return nil
}

func (e *Extension) OnUnbindItem(es *mount.ExtensionState[*State], unit mount.RenderUnit, _, _ any) error {
	es.State().item(unit.ID()).Unbinds++
	e.log(es).Int64("id", unit.ID()).Msg("unbind item")
	return nil
}

func (e *Extension) OnBoundsAppliedToItem(es *mount.ExtensionState[*State], unit mount.RenderUnit, _, _ any) error {
	s := es.State()
	if s.tree != nil {
		if node, _, ok := s.tree.NodeByID(unit.ID()); ok {
			s.item(unit.ID()).Bounds = node.Bounds
		}
	}
	return nil
}

func (e *Extension) OnUnmount(es *mount.ExtensionState[*State]) error {
	e.log(es).Int("pass", es.State().passes).Msg("unmount")
	es.State().tree = nil
	return nil
}
