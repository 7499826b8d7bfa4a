// Package scenario parses mountsim scenario files and replays them against
// a Mounter.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
	"github.com/go-drift/mountref/pkg/mount"
	"github.com/go-drift/mountref/pkg/transitions"
)

// Scenario is a sequence of mount passes over a changing item list.
type Scenario struct {
	Name        string       `yaml:"name,omitempty"`
	Transitions []Transition `yaml:"transitions,omitempty"`
	Passes      []Pass       `yaml:"passes"`
}

// Item is one non-root render unit. The root is synthesized around the
// items of each pass.
type Item struct {
	ID     int64         `yaml:"id"`
	Label  string        `yaml:"label,omitempty"`
	Bounds geometry.Rect `yaml:"bounds"`
}

// Scroll moves the visible rect after a pass.
type Scroll struct {
	DX float64 `yaml:"dx,omitempty"`
	DY float64 `yaml:"dy,omitempty"`
}

// Pass is one mount pass followed by optional scrolls and animation ends.
type Pass struct {
	// Visible defaults to the previous pass's rect.
	Visible *geometry.Rect `yaml:"visible,omitempty"`
	Items   []Item         `yaml:"items"`
	Scrolls []Scroll       `yaml:"scrolls,omitempty"`
	// End lists items whose disappear animation finishes after the pass.
	End []int64 `yaml:"end,omitempty"`
}

// Transition declares an animation on items.
type Transition struct {
	Targets    []int64  `yaml:"targets,omitempty"`
	All        bool     `yaml:"all,omitempty"`
	Properties []string `yaml:"properties,omitempty"`
	Appear     bool     `yaml:"appear,omitempty"`
	Disappear  bool     `yaml:"disappear,omitempty"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, invalid(fmt.Errorf("failed to parse scenario: %w", err))
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks item ids and visible rects.
func (sc *Scenario) Validate() error {
	if len(sc.Passes) == 0 {
		return invalid(fmt.Errorf("scenario has no passes"))
	}
	for i, p := range sc.Passes {
		if p.Visible != nil && p.Visible.IsEmpty() {
			return invalid(fmt.Errorf("pass %d: visible rect %s is empty", i+1, p.Visible))
		}
		seen := make(map[int64]bool, len(p.Items))
		for _, it := range p.Items {
			if it.ID == mount.RootID {
				return invalid(fmt.Errorf("pass %d: item id %d is reserved for the root", i+1, mount.RootID))
			}
			if seen[it.ID] {
				return invalid(fmt.Errorf("pass %d: duplicate item id %d", i+1, it.ID))
			}
			seen[it.ID] = true
		}
	}
	for i, t := range sc.Transitions {
		if !t.Appear && !t.Disappear && len(t.Properties) == 0 {
			return invalid(fmt.Errorf("transition %d animates nothing", i+1))
		}
	}
	return nil
}

// Tree builds the render tree of pass index. The root spans the items and
// the visible rect.
func (sc *Scenario) Tree(index int, visible geometry.Rect) (*mount.RenderTree, error) {
	p := sc.Passes[index]
	rootBounds := visible
	nodes := make([]*mount.RenderTreeNode, 0, len(p.Items)+1)
	nodes = append(nodes, nil)
	for _, it := range p.Items {
		rootBounds = rootBounds.Union(it.Bounds)
		nodes = append(nodes, &mount.RenderTreeNode{
			Unit:   mount.Unit{UnitID: it.ID, Label: it.Label},
			Bounds: it.Bounds,
		})
	}
	nodes[0] = &mount.RenderTreeNode{
		Unit:   mount.Unit{UnitID: mount.RootID, Label: "root"},
		Bounds: rootBounds,
	}
	return mount.NewRenderTree(index+1, nodes...)
}

// TransitionID is the transition id of an item.
func (sc *Scenario) TransitionID(id int64) (transitions.ID, bool) {
	tid, ok, err := transitions.CreateTransitionID("", transitions.KeyTypeUnset, sc.Name, fmt.Sprintf("item-%d", id))
	if err != nil {
		return transitions.ID{}, false
	}
	return tid, ok
}

// BuildTransitions converts the declared transitions.
func (sc *Scenario) BuildTransitions() []transitions.Transition {
	out := make([]transitions.Transition, 0, len(sc.Transitions))
	for _, t := range sc.Transitions {
		u := &transitions.Unit{
			AllTargets: t.All,
			Appear:     t.Appear,
			Disappear:  t.Disappear,
		}
		for _, p := range t.Properties {
			u.Properties = append(u.Properties, transitions.AnimatedProperty(p))
		}
		for _, id := range t.Targets {
			if tid, ok := sc.TransitionID(id); ok {
				u.TargetIDs = append(u.TargetIDs, tid)
			}
		}
		out = append(out, u)
	}
	return out
}

func invalid(err error) error {
	return &errors.MountError{Op: "scenario.Load", Kind: errors.KindConfig, Err: err}
}
