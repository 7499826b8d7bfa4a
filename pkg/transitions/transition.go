// Package transitions describes mount transitions as a tree of units and
// provides the walks the transition extension needs over that tree.
//
// A Transition is one of three variants: *Unit, *Set or *Builder. Walks
// switch on the concrete type and return a KindUnhandledVariant error for
// anything else, so a new variant cannot be skipped silently.
package transitions

import (
	"fmt"
	"slices"

	"github.com/go-drift/mountref/pkg/errors"
)

// AnimatedProperty names a property a transition animates.
type AnimatedProperty string

const (
	PropertyX      AnimatedProperty = "x"
	PropertyY      AnimatedProperty = "y"
	PropertyWidth  AnimatedProperty = "width"
	PropertyHeight AnimatedProperty = "height"
	PropertyAlpha  AnimatedProperty = "alpha"
	PropertyScale  AnimatedProperty = "scale"
)

// Transition is a node of a transition tree.
type Transition interface {
	transitionNode()
}

// Node is embedded by every transition variant.
type Node struct{}

func (Node) transitionNode() {}

// Unit animates a set of properties on a set of targets.
type Unit struct {
	Node
	// TargetIDs lists the animated items. Empty with AllTargets set matches any id.
	TargetIDs  []ID
	AllTargets bool
	Properties []AnimatedProperty
	// Appear animates items entering the tree.
	Appear bool
	// Disappear keeps items leaving the tree mounted until the animation ends.
	Disappear bool
	OwnerKey  string
}

// TargetsID reports whether the unit animates id.
func (u *Unit) TargetsID(id ID) bool {
	return u.AllTargets || slices.Contains(u.TargetIDs, id)
}

// TargetsProperty reports whether the unit animates p.
func (u *Unit) TargetsProperty(p AnimatedProperty) bool {
	return slices.Contains(u.Properties, p)
}

func (u *Unit) HasAppearAnimation() bool {
	return u.Appear
}

func (u *Unit) HasDisappearAnimation() bool {
	return u.Disappear
}

func (u *Unit) String() string {
	return fmt.Sprintf("Unit(targets=%v, props=%v)", u.TargetIDs, u.Properties)
}

// Set groups child transitions.
type Set struct {
	Node
	Children []Transition
}

// Builder holds units created together by one declaration.
type Builder struct {
	Node
	Units []*Unit
}

// RootBoundsTransition reports whether the root is animated on a property.
type RootBoundsTransition struct {
	HasTransition bool
	Appear        *Unit
}

func unhandled(op string, t Transition) error {
	return &errors.MountError{
		Op:   op,
		Kind: errors.KindUnhandledVariant,
		Err:  fmt.Errorf("%w: %T", errors.ErrUnhandledTransition, t),
	}
}

// CollectRootBoundsTransitions records in out whether any unit of t
// animates prop on rootID, and the last such unit with an appear animation.
func CollectRootBoundsTransitions(rootID ID, t Transition, prop AnimatedProperty, out *RootBoundsTransition) error {
	switch v := t.(type) {
	case *Set:
		for _, child := range v.Children {
			if err := CollectRootBoundsTransitions(rootID, child, prop, out); err != nil {
				return err
			}
		}
	case *Unit:
		if v.TargetsID(rootID) && v.TargetsProperty(prop) {
			out.HasTransition = true
			if v.HasAppearAnimation() {
				out.Appear = v
			}
		}
	case *Builder:
		for _, u := range v.Units {
			if err := CollectRootBoundsTransitions(rootID, u, prop, out); err != nil {
				return err
			}
		}
	default:
		return unhandled("transitions.CollectRootBoundsTransitions", t)
	}
	return nil
}

// AddTransitions appends t to out, expanding a Builder into its units.
// logContext identifies the caller in the error raised for a nil t.
func AddTransitions(t Transition, out *[]Transition, logContext string) error {
	switch v := t.(type) {
	case nil:
		return &errors.MountError{
			Op:   "transitions.AddTransitions",
			Kind: errors.KindNilInput,
			Err:  fmt.Errorf("[%s] %w", logContext, errors.ErrNilTransition),
		}
	case *Builder:
		for _, u := range v.Units {
			*out = append(*out, u)
		}
	default:
		*out = append(*out, t)
	}
	return nil
}

// SetOwnerKey assigns ownerKey to every unit in t.
func SetOwnerKey(t Transition, ownerKey string) error {
	switch v := t.(type) {
	case *Unit:
		v.OwnerKey = ownerKey
	case *Set:
		for i := len(v.Children) - 1; i >= 0; i-- {
			if err := SetOwnerKey(v.Children[i], ownerKey); err != nil {
				return err
			}
		}
	case *Builder:
		for i := len(v.Units) - 1; i >= 0; i-- {
			v.Units[i].OwnerKey = ownerKey
		}
	default:
		return unhandled("transitions.SetOwnerKey", t)
	}
	return nil
}

// Units flattens t into its units in declaration order.
func Units(t Transition) ([]*Unit, error) {
	var units []*Unit
	var walk func(Transition) error
	walk = func(t Transition) error {
		switch v := t.(type) {
		case *Unit:
			units = append(units, v)
		case *Set:
			for _, child := range v.Children {
				if err := walk(child); err != nil {
					return err
				}
			}
		case *Builder:
			units = append(units, v.Units...)
		default:
			return unhandled("transitions.Units", t)
		}
		return nil
	}
	if err := walk(t); err != nil {
		return nil, err
	}
	return units, nil
}
