package transitions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mounterrors "github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
)

var root = ID{Type: IDTypeGlobal, Reference: "root"}

// rogue is a variant the walks do not know about.
type rogue struct{ Node }

func TestCollectRootBoundsTransitions(t *testing.T) {
	appear := &Unit{TargetIDs: []ID{root}, Properties: []AnimatedProperty{PropertyWidth}, Appear: true}
	tree := &Set{Children: []Transition{
		&Unit{TargetIDs: []ID{{Reference: "child"}}, Properties: []AnimatedProperty{PropertyWidth}},
		&Builder{Units: []*Unit{
			{TargetIDs: []ID{root}, Properties: []AnimatedProperty{PropertyHeight}},
			appear,
		}},
	}}

	var out RootBoundsTransition
	require.NoError(t, CollectRootBoundsTransitions(root, tree, PropertyWidth, &out))
	assert.True(t, out.HasTransition)
	assert.Same(t, appear, out.Appear)

	var none RootBoundsTransition
	require.NoError(t, CollectRootBoundsTransitions(root, tree, PropertyAlpha, &none))
	assert.False(t, none.HasTransition)
	assert.Nil(t, none.Appear)
}

func TestCollectRejectsUnknownVariant(t *testing.T) {
	tree := &Set{Children: []Transition{&Unit{}, rogue{}}}

	var out RootBoundsTransition
	err := CollectRootBoundsTransitions(root, tree, PropertyX, &out)
	require.Error(t, err)
	assert.True(t, mounterrors.IsKind(err, mounterrors.KindUnhandledVariant))
	assert.True(t, errors.Is(err, mounterrors.ErrUnhandledTransition))
	assert.Contains(t, err.Error(), "transitions.rogue")
}

func TestAddTransitionsExpandsBuilders(t *testing.T) {
	u1, u2, u3 := &Unit{}, &Unit{}, &Unit{}
	var out []Transition

	require.NoError(t, AddTransitions(&Builder{Units: []*Unit{u1, u2}}, &out, "pass-1"))
	require.NoError(t, AddTransitions(u3, &out, "pass-1"))
	set := &Set{}
	require.NoError(t, AddTransitions(set, &out, "pass-1"))

	assert.Equal(t, []Transition{u1, u2, u3, set}, out)
}

func TestAddTransitionsRejectsNil(t *testing.T) {
	var out []Transition
	err := AddTransitions(nil, &out, "session-42")

	require.Error(t, err)
	assert.True(t, mounterrors.IsKind(err, mounterrors.KindNilInput))
	assert.Contains(t, err.Error(), "[session-42]")
	assert.Empty(t, out)
}

func TestSetOwnerKey(t *testing.T) {
	a, b, c := &Unit{}, &Unit{}, &Unit{}
	tree := &Set{Children: []Transition{a, &Builder{Units: []*Unit{b, c}}}}

	require.NoError(t, SetOwnerKey(tree, "owner"))
	for _, u := range []*Unit{a, b, c} {
		assert.Equal(t, "owner", u.OwnerKey)
	}

	err := SetOwnerKey(&Set{Children: []Transition{rogue{}}}, "owner")
	assert.True(t, mounterrors.IsKind(err, mounterrors.KindUnhandledVariant))
}

func TestUnitsFlattensInOrder(t *testing.T) {
	a, b, c := &Unit{OwnerKey: "a"}, &Unit{OwnerKey: "b"}, &Unit{OwnerKey: "c"}
	units, err := Units(&Set{Children: []Transition{a, &Set{Children: []Transition{&Builder{Units: []*Unit{b}}}}, c}})
	require.NoError(t, err)
	assert.Equal(t, []*Unit{a, b, c}, units)

	_, err = Units(rogue{})
	assert.Error(t, err)
}

func TestUnitTargets(t *testing.T) {
	u := &Unit{AllTargets: true, Properties: []AnimatedProperty{PropertyAlpha}}
	assert.True(t, u.TargetsID(ID{Reference: "anything"}))
	assert.True(t, u.TargetsProperty(PropertyAlpha))
	assert.False(t, u.TargetsProperty(PropertyX))
}

func TestCreateTransitionID(t *testing.T) {
	id, ok, err := CreateTransitionID("key", KeyTypeGlobal, "owner", "global")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ID{Type: IDTypeGlobal, Reference: "key"}, id)

	id, ok, err = CreateTransitionID("key", KeyTypeLocal, "owner", "global")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ID{Type: IDTypeScoped, Reference: "key", ExtraData: "owner"}, id)
	assert.Equal(t, "scoped:key@owner", id.String())

	id, ok, err = CreateTransitionID("", KeyTypeUnset, "owner", "global")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ID{Type: IDTypeAutogenerated, Reference: "global"}, id)

	_, ok, err = CreateTransitionID("", KeyTypeUnset, "", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = CreateTransitionID("key", KeyTypeUnset, "", "")
	assert.True(t, mounterrors.IsKind(err, mounterrors.KindUnhandledVariant))
}

type boundsProbe struct {
	w, h, x, y float64
}

func (p *boundsProbe) OnWidthHeightBoundsApplied(w, h float64) { p.w, p.h = w, h }
func (p *boundsProbe) OnXYBoundsApplied(x, y float64)          { p.x, p.y = x, y }

func TestApplyBounds(t *testing.T) {
	probe := &boundsProbe{}
	start := geometry.RectFromLTWH(10, 20, 30, 40)

	sized := ApplySize(start, 50, 60, probe)
	assert.Equal(t, geometry.RectFromLTWH(10, 20, 50, 60), sized)
	assert.Equal(t, 50.0, probe.w)

	moved := ApplyXY(sized, 1, 2, probe)
	assert.Equal(t, geometry.RectFromLTWH(1, 2, 50, 60), moved)
	assert.Equal(t, 2.0, probe.y)

	assert.Equal(t, sized, ApplySize(start, 50, 60, "plain content"))
}
