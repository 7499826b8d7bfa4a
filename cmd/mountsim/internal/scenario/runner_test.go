package scenario

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/mountref/pkg/config"
	"github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
)

const feed = `
name: feed
transitions:
  - targets: [2]
    properties: [alpha]
    disappear: true
passes:
  - visible: {left: 0, top: 0, right: 100, bottom: 150}
    items:
      - {id: 1, bounds: {left: 0, top: 0, right: 100, bottom: 100}}
      - {id: 2, bounds: {left: 0, top: 100, right: 100, bottom: 200}}
      - {id: 3, bounds: {left: 0, top: 200, right: 100, bottom: 300}}
    scrolls:
      - {dy: 100}
  - items:
      - {id: 1, bounds: {left: 0, top: 0, right: 100, bottom: 100}}
      - {id: 3, bounds: {left: 0, top: 200, right: 100, bottom: 300}}
    end: [2]
`

func resolved(exts ...string) *config.Resolved {
	return &config.Resolved{
		Name:             "test",
		TraceEnabled:     true,
		TraceCapacity:    256,
		Extensions:       exts,
		DelegateMounting: true,
	}
}

func TestRunFeed(t *testing.T) {
	sc, err := Parse([]byte(feed))
	require.NoError(t, err)
	session := uuid.MustParse("6f1c1f0e-8c55-4d8e-9a53-2d1b0c1f5e11")
	r := NewRunner(resolved("transition", "incremental", "visibility", "debug"), zerolog.Nop(), session)

	res, err := r.Run(sc)
	require.NoError(t, err)

	assert.Equal(t, session.String(), res.Session)
	assert.Equal(t, "feed", res.Name)
	require.Len(t, res.Steps, 5)

	mounted := res.Steps[0]
	assert.Equal(t, "mount", mounted.Op)
	assert.Equal(t, []int64{0, 1, 2}, mounted.Mounted)
	assert.Equal(t, []int64{0, 1, 2}, mounted.Shown)
	assert.Equal(t, []string{"visible 0", "visible 1", "visible 2"}, mounted.Events)

	scrolled := res.Steps[1]
	assert.Equal(t, "scroll", scrolled.Op)
	assert.Equal(t, []int64{0, 2, 3}, scrolled.Mounted)
	assert.Equal(t, []string{"invisible 1", "visible 3"}, scrolled.Events)
	assert.Contains(t, scrolled.Host, "detach 1")

	removed := res.Steps[2]
	assert.Equal(t, 2, removed.Pass)
	assert.Equal(t, []int64{0, 2, 3}, removed.Mounted)
	assert.Equal(t, []int64{2}, removed.Disappearing)
	assert.Equal(t, []string{"invisible 2"}, removed.Events)

	ended := res.Steps[3]
	assert.Equal(t, "end", ended.Op)
	assert.Equal(t, []int64{0, 3}, ended.Mounted)
	assert.Empty(t, ended.Disappearing)
	assert.Equal(t, []string{"detach 2"}, ended.Host)

	detached := res.Steps[4]
	assert.Equal(t, "detach", detached.Op)
	assert.Empty(t, detached.Mounted)
	assert.Equal(t, []string{"invisible 0", "invisible 3"}, detached.Events)

	require.NotNil(t, res.Debug)
	assert.Equal(t, 2, res.Debug.Passes)
	assert.Contains(t, res.Trace, "Extension:onMountItem debug")
	assert.Contains(t, res.Trace, "Extension:onUnmountItem incremental")
}

func TestRunHostMountsEverything(t *testing.T) {
	sc, err := Parse([]byte(feed))
	require.NoError(t, err)
	cfg := resolved("visibility")
	cfg.DelegateMounting = false

	res, err := NewRunner(cfg, zerolog.Nop(), uuid.Nil).Run(sc)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, []int64{0, 1, 2, 3}, res.Steps[0].Mounted)
	assert.NotEmpty(t, res.Session)
}

func TestRunNeedsVisibleRect(t *testing.T) {
	sc, err := Parse([]byte("passes:\n  - items: [{id: 1, bounds: {right: 10, bottom: 10}}]\n"))
	require.NoError(t, err)

	_, err = NewRunner(resolved("incremental"), zerolog.Nop(), uuid.Nil).Run(sc)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	cfg := resolved("incremental")
	cfg.Visible = geometry.Rect{Right: 10, Bottom: 10}
	cfg.HasVisible = true
	res, err := NewRunner(cfg, zerolog.Nop(), uuid.Nil).Run(sc)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, res.Steps[0].Mounted)
	assert.Equal(t, "test", res.Name)
}

func TestParseRejectsInvalidScenarios(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no passes", "name: x\n", "no passes"},
		{"root id", "passes:\n  - items: [{id: 0}]\n", "reserved for the root"},
		{"duplicate", "passes:\n  - items: [{id: 1}, {id: 1}]\n", "duplicate item id 1"},
		{"empty visible", "passes:\n  - visible: {right: 10}\n    items: []\n", "is empty"},
		{"idle transition", "transitions: [{targets: [1]}]\npasses:\n  - items: []\n", "animates nothing"},
		{"malformed", "passes: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTreeRootSpansItems(t *testing.T) {
	sc, err := Parse([]byte(feed))
	require.NoError(t, err)

	tree, err := sc.Tree(0, geometry.RectFromLTWH(0, 0, 100, 150))
	require.NoError(t, err)

	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, geometry.Rect{Right: 100, Bottom: 300}, tree.Node(0).Bounds)
	assert.Equal(t, 1, tree.ID())
}

func TestTransitionIDsAreStable(t *testing.T) {
	sc := &Scenario{Name: "feed"}
	a, ok := sc.TransitionID(4)
	require.True(t, ok)
	b, _ := sc.TransitionID(4)
	assert.Equal(t, a, b)
	assert.Equal(t, "autogenerated:item-4", a.String())
}
