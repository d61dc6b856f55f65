package scenario

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gesturekit/internal/config"
)

func TestReplay_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	g := goldie.New(t)
	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)

			res, err := Run(context.Background(), s)
			require.NoError(t, err)
			g.Assert(t, name, []byte(res.Text()))
		})
	}
}

func run(t *testing.T, doc string) *Result {
	t.Helper()
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	return res
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("name: x\nsteps:\n  - updat: {root: a, tree: b}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updat")
}

func TestParse_StepNeedsOneAction(t *testing.T) {
	_, err := Parse([]byte(`
name: x
steps:
  - unmount: a
    event: {gesture: g, type: state, from: began, to: active}
`))
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Step)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestParse_DuplicateGesture(t *testing.T) {
	_, err := Parse([]byte(`
gestures:
  - {name: a, kind: tap}
  - {name: a, kind: pan}
`))
	assert.ErrorContains(t, err, `"a" defined twice`)
}

func TestNode_Unmarshal(t *testing.T) {
	s, err := Parse([]byte(`
gestures:
  - {name: a, kind: tap}
steps:
  - update:
      root: r
      tree: {exclusive: [a, {simultaneous: [b, c]}, {race: [d]}]}
`))
	require.NoError(t, err)
	tree := s.Steps[0].Update.Tree
	assert.Equal(t, "exclusive(a, simultaneous(b, c), race(d))", tree.String())
	assert.Equal(t, []string{"a", "b", "c", "d"}, tree.Names())
}

func TestNode_UnknownMode(t *testing.T) {
	_, err := Parse([]byte(`
steps:
  - update: {root: r, tree: {parallel: [a]}}
`))
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestRun_UnknownGesture(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - update: {root: main, tree: ghost}
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Step)
	assert.ErrorIs(t, err, ErrUnknownGesture)
}

func TestRun_UnknownRoot(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - unmount: nowhere\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnknownRoot)
}

func TestRun_EventBeforeBuild(t *testing.T) {
	s, err := Parse([]byte(`
gestures:
  - {name: a, kind: tap}
steps:
  - event: {gesture: a, type: state, from: began, to: active}
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnknownGesture)
}

func TestRun_BadEventType(t *testing.T) {
	s, err := Parse([]byte(`
gestures:
  - {name: a, kind: tap}
steps:
  - update: {root: main, tree: a}
  - event: {gesture: a, type: wiggle}
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Step)
}

func TestRun_ScriptErrorIsTraced(t *testing.T) {
	res := run(t, `
name: failing script
gestures:
  - name: a
    kind: tap
    scripts:
      end: |
        error("boom")
steps:
  - update: {root: main, tree: a}
  - event: {gesture: a, type: state, from: active, to: end}
`)
	text := res.Text()
	assert.Contains(t, text, "a.end error:")
	assert.Contains(t, text, "boom")
}

func TestRun_ScriptSeesPayload(t *testing.T) {
	res := run(t, `
name: payload
gestures:
  - name: p
    kind: pinch
    scripts:
      change: |
        trace(event.scale, event.scaleChange, event.state)
steps:
  - update: {root: main, tree: p}
  - event: {gesture: p, type: update, payload: {scale: 3}}
  - event: {gesture: p, type: update, payload: {scale: 1.5}}
`)
	assert.Contains(t, res.Trace, "  p: 3 3 ACTIVE")
	assert.Contains(t, res.Trace, "  p: 1.5 0.5 ACTIVE")
}

func TestRun_TraceAllOnDiscreteKind(t *testing.T) {
	res := run(t, `
name: all
gestures:
  - {name: t, kind: tap, trace: [all]}
steps:
  - update: {root: main, tree: t}
  - event: {gesture: t, type: state, from: undetermined, to: active}
  - event: {gesture: t, type: state, from: active, to: end}
`)
	assert.Equal(t, []string{
		"  t.start state=ACTIVE",
		"  t.end success=true",
		"  t.finalize success=true",
	}, callbackLines(res))
}

func TestRun_ScenarioConfigOverridesBase(t *testing.T) {
	s, err := Parse([]byte(`
config:
  engine:
    default_context: synchronous
gestures:
  - {name: t, kind: tap, trace: [end]}
steps:
  - update: {root: main, tree: t}
  - event: {gesture: t, type: state, from: active, to: end}
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), s, WithConfig(config.Default()))
	require.NoError(t, err)
	assert.Contains(t, res.Trace, "  > attach tag=1 view=1 mode=synchronous")
	assert.Contains(t, res.Trace, "[2] event t state ACTIVE->END [sync]")
	assert.Contains(t, res.Trace, "  t.end success=true")
}

func TestRun_InvalidScenarioConfig(t *testing.T) {
	s, err := Parse([]byte("config:\n  log:\n    level: shout\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	assert.ErrorIs(t, err, config.ErrInvalidValue)
}

func TestRun_Cancelled(t *testing.T) {
	s, err := Parse([]byte("gestures:\n  - {name: a, kind: tap}\nsteps:\n  - update: {root: main, tree: a}\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_JSON(t *testing.T) {
	res := &Result{Name: "x", Trace: []string{"[1] define a"}}
	data, err := res.JSON()
	require.NoError(t, err)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *res, back)
}

func callbackLines(res *Result) []string {
	var out []string
	for _, line := range res.Trace {
		if strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "  >") && !strings.HasPrefix(line, "  ~") && !strings.HasPrefix(line, "  !") {
			out = append(out, line)
		}
	}
	return out
}
