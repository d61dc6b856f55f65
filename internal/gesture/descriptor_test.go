package gesture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_TagsIncrease(t *testing.T) {
	f := NewFactory()
	a := f.Tap()
	b := f.Pan()
	c := f.Pinch()

	assert.Equal(t, Tag(1), a.Tag())
	assert.Equal(t, Tag(2), b.Tag())
	assert.Equal(t, Tag(3), c.Tag())
	assert.Equal(t, Tag(3), f.LastTag())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFactory_DefaultContext(t *testing.T) {
	f := NewFactory(WithDefaultContext(Synchronous))
	d := f.Pan()
	assert.Equal(t, Synchronous, d.Context())
}

func TestDescriptor_CallbackReplace(t *testing.T) {
	f := NewFactory()
	var calls []string
	d := f.Tap().
		OnBegin(func(StateChange) { calls = append(calls, "first") }).
		OnBegin(func(StateChange) { calls = append(calls, "second") })

	require.NoError(t, d.Validate())
	cb := d.Callbacks()
	require.True(t, cb.Has(CallbackBegin))
	cb.Begin(StateChange{})
	assert.Equal(t, []string{"second"}, calls)
}

func TestDescriptor_OnChangeMarksContinuous(t *testing.T) {
	f := NewFactory()
	d := f.Pan()
	assert.False(t, d.NeedsContinuousTracking())

	d.OnChange(func(Update) {})
	assert.True(t, d.NeedsContinuousTracking())
	assert.NotNil(t, d.Calculator())
	require.NoError(t, d.Validate())
}

func TestDescriptor_DiscreteRejectsUpdate(t *testing.T) {
	f := NewFactory()
	d := f.Tap().OnUpdate(func(Update) {}).OnChange(func(Update) {})

	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotContinuous)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, d.Tag(), cfgErr.Tag)
	assert.Equal(t, KindTap, cfgErr.Kind)
	assert.False(t, d.NeedsContinuousTracking())
}

func TestDescriptor_MixedContexts(t *testing.T) {
	f := NewFactory()
	d := f.Pan().
		OnBegin(func(StateChange) {}).
		RunOn(Synchronous).
		OnUpdate(func(Update) {})

	assert.ErrorIs(t, d.Validate(), ErrMixedContexts)
}

func TestDescriptor_RunOnBeforeCallbacks(t *testing.T) {
	f := NewFactory()
	d := f.Pan().
		RunOn(Synchronous).
		OnBegin(func(StateChange) {}).
		OnUpdate(func(Update) {})

	require.NoError(t, d.Validate())
	cb := d.Callbacks()
	ctx, ok := cb.Context(CallbackUpdate)
	require.True(t, ok)
	assert.Equal(t, Synchronous, ctx)
}

func TestDescriptor_UnsupportedOption(t *testing.T) {
	f := NewFactory()
	d := f.Tap().NumberOfTaps(2).MinForce(0.2)

	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedOption)
	assert.Equal(t, 2, d.Config()[OptNumberOfTaps])
	_, set := d.Config()[OptMinForce]
	assert.False(t, set)
}

func TestDescriptor_ManualActivationContinuousOnly(t *testing.T) {
	f := NewFactory()
	assert.NoError(t, f.Pan().ManualActivation(true).Validate())
	assert.ErrorIs(t, f.Tap().ManualActivation(true).Validate(), ErrNotContinuous)
}

func TestDescriptor_KindOptions(t *testing.T) {
	f := NewFactory()

	tap := f.Tap().NumberOfTaps(2).MaxDuration(250 * time.Millisecond).MaxDistance(10)
	require.NoError(t, tap.Validate())
	assert.Equal(t, 250, tap.Config()[OptMaxDuration])

	pan := f.Pan().ActiveOffsetX(-10, 10).FailOffsetY(-5, 5).MinDistance(3)
	require.NoError(t, pan.Validate())
	cfg := pan.Config()
	assert.Equal(t, -10.0, cfg[OptActiveOffsetXStart])
	assert.Equal(t, 10.0, cfg[OptActiveOffsetXEnd])
	assert.Equal(t, 5.0, cfg[OptFailOffsetYEnd])

	fling := f.Fling().Direction(DirectionLeft | DirectionRight)
	require.NoError(t, fling.Validate())
	assert.Equal(t, int(DirectionLeft|DirectionRight), fling.Config()[OptDirection])

	lp := f.LongPress().MinDuration(time.Second).MaxDistance(20)
	require.NoError(t, lp.Validate())
	assert.Equal(t, 1000, lp.Config()[OptMinDuration])
}

func TestDescriptor_TouchCallbacksNeedPointerData(t *testing.T) {
	f := NewFactory()
	d := f.Manual().OnTouchesDown(func(Touch, StateController) {})

	assert.Equal(t, true, d.Config()[OptNeedsPointerData])
	cb := d.Callbacks()
	assert.NotNil(t, cb.Touch(CallbackTouchesDown))
	assert.Nil(t, cb.Touch(CallbackTouchesUp))
}

func TestDescriptor_SelfRelation(t *testing.T) {
	f := NewFactory()
	d := f.Pan()
	d.SimultaneousWith(d)
	assert.ErrorIs(t, d.Validate(), ErrSelfRelation)
}

func TestDescriptor_RelationsUnion(t *testing.T) {
	f := NewFactory()
	a, b, c := f.Tap(), f.Tap(), f.Tap()

	a.RequireToFail(b)
	a.ExtendComposedRelations(nil, []*Descriptor{b, c})

	rel := a.Relations()
	require.Len(t, rel.RequireToFail, 2)
	assert.Same(t, b, rel.RequireToFail[0].Target())
	assert.Same(t, c, rel.RequireToFail[1].Target())
	assert.Len(t, a.DeclaredRelations().RequireToFail, 1)

	a.ClearComposedRelations()
	assert.Len(t, a.Relations().RequireToFail, 1)
}

func TestDescriptor_AdoptTag(t *testing.T) {
	f := NewFactory()
	old := f.Pan()
	next := f.Pan()
	fp := next.Fingerprint()

	next.AdoptTag(old.Tag())
	assert.Equal(t, old.Tag(), next.Tag())
	assert.Equal(t, fp, next.Fingerprint())
}

func TestDescriptor_WithName(t *testing.T) {
	f := NewFactory()
	d := f.Tap().WithName("double")
	assert.Equal(t, "double", d.Name())
	assert.Equal(t, "double", d.Config()[OptTestID])

	d.WithName("")
	_, set := d.Config()[OptTestID]
	assert.False(t, set)
}

func TestRef_Resolve(t *testing.T) {
	f := NewFactory()
	d := f.Tap()
	slot := NewSlot()

	live := map[Tag]bool{}
	isLive := func(t Tag) bool { return live[t] }

	_, ok := slot.Ref().Resolve(isLive)
	assert.False(t, ok, "empty slot")

	slot.Set(d)
	_, ok = slot.Ref().Resolve(isLive)
	assert.False(t, ok, "not attached")

	live[d.Tag()] = true
	tag, ok := slot.Ref().Resolve(isLive)
	require.True(t, ok)
	assert.Equal(t, d.Tag(), tag)

	// A plain tag is held to the same rule as a descriptor reference.
	_, ok = Tag(42).Ref().Resolve(isLive)
	assert.False(t, ok, "dead plain tag")

	live[42] = true
	tag, ok = Tag(42).Ref().Resolve(isLive)
	assert.True(t, ok)
	assert.Equal(t, Tag(42), tag)

	tag, ok = Tag(7).Ref().Resolve(nil)
	assert.True(t, ok)
	assert.Equal(t, Tag(7), tag)
}
