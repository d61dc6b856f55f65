package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanCalculator_FirstUpdate(t *testing.T) {
	calc := CalculatorFor(KindPan)
	require.NotNil(t, calc)

	got := calc(Payload{FieldTranslationX: 10, FieldTranslationY: 0}, nil)
	assert.Equal(t, Payload{FieldChangeX: 10, FieldChangeY: 0}, got)
}

func TestPanCalculator_Consecutive(t *testing.T) {
	calc := CalculatorFor(KindPan)
	first := Payload{FieldTranslationX: 10}
	second := Payload{FieldTranslationX: 15}

	got := calc(second, first)
	assert.Equal(t, 5.0, got[FieldChangeX])
	assert.Equal(t, 0.0, got[FieldChangeY])
}

func TestPinchCalculator(t *testing.T) {
	calc := CalculatorFor(KindPinch)

	assert.Equal(t, Payload{FieldScaleChange: 2}, calc(Payload{FieldScale: 2}, nil))
	assert.Equal(t, Payload{FieldScaleChange: 1.5}, calc(Payload{FieldScale: 3}, Payload{FieldScale: 2}))
	assert.Equal(t, Payload{FieldScaleChange: 3}, calc(Payload{FieldScale: 3}, Payload{FieldScale: 0}))
}

func TestRotationForceHoverCalculators(t *testing.T) {
	rot := CalculatorFor(KindRotation)
	assert.Equal(t, Payload{FieldRotationChange: 0.25}, rot(Payload{FieldRotation: 1}, Payload{FieldRotation: 0.75}))

	force := CalculatorFor(KindForceTouch)
	assert.Equal(t, Payload{FieldForceChange: 0.5}, force(Payload{FieldForce: 0.5}, nil))

	hover := CalculatorFor(KindHover)
	assert.Equal(t, Payload{FieldChangeX: 3, FieldChangeY: -1}, hover(Payload{FieldX: 4, FieldY: 1}, Payload{FieldX: 1, FieldY: 2}))
}

func TestCalculatorFor_DiscreteKinds(t *testing.T) {
	for _, k := range []Kind{KindTap, KindFling, KindLongPress, KindNative, KindManual} {
		assert.Nil(t, CalculatorFor(k), k.String())
	}
}

// The first update is diffed against the kind's resting payload, which is
// the same as diffing against an update whose fields are all at rest.
func TestCalculators_FirstUpdateMatchesIdentity(t *testing.T) {
	current := map[Kind]Payload{
		KindPan:        {FieldTranslationX: 7, FieldTranslationY: -3},
		KindPinch:      {FieldScale: 1.25},
		KindRotation:   {FieldRotation: 0.5},
		KindForceTouch: {FieldForce: 0.8},
		KindHover:      {FieldX: 12, FieldY: 4},
	}

	for k, cur := range current {
		t.Run(k.String(), func(t *testing.T) {
			calc := CalculatorFor(k)
			require.NotNil(t, calc)
			assert.Equal(t, calc(cur, IdentityPayload(k)), calc(cur, nil))

			same := calc(cur, cur)
			for field, v := range same {
				if field == FieldScaleChange {
					assert.Equal(t, 1.0, v)
					continue
				}
				assert.Equal(t, 0.0, v, field)
			}
		})
	}
}

func TestPayload_String(t *testing.T) {
	p := Payload{"b": 2, "a": 1.5}
	assert.Equal(t, "{a:1.5, b:2}", p.String())
	assert.Nil(t, Payload(nil).Clone())
}
