package gesture

// Calculator computes the delta fields of a change payload from the current
// update and the previous one. previous is nil for the first update after a
// gesture activates. The returned payload holds only the delta fields.
type Calculator func(current, previous Payload) Payload

// Change payload field names.
const (
	FieldTranslationX = "translationX"
	FieldTranslationY = "translationY"
	FieldScale        = "scale"
	FieldRotation     = "rotation"
	FieldForce        = "force"
	FieldX            = "x"
	FieldY            = "y"

	FieldChangeX        = "changeX"
	FieldChangeY        = "changeY"
	FieldScaleChange    = "scaleChange"
	FieldRotationChange = "rotationChange"
	FieldForceChange    = "forceChange"
)

// withIdentity substitutes identity for a missing previous update, so the
// first update produces the delta from the kind's resting value.
func withIdentity(identity Payload, diff func(current, previous Payload) Payload) Calculator {
	return func(current, previous Payload) Payload {
		if previous == nil {
			previous = identity
		}
		return diff(current, previous)
	}
}

var panCalculator = withIdentity(
	Payload{FieldTranslationX: 0, FieldTranslationY: 0},
	func(cur, prev Payload) Payload {
		return Payload{
			FieldChangeX: cur[FieldTranslationX] - prev[FieldTranslationX],
			FieldChangeY: cur[FieldTranslationY] - prev[FieldTranslationY],
		}
	},
)

var pinchCalculator = withIdentity(
	Payload{FieldScale: 1},
	func(cur, prev Payload) Payload {
		base := prev[FieldScale]
		if base == 0 {
			base = 1
		}
		return Payload{FieldScaleChange: cur[FieldScale] / base}
	},
)

var rotationCalculator = withIdentity(
	Payload{FieldRotation: 0},
	func(cur, prev Payload) Payload {
		return Payload{FieldRotationChange: cur[FieldRotation] - prev[FieldRotation]}
	},
)

var forceCalculator = withIdentity(
	Payload{FieldForce: 0},
	func(cur, prev Payload) Payload {
		return Payload{FieldForceChange: cur[FieldForce] - prev[FieldForce]}
	},
)

var hoverCalculator = withIdentity(
	Payload{FieldX: 0, FieldY: 0},
	func(cur, prev Payload) Payload {
		return Payload{
			FieldChangeX: cur[FieldX] - prev[FieldX],
			FieldChangeY: cur[FieldY] - prev[FieldY],
		}
	},
)

// CalculatorFor returns the change calculator of k, or nil when k has none.
// Manual gestures report no kind-specific fields and have no calculator.
func CalculatorFor(k Kind) Calculator {
	switch k {
	case KindPan:
		return panCalculator
	case KindPinch:
		return pinchCalculator
	case KindRotation:
		return rotationCalculator
	case KindForceTouch:
		return forceCalculator
	case KindHover:
		return hoverCalculator
	default:
		return nil
	}
}

// IdentityPayload returns the resting payload of k that stands in for a
// missing previous update.
func IdentityPayload(k Kind) Payload {
	switch k {
	case KindPan:
		return Payload{FieldTranslationX: 0, FieldTranslationY: 0}
	case KindPinch:
		return Payload{FieldScale: 1}
	case KindRotation:
		return Payload{FieldRotation: 0}
	case KindForceTouch:
		return Payload{FieldForce: 0}
	case KindHover:
		return Payload{FieldX: 0, FieldY: 0}
	default:
		return Payload{}
	}
}
