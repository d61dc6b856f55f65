package gesture

import (
	"fmt"
	"strings"
)

// Kind identifies a recognizer type.
type Kind uint8

const (
	KindTap Kind = iota
	KindPan
	KindPinch
	KindRotation
	KindFling
	KindLongPress
	KindForceTouch
	KindHover
	KindNative
	KindManual

	numKinds
)

var kindNames = [numKinds]string{
	KindTap:        "tap",
	KindPan:        "pan",
	KindPinch:      "pinch",
	KindRotation:   "rotation",
	KindFling:      "fling",
	KindLongPress:  "longPress",
	KindForceTouch: "forceTouch",
	KindHover:      "hover",
	KindNative:     "native",
	KindManual:     "manual",
}

var nativeNames = [numKinds]string{
	KindTap:        "TapGestureHandler",
	KindPan:        "PanGestureHandler",
	KindPinch:      "PinchGestureHandler",
	KindRotation:   "RotationGestureHandler",
	KindFling:      "FlingGestureHandler",
	KindLongPress:  "LongPressGestureHandler",
	KindForceTouch: "ForceTouchGestureHandler",
	KindHover:      "HoverGestureHandler",
	KindNative:     "NativeViewGestureHandler",
	KindManual:     "ManualGestureHandler",
}

// String returns the short kind name.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// NativeName returns the name of the native recognizer for k.
func (k Kind) NativeName() string {
	if k < numKinds {
		return nativeNames[k]
	}
	return ""
}

// IsContinuous reports whether k reports a stream of updates while active.
func (k Kind) IsContinuous() bool {
	switch k {
	case KindPan, KindPinch, KindRotation, KindForceTouch, KindHover, KindManual:
		return true
	}
	return false
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind parses a short or native kind name.
func ParseKind(name string) (Kind, error) {
	for k := Kind(0); k < numKinds; k++ {
		if strings.EqualFold(name, kindNames[k]) || name == nativeNames[k] {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown gesture kind %q", name)
}

// Native configuration keys.
const (
	OptEnabled                 = "enabled"
	OptShouldCancelWhenOutside = "shouldCancelWhenOutside"
	OptHitSlop                 = "hitSlop"
	OptCancelsTouchesInView    = "cancelsTouchesInView"
	OptNeedsPointerData        = "needsPointerData"
	OptManualActivation        = "manualActivation"
	OptTestID                  = "testId"

	OptNumberOfTaps = "numberOfTaps"
	OptMaxDuration  = "maxDurationMs"
	OptMaxDelay     = "maxDelayMs"
	OptMaxDist      = "maxDist"
	OptMinPointers  = "minPointers"

	OptMinDist            = "minDist"
	OptMaxPointers        = "maxPointers"
	OptAverageTouches     = "avgTouches"
	OptActiveOffsetXStart = "activeOffsetXStart"
	OptActiveOffsetXEnd   = "activeOffsetXEnd"
	OptActiveOffsetYStart = "activeOffsetYStart"
	OptActiveOffsetYEnd   = "activeOffsetYEnd"
	OptFailOffsetXStart   = "failOffsetXStart"
	OptFailOffsetXEnd     = "failOffsetXEnd"
	OptFailOffsetYStart   = "failOffsetYStart"
	OptFailOffsetYEnd     = "failOffsetYEnd"

	OptMinDuration = "minDurationMs"

	OptDirection        = "direction"
	OptNumberOfPointers = "numberOfPointers"

	OptMinForce             = "minForce"
	OptMaxForce             = "maxForce"
	OptFeedbackOnActivation = "feedbackOnActivation"

	OptShouldActivateOnStart = "shouldActivateOnStart"
	OptDisallowInterruption  = "disallowInterruption"
)

var commonOptions = []string{
	OptEnabled, OptShouldCancelWhenOutside, OptHitSlop, OptCancelsTouchesInView,
	OptNeedsPointerData, OptTestID,
}

var kindOptions = map[Kind][]string{
	KindTap: {OptNumberOfTaps, OptMaxDuration, OptMaxDelay, OptMaxDist, OptMinPointers},
	KindPan: {
		OptMinDist, OptMinPointers, OptMaxPointers, OptAverageTouches,
		OptActiveOffsetXStart, OptActiveOffsetXEnd, OptActiveOffsetYStart, OptActiveOffsetYEnd,
		OptFailOffsetXStart, OptFailOffsetXEnd, OptFailOffsetYStart, OptFailOffsetYEnd,
	},
	KindLongPress:  {OptMinDuration, OptMaxDist},
	KindFling:      {OptDirection, OptNumberOfPointers},
	KindForceTouch: {OptMinForce, OptMaxForce, OptFeedbackOnActivation},
	KindNative:     {OptShouldActivateOnStart, OptDisallowInterruption},
}

// Supports reports whether the native recognizer of k accepts option.
func (k Kind) Supports(option string) bool {
	for _, o := range commonOptions {
		if o == option {
			return true
		}
	}
	if option == OptManualActivation {
		return k.IsContinuous()
	}
	for _, o := range kindOptions[k] {
		if o == option {
			return true
		}
	}
	return false
}

// Direction is a bit set of fling directions.
type Direction int

const (
	DirectionRight Direction = 1 << iota
	DirectionLeft
	DirectionUp
	DirectionDown
)
