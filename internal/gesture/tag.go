package gesture

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Tag identifies one recognizer instance. Valid tags are positive.
type Tag int64

// String returns the decimal tag.
func (t Tag) String() string { return strconv.FormatInt(int64(t), 10) }

// Valid reports whether t is a usable tag.
func (t Tag) Valid() bool { return t > 0 }

// Ref implements Referent.
func (t Tag) Ref() Ref { return Ref{tag: t} }

// Factory builds descriptors and allocates their tags.
// Tags are unique and increasing within one Factory.
// A Factory is safe for concurrent use.
type Factory struct {
	next    atomic.Int64
	context ExecutionContext
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDefaultContext sets the execution context new descriptors start with.
func WithDefaultContext(ctx ExecutionContext) FactoryOption {
	return func(f *Factory) {
		f.context = ctx
	}
}

// NewFactory creates a new Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LastTag returns the most recently allocated tag, or 0.
func (f *Factory) LastTag() Tag {
	return Tag(f.next.Load())
}

// New builds a descriptor of kind k.
func (f *Factory) New(k Kind) *Descriptor {
	d := &Descriptor{
		tag:         Tag(f.next.Add(1)),
		kind:        k,
		fingerprint: uuid.New(),
		context:     f.context,
		config:      Config{},
	}
	if k.IsContinuous() {
		d.calculator = CalculatorFor(k)
	}
	return d
}

// Tap returns a new tap gesture.
func (f *Factory) Tap() *Descriptor { return f.New(KindTap) }

// Pan returns a new pan gesture.
func (f *Factory) Pan() *Descriptor { return f.New(KindPan) }

// Pinch returns a new pinch gesture.
func (f *Factory) Pinch() *Descriptor { return f.New(KindPinch) }

// Rotation returns a new rotation gesture.
func (f *Factory) Rotation() *Descriptor { return f.New(KindRotation) }

// Fling returns a new fling gesture.
func (f *Factory) Fling() *Descriptor { return f.New(KindFling) }

// LongPress returns a new long press gesture.
func (f *Factory) LongPress() *Descriptor { return f.New(KindLongPress) }

// ForceTouch returns a new force touch gesture.
func (f *Factory) ForceTouch() *Descriptor { return f.New(KindForceTouch) }

// Hover returns a new hover gesture.
func (f *Factory) Hover() *Descriptor { return f.New(KindHover) }

// Native returns a new native view gesture.
func (f *Factory) Native() *Descriptor { return f.New(KindNative) }

// Manual returns a new manual gesture.
func (f *Factory) Manual() *Descriptor { return f.New(KindManual) }
