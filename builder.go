package nxt

// BuilderErrorStatus is the status passed to a builder's result callback.
type BuilderErrorStatus uint8

// BuilderErrorStatus values.
const (
	BuilderErrorStatusSuccess BuilderErrorStatus = iota
	BuilderErrorStatusError
	BuilderErrorStatusUnknown
	BuilderErrorStatusContextLost
)

// String returns the status name.
func (s BuilderErrorStatus) String() string {
	switch s {
	case BuilderErrorStatusSuccess:
		return "Success"
	case BuilderErrorStatusError:
		return "Error"
	case BuilderErrorStatusUnknown:
		return "Unknown"
	case BuilderErrorStatusContextLost:
		return "ContextLost"
	default:
		return "Invalid"
	}
}

// BuilderCallback receives the outcome of a builder's GetResult.
type BuilderCallback func(status BuilderErrorStatus, message string)

const msgBuilderConsumed = "Builder cannot be used after GetResult"

// builder is the state shared by every fluent builder.
//
// A builder is open until GetResult, then consumed. The first failing call
// poisons it: the error goes to the device error callback right away and
// GetResult later returns nil.
type builder struct {
	device   *Device
	consumed bool
	err      error
	callback BuilderCallback
}

func (b *builder) init(d *Device) {
	b.device = d
}

// usable reports whether a configuration call may proceed. Calls on a
// consumed builder are reported; calls on a poisoned builder are ignored.
func (b *builder) usable() bool {
	if b.consumed {
		b.device.handleError(validationError(msgBuilderConsumed))
		return false
	}
	return b.err == nil
}

// fail poisons the builder and reports err.
func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
	b.device.handleError(err)
}

// finish delivers the result status once.
func (b *builder) finish(status BuilderErrorStatus, message string) {
	if b.callback != nil {
		b.callback(status, message)
		b.callback = nil
	}
}

// result runs the terminal GetResult protocol around build.
func result[T any](b *builder, build func() (T, error)) T {
	var zero T
	if b.consumed {
		b.device.handleError(validationError(msgBuilderConsumed))
		return zero
	}
	b.consumed = true
	if b.err != nil {
		b.finish(BuilderErrorStatusUnknown, b.err.Error())
		return zero
	}
	if b.device.closed {
		b.device.handleError(ErrDeviceLost)
		b.finish(BuilderErrorStatusContextLost, ErrDeviceLost.Error())
		return zero
	}
	v, err := build()
	if err != nil {
		b.device.handleError(err)
		b.finish(BuilderErrorStatusUnknown, err.Error())
		return zero
	}
	b.finish(BuilderErrorStatusSuccess, "")
	return v
}
