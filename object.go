package nxt

import "sync/atomic"

// object is embedded by every reference-counted resource. The count starts
// at 1 and the destructor runs exactly once, when the count drops to zero.
// The device pointer is borrowed; resources never keep their device alive.
type object struct {
	refs    atomic.Int32
	device  *Device
	kind    string
	destroy func()
}

func (o *object) init(d *Device, kind string, destroy func()) {
	o.refs.Store(1)
	o.device = d
	o.kind = kind
	o.destroy = destroy
}

// Reference adds a reference. Safe for concurrent use.
func (o *object) Reference() {
	o.refs.Add(1)
}

// Release drops a reference and destroys the object when none remain.
// Releasing an object that is already destroyed is logged and ignored.
// Safe for concurrent use; the destructor runs on the releasing goroutine.
func (o *object) Release() {
	n := o.refs.Add(-1)
	switch {
	case n == 0:
		if o.destroy != nil {
			o.destroy()
		}
	case n < 0:
		o.refs.Add(1)
		Logger().Warn("nxt: release of destroyed object", "kind", o.kind)
	}
}

// RefCount returns the current reference count.
func (o *object) RefCount() int32 {
	return o.refs.Load()
}

// Device returns the device that created the object.
func (o *object) Device() *Device {
	return o.device
}

// alive reports whether the object has not been destroyed.
func (o *object) alive() bool {
	return o.refs.Load() > 0
}
