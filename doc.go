// Package nxt is a validating GPU object model on top of the gogpu/wgpu
// hardware abstraction layer.
//
// # Overview
//
// Every GPU object is created from a Device through a builder: set the
// properties, then call GetResult. A builder is single use; an invalid
// property poisons it and GetResult reports one error and returns nil.
// Objects are reference counted with Reference and Release, and the GPU
// side of an object is destroyed only after the last submission using it
// has completed.
//
// # Quick Start
//
//	import "github.com/gogpu/nxt"
//
//	device, err := nxt.NewDevice(nil, nxt.WithBackend("noop"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer device.Release()
//	device.SetErrorCallback(func(msg string) { log.Println(msg) })
//
//	buf := device.CreateBufferBuilder().
//		SetSize(256).
//		SetAllowedUsage(gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst).
//		SetInitialUsage(gputypes.BufferUsageCopyDst).
//		GetResult()
//	defer buf.Release()
//
//	queue := device.CreateQueue()
//	defer queue.Release()
//
// # Usage Tracking
//
// Buffers and textures have an allowed usage fixed at creation and a
// current usage that changes only through explicit transitions. Command
// buffers record transitions as commands; a submission is accepted only
// if every resource is in the usage the command buffer expects, and moves
// the resources to the usages the command buffer leaves them in.
//
// # Serials
//
// Each submission is stamped with the device's next serial. Device.Tick
// polls the GPU, advances the completed serial and runs everything
// waiting on it: deferred deletions, recycled command pools and buffer
// map callbacks.
//
// # Validation
//
// Public methods dispatch through a Procs table. ValidatingProcs checks
// every argument and validates command buffers as a whole;
// NonValidatingProcs, selected with WithoutValidation, trusts the
// caller.
//
// # Logging
//
// The package logs through log/slog and is silent by default. Use
// SetLogger to enable output.
package nxt

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
