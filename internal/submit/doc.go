// Package submit sequences GPU work against completion.
//
// The Engine owns a serial clock: every submission to the HAL queue is
// stamped with the engine's next serial, and the completed serial advances as
// the queue reports finished submissions. Structures that must outlive the
// GPU's use of a resource are keyed by serial and drained on Tick:
//
//   - FencedDeleter destroys HAL handles once their serial has passed
//   - MapTracker fires buffer map callbacks
//   - Uploader retires staging buffers
//   - Memory applies deferred frees to the byte budget
//
// Command pools (a HAL command encoder plus the command buffers it produced)
// and fences are recycled rather than recreated.
//
// The engine is not safe for concurrent use. Memory is, so that statistics
// can be read from any goroutine.
package submit
