// Package reflection extracts the resource interface of shader modules.
//
// Two sources are supported:
//   - SPIR-V word streams, decoded by a small instruction walker
//   - WGSL text, parsed and lowered by naga and reflected from its IR
//
// Both produce the same Module record, which pipeline creation uses to
// check compatibility with pipeline layouts and input states.
package reflection

import (
	"errors"
	"fmt"
)

// Limits shared with the public API.
const (
	MaxBindGroups       = 4
	MaxBindingsPerGroup = 16
	MaxVertexAttributes = 16
	MaxPushConstants    = 32
)

// Sentinel errors for reflection failures.
var (
	// ErrInvalidSPIRV is returned for malformed SPIR-V word streams.
	ErrInvalidSPIRV = errors.New("reflection: invalid SPIR-V")

	// ErrBindingOverLimits is returned when a resource uses a group or binding
	// index outside MaxBindGroups or MaxBindingsPerGroup.
	ErrBindingOverLimits = errors.New("reflection: bind group index over limits in the shader")

	// ErrPushConstantOverLimits is returned when push constants exceed MaxPushConstants.
	ErrPushConstantOverLimits = errors.New("reflection: push constants over limits in the shader")

	// ErrAttributeOverLimits is returned when a vertex input location is
	// at or above MaxVertexAttributes.
	ErrAttributeOverLimits = errors.New("reflection: vertex attribute location over limits in the shader")

	// ErrUnsupportedStage is returned for execution models other than
	// vertex, fragment and compute.
	ErrUnsupportedStage = errors.New("reflection: unsupported execution model")

	// ErrNoEntryPoint is returned when a module declares no entry point.
	ErrNoEntryPoint = errors.New("reflection: module has no entry point")
)

// Stage is a shader execution model.
type Stage uint8

// Stage values.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StageFragment:
		return "Fragment"
	case StageCompute:
		return "Compute"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// BindingKind is the kind of resource bound at a (group, binding) slot.
type BindingKind uint8

// BindingKind values.
const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingSampler
	BindingSampledTexture
	BindingStorageTexture
)

// String returns the binding kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "UniformBuffer"
	case BindingStorageBuffer:
		return "StorageBuffer"
	case BindingReadOnlyStorageBuffer:
		return "ReadOnlyStorageBuffer"
	case BindingSampler:
		return "Sampler"
	case BindingSampledTexture:
		return "SampledTexture"
	case BindingStorageTexture:
		return "StorageTexture"
	default:
		return fmt.Sprintf("BindingKind(%d)", uint8(k))
	}
}

// BindingInfo describes one resource declared by a module.
type BindingInfo struct {
	// ID is the SPIR-V result id (or global variable index for WGSL).
	ID uint32
	// BaseTypeID is the id of the variable's pointee type.
	BaseTypeID uint32
	Kind       BindingKind
	Used       bool
}

// PushConstantType is the scalar type of a push constant slot.
type PushConstantType uint8

// PushConstantType values.
const (
	PushConstantInt PushConstantType = iota
	PushConstantUInt
	PushConstantFloat
)

// PushConstants describes the push constant block, one slot per 32-bit word.
type PushConstants struct {
	// Mask has bit i set when slot i is declared.
	Mask  uint32
	Names [MaxPushConstants]string
	// Sizes holds the size in words of the member starting at each slot.
	Sizes [MaxPushConstants]uint32
	Types [MaxPushConstants]PushConstantType
}

// EntryPoint is one entry point of a module.
type EntryPoint struct {
	Name  string
	Stage Stage
	// Workgroup is the compute workgroup size, when known.
	Workgroup [3]uint32
	// Bindings has bit b of element g set for every binding (g, b) the
	// entry point uses.
	Bindings [MaxBindGroups]uint32
}

// Module is the reflected interface of a shader module.
type Module struct {
	// Stage is the execution model of the first entry point.
	Stage       Stage
	EntryPoints []EntryPoint

	Bindings      [MaxBindGroups][MaxBindingsPerGroup]BindingInfo
	PushConstants PushConstants

	// UsedVertexAttributes has bit i set for every vertex input location i.
	UsedVertexAttributes uint32
}

// EntryPoint returns the entry point with the given name.
func (m *Module) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range m.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// UsedBindings returns the mask of used bindings in group.
func (m *Module) UsedBindings(group int) uint32 {
	var mask uint32
	for i, b := range m.Bindings[group] {
		if b.Used {
			mask |= 1 << i
		}
	}
	return mask
}

// bindingMasks returns the used binding mask of every group.
func (m *Module) bindingMasks() [MaxBindGroups]uint32 {
	var masks [MaxBindGroups]uint32
	for g := range masks {
		masks[g] = m.UsedBindings(g)
	}
	return masks
}

// setBinding records a resource at (group, binding).
func (m *Module) setBinding(group, binding uint32, info BindingInfo) error {
	if group >= MaxBindGroups || binding >= MaxBindingsPerGroup {
		return fmt.Errorf("%w: group %d binding %d", ErrBindingOverLimits, group, binding)
	}
	info.Used = true
	m.Bindings[group][binding] = info
	return nil
}

// setPushConstant records a push constant member at a word offset.
func (m *Module) setPushConstant(name string, offset, size uint32, typ PushConstantType) error {
	if offset+size > MaxPushConstants {
		return fmt.Errorf("%w: %q at word %d size %d", ErrPushConstantOverLimits, name, offset, size)
	}
	pc := &m.PushConstants
	pc.Names[offset] = name
	pc.Sizes[offset] = size
	pc.Types[offset] = typ
	for i := offset; i < offset+size; i++ {
		pc.Mask |= 1 << i
	}
	return nil
}

// setVertexAttribute marks a vertex input location as used.
func (m *Module) setVertexAttribute(location uint32) error {
	if location >= MaxVertexAttributes {
		return fmt.Errorf("%w: location %d", ErrAttributeOverLimits, location)
	}
	m.UsedVertexAttributes |= 1 << location
	return nil
}
