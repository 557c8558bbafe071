package nxt

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/cache"
	"github.com/gogpu/nxt/internal/reflection"
	"github.com/gogpu/wgpu/hal"
)

// ShaderModule is a compiled shader with its reflected interface.
type ShaderModule struct {
	object
	hal    hal.ShaderModule
	module *reflection.Module
}

// Stage returns the execution model of the module's first entry point.
func (m *ShaderModule) Stage() gputypes.ShaderStage {
	return stageBit(m.module.Stage)
}

// Stages returns the stages of all entry points.
func (m *ShaderModule) Stages() gputypes.ShaderStages {
	var stages gputypes.ShaderStages
	for _, ep := range m.module.EntryPoints {
		stages |= stageBit(ep.Stage)
	}
	return stages
}

// Reflection returns the reflected interface.
func (m *ShaderModule) Reflection() *reflection.Module { return m.module }

// HAL returns the backend shader module.
func (m *ShaderModule) HAL() hal.ShaderModule { return m.hal }

// IsCompatibleWithPipelineLayout reports whether every binding used by each
// entry point exists in layout with the same kind and a visibility that
// includes the entry point's stage.
func (m *ShaderModule) IsCompatibleWithPipelineLayout(layout *PipelineLayout) bool {
	for _, ep := range m.module.EntryPoints {
		if m.compatibilityError(layout, ep) != nil {
			return false
		}
	}
	return true
}

func (m *ShaderModule) compatibilityError(layout *PipelineLayout, ep reflection.EntryPoint) error {
	stage := stageBit(ep.Stage)
	for group, used := range ep.Bindings {
		if used == 0 {
			continue
		}
		bgl := layout.bindGroupLayouts[group]
		if bgl == nil {
			return validationError("Pipeline layout is missing group %d used by the %v shader", group, stage)
		}
		for binding := range reflection.MaxBindingsPerGroup {
			if used&(1<<binding) == 0 {
				continue
			}
			info := m.module.Bindings[group][binding]
			switch {
			case bgl.mask&(1<<binding) == 0:
				return validationError("Bind group layout %d is missing binding %d", group, binding)
			case bgl.types[binding] != BindingType(info.Kind):
				return validationError("Binding %d.%d is %v in the layout but %v in the shader",
					group, binding, bgl.types[binding], BindingType(info.Kind))
			case bgl.visibilities[binding]&stage == 0:
				return validationError("Binding %d.%d is not visible to the %v stage", group, binding, stage)
			}
		}
	}
	return nil
}

func (m *ShaderModule) destroyImpl() {
	if d := m.device; !d.closed {
		d.engine.Deleter().DeleteShaderModule(m.hal)
	}
}

func stageBit(s reflection.Stage) gputypes.ShaderStage {
	switch s {
	case reflection.StageVertex:
		return gputypes.ShaderStageVertex
	case reflection.StageFragment:
		return gputypes.ShaderStageFragment
	default:
		return gputypes.ShaderStageCompute
	}
}

// ShaderModuleBuilder creates a ShaderModule from SPIR-V words or WGSL.
type ShaderModuleBuilder struct {
	builder
	label string
	spirv []uint32
	wgsl  string
	set   bool
}

// CreateShaderModuleBuilder starts a shader module.
func (d *Device) CreateShaderModuleBuilder() *ShaderModuleBuilder {
	b := &ShaderModuleBuilder{}
	b.init(d)
	return b
}

// SetLabel names the module in backend debug output.
func (b *ShaderModuleBuilder) SetLabel(label string) *ShaderModuleBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *ShaderModuleBuilder) SetResultCallback(fn BuilderCallback) *ShaderModuleBuilder {
	b.callback = fn
	return b
}

// SetSource sets the module's SPIR-V code.
func (b *ShaderModuleBuilder) SetSource(words []uint32) *ShaderModuleBuilder {
	b.device.procs.ShaderModuleBuilderSetSource(b, words)
	return b
}

// SetWGSL sets the module's WGSL source.
func (b *ShaderModuleBuilder) SetWGSL(source string) *ShaderModuleBuilder {
	b.device.procs.ShaderModuleBuilderSetWGSL(b, source)
	return b
}

// GetResult creates the module, or returns nil and reports the error.
func (b *ShaderModuleBuilder) GetResult() *ShaderModule {
	return b.device.procs.ShaderModuleBuilderGetResult(b)
}

func (b *ShaderModuleBuilder) setSource(words []uint32) {
	if !b.usable() {
		return
	}
	if b.set {
		b.fail(validationError("Shader module source set multiple times"))
		return
	}
	b.spirv = append([]uint32(nil), words...)
	b.set = true
}

func (b *ShaderModuleBuilder) setWGSL(source string) {
	if !b.usable() {
		return
	}
	if b.set {
		b.fail(validationError("Shader module source set multiple times"))
		return
	}
	b.wgsl = source
	b.set = true
}

func (b *ShaderModuleBuilder) getResult() *ShaderModule {
	return result(&b.builder, b.build)
}

func (b *ShaderModuleBuilder) build() (*ShaderModule, error) {
	if !b.set {
		return nil, validationError("Shader module source not set")
	}

	var (
		mod *reflection.Module
		src hal.ShaderSource
		err error
	)
	if b.wgsl != "" {
		mod, src.SPIRV, err = b.device.compileWGSL(b.wgsl)
		src.WGSL = b.wgsl
	} else {
		mod, err = reflection.ParseSPIRV(b.spirv)
		src.SPIRV = b.spirv
	}
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Shader module: %v", err)}
	}

	hm, err := b.device.engine.Device().CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  b.label,
		Source: src,
	})
	if err != nil {
		return nil, outOfMemory("create shader module", err)
	}
	m := &ShaderModule{hal: hm, module: mod}
	m.init(b.device, "ShaderModule", m.destroyImpl)
	return m, nil
}

// compiledWGSL is the cached result of compiling one WGSL source.
type compiledWGSL struct {
	module *reflection.Module
	spirv  []uint32
}

// shaderCacheSize bounds the number of compiled WGSL sources a device keeps.
const shaderCacheSize = 64

// ShaderCacheStats reports the WGSL compile cache counters.
type ShaderCacheStats = cache.LRUStats

// ShaderCacheStats returns the WGSL compile cache counters.
func (d *Device) ShaderCacheStats() ShaderCacheStats {
	return d.shaderCode.Stats()
}

// compileWGSL returns the reflection and SPIR-V of source, compiling it
// only on a cache miss. Failed compilations are not cached.
func (d *Device) compileWGSL(source string) (*reflection.Module, []uint32, error) {
	if c, ok := d.shaderCode.Get(source); ok {
		return c.module, c.spirv, nil
	}
	mod, spirv, err := reflection.FromWGSL(source)
	if err != nil {
		return nil, nil, err
	}
	d.shaderCode.Add(source, compiledWGSL{module: mod, spirv: spirv})
	return mod, spirv, nil
}
