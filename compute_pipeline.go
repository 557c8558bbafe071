package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ComputePipeline is a validated compute pipeline.
type ComputePipeline struct {
	object
	pipelineBase
	hal hal.ComputePipeline
}

// HAL returns the backend pipeline.
func (p *ComputePipeline) HAL() hal.ComputePipeline { return p.hal }

func (p *ComputePipeline) destroyImpl() {
	if d := p.device; !d.closed {
		d.engine.Deleter().DeleteComputePipeline(p.hal)
	}
	p.release()
}

// ComputePipelineBuilder configures a ComputePipeline. The compute stage is
// required.
type ComputePipelineBuilder struct {
	pipelineBuilder
}

// CreateComputePipelineBuilder starts a compute pipeline.
func (d *Device) CreateComputePipelineBuilder() *ComputePipelineBuilder {
	b := &ComputePipelineBuilder{}
	b.init(d)
	return b
}

// SetLabel names the pipeline in backend debug output.
func (b *ComputePipelineBuilder) SetLabel(label string) *ComputePipelineBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *ComputePipelineBuilder) SetResultCallback(fn BuilderCallback) *ComputePipelineBuilder {
	b.callback = fn
	return b
}

// SetLayout sets the pipeline layout; the empty layout is used otherwise.
func (b *ComputePipelineBuilder) SetLayout(layout *PipelineLayout) *ComputePipelineBuilder {
	b.device.procs.ComputePipelineBuilderSetLayout(b, layout)
	return b
}

// SetStage sets the compute module and entry point.
func (b *ComputePipelineBuilder) SetStage(stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) *ComputePipelineBuilder {
	b.device.procs.ComputePipelineBuilderSetStage(b, stage, module, entryPoint)
	return b
}

// GetResult creates the pipeline, or returns nil and reports the error.
func (b *ComputePipelineBuilder) GetResult() *ComputePipeline {
	return b.device.procs.ComputePipelineBuilderGetResult(b)
}

func (b *ComputePipelineBuilder) getResult() *ComputePipeline {
	return result(&b.builder, func() (*ComputePipeline, error) {
		base, err := b.base(gputypes.ShaderStageCompute)
		if err != nil {
			return nil, err
		}
		stage := base.stages[gputypes.ShaderStageCompute]
		hp, err := b.device.engine.Device().CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  b.label,
			Layout: base.layout.hal,
			Compute: hal.ComputeState{
				Module:     stage.module.hal,
				EntryPoint: stage.entryPoint,
			},
		})
		if err != nil {
			base.release()
			return nil, outOfMemory("create compute pipeline", err)
		}
		p := &ComputePipeline{pipelineBase: base, hal: hp}
		p.init(b.device, "ComputePipeline", p.destroyImpl)
		return p, nil
	})
}
