package nxt

import "github.com/gogpu/gputypes"

// programmableStage is one shader stage of a pipeline.
type programmableStage struct {
	module     *ShaderModule
	entryPoint string
}

// pipelineBase holds what render and compute pipelines share: the layout
// and the shader stages.
type pipelineBase struct {
	layout *PipelineLayout
	stages map[gputypes.ShaderStage]programmableStage
}

// Layout returns the pipeline layout.
func (p *pipelineBase) Layout() *PipelineLayout { return p.layout }

func (p *pipelineBase) release() {
	for _, s := range p.stages {
		s.module.Release()
	}
	p.layout.Release()
}

// pipelineBuilder accumulates the shared pipeline properties.
type pipelineBuilder struct {
	builder
	label  string
	layout *PipelineLayout
	stages map[gputypes.ShaderStage]programmableStage
}

func (b *pipelineBuilder) setLayout(layout *PipelineLayout) {
	if !b.usable() {
		return
	}
	if b.layout != nil {
		b.fail(validationError("Pipeline layout property set multiple times"))
		return
	}
	b.layout = layout
}

func (b *pipelineBuilder) setStage(stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) {
	if !b.usable() {
		return
	}
	if module.Stages()&stage == 0 {
		b.fail(validationError("Setting module with wrong stages"))
		return
	}
	if _, ok := b.stages[stage]; ok {
		b.fail(validationError("Setting already set stage"))
		return
	}
	if b.stages == nil {
		b.stages = make(map[gputypes.ShaderStage]programmableStage)
	}
	b.stages[stage] = programmableStage{module: module, entryPoint: entryPoint}
}

// base validates the stages against the layout and takes references on
// them. A missing layout is replaced by the empty one.
func (b *pipelineBuilder) base(required ...gputypes.ShaderStage) (pipelineBase, error) {
	for _, stage := range required {
		if _, ok := b.stages[stage]; !ok {
			return pipelineBase{}, validationError("Pipeline doesn't have all required stages")
		}
	}
	if len(b.stages) != len(required) {
		return pipelineBase{}, validationError("Pipeline has unexpected stages")
	}

	layout := b.layout
	if layout == nil {
		layout = b.device.emptyPipelineLayout()
		if layout == nil {
			return pipelineBase{}, validationError("Pipeline could not create its default layout")
		}
	} else {
		layout.Reference()
	}

	for stage, s := range b.stages {
		ep, ok := s.module.module.EntryPoint(s.entryPoint)
		if !ok || stageBit(ep.Stage) != stage {
			layout.Release()
			return pipelineBase{}, validationError("Entry point %q not found in the %v shader", s.entryPoint, stage)
		}
		if err := s.module.compatibilityError(layout, ep); err != nil {
			layout.Release()
			return pipelineBase{}, err
		}
	}
	for _, s := range b.stages {
		s.module.Reference()
	}
	return pipelineBase{layout: layout, stages: b.stages}, nil
}
