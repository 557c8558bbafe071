package nxt

import "github.com/gogpu/nxt/internal/reflection"

// Limits consumed by descriptor validation.
const (
	MaxBindingsPerGroup = reflection.MaxBindingsPerGroup
	MaxBindGroups       = reflection.MaxBindGroups
	MaxVertexAttributes = reflection.MaxVertexAttributes
	MaxVertexInputs     = 16
	MaxPushConstants    = reflection.MaxPushConstants
	MaxColorAttachments = 4
)
