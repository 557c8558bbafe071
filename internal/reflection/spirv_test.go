package reflection

import (
	"encoding/binary"
	"errors"
	"testing"
)

// asm assembles SPIR-V instructions for tests.
type asm struct {
	words []uint32
}

func newAsm() *asm {
	return &asm{words: []uint32{spirvMagic, 0x00010300, 0, 200, 0}}
}

func (a *asm) op(code uint32, operands ...uint32) *asm {
	a.words = append(a.words, uint32(len(operands)+1)<<16|code)
	a.words = append(a.words, operands...)
	return a
}

func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return w
}

func (a *asm) entryPoint(model, fn uint32, name string, iface ...uint32) *asm {
	ops := append([]uint32{model, fn}, str(name)...)
	return a.op(opEntryPoint, append(ops, iface...)...)
}

// Ids used by the test modules.
const (
	idFloat = 1 + iota
	idInt
	idUint
	idVec4
	idStruct
	idPtrUniform
	idPtrStorage
	idSampler
	idPtrSampler
	idImage
	idPtrImage
	idStorageImage
	idPtrStorageImage
	idPtrInputVec4
	idPushStruct
	idPtrPush
	idVarUBO
	idVarSSBO
	idVarSampler
	idVarImage
	idVarStorageImage
	idVarPos
	idVarColor
	idVarPush
	idMain
	idUnlisted
)

func vertexModule() *asm {
	a := newAsm()
	a.entryPoint(execVertex, idMain, "main", idVarPos, idVarColor)
	a.op(opMemberName, append([]uint32{idPushStruct, 0}, str("scale")...)...)
	a.op(opMemberName, append([]uint32{idPushStruct, 1}, str("count")...)...)

	a.op(opDecorate, idStruct, decorationBlock)
	a.op(opDecorate, idVarUBO, decorationDescriptorSet, 0)
	a.op(opDecorate, idVarUBO, decorationBinding, 0)
	a.op(opDecorate, idVarSSBO, decorationDescriptorSet, 1)
	a.op(opDecorate, idVarSSBO, decorationBinding, 2)
	a.op(opDecorate, idVarSSBO, decorationNonWritable)
	a.op(opDecorate, idVarSampler, decorationDescriptorSet, 0)
	a.op(opDecorate, idVarSampler, decorationBinding, 3)
	a.op(opDecorate, idVarImage, decorationDescriptorSet, 0)
	a.op(opDecorate, idVarImage, decorationBinding, 4)
	a.op(opDecorate, idVarStorageImage, decorationDescriptorSet, 2)
	a.op(opDecorate, idVarStorageImage, decorationBinding, 15)
	a.op(opDecorate, idVarPos, decorationLocation, 0)
	a.op(opDecorate, idVarColor, decorationLocation, 5)
	a.op(opDecorate, idUnlisted, decorationLocation, 9)
	a.op(opMemberDecorate, idPushStruct, 0, decorationOffset, 0)
	a.op(opMemberDecorate, idPushStruct, 1, decorationOffset, 16)

	a.op(opTypeFloat, idFloat, 32)
	a.op(opTypeInt, idInt, 32, 1)
	a.op(opTypeInt, idUint, 32, 0)
	a.op(opTypeVector, idVec4, idFloat, 4)
	a.op(opTypeStruct, idStruct, idVec4)
	a.op(opTypePointer, idPtrUniform, storageUniform, idStruct)
	a.op(opTypePointer, idPtrStorage, storageStorageBuffer, idStruct)
	a.op(opTypeSampler, idSampler)
	a.op(opTypePointer, idPtrSampler, storageUniformConstant, idSampler)
	a.op(opTypeImage, idImage, idFloat, 1, 0, 0, 0, 1, 0)
	a.op(opTypePointer, idPtrImage, storageUniformConstant, idImage)
	a.op(opTypeImage, idStorageImage, idFloat, 1, 0, 0, 0, 2, 1)
	a.op(opTypePointer, idPtrStorageImage, storageUniformConstant, idStorageImage)
	a.op(opTypePointer, idPtrInputVec4, storageInput, idVec4)
	a.op(opTypeStruct, idPushStruct, idVec4, idInt)
	a.op(opTypePointer, idPtrPush, storagePushConstant, idPushStruct)

	a.op(opVariable, idPtrUniform, idVarUBO, storageUniform)
	a.op(opVariable, idPtrStorage, idVarSSBO, storageStorageBuffer)
	a.op(opVariable, idPtrSampler, idVarSampler, storageUniformConstant)
	a.op(opVariable, idPtrImage, idVarImage, storageUniformConstant)
	a.op(opVariable, idPtrStorageImage, idVarStorageImage, storageUniformConstant)
	a.op(opVariable, idPtrInputVec4, idVarPos, storageInput)
	a.op(opVariable, idPtrInputVec4, idVarColor, storageInput)
	a.op(opVariable, idPtrInputVec4, idUnlisted, storageInput)
	a.op(opVariable, idPtrPush, idVarPush, storagePushConstant)
	return a
}

func TestParseSPIRVVertexModule(t *testing.T) {
	m, err := ParseSPIRV(vertexModule().words)
	if err != nil {
		t.Fatalf("ParseSPIRV: %v", err)
	}
	if m.Stage != StageVertex {
		t.Errorf("Stage = %v, want Vertex", m.Stage)
	}
	ep, ok := m.EntryPoint("main")
	if !ok || ep.Stage != StageVertex {
		t.Errorf("EntryPoint(main) = %+v, %v", ep, ok)
	}
	for g := range MaxBindGroups {
		if ep.Bindings[g] != m.UsedBindings(g) {
			t.Errorf("entry point group %d bindings = %#b, want %#b", g, ep.Bindings[g], m.UsedBindings(g))
		}
	}

	tests := []struct {
		group, binding int
		kind           BindingKind
		id             uint32
	}{
		{0, 0, BindingUniformBuffer, idVarUBO},
		{1, 2, BindingReadOnlyStorageBuffer, idVarSSBO},
		{0, 3, BindingSampler, idVarSampler},
		{0, 4, BindingSampledTexture, idVarImage},
		{2, 15, BindingStorageTexture, idVarStorageImage},
	}
	for _, tt := range tests {
		got := m.Bindings[tt.group][tt.binding]
		if !got.Used || got.Kind != tt.kind || got.ID != tt.id {
			t.Errorf("binding (%d,%d) = %+v, want kind %v id %d", tt.group, tt.binding, got, tt.kind, tt.id)
		}
	}
	if got := m.UsedBindings(0); got != 1<<0|1<<3|1<<4 {
		t.Errorf("UsedBindings(0) = %#b", got)
	}

	// Location 9 is not in the entry point interface.
	if m.UsedVertexAttributes != 1<<0|1<<5 {
		t.Errorf("UsedVertexAttributes = %#b, want %#b", m.UsedVertexAttributes, uint32(1<<0|1<<5))
	}

	pc := m.PushConstants
	if pc.Mask != 0x1F {
		t.Errorf("push constant mask = %#x, want 0x1f", pc.Mask)
	}
	if pc.Names[0] != "scale" || pc.Sizes[0] != 4 || pc.Types[0] != PushConstantFloat {
		t.Errorf("slot 0 = %q size %d type %d", pc.Names[0], pc.Sizes[0], pc.Types[0])
	}
	if pc.Names[4] != "count" || pc.Sizes[4] != 1 || pc.Types[4] != PushConstantInt {
		t.Errorf("slot 4 = %q size %d type %d", pc.Names[4], pc.Sizes[4], pc.Types[4])
	}
}

func TestParseSPIRVStorageBufferWritable(t *testing.T) {
	a := newAsm()
	a.entryPoint(execGLCompute, idMain, "cs")
	a.op(opDecorate, idStruct, decorationBufferBlock)
	a.op(opDecorate, idVarSSBO, decorationDescriptorSet, 0)
	a.op(opDecorate, idVarSSBO, decorationBinding, 1)
	a.op(opTypeFloat, idFloat, 32)
	a.op(opTypeRuntimeArr, idVec4, idFloat)
	a.op(opTypeStruct, idStruct, idVec4)
	a.op(opTypePointer, idPtrUniform, storageUniform, idStruct)
	a.op(opVariable, idPtrUniform, idVarSSBO, storageUniform)

	m, err := ParseSPIRV(a.words)
	if err != nil {
		t.Fatalf("ParseSPIRV: %v", err)
	}
	if m.Stage != StageCompute {
		t.Errorf("Stage = %v, want Compute", m.Stage)
	}
	if got := m.Bindings[0][1]; !got.Used || got.Kind != BindingStorageBuffer {
		t.Errorf("binding (0,1) = %+v, want StorageBuffer", got)
	}
}

func TestParseSPIRVErrors(t *testing.T) {
	overLimit := func(group, binding uint32) []uint32 {
		a := newAsm()
		a.entryPoint(execFragment, idMain, "fs")
		a.op(opDecorate, idVarSampler, decorationDescriptorSet, group)
		a.op(opDecorate, idVarSampler, decorationBinding, binding)
		a.op(opTypeSampler, idSampler)
		a.op(opTypePointer, idPtrSampler, storageUniformConstant, idSampler)
		a.op(opVariable, idPtrSampler, idVarSampler, storageUniformConstant)
		return a.words
	}
	attrOverLimit := func() []uint32 {
		a := newAsm()
		a.entryPoint(execVertex, idMain, "vs", idVarPos)
		a.op(opDecorate, idVarPos, decorationLocation, 16)
		a.op(opTypeFloat, idFloat, 32)
		a.op(opTypePointer, idPtrInputVec4, storageInput, idFloat)
		a.op(opVariable, idPtrInputVec4, idVarPos, storageInput)
		return a.words
	}

	tests := []struct {
		name  string
		words []uint32
		want  error
	}{
		{"empty", nil, ErrInvalidSPIRV},
		{"bad magic", []uint32{1, 2, 3, 4, 5}, ErrInvalidSPIRV},
		{"truncated", append(newAsm().words, 5<<16|opDecorate, 1), ErrInvalidSPIRV},
		{"no entry point", newAsm().words, ErrNoEntryPoint},
		{"unsupported model", newAsm().entryPoint(3, idMain, "gs").words, ErrUnsupportedStage},
		{"group over limit", overLimit(4, 0), ErrBindingOverLimits},
		{"binding over limit", overLimit(0, 16), ErrBindingOverLimits},
		{"attribute over limit", attrOverLimit(), ErrAttributeOverLimits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSPIRV(tt.words)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseSPIRV() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWordsFromBytes(t *testing.T) {
	words, err := WordsFromBytes([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil {
		t.Fatalf("WordsFromBytes: %v", err)
	}
	if len(words) != 2 || words[0] != spirvMagic || words[1] != 1 {
		t.Errorf("WordsFromBytes = %#x", words)
	}
	if _, err := WordsFromBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidSPIRV) {
		t.Errorf("odd length error = %v", err)
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		s     string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"vs_main", 2},
	}
	for _, tt := range tests {
		got, n := decodeString(str(tt.s))
		if got != tt.s || n != tt.words {
			t.Errorf("decodeString(%q) = %q, %d; want %d words", tt.s, got, n, tt.words)
		}
	}
}
