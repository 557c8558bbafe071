package reflection

import (
	"encoding/binary"
	"fmt"
)

// SPIR-V constants used by the walker.
const (
	spirvMagic = 0x07230203

	opMemberName     = 6
	opEntryPoint     = 15
	opTypeInt        = 21
	opTypeFloat      = 22
	opTypeVector     = 23
	opTypeImage      = 25
	opTypeSampler    = 26
	opTypeSampledImg = 27
	opTypeArray      = 28
	opTypeRuntimeArr = 29
	opTypeStruct     = 30
	opTypePointer    = 32
	opVariable       = 59
	opDecorate       = 71
	opMemberDecorate = 72

	decorationBlock         = 2
	decorationBufferBlock   = 3
	decorationNonWritable   = 24
	decorationLocation      = 30
	decorationBinding       = 33
	decorationDescriptorSet = 34
	decorationOffset        = 35

	storageUniformConstant = 0
	storageInput           = 1
	storageUniform         = 2
	storagePushConstant    = 9
	storageStorageBuffer   = 12

	execVertex    = 0
	execFragment  = 4
	execGLCompute = 5
)

// spirvType is the subset of a SPIR-V type declaration the walker needs.
type spirvType struct {
	op uint32
	// operands after the result id
	args []uint32
}

type memberKey struct {
	typ    uint32
	member uint32
}

// spirvDecorations holds the decorations of one id.
type spirvDecorations struct {
	set, binding, location       uint32
	hasSet, hasBinding, hasLoc   bool
	block, bufferBlock, readOnly bool
}

// WordsFromBytes converts a little-endian SPIR-V byte stream to words.
func WordsFromBytes(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: byte length %d is not a multiple of 4", ErrInvalidSPIRV, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// ParseSPIRV reflects a SPIR-V module.
func ParseSPIRV(words []uint32) (*Module, error) {
	if len(words) < 5 || words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidSPIRV)
	}

	types := make(map[uint32]spirvType)
	memberNames := make(map[memberKey]string)
	memberOffsets := make(map[memberKey]uint32)
	memberReadOnly := make(map[uint32]int)
	decorations := make(map[uint32]*spirvDecorations)
	type variable struct{ id, typ, class uint32 }
	var variables []variable
	type entry struct {
		model uint32
		name  string
		iface []uint32
	}
	var entries []entry

	deco := func(id uint32) *spirvDecorations {
		d, ok := decorations[id]
		if !ok {
			d = &spirvDecorations{}
			decorations[id] = d
		}
		return d
	}

	for pos := 5; pos < len(words); {
		count := int(words[pos] >> 16)
		op := words[pos] & 0xFFFF
		if count == 0 || pos+count > len(words) {
			return nil, fmt.Errorf("%w: truncated instruction at word %d", ErrInvalidSPIRV, pos)
		}
		ops := words[pos+1 : pos+count]
		pos += count

		switch op {
		case opMemberName:
			if len(ops) >= 3 {
				memberNames[memberKey{ops[0], ops[1]}], _ = decodeString(ops[2:])
			}
		case opEntryPoint:
			if len(ops) < 3 {
				return nil, fmt.Errorf("%w: short OpEntryPoint", ErrInvalidSPIRV)
			}
			name, n := decodeString(ops[2:])
			entries = append(entries, entry{model: ops[0], name: name, iface: ops[2+n:]})
		case opTypeInt, opTypeFloat, opTypeVector, opTypeImage, opTypeSampler,
			opTypeSampledImg, opTypeArray, opTypeRuntimeArr, opTypeStruct, opTypePointer:
			if len(ops) < 1 {
				return nil, fmt.Errorf("%w: short type declaration", ErrInvalidSPIRV)
			}
			types[ops[0]] = spirvType{op: op, args: ops[1:]}
		case opVariable:
			if len(ops) < 3 {
				return nil, fmt.Errorf("%w: short OpVariable", ErrInvalidSPIRV)
			}
			variables = append(variables, variable{id: ops[1], typ: ops[0], class: ops[2]})
		case opDecorate:
			if len(ops) < 2 {
				continue
			}
			d := deco(ops[0])
			switch ops[1] {
			case decorationBlock:
				d.block = true
			case decorationBufferBlock:
				d.bufferBlock = true
			case decorationNonWritable:
				d.readOnly = true
			case decorationLocation:
				if len(ops) >= 3 {
					d.location, d.hasLoc = ops[2], true
				}
			case decorationBinding:
				if len(ops) >= 3 {
					d.binding, d.hasBinding = ops[2], true
				}
			case decorationDescriptorSet:
				if len(ops) >= 3 {
					d.set, d.hasSet = ops[2], true
				}
			}
		case opMemberDecorate:
			if len(ops) < 3 {
				continue
			}
			key := memberKey{ops[0], ops[1]}
			switch ops[2] {
			case decorationOffset:
				if len(ops) >= 4 {
					memberOffsets[key] = ops[3]
				}
			case decorationNonWritable:
				memberReadOnly[ops[0]]++
			}
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoEntryPoint
	}

	m := &Module{}
	vertexInputs := make(map[uint32]bool)
	for i, e := range entries {
		stage, err := stageFromModel(e.model)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			m.Stage = stage
		}
		m.EntryPoints = append(m.EntryPoints, EntryPoint{Name: e.name, Stage: stage})
		if stage == StageVertex {
			for _, id := range e.iface {
				vertexInputs[id] = true
			}
		}
	}

	// unwrap follows arrays down to the element type.
	unwrap := func(id uint32) uint32 {
		for {
			t, ok := types[id]
			if !ok || (t.op != opTypeArray && t.op != opTypeRuntimeArr) || len(t.args) == 0 {
				return id
			}
			id = t.args[0]
		}
	}

	for _, v := range variables {
		ptr, ok := types[v.typ]
		if !ok || ptr.op != opTypePointer || len(ptr.args) < 2 {
			return nil, fmt.Errorf("%w: variable %d has no pointer type", ErrInvalidSPIRV, v.id)
		}
		base := ptr.args[1]
		d := decorations[v.id]
		if d == nil {
			d = &spirvDecorations{}
		}

		switch v.class {
		case storageUniformConstant, storageUniform, storageStorageBuffer:
			if !d.hasSet || !d.hasBinding {
				continue
			}
			kind, ok := resourceKind(v.class, types[unwrap(base)], decorations[unwrap(base)], d.readOnly || memberReadOnly[unwrap(base)] > 0)
			if !ok {
				continue
			}
			info := BindingInfo{ID: v.id, BaseTypeID: base, Kind: kind, Used: true}
			if err := m.setBinding(d.set, d.binding, info); err != nil {
				return nil, err
			}
		case storagePushConstant:
			if err := spirvPushConstants(m, types, base, memberNames, memberOffsets); err != nil {
				return nil, err
			}
		case storageInput:
			if d.hasLoc && vertexInputs[v.id] {
				if err := m.setVertexAttribute(d.location); err != nil {
					return nil, err
				}
			}
		}
	}

	// Before SPIR-V 1.4 the entry point interface lists only inputs and
	// outputs, so every entry point is assumed to use every resource.
	masks := m.bindingMasks()
	for i := range m.EntryPoints {
		m.EntryPoints[i].Bindings = masks
	}
	return m, nil
}

// resourceKind classifies a descriptor-bound variable.
func resourceKind(class uint32, t spirvType, d *spirvDecorations, readOnly bool) (BindingKind, bool) {
	switch t.op {
	case opTypeSampler:
		return BindingSampler, true
	case opTypeSampledImg:
		return BindingSampledTexture, true
	case opTypeImage:
		// Sampled operand: 1 = used with a sampler, 2 = storage image.
		if len(t.args) >= 6 && t.args[5] == 2 {
			return BindingStorageTexture, true
		}
		return BindingSampledTexture, true
	case opTypeStruct:
		storage := class == storageStorageBuffer || (d != nil && d.bufferBlock)
		switch {
		case storage && readOnly:
			return BindingReadOnlyStorageBuffer, true
		case storage:
			return BindingStorageBuffer, true
		case class == storageUniform:
			return BindingUniformBuffer, true
		}
	}
	return 0, false
}

// spirvPushConstants records the members of a push constant block.
func spirvPushConstants(m *Module, types map[uint32]spirvType, block uint32,
	memberNames map[memberKey]string, memberOffsets map[memberKey]uint32) error {
	t, ok := types[block]
	if !ok || t.op != opTypeStruct {
		return fmt.Errorf("%w: push constant block is not a struct", ErrInvalidSPIRV)
	}
	for i, member := range t.args {
		key := memberKey{block, uint32(i)}
		size, typ, ok := spirvScalarLayout(types, member)
		if !ok {
			return fmt.Errorf("%w: push constant %q is not a 32-bit scalar or vector", ErrInvalidSPIRV, memberNames[key])
		}
		if err := m.setPushConstant(memberNames[key], memberOffsets[key]/4, size, typ); err != nil {
			return err
		}
	}
	return nil
}

// spirvScalarLayout returns the word size and scalar type of a 32-bit
// scalar or vector type.
func spirvScalarLayout(types map[uint32]spirvType, id uint32) (uint32, PushConstantType, bool) {
	size := uint32(1)
	t, ok := types[id]
	if ok && t.op == opTypeVector && len(t.args) >= 2 {
		size = t.args[1]
		t, ok = types[t.args[0]]
	}
	if !ok || len(t.args) < 1 || t.args[0] != 32 {
		return 0, 0, false
	}
	switch t.op {
	case opTypeFloat:
		return size, PushConstantFloat, true
	case opTypeInt:
		if len(t.args) >= 2 && t.args[1] == 1 {
			return size, PushConstantInt, true
		}
		return size, PushConstantUInt, true
	}
	return 0, 0, false
}

func stageFromModel(model uint32) (Stage, error) {
	switch model {
	case execVertex:
		return StageVertex, nil
	case execFragment:
		return StageFragment, nil
	case execGLCompute:
		return StageCompute, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedStage, model)
}

// decodeString decodes a nul-terminated SPIR-V literal string and returns
// it with the number of words it occupies.
func decodeString(words []uint32) (string, int) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}
