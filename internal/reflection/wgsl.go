package reflection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// ErrInvalidWGSL is returned when WGSL source fails to parse, lower or validate.
var ErrInvalidWGSL = errors.New("reflection: invalid WGSL")

// FromWGSL compiles WGSL source with naga and reflects the resulting IR.
// It also returns the SPIR-V words so backends that need SPIR-V can consume
// the same module.
func FromWGSL(source string) (*Module, []uint32, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	irModule, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	verrs, err := naga.Validate(irModule)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Message
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidWGSL, strings.Join(msgs, "; "))
	}

	m, err := reflectIR(irModule)
	if err != nil {
		return nil, nil, err
	}

	code, err := naga.GenerateSPIRV(irModule, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	words, err := WordsFromBytes(code)
	if err != nil {
		return nil, nil, err
	}
	return m, words, nil
}

func reflectIR(mod *ir.Module) (*Module, error) {
	if len(mod.EntryPoints) == 0 {
		return nil, ErrNoEntryPoint
	}

	m := &Module{}
	// slots maps a global variable index to its (group, binding).
	slots := make(map[ir.GlobalVariableHandle][2]uint32)
	for i, gv := range mod.GlobalVariables {
		switch gv.Space {
		case ir.SpaceUniform, ir.SpaceStorage, ir.SpaceHandle:
			if gv.Binding == nil {
				continue
			}
			kind, ok := irResourceKind(mod, gv)
			if !ok {
				continue
			}
			info := BindingInfo{ID: uint32(i), BaseTypeID: uint32(gv.Type), Kind: kind}
			if err := m.setBinding(gv.Binding.Group, gv.Binding.Binding, info); err != nil {
				return nil, err
			}
			slots[ir.GlobalVariableHandle(i)] = [2]uint32{gv.Binding.Group, gv.Binding.Binding}
		case ir.SpacePushConstant, ir.SpaceImmediate:
			if err := irPushConstants(m, mod, gv); err != nil {
				return nil, err
			}
		}
	}

	for i := range mod.EntryPoints {
		ep := &mod.EntryPoints[i]
		stage, err := stageFromIR(ep.Stage)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			m.Stage = stage
		}
		m.EntryPoints = append(m.EntryPoints, EntryPoint{
			Name:      ep.Name,
			Stage:     stage,
			Workgroup: ep.Workgroup,
			Bindings:  irEntryPointBindings(m, mod, &ep.Function, slots),
		})
		if stage != StageVertex {
			continue
		}
		for _, arg := range ep.Function.Arguments {
			if err := irVertexInputs(m, mod, arg.Type, arg.Binding); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// irEntryPointBindings returns the bindings referenced by an entry point
// function. Helper functions are not traced: a module that has any is
// assumed to use every binding from every entry point.
func irEntryPointBindings(m *Module, mod *ir.Module, fn *ir.Function, slots map[ir.GlobalVariableHandle][2]uint32) [MaxBindGroups]uint32 {
	if len(mod.Functions) > 0 {
		return m.bindingMasks()
	}
	var masks [MaxBindGroups]uint32
	for _, expr := range fn.Expressions {
		gv, ok := expr.Kind.(ir.ExprGlobalVariable)
		if !ok {
			continue
		}
		if slot, ok := slots[gv.Variable]; ok {
			masks[slot[0]] |= 1 << slot[1]
		}
	}
	return masks
}

func stageFromIR(s ir.ShaderStage) (Stage, error) {
	switch s {
	case ir.StageVertex:
		return StageVertex, nil
	case ir.StageFragment:
		return StageFragment, nil
	case ir.StageCompute:
		return StageCompute, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedStage, s)
}

// irLocation returns the location of a binding, if it is one.
func irLocation(b *ir.Binding) (uint32, bool) {
	if b == nil || *b == nil {
		return 0, false
	}
	switch lb := (*b).(type) {
	case ir.LocationBinding:
		return lb.Location, true
	case *ir.LocationBinding:
		return lb.Location, true
	}
	return 0, false
}

// irVertexInputs records the locations of a vertex entry point argument,
// descending into struct arguments.
func irVertexInputs(m *Module, mod *ir.Module, typ ir.TypeHandle, binding *ir.Binding) error {
	if loc, ok := irLocation(binding); ok {
		return m.setVertexAttribute(loc)
	}
	if int(typ) >= len(mod.Types) {
		return nil
	}
	st, ok := mod.Types[typ].Inner.(ir.StructType)
	if !ok {
		return nil
	}
	for _, member := range st.Members {
		if loc, ok := irLocation(member.Binding); ok {
			if err := m.setVertexAttribute(loc); err != nil {
				return err
			}
		}
	}
	return nil
}

// irResourceKind classifies a bound global variable.
func irResourceKind(mod *ir.Module, gv ir.GlobalVariable) (BindingKind, bool) {
	switch gv.Space {
	case ir.SpaceUniform:
		return BindingUniformBuffer, true
	case ir.SpaceStorage:
		if gv.Access == ir.StorageRead {
			return BindingReadOnlyStorageBuffer, true
		}
		return BindingStorageBuffer, true
	}

	typ := gv.Type
	for int(typ) < len(mod.Types) {
		switch inner := mod.Types[typ].Inner.(type) {
		case ir.BindingArrayType:
			typ = inner.Base
			continue
		case ir.SamplerType:
			return BindingSampler, true
		case ir.ImageType:
			if inner.Class == ir.ImageClassStorage {
				return BindingStorageTexture, true
			}
			return BindingSampledTexture, true
		}
		return 0, false
	}
	return 0, false
}

// irPushConstants records the push constant block of gv.
func irPushConstants(m *Module, mod *ir.Module, gv ir.GlobalVariable) error {
	if int(gv.Type) >= len(mod.Types) {
		return nil
	}
	inner := mod.Types[gv.Type].Inner
	st, ok := inner.(ir.StructType)
	if !ok {
		size, typ, ok := irScalarLayout(inner)
		if !ok {
			return fmt.Errorf("%w: push constant %q is not a 32-bit scalar or vector", ErrPushConstantOverLimits, gv.Name)
		}
		return m.setPushConstant(gv.Name, 0, size, typ)
	}
	for _, member := range st.Members {
		size, typ, ok := irScalarLayout(mod.Types[member.Type].Inner)
		if !ok {
			return fmt.Errorf("%w: push constant %q is not a 32-bit scalar or vector", ErrPushConstantOverLimits, member.Name)
		}
		if err := m.setPushConstant(member.Name, member.Offset/4, size, typ); err != nil {
			return err
		}
	}
	return nil
}

func irScalarLayout(inner ir.TypeInner) (uint32, PushConstantType, bool) {
	size := uint32(1)
	var scalar ir.ScalarType
	switch t := inner.(type) {
	case ir.ScalarType:
		scalar = t
	case ir.VectorType:
		size = uint32(t.Size)
		scalar = t.Scalar
	default:
		return 0, 0, false
	}
	if scalar.Width != 4 {
		return 0, 0, false
	}
	switch scalar.Kind {
	case ir.ScalarSint:
		return size, PushConstantInt, true
	case ir.ScalarUint:
		return size, PushConstantUInt, true
	case ir.ScalarFloat:
		return size, PushConstantFloat, true
	}
	return 0, 0, false
}
