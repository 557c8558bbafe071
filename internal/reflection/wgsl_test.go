package reflection

import (
	"errors"
	"strings"
	"testing"
)

const vertexWGSL = `
struct Uniforms {
    offset: vec4<f32>,
}

struct VertexInput {
    @location(0) position: vec4<f32>,
    @location(3) color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

@vertex
fn vs_main(in: VertexInput, @location(7) extra: f32) -> @builtin(position) vec4<f32> {
    return in.position + in.color * extra + uniforms.offset;
}
`

const fragmentWGSL = `
@group(0) @binding(1) var samp: sampler;
@group(1) @binding(2) var tex: texture_2d<f32>;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const computeWGSL = `
@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> dst: array<f32>;

@compute @workgroup_size(64, 1, 1)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    dst[id.x] = src[id.x] * 2.0;
}
`

func TestFromWGSLVertex(t *testing.T) {
	m, words, err := FromWGSL(vertexWGSL)
	if err != nil {
		t.Fatalf("FromWGSL: %v", err)
	}
	if len(words) == 0 || words[0] != spirvMagic {
		t.Fatalf("SPIR-V output missing magic: %d words", len(words))
	}
	if m.Stage != StageVertex {
		t.Errorf("Stage = %v, want Vertex", m.Stage)
	}
	if got := m.Bindings[0][0]; !got.Used || got.Kind != BindingUniformBuffer {
		t.Errorf("binding (0,0) = %+v, want UniformBuffer", got)
	}
	want := uint32(1<<0 | 1<<3 | 1<<7)
	if m.UsedVertexAttributes != want {
		t.Errorf("UsedVertexAttributes = %#b, want %#b", m.UsedVertexAttributes, want)
	}
}

func TestFromWGSLFragment(t *testing.T) {
	m, _, err := FromWGSL(fragmentWGSL)
	if err != nil {
		t.Fatalf("FromWGSL: %v", err)
	}
	if m.Stage != StageFragment {
		t.Errorf("Stage = %v, want Fragment", m.Stage)
	}
	if got := m.Bindings[0][1]; got.Kind != BindingSampler || !got.Used {
		t.Errorf("binding (0,1) = %+v, want Sampler", got)
	}
	if got := m.Bindings[1][2]; got.Kind != BindingSampledTexture || !got.Used {
		t.Errorf("binding (1,2) = %+v, want SampledTexture", got)
	}
	if m.UsedVertexAttributes != 0 {
		t.Errorf("fragment inputs counted as vertex attributes: %#b", m.UsedVertexAttributes)
	}
}

func TestFromWGSLCompute(t *testing.T) {
	m, _, err := FromWGSL(computeWGSL)
	if err != nil {
		t.Fatalf("FromWGSL: %v", err)
	}
	ep, ok := m.EntryPoint("cs_main")
	if !ok {
		t.Fatal("entry point cs_main not found")
	}
	if ep.Stage != StageCompute || ep.Workgroup != [3]uint32{64, 1, 1} {
		t.Errorf("entry point = %+v", ep)
	}
	if got := m.Bindings[0][0].Kind; got != BindingReadOnlyStorageBuffer {
		t.Errorf("src kind = %v, want ReadOnlyStorageBuffer", got)
	}
	if got := m.Bindings[0][1].Kind; got != BindingStorageBuffer {
		t.Errorf("dst kind = %v, want StorageBuffer", got)
	}
}

const materialWGSL = `
struct Uniforms {
    offset: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var samp: sampler;
@group(0) @binding(2) var tex: texture_2d<f32>;

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i), 0.0, 0.0, 1.0) + uniforms.offset;
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, pos.xy);
}
`

func TestFromWGSLEntryPointBindings(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		vs, fs uint32
	}{
		{"per entry point", materialWGSL, 0b001, 0b110},
		{"helper function", strings.Replace(materialWGSL, "vec4<f32>(f32(i), 0.0, 0.0, 1.0)",
			"scale(vec4<f32>(f32(i), 0.0, 0.0, 1.0))", 1) + `
fn scale(v: vec4<f32>) -> vec4<f32> {
    return v * 2.0;
}
`, 0b111, 0b111},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := FromWGSL(tt.src)
			if err != nil {
				t.Fatalf("FromWGSL: %v", err)
			}
			vs, _ := m.EntryPoint("vs_main")
			fs, _ := m.EntryPoint("fs_main")
			if vs.Stage != StageVertex || fs.Stage != StageFragment {
				t.Fatalf("stages = %v, %v", vs.Stage, fs.Stage)
			}
			if vs.Bindings[0] != tt.vs || fs.Bindings[0] != tt.fs {
				t.Errorf("bindings = %#b, %#b, want %#b, %#b", vs.Bindings[0], fs.Bindings[0], tt.vs, tt.fs)
			}
		})
	}
}

func TestFromWGSLInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "fn broken( {"},
		{"unknown identifier", "@fragment fn fs() -> @location(0) vec4<f32> { return nope; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := FromWGSL(tt.src); !errors.Is(err, ErrInvalidWGSL) {
				t.Errorf("FromWGSL() error = %v, want ErrInvalidWGSL", err)
			}
		})
	}
}

// The SPIR-V walker must agree with the IR reflection on naga's own output.
func TestSPIRVMatchesWGSL(t *testing.T) {
	for _, src := range []string{vertexWGSL, fragmentWGSL, computeWGSL} {
		fromIR, words, err := FromWGSL(src)
		if err != nil {
			t.Fatalf("FromWGSL: %v", err)
		}
		fromSPIRV, err := ParseSPIRV(words)
		if err != nil {
			t.Fatalf("ParseSPIRV: %v", err)
		}
		if fromIR.Stage != fromSPIRV.Stage {
			t.Errorf("stage: IR %v, SPIR-V %v", fromIR.Stage, fromSPIRV.Stage)
		}
		if fromIR.UsedVertexAttributes != fromSPIRV.UsedVertexAttributes {
			t.Errorf("vertex attributes: IR %#b, SPIR-V %#b", fromIR.UsedVertexAttributes, fromSPIRV.UsedVertexAttributes)
		}
		for g := 0; g < MaxBindGroups; g++ {
			for b := 0; b < MaxBindingsPerGroup; b++ {
				ir, sp := fromIR.Bindings[g][b], fromSPIRV.Bindings[g][b]
				if ir.Used != sp.Used || ir.Kind != sp.Kind {
					t.Errorf("binding (%d,%d): IR %v/%v, SPIR-V %v/%v", g, b, ir.Used, ir.Kind, sp.Used, sp.Kind)
				}
			}
		}
	}
}
