package shaders

import (
	"context"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/core"
)

const (
	QuadEntryPoint      = "vs_main"
	CompositeEntryPoint = "main"
)

// Four vertices of a triangle strip covering clip space, no vertex buffer.
const quadShaderWGSL = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) vertexIndex: u32) -> VertexOutput {
    var positions = array<vec2<f32>, 4>(
        vec2<f32>(-1.0, -1.0),
        vec2<f32>( 1.0, -1.0),
        vec2<f32>(-1.0,  1.0),
        vec2<f32>( 1.0,  1.0)
    );

    var output: VertexOutput;
    let p = positions[vertexIndex];
    output.position = vec4<f32>(p, 0.0, 1.0);
    output.uv = p * 0.5 + vec2<f32>(0.5, 0.5);
    return output;
}
`

// The terminal pass output scaled by the crossfade factor. Texel lookup goes through
// gl_FragCoord so the orientation does not depend on the vertex stage.
const compositeShaderGLSL = `#version 450
layout(location = 0) in vec2 i_uv;
layout(location = 0) out vec4 o_color;
layout(set = 0, binding = 0) uniform sampler2D u_source;
layout(push_constant) uniform PushConstants {
  float u_factor;
};
void main() {
  vec2 size = vec2(textureSize(u_source, 0));
  vec2 uv = vec2(gl_FragCoord.x, size.y - gl_FragCoord.y) / size;
  o_color = vec4(texture(u_source, uv).rgb * u_factor, 1.0);
}
`

// CompositePushSize is the size of the crossfade push block.
const CompositePushSize = 4

// BuiltinShaders holds the shader stages every program shares.
type BuiltinShaders struct {
	QuadVertex []uint32
	Composite  []uint32
}

// CompileWGSL compiles a WGSL module to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WGSL: %w", err)
	}
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("failed to compile WGSL: %w", ErrEmptyOutput)
	}
	return loaders.BytesToBytecode(spirvBytes), nil
}

// LoadBuiltins compiles the shared stages once per run.
func LoadBuiltins(ctx context.Context, compiler *Compiler) (*BuiltinShaders, error) {
	quad, err := CompileWGSL(quadShaderWGSL)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	composite, err := compiler.CompileSource(ctx, "composite", compositeShaderGLSL)
	if err != nil {
		return nil, err
	}
	core.LogDebug("Built-in shaders compiled (%d + %d words).", len(quad), len(composite))
	return &BuiltinShaders{QuadVertex: quad, Composite: composite}, nil
}
