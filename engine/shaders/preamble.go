package shaders

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// Chunk is one piece of GLSL text, concatenated in order ahead of a pass source.
type Chunk string

const preambleText = `#version 450
#extension GL_ARB_separate_shader_objects : enable
layout(location = 0) in vec2 i_uv;
layout(location = 0) out vec4 o_color;
layout(set = 0, binding = 4) uniform UniformBufferObject {
  vec3  iResolution;
  float iTime;
  vec4  iMouse;
  vec4  iDate;
  float iTimeDelta;
  float iSampleRate;
  int   iFrame;
  float iFrameRate;
};
layout(push_constant) uniform PushConstants {
  vec4  iChannelResolution[4];
  float iChannelTime[4];
};
void mainImage( out vec4 fragColor, in vec2 fragCoord );
void main() {
  vec2 fragCoord = vec2(gl_FragCoord.x, gl_FragCoord.y);
  mainImage(o_color, fragCoord);
}
`

// Preamble is the boilerplate every pass is compiled with: interface variables,
// the global uniform block, the per pass push block and the entry point.
func Preamble() Chunk {
	return Chunk(preambleText)
}

func samplerType(t metadata.InputType) string {
	switch t {
	case metadata.InputTypeCubemap:
		return "samplerCube"
	case metadata.InputTypeVolume:
		return "sampler3D"
	default:
		return "sampler2D"
	}
}

// ChannelDeclarations declares one sampler per declared channel, in channel order.
func ChannelDeclarations(inputs []metadata.InputDeclaration) Chunk {
	sorted := append([]metadata.InputDeclaration(nil), inputs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Channel < sorted[j].Channel })

	var sb strings.Builder
	for _, in := range sorted {
		fmt.Fprintf(&sb, "uniform layout(set = 0, binding = %d) %s iChannel%d;\n", in.Channel, samplerType(in.Type), in.Channel)
	}
	return Chunk(sb.String())
}
