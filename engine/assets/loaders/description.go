package loaders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var ErrMalformedDescription = errors.New("malformed program description")

// DescriptionParams tells the loader where static input paths are rooted.
type DescriptionParams struct {
	ProjectDir string
}

// DescriptionLoader turns a description.json into a metadata.ProgramDeclaration.
type DescriptionLoader struct{}

// flexString accepts both strings and numbers, exports use either for ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type samplerNode struct {
	Filter string `json:"filter"`
	Wrap   string `json:"wrap"`
}

type inputNode struct {
	Channel  *int        `json:"channel"`
	Type     string      `json:"type"`
	ID       flexString  `json:"id"`
	Filepath string      `json:"filepath"`
	Sampler  samplerNode `json:"sampler"`
}

type passNode struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Inputs  []json.RawMessage `json:"inputs"`
	Outputs []struct {
		ID flexString `json:"id"`
	} `json:"outputs"`
}

type exportRoot struct {
	Renderpass []json.RawMessage `json:"renderpass"`
}

func (dl *DescriptionLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	projectDir := filepath.Dir(path)
	if p, ok := params.(*DescriptionParams); ok && p != nil && p.ProjectDir != "" {
		projectDir = p.ProjectDir
	}

	data, err := os.ReadFile(path)
	if err != nil {
		core.LogWarn("Cannot open file '%s'", path)
		return nil, err
	}

	decl, err := ParseDescription(data, filepath.Dir(path), projectDir)
	if err != nil {
		core.LogWarn("Cannot parse '%s': %s", path, err)
		return nil, err
	}

	return &metadata.Resource{
		Name:     filepath.Base(filepath.Dir(path)),
		FullPath: path,
		Type:     metadata.ResourceTypeDescription,
		DataSize: uint64(len(data)),
		Data:     decl,
	}, nil
}

func (dl *DescriptionLoader) Unload(*metadata.Resource) error {
	return nil
}

// LoadDescription reads the description of a program directory.
func LoadDescription(path, projectDir string) (*metadata.ProgramDeclaration, error) {
	res, err := (&DescriptionLoader{}).Load(path, metadata.ResourceTypeDescription, &DescriptionParams{ProjectDir: projectDir})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ProgramDeclaration), nil
}

// passNodes finds the node list in any of the accepted shapes: a bare node array,
// an export wrapped as [{"renderpass": [...]}] or {"renderpass": [...]}.
func passNodes(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrMalformedDescription
	}

	if trimmed[0] == '{' {
		var root exportRoot
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedDescription, err)
		}
		return root.Renderpass, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDescription, err)
	}
	if len(list) > 0 {
		var root exportRoot
		if err := json.Unmarshal(list[0], &root); err == nil && root.Renderpass != nil {
			return root.Renderpass, nil
		}
	}
	return list, nil
}

// ParseDescription decodes description bytes. Code paths are resolved against
// descriptionDir, static input paths against projectDir. Nodes and inputs that cannot
// be understood are skipped with a warning.
func ParseDescription(data []byte, descriptionDir, projectDir string) (*metadata.ProgramDeclaration, error) {
	nodes, err := passNodes(data)
	if err != nil {
		return nil, err
	}

	decl := &metadata.ProgramDeclaration{Dir: descriptionDir}
	for i, raw := range nodes {
		var node passNode
		if err := json.Unmarshal(raw, &node); err != nil {
			core.LogWarn("Skipping malformed pass node %d: %s", i, err)
			continue
		}
		passType, err := metadata.ParsePassType(node.Type)
		if err != nil {
			core.LogWarn("Skipping pass node %d: %s", i, err)
			continue
		}
		if node.Code == "" {
			core.LogWarn("Skipping %s node %d without code", node.Type, i)
			continue
		}

		pass := metadata.PassDeclaration{
			Type: passType,
			Code: filepath.Join(descriptionDir, node.Code),
		}
		if len(node.Outputs) > 0 {
			pass.OutputID = string(node.Outputs[0].ID)
		}
		if passType != metadata.PassTypeCommon {
			pass.Inputs = parseInputs(node.Inputs, projectDir)
		}
		decl.Passes = append(decl.Passes, pass)
	}
	return decl, nil
}

func parseInputs(raws []json.RawMessage, projectDir string) []metadata.InputDeclaration {
	inputs := make([]metadata.InputDeclaration, 0, len(raws))
	for i, raw := range raws {
		var node inputNode
		if err := json.Unmarshal(raw, &node); err != nil {
			core.LogWarn("Skipping malformed input %d: %s", i, err)
			continue
		}
		if node.Channel == nil {
			core.LogWarn("Skipping input %d without a channel", i)
			continue
		}
		inputType, err := metadata.ParseInputType(node.Type)
		if err != nil {
			core.LogWarn("Skipping input on channel %d: %s", *node.Channel, err)
			continue
		}

		in := metadata.InputDeclaration{
			Channel: *node.Channel,
			Type:    inputType,
			ID:      string(node.ID),
			Sampler: parseSampler(node.Sampler),
		}
		// Paths are project rooted, a leading slash included.
		if p := strings.TrimPrefix(node.Filepath, "/"); p != "" && inputType != metadata.InputTypeBuffer {
			in.FilePath = filepath.Join(projectDir, p)
		}
		inputs = append(inputs, in)
	}
	return inputs
}

func parseSampler(node samplerNode) metadata.SamplerSpec {
	spec := metadata.SamplerSpec{Filter: metadata.SamplerFilterNearest, Wrap: metadata.SamplerWrapRepeat}
	switch node.Filter {
	case "linear":
		spec.Filter = metadata.SamplerFilterLinear
	case "mipmap":
		spec.Filter = metadata.SamplerFilterMipmap
	case "nearest", "":
	default:
		core.LogWarn("unknown filter mode '%s'", node.Filter)
	}
	if node.Wrap == "clamp" {
		spec.Wrap = metadata.SamplerWrapClamp
	}
	return spec
}
