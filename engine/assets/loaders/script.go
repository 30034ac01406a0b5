package loaders

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var ErrEmptyScript = errors.New("didn't find any valid entries in the script")

// DefaultDuration is used by entries that name a program without a duration.
const DefaultDuration = 1.0

type scriptNode struct {
	Program  string          `json:"program"`
	Duration json.RawMessage `json:"duration"`
}

// ScriptLoader reads a playlist: an array of program names or {program, duration} objects.
type ScriptLoader struct{}

func (sl *ScriptLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("Cannot open file '%s'", path)
		return nil, err
	}

	entries, err := ParseScript(data)
	if err != nil {
		core.LogError("Cannot parse '%s': %s", path, err)
		return nil, err
	}

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		Type:     metadata.ResourceTypeScript,
		DataSize: uint64(len(entries)),
		Data:     entries,
	}, nil
}

func (sl *ScriptLoader) Unload(*metadata.Resource) error {
	return nil
}

// LoadScript reads the script at path.
func LoadScript(path string) ([]metadata.ScriptEntry, error) {
	res, err := (&ScriptLoader{}).Load(path, metadata.ResourceTypeScript, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.([]metadata.ScriptEntry), nil
}

// ParseScript decodes script bytes. Entries that are neither a string nor an object,
// or that name no program, are skipped. A duration that is not a number falls back to
// DefaultDuration.
func ParseScript(data []byte) ([]metadata.ScriptEntry, error) {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}

	var entries []metadata.ScriptEntry
	for i, raw := range nodes {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		entry := metadata.ScriptEntry{Duration: DefaultDuration}
		switch raw[0] {
		case '"':
			if err := json.Unmarshal(raw, &entry.Program); err != nil {
				core.LogWarn("Skipping script entry %d: %s", i, err)
				continue
			}
		case '{':
			var node scriptNode
			if err := json.Unmarshal(raw, &node); err != nil {
				core.LogWarn("Skipping script entry %d: %s", i, err)
				continue
			}
			entry.Program = node.Program
			if len(node.Duration) > 0 {
				if err := json.Unmarshal(node.Duration, &entry.Duration); err != nil {
					core.LogWarn("Script entry %d: duration is not a number, using %.1f", i, DefaultDuration)
					entry.Duration = DefaultDuration
				}
			}
		default:
			core.LogWarn("Skipping script entry %d: expected a program name or an object", i)
			continue
		}

		if entry.Program == "" {
			core.LogWarn("Skipping script entry %d without a program", i)
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyScript
	}
	return entries, nil
}
