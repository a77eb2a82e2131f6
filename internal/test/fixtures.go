package test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/unflatten"
)

// Root is a small base definition: two categories, one of which nests a child setting
const Root = `{
    "name": "FDM Printer Base Description",
    "version": 2,
    "metadata": {"type": "machine", "visible": false},
    "settings": {
        "machine_settings": {
            "label": "Machine",
            "type": "category",
            "children": {
                "machine_width": {"label": "Machine Width", "type": "float", "default_value": 100},
                "machine_name": {"label": "Machine Type", "type": "str", "default_value": "Unknown"},
                "machine_heated_bed": {"label": "Has heated build plate", "type": "bool", "default_value": false}
            }
        },
        "resolution": {
            "label": "Quality",
            "type": "category",
            "children": {
                "layer_height": {
                    "label": "Layer Height",
                    "type": "float",
                    "default_value": 0.1,
                    "children": {
                        "layer_height_0": {"label": "Initial Layer Height", "type": "float", "default_value": 0.3, "value": "layer_height"}
                    }
                },
                "wall_line_count": {"label": "Wall Line Count", "type": "int", "default_value": 2}
            }
        }
    }
}`

// WriteDefinitions writes `<name>.def.json` files into dir, returning dir
func WriteDefinitions(t *testing.T, dir string, definitions map[string]string) string {
	t.Helper()
	for name, content := range definitions {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".def.json"), []byte(content), 0o600))
	}
	return dir
}

// DefinitionsDir writes definitions into a fresh temporary directory
func DefinitionsDir(t *testing.T, definitions map[string]string) string {
	t.Helper()
	return WriteDefinitions(t, t.TempDir(), definitions)
}

// MarshalHierarchicalTo decodes dotted keys, e.g. `resolution.layer_height`, into nested structures
// tagged with `from`
func MarshalHierarchicalTo(v map[string]any, outputStruct any) error {
	config := &mapstructure.DecoderConfig{ZeroFields: true, TagName: "from", Result: outputStruct, WeaklyTypedInput: true}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(unflatten.Unflatten(v, func(k string) []string { return strings.Split(k, ".") }))
}
