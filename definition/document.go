package definition

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	keyInherits     = "inherits"
	keyOverrides    = "overrides"
	keySettings     = "settings"
	keyDefaultValue = "default_value"
	keyValue        = "value"
	keyType         = "type"
	keyChildren     = "children"
)

var ErrMalformedDefinition = errors.New("malformed definition")

// Parse reads a definition document. JSON is close enough to a subset of YAML that the yaml.v3 node tree gives us
// key declaration order and line numbers, which plain JSON decoding into maps would lose.
func Parse(name string, file string, data []byte) (*Definition, error) {
	// yaml.v3 is more lenient than JSON; only accept documents that are valid JSON
	var check any
	if err := json.Unmarshal(data, &check); err != nil {
		return nil, errors.Wrapf(ErrMalformedDefinition, "%s: %v", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(yamlCompatible(data), &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedDefinition, "%s: %v", file, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformedDefinition, "%s: top level is not an object", file)
	}

	def := &Definition{Name: name, File: file, Metadata: map[string]any{}}

	top := doc.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valNode := top.Content[i], top.Content[i+1]

		switch keyNode.Value {
		case keyInherits:
			if isNull(valNode) {
				continue
			}
			if valNode.Kind != yaml.ScalarNode {
				return nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: `inherits` must be a string", file, keyNode.Line)
			}
			parent := valNode.Value
			def.Inherits = &parent
		case keyOverrides:
			overrides, err := parseOverrides(file, valNode)
			if err != nil {
				return nil, err
			}
			def.Overrides = overrides
		case keySettings:
			tree, err := parseTree(file, valNode)
			if err != nil {
				return nil, err
			}
			def.Settings = tree
		default:
			var v any
			if err := valNode.Decode(&v); err != nil {
				return nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: %v", file, keyNode.Line, err)
			}
			def.Metadata[keyNode.Value] = v
		}
	}

	return def, nil
}

func parseOverrides(file string, node *yaml.Node) (*Overrides, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: `overrides` must be an object", file, node.Line)
	}

	overrides := NewOverrides()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		d, children, err := parseDescriptor(file, keyNode, valNode)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			return nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: override `%s` cannot have children", file, keyNode.Line, keyNode.Value)
		}
		overrides.Put(keyNode.Value, d)
	}
	return overrides, nil
}

func parseTree(file string, node *yaml.Node) ([]*SettingNode, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: setting tree must be an object", file, node.Line)
	}

	nodes := make([]*SettingNode, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		d, children, err := parseDescriptor(file, keyNode, valNode)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &SettingNode{Name: keyNode.Value, Descriptor: d, Children: children})
	}
	return nodes, nil
}

func parseDescriptor(file string, keyNode *yaml.Node, node *yaml.Node) (*Descriptor, []*SettingNode, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: `%s` must be an object", file, keyNode.Line, keyNode.Value)
	}

	d := &Descriptor{Line: keyNode.Line}
	var children []*SettingNode

	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		switch k.Value {
		case keyDefaultValue, keyValue:
			if isNull(v) {
				continue
			}
			var raw any
			if err := v.Decode(&raw); err != nil {
				return nil, nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: %v", file, k.Line, err)
			}
			if k.Value == keyDefaultValue {
				d.DefaultValue = &Value{Raw: raw, Line: k.Line}
			} else {
				d.Value = &Value{Raw: raw, Line: k.Line}
			}
		case keyType:
			if v.Kind == yaml.ScalarNode {
				d.Type = v.Value
			}
		case keyChildren:
			tree, err := parseTree(file, v)
			if err != nil {
				return nil, nil, err
			}
			children = tree
		default:
			var raw any
			if err := v.Decode(&raw); err != nil {
				return nil, nil, errors.Wrapf(ErrMalformedDefinition, "%s:%d: %v", file, k.Line, err)
			}
			if d.Extra == nil {
				d.Extra = map[string]any{}
			}
			d.Extra[k.Value] = raw
		}
	}

	return d, children, nil
}

// yamlCompatible rewrites valid JSON into text yaml.v3 scans the same way, without moving anything
// to another line: tabs outside strings become spaces, `\/` loses its backslash and whitespace
// between a key and its `:` moves after the colon.
func yamlCompatible(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString, escaped := false, false
	space := -1

	for _, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
				if c == '/' {
					out[len(out)-1] = '/'
					continue
				}
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			out = append(out, c)
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			if space < 0 {
				space = len(out)
			}
			if c == '\t' {
				c = ' '
			}
			out = append(out, c)
			continue
		case ':':
			if space >= 0 {
				ws := append([]byte{}, out[space:]...)
				out = append(append(out[:space], ':'), ws...)
				space = -1
				continue
			}
		case '"':
			inString = true
		}
		space = -1
		out = append(out, c)
	}
	return out
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
