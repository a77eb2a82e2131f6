package definition

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Definition is one printer definition document in an inheritance chain
type Definition struct {
	Name     string
	File     string
	Inherits *string

	// Overrides is nil when the document has no `overrides` section at all
	Overrides *Overrides

	// Settings holds the nested category tree; only the root definition has one
	Settings []*SettingNode

	// Metadata keeps any other top-level content, e.g. `name`, `version` and `metadata`
	Metadata map[string]any
}

func (d *Definition) Parent() (string, bool) {
	if d.Inherits == nil {
		return "", false
	}
	return *d.Inherits, true
}

func (d *Definition) IsRoot() bool {
	return d.Inherits == nil
}

// Descriptor describes a single setting, or an override of one
type Descriptor struct {
	DefaultValue *Value
	Value        *Value
	Type         string

	// Category is the path of enclosing setting-tree nodes, populated by Flatten
	Category []string

	// Line of the setting's key in its source document
	Line int

	Extra map[string]any
}

// Checkable returns the values that take part in comparisons, `default_value` first
func (d *Descriptor) Checkable() []*Value {
	var values []*Value
	if d.DefaultValue != nil {
		values = append(values, d.DefaultValue)
	}
	if d.Value != nil {
		values = append(values, d.Value)
	}
	return values
}

// Effective returns `value` if present, else `default_value`
func (d *Descriptor) Effective() (*Value, bool) {
	if d.Value != nil {
		return d.Value, true
	}
	if d.DefaultValue != nil {
		return d.DefaultValue, true
	}
	return nil, false
}

type Value struct {
	Raw  any
	Line int
}

func (v *Value) String() string {
	return FormatValue(v.Raw)
}

type SettingNode struct {
	Name       string
	Descriptor *Descriptor
	Children   []*SettingNode
}

// Overrides maps setting keys to descriptors, preserving declaration order
type Overrides struct {
	m *linkedhashmap.Map
}

func NewOverrides() *Overrides {
	return &Overrides{m: linkedhashmap.New()}
}

// Put adds or replaces a descriptor. A replaced key keeps its original position.
func (o *Overrides) Put(key string, d *Descriptor) {
	o.m.Put(key, d)
}

func (o *Overrides) Get(key string) (*Descriptor, bool) {
	v, found := o.m.Get(key)
	if !found {
		return nil, false
	}
	return v.(*Descriptor), true
}

func (o *Overrides) Keys() []string {
	keys := make([]string, 0, o.m.Size())
	for _, k := range o.m.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

func (o *Overrides) Len() int {
	return o.m.Size()
}

func (o *Overrides) ForEach(f func(key string, d *Descriptor)) {
	it := o.m.Iterator()
	for it.Next() {
		f(it.Key().(string), it.Value().(*Descriptor))
	}
}
