package definition

// Flatten collapses a setting tree into a single level keyed by setting name.
// Nodes are visited in declaration order, each node's children before the node itself,
// so where two nodes share a name the one visited last wins.
func Flatten(tree []*SettingNode) *Overrides {
	flat := NewOverrides()
	flattenInto(flat, tree, []string{})
	return flat
}

func flattenInto(flat *Overrides, nodes []*SettingNode, category []string) {
	for _, node := range nodes {
		if len(node.Children) > 0 {
			flattenInto(flat, node.Children, append(category[:len(category):len(category)], node.Name))
		}

		entry := Descriptor{}
		if node.Descriptor != nil {
			entry = *node.Descriptor
		}
		entry.Category = append([]string{}, category...)
		flat.Put(node.Name, &entry)
	}
}
