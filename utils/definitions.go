package utils

import (
	"path/filepath"
	"strings"
)

const DefinitionSuffix = ".def.json"

// DefinitionName derives a definition's name from its file name by dropping up to two extensions,
// e.g. `creality_ender3.def.json` becomes `creality_ender3`.
func DefinitionName(fileName string) string {
	name := filepath.Base(fileName)
	for i := 0; i < 2; i++ {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func DefinitionFileName(name string) string {
	return name + DefinitionSuffix
}

func IsDefinitionFile(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(fileName), DefinitionSuffix)
}

// FriendlyFileName shortens a path to something readable in logs, relative to the working directory if possible
func FriendlyFileName(path string) string {
	if wd, err := filepath.Abs("."); err == nil {
		if rel, e := filepath.Rel(wd, path); e == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

func SplitNames(csv string) []string {
	return splitNonEmpty(csv)
}

func splitNonEmpty(csv string) []string {
	array := strings.Split(csv, ",")
	adjusted := make([]string, 0)
	for _, each := range array {
		trimmed := strings.TrimSpace(each)
		if trimmed != "" {
			adjusted = append(adjusted, trimmed)
		}
	}
	return adjusted
}
