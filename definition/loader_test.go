package definition

import (
	"path/filepath"
	"testing"

	"github.com/GlintPay/defcheck/backend/file"
	"github.com/GlintPay/defcheck/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	base    = `{"inherits": "fdmprinter", "overrides": {"machine_heated_bed": {"default_value": true}}}`
	middle  = `{"inherits": "creality_base", "metadata": {"visible": true}}`
	derived = `{"inherits": "creality_ender3", "overrides": {"machine_heated_bed": {"default_value": true}}}`
)

func TestLoadFile_Chain(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"fdmprinter":      test.Root,
		"creality_base":   base,
		"creality_ender3": middle,
		"creality_custom": derived,
	})

	chain, err := LoadFile(filepath.Join(dir, "creality_custom.def.json"), false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"creality_custom", "creality_ender3", "creality_base", "fdmprinter"}, chain.Names())
	assert.Equal(t, 4, chain.Len())
	assert.Equal(t, "creality_custom", chain.Leaf().Name)
	assert.Equal(t, filepath.Join(dir, "creality_custom.def.json"), chain.Leaf().File)

	root, ok := chain.Root()
	require.True(t, ok)
	assert.Equal(t, "fdmprinter", root.Name)
	assert.Nil(t, root.Settings)
	require.NotNil(t, root.Overrides)
	assert.Equal(t, 8, root.Overrides.Len())

	width, ok := root.Overrides.Get("machine_width")
	require.True(t, ok)
	assert.Equal(t, "float", width.Type)
	assert.Equal(t, []string{"machine_settings"}, width.Category)

	mid, ok := chain.Get("creality_ender3")
	require.True(t, ok)
	assert.Nil(t, mid.Overrides)
}

func TestLoad_MissingAncestor(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"creality_base":   base,
		"creality_ender3": middle,
	})

	t.Run("lenient", func(t *testing.T) {
		loader := Loader{Store: file.NewStore(dir)}
		chain, err := loader.Load("creality_ender3")
		require.NoError(t, err)

		assert.Equal(t, []string{"creality_ender3", "creality_base"}, chain.Names())
		_, ok := chain.Root()
		assert.False(t, ok)
	})

	t.Run("strict", func(t *testing.T) {
		loader := Loader{Store: file.NewStore(dir), Strict: true}
		_, err := loader.Load("creality_ender3")
		assert.ErrorIs(t, err, ErrMissingAncestor)
		assert.Contains(t, err.Error(), "fdmprinter.def.json, inherited by creality_base")
	})
}

func TestLoad_MissingLeaf(t *testing.T) {
	loader := Loader{Store: file.NewStore(t.TempDir())}

	_, err := loader.Load("nothing")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestLoad_Cycle(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"a": `{"inherits": "b", "overrides": {}}`,
		"b": `{"inherits": "c", "overrides": {}}`,
		"c": `{"inherits": "a", "overrides": {}}`,
		"d": `{"inherits": "d", "overrides": {}}`,
	})
	loader := Loader{Store: file.NewStore(dir)}

	for _, name := range []string{"a", "d"} {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Load(name)
			assert.ErrorIs(t, err, ErrInheritanceCycle)
		})
	}
}

func TestLoad_MalformedAncestor(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{
		"fdmprinter":    `{"settings": {`,
		"creality_base": base,
	})
	loader := Loader{Store: file.NewStore(dir)}

	_, err := loader.Load("creality_base")
	assert.ErrorIs(t, err, ErrMalformedDefinition)
	assert.Contains(t, err.Error(), "fdmprinter.def.json")
}

func TestLoad_RootOnly(t *testing.T) {
	dir := test.DefinitionsDir(t, map[string]string{"fdmprinter": test.Root})
	loader := Loader{Store: file.NewStore(dir)}

	chain, err := loader.Load("fdmprinter")
	require.NoError(t, err)

	root, ok := chain.Root()
	require.True(t, ok)
	assert.Same(t, chain.Leaf(), root)
	assert.Equal(t, "FDM Printer Base Description", root.Metadata["name"])
}

func TestNewChain_RootWithoutSettings(t *testing.T) {
	chain := NewChain(&Definition{Name: "bare"})

	root, ok := chain.Root()
	require.True(t, ok)
	assert.Nil(t, root.Overrides)
}
