package definition

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/backend/file"
	"github.com/GlintPay/defcheck/filetypes"
	"github.com/GlintPay/defcheck/utils"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrMissingAncestor    = errors.New("ancestor definition not found")
	ErrInheritanceCycle   = errors.New("inheritance cycle")
)

// Store locates definition files by file name, e.g. `fdmprinter.def.json`
type Store interface {
	Open(name string) (backend.File, error)
}

type Loader struct {
	Store     Store
	Decrypter filetypes.Decrypter

	// Strict turns a missing ancestor file into an error rather than ending the chain there
	Strict bool
}

// LoadFile loads the chain for a definition file, finding its ancestors alongside it
func LoadFile(path string, strict bool, decrypter filetypes.Decrypter) (*Chain, error) {
	loader := Loader{Store: file.NewStore(filepath.Dir(path)), Decrypter: decrypter, Strict: strict}
	return loader.LoadNamed(filepath.Base(path))
}

// LoadNamed loads the chain starting from a file name within the store
func (l *Loader) LoadNamed(fileName string) (*Chain, error) {
	return l.load(utils.DefinitionName(fileName), fileName)
}

// Load loads the chain for a definition name, following `inherits` until the root.
// Each ancestor is expected as `<inherits>.def.json` in the same store.
func (l *Loader) Load(name string) (*Chain, error) {
	return l.load(name, utils.DefinitionFileName(name))
}

func (l *Loader) load(name string, fileName string) (*Chain, error) {
	chain := newChain()
	visited := hashset.New()

	for {
		if visited.Contains(name) {
			return nil, errors.Wrapf(ErrInheritanceCycle, "%s is reached twice via %s", name, strings.Join(chain.Names(), " > "))
		}
		visited.Add(name)

		f, err := l.Store.Open(fileName)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, errors.Wrapf(err, "opening %s", fileName)
			}
			if chain.Len() == 0 {
				return nil, errors.Wrapf(ErrDefinitionNotFound, "%s", fileName)
			}
			if l.Strict {
				return nil, errors.Wrapf(ErrMissingAncestor, "%s, inherited by %s", fileName, chain.definitions[chain.Len()-1].Name)
			}
			log.Debug().Msgf("Ancestor %s not found, chain ends at %s", fileName, strings.Join(chain.Names(), " > "))
			break
		}

		data, err := filetypes.ToBytes(f, l.Decrypter)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f.FullyQualifiedName())
		}

		def, err := Parse(name, f.FullyQualifiedName(), data)
		if err != nil {
			return nil, err
		}
		chain.append(def)

		parent, ok := def.Parent()
		if !ok {
			break
		}
		name = parent
		fileName = utils.DefinitionFileName(parent)
	}

	chain.prepareRoot()

	log.Debug().Msgf("Loaded chain %s", strings.Join(chain.Names(), " > "))
	return chain, nil
}
