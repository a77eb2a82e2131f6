package file

import (
	"context"
	"errors"
	"fmt"
	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/utils"
	"github.com/rs/zerolog/log"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// NewStore exposes a single directory of definition files
func NewStore(dir string) backend.FileStore {
	return fileStore{DirPath: dir}
}

func (s *Backend) Init(_ context.Context, appConfig config.ApplicationConfiguration) error {
	s.Config = appConfig.File
	if s.Config.Path == "" {
		return errors.New("file backend requires `file.path`")
	}
	log.Debug().Msgf("Reading definitions from %s", utils.FriendlyFileName(s.Config.Path))
	return nil
}

func (s *Backend) GetCurrentState(_ context.Context, _ bool) (*backend.State, error) {
	info, err := os.Stat(s.Config.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.Config.Path)
	}

	return &backend.State{
		Files:   fileStore{DirPath: s.Config.Path},
		Version: "",
	}, nil
}

func (s *Backend) Close() {
	// NOOP
}

func (g fileWrapper) Name() string {
	return g.FileName
}

func (g fileWrapper) IsReadable() (bool, string) {
	if !utils.IsDefinitionFile(g.Name()) {
		return false, ""
	}
	return true, utils.DefinitionSuffix
}

func (g fileWrapper) FullyQualifiedName() string {
	return g.Path
}

func (g fileWrapper) Location() string {
	return g.Dir
}

func (g fileWrapper) Data() backend.Blob {
	return file{Path: g.Path}
}

func (g file) Reader() (io.ReadCloser, error) {
	return os.Open(g.Path)
}

func (s fileStore) Open(name string) (backend.File, error) {
	filePath := filepath.Join(s.DirPath, name)

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist}
	}

	return fileWrapper{FileName: name, Path: filePath, Dir: s.DirPath}, nil
}

func (s fileStore) ForEach(handler func(f backend.File) error) error {
	dirEntry, err := os.ReadDir(s.DirPath)
	if err != nil {
		return err
	}

	for _, d := range dirEntry {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if e := handler(fileWrapper{FileName: name, Path: filepath.Join(s.DirPath, name), Dir: s.DirPath}); e != nil {
			return e
		}
	}
	return nil
}
