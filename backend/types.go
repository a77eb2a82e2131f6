package backend

import (
	"context"
	"github.com/GlintPay/defcheck/config"
	"io"
)

type Backends []Backend

type Backend interface {
	Ordering
	Init(ctxt context.Context, config config.ApplicationConfiguration) error
	GetCurrentState(ctxt context.Context, refresh bool) (*State, error)
	Close()
}

type Ordering interface {
	Order() int // lower is higher priority
}

type State struct {
	Version string
	Files   FileStore
}

// FileStore is a flat collection of definition files. Open must return an error
// satisfying `errors.Is(err, fs.ErrNotExist)` when the file is absent.
type FileStore interface {
	Open(name string) (File, error)
	ForEach(f func(f File) error) error
}

type File interface {
	Name() string
	FullyQualifiedName() string
	Location() string

	IsReadable() (bool, string)
	Data() Blob
}

type Blob interface {
	Reader() (io.ReadCloser, error)
}
