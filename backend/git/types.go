package git

import (
	"sync"

	"codnect.io/chrono"
	"github.com/GlintPay/defcheck/config"
	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

type Backend struct {
	Config      config.GitConfig
	Repo        *goGit.Repository
	PublicKeys  *ssh.PublicKeys
	EnableTrace bool

	scheduler chrono.TaskScheduler
	repoLock  sync.Mutex
}

// commitStore exposes the definition files under one directory of a commit
type commitStore struct {
	RepoUri string
	Subdir  string
	Commit  *object.Commit
	lock    *sync.Mutex
}

type fileWrapper struct {
	RepoUri string
	Dir     string
	File    *object.File
}

type fileBlob struct {
	Blob *object.Blob
}
