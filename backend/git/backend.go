package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"codnect.io/chrono"
	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/config"
	gotel "github.com/GlintPay/defcheck/otel"
	"github.com/GlintPay/defcheck/utils"
	goGit "github.com/go-git/go-git/v5"
	goGitConfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/rs/zerolog/log"
)

func (s *Backend) Order() int {
	return s.Config.Order
}

func (s *Backend) Init(ctxt context.Context, config config.ApplicationConfiguration) error {
	s.Config = config.Git

	if s.Config.Uri == "" {
		return errors.New("git backend requires `git.uri`")
	}
	if s.Config.Basedir == "" {
		s.Config.Basedir = filepath.Join(os.TempDir(), "defcheck-git")
	}

	if s.Config.PrivateKey != "" {
		hostKeyCallback, err := ssh.NewKnownHostsCallback(s.Config.KnownHostsFile)
		if err != nil {
			return err
		}

		s.PublicKeys, err = ssh.NewPublicKeys("git", []byte(strings.TrimSpace(s.Config.PrivateKey)), "")
		if err != nil {
			return err
		}

		s.PublicKeys.HostKeyCallback = hostKeyCallback
	}

	if s.Config.CloneOnStart {
		log.Debug().Msg("Clone on startup...")

		if e := s.connect(ctxt, !s.Config.DisableBaseDirCleaning, false); e != nil {
			return e
		}
	}

	if s.Config.RefreshRateMillis > 0 {
		s.scheduler = chrono.NewDefaultTaskScheduler()

		period := time.Duration(s.Config.RefreshRateMillis) * time.Millisecond
		log.Info().Msgf("Scheduling pull every %v", period)

		_, err := s.scheduler.ScheduleAtFixedRate(func(ctx context.Context) {
			if e := s.connect(ctx, false, true); e != nil {
				log.Error().Err(e).Msgf("Scheduled pull failed")
			}
		}, period)

		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Backend) connect(ctxt context.Context, cleanExisting bool, pull bool) error {
	s.repoLock.Lock()
	defer s.repoLock.Unlock()

	if cleanExisting {
		if e := s.cleanRepo(); e != nil {
			return e
		}
	}

	branch := s.Config.DefaultBranchName
	if branch == "" {
		branch = "master"
	}
	ref := plumbing.ReferenceName("refs/heads/" + branch)

	repo, err := goGit.PlainOpen(s.Config.Basedir)

	if errors.Is(err, goGit.ErrRepositoryNotExists) {
		if s.EnableTrace {
			_, span := gotel.GetTracer(ctxt).Start(ctxt, "git-clone", gotel.ServerOptions)
			defer span.End()
		}

		repo, err = goGit.PlainCloneContext(ctxt, s.Config.Basedir, false, s.getCloneOptions(ref))
		if err != nil {
			return err
		}

		log.Debug().Msgf("Cloned [%s] OK", branch)
	} else if err != nil {
		return err
	} else {
		w, err := repo.Worktree()
		if err != nil {
			return err
		}

		head, err := repo.Head()
		if err == nil && head.Name() != ref {
			if err = s.checkout(repo, w, branch, ref); err != nil {
				return err
			}
		}

		if pull {
			if s.EnableTrace {
				_, span := gotel.GetTracer(ctxt).Start(ctxt, "git-pull", gotel.ServerOptions)
				defer span.End()
			}

			err = w.PullContext(ctxt, s.getPullOptions(ref))
			if err != nil && !errors.Is(err, goGit.NoErrAlreadyUpToDate) {
				return err
			}

			if s.Config.ForcePull {
				log.Debug().Msgf("Pulled OK (with force)")
			} else {
				log.Debug().Msgf("Pulled OK")
			}
		}
	}

	s.Repo = repo

	return nil
}

func (s *Backend) getCloneOptions(ref plumbing.ReferenceName) *goGit.CloneOptions {
	cloneOpts := &goGit.CloneOptions{
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         1, // only HEAD is ever read
		URL:           s.Config.Uri,
	}

	if s.PublicKeys != nil {
		cloneOpts.Auth = s.PublicKeys
	}
	if s.Config.ShowProgress {
		cloneOpts.Progress = os.Stdout
	}

	return cloneOpts
}

func (s *Backend) getPullOptions(ref plumbing.ReferenceName) *goGit.PullOptions {
	po := &goGit.PullOptions{
		ReferenceName: ref,
		SingleBranch:  true,
	}

	if s.PublicKeys != nil {
		po.Auth = s.PublicKeys
	}
	if s.Config.ShowProgress {
		po.Progress = os.Stdout
	}
	if s.Config.ForcePull {
		po.Force = true
	}

	return po
}

func (s *Backend) checkout(repo *goGit.Repository, w *goGit.Worktree, branch string, ref plumbing.ReferenceName) error {
	coOpts := &goGit.CheckoutOptions{Branch: ref}

	err := w.Checkout(coOpts)
	if err == nil {
		log.Debug().Msgf("Checked out local [%s] OK", branch)
		return nil
	}

	mirrorRemoteBranchRefSpec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	if err = s.fetchOrigin(repo, mirrorRemoteBranchRefSpec); err != nil {
		return err
	}

	if err = w.Checkout(coOpts); err != nil {
		return err
	}

	log.Debug().Msgf("Checked out remote [%s] OK", branch)
	return nil
}

func (s *Backend) fetchOrigin(repo *goGit.Repository, refSpecStr string) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return err
	}

	fo := &goGit.FetchOptions{
		RefSpecs: []goGitConfig.RefSpec{goGitConfig.RefSpec(refSpecStr)},
	}

	if s.Config.ShowProgress {
		fo.Progress = os.Stdout
	}
	if s.PublicKeys != nil {
		fo.Auth = s.PublicKeys
	}

	if err = remote.Fetch(fo); err != nil {
		if errors.Is(err, goGit.NoErrAlreadyUpToDate) {
			log.Debug().Msgf("refs already up to date")
		} else {
			return fmt.Errorf("fetch origin failed: %w", err)
		}
	}

	return nil
}

func (s *Backend) cleanRepo() error {
	if s.Config.Basedir == "" {
		return nil
	}
	log.Debug().Msg("Cleaning existing...")
	return os.RemoveAll(s.Config.Basedir)
}

func (s *Backend) GetCurrentState(ctxt context.Context, refresh bool) (*backend.State, error) {
	if refresh || s.currentRepo() == nil {
		if e := s.connect(ctxt, false, refresh); e != nil {
			return nil, e
		}
	}

	// Prevent `concurrent map writes` at `github.com/go-git/go-git/v5/plumbing/format/idxfile.(*MemoryIndex).genOffsetHash(0xc000262000)`
	s.repoLock.Lock()
	defer s.repoLock.Unlock()

	ref, err := s.Repo.Head()
	if err != nil {
		return nil, err
	}

	commit, err := s.Repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}

	return &backend.State{
		Files: commitStore{
			RepoUri: s.Config.Uri,
			Subdir:  cleanSubdir(s.Config.Subdir),
			Commit:  commit,
			lock:    &s.repoLock,
		},
		Version: commit.Hash.String(),
	}, nil
}

func (s *Backend) currentRepo() *goGit.Repository {
	s.repoLock.Lock()
	defer s.repoLock.Unlock()
	return s.Repo
}

func (s *Backend) Close() {
	if s.scheduler != nil && !s.scheduler.IsShutdown() {
		<-s.scheduler.Shutdown()
	}
}

func cleanSubdir(subdir string) string {
	cleaned := path.Clean("/" + filepath.ToSlash(subdir))
	return strings.TrimPrefix(cleaned, "/")
}

func (c commitStore) filePath(name string) string {
	if c.Subdir == "" {
		return name
	}
	return path.Join(c.Subdir, name)
}

func (c commitStore) Open(name string) (backend.File, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	filePath := c.filePath(name)
	f, err := c.Commit.File(filePath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist}
		}
		return nil, err
	}

	return fileWrapper{RepoUri: c.RepoUri, Dir: c.Subdir, File: f}, nil
}

func (c commitStore) ForEach(handler func(f backend.File) error) error {
	c.lock.Lock()
	files, err := c.Commit.Files()
	if err != nil {
		c.lock.Unlock()
		return err
	}

	var inDir []*object.File
	err = files.ForEach(func(f *object.File) error {
		dir := path.Dir(f.Name)
		if dir == "." {
			dir = ""
		}
		if dir == c.Subdir {
			inDir = append(inDir, f)
		}
		return nil
	})
	c.lock.Unlock()
	if err != nil {
		return err
	}

	for _, f := range inDir {
		if e := handler(fileWrapper{RepoUri: c.RepoUri, Dir: c.Subdir, File: f}); e != nil {
			return e
		}
	}
	return nil
}

func (g fileWrapper) Name() string {
	return path.Base(g.File.Name)
}

func (g fileWrapper) IsReadable() (bool, string) {
	if !utils.IsDefinitionFile(g.Name()) {
		return false, ""
	}
	return true, utils.DefinitionSuffix
}

func (g fileWrapper) FullyQualifiedName() string {
	return g.RepoUri + "/" + g.File.Name
}

func (g fileWrapper) Location() string {
	return g.Dir
}

func (g fileWrapper) Data() backend.Blob {
	return fileBlob{Blob: &g.File.Blob}
}

func (g fileBlob) Reader() (io.ReadCloser, error) {
	return g.Blob.Reader()
}
