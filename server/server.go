// Package server mounts a provider's tree through FUSE.
package server

import (
	"errors"
	"os"
	"time"

	"github.com/brettbedarf/restfs/internal/util"
	"github.com/brettbedarf/restfs/provider"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ErrNotMounted is returned by Wait when Serve has not succeeded
var ErrNotMounted = errors.New("filesystem not mounted")

// Server serves a Provider at a mount point
type Server struct {
	p      *provider.Provider
	server *fuse.Server
}

// New creates a Server for p. The provider should already be connected, or
// the mount shows an empty root until it is.
func New(p *provider.Provider) *Server {
	return &Server{p: p}
}

// Serve mounts the tree at mountPoint and returns once the kernel has
// accepted the mount. Requests are served in the background until Unmount.
func (s *Server) Serve(mountPoint string) error {
	logger := util.GetLogger("Server.Serve")
	cfg := s.p.Config()

	lvl := util.InfoLevel
	if cfg.Debug {
		lvl = util.TraceLevel
	}
	attrTimeout := seconds(cfg.AttrTimeout)
	entryTimeout := seconds(cfg.EntryTimeout)

	root := &node{p: s.p}
	srv, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: cfg.AllowOther,
			Debug:      cfg.Debug,
			FsName:     cfg.FsName,
			Name:       cfg.Name,
			Logger:     util.NewLogLogger("FuseServer", lvl),
		},
		UID:          uint32(os.Getuid()),
		GID:          uint32(os.Getgid()),
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
	})
	if err != nil {
		return err
	}
	s.server = srv

	logger.Info().Str("mountPoint", mountPoint).Msg("Filesystem mounted")
	return nil
}

// ServeAsync runs Serve in a goroutine and reports its result on the channel
func (s *Server) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted
func (s *Server) Wait() error {
	if s.server == nil {
		return ErrNotMounted
	}
	s.server.Wait()
	return nil
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	if s.server == nil {
		return nil
	}
	return s.server.Unmount()
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
