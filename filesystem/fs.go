package filesystem

import (
	"slices"
	"sync"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/events"
	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
)

// ChangeSink receives the change records of every successful mutation
type ChangeSink interface {
	Emit(changes ...events.Change)
}

type discardSink struct{}

func (discardSink) Emit(...events.Change) {}

// FileSystem is the in-memory tree. A single lock covers the whole tree so
// each mutator is atomic with respect to every other operation.
type FileSystem struct {
	mu   sync.RWMutex
	root *Node // always present, empty name
	sink ChangeSink
}

// NewFS creates an empty tree. A nil sink discards change records.
func NewFS(sink ChangeSink) *FileSystem {
	if sink == nil {
		sink = discardSink{}
	}
	return &FileSystem{root: NewContainer(""), sink: sink}
}

// Root returns the root container
func (fs *FileSystem) Root() *Node {
	return fs.root
}

// Stat returns a snapshot of the node's metadata at p
func (fs *FileSystem) Stat(p string) (restfs.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.resolveLocked("stat", p, false)
	if err != nil {
		return restfs.FileInfo{}, err
	}
	return n.Info(), nil
}

// ReadDirectory lists the container at p in insertion order
func (fs *FileSystem) ReadDirectory(p string) ([]restfs.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir, err := fs.resolveContainerLocked("readdir", p)
	if err != nil {
		return nil, err
	}
	kids := dir.children.list()
	out := make([]restfs.FileInfo, 0, len(kids))
	for _, child := range kids {
		out = append(out, child.Info())
	}
	return out, nil
}

// ReadFile returns a copy of the object's payload. A payload that was never
// populated reads as empty.
func (fs *FileSystem) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	obj, err := fs.resolveObjectLocked("read", p)
	if err != nil {
		return nil, err
	}
	if obj.payload == nil {
		return []byte{}, nil
	}
	return slices.Clone(obj.payload), nil
}

// Walk visits every node depth first in insertion order, starting at the
// root. fn must not call back into fs.
func (fs *FileSystem) Walk(fn func(path string, info restfs.FileInfo) error) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return walk(fs.root, "/", fn)
}

func walk(n *Node, p string, fn func(string, restfs.FileInfo) error) error {
	if err := fn(p, n.Info()); err != nil {
		return err
	}
	if !n.IsContainer() {
		return nil
	}
	for _, child := range n.children.list() {
		if err := walk(child, childJoin(p, child.name), fn); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every node below the root
func (fs *FileSystem) Reset() {
	logger := util.GetLogger("FS.Reset")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dropped := countNodes(fs.root) - 1
	fs.root.children.clear()
	fs.root.touch()
	metrics.AddTreeNodes(-dropped)
	fs.sink.Emit(events.Change{Kind: events.Changed, Path: "/"})
	logger.Debug().Int("dropped", dropped).Msg("Emptied tree")
}

func countNodes(n *Node) int {
	total := 1
	if n.IsContainer() {
		for _, child := range n.children.list() {
			total += countNodes(child)
		}
	}
	return total
}

func childJoin(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
