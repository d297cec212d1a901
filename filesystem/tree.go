package filesystem

import (
	"path"
	"strings"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/events"
	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
)

// CreateOptions controls CreateContainer
type CreateOptions struct {
	// Overwrite replaces a same-named entry, dropping its subtree
	Overwrite bool
}

// PutOptions controls PutObject
type PutOptions struct {
	Create    bool // create the object when absent
	Overwrite bool // with Create, allow an existing object to be replaced
}

// RenameOptions controls Rename
type RenameOptions struct {
	Overwrite bool // replace an existing target
}

// CreateContainer adds an empty container at p. The parent must already be
// a container; missing ancestors are not created.
func (fs *FileSystem) CreateContainer(p string, opts CreateOptions) (*Node, error) {
	logger := util.GetLogger("FS.CreateContainer")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, err := fs.resolveParentLocked("mkdir", p)
	if err != nil {
		return nil, err
	}
	existing, exists := parent.children.get(name)
	if exists && !opts.Overwrite {
		return nil, &restfs.PathError{Op: "mkdir", Path: p, Err: restfs.ErrAlreadyExists}
	}

	dir := NewContainer(name)
	parent.children.put(dir)
	parent.touch()

	delta := 1
	if exists {
		delta -= countNodes(existing)
		logger.Warn().Str("path", p).Int("dropped", countNodes(existing)).Msg("Replaced existing entry")
	}
	metrics.AddTreeNodes(delta)

	clean := CleanPath(p)
	fs.sink.Emit(
		events.Change{Kind: events.Changed, Path: path.Dir(clean)},
		events.Change{Kind: events.Created, Path: clean},
	)
	logger.Trace().Str("path", clean).Msg("Created container")
	return dir, nil
}

// PutObject writes payload to the object at p, creating it when allowed
func (fs *FileSystem) PutObject(p string, payload []byte, opts PutOptions) (*Node, error) {
	logger := util.GetLogger("FS.PutObject")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, err := fs.resolveParentLocked("write", p)
	if err != nil {
		return nil, err
	}
	obj, exists := parent.children.get(name)
	switch {
	case exists && obj.IsContainer():
		return nil, &restfs.PathError{Op: "write", Path: p, Err: restfs.ErrIsADirectory}
	case !exists && !opts.Create:
		return nil, &restfs.PathError{Op: "write", Path: p, Err: restfs.ErrNotFound}
	case exists && opts.Create && !opts.Overwrite:
		return nil, &restfs.PathError{Op: "write", Path: p, Err: restfs.ErrAlreadyExists}
	}

	clean := CleanPath(p)
	changes := make([]events.Change, 0, 2)
	if !exists {
		obj = NewObject(name)
		parent.children.put(obj)
		parent.touch()
		metrics.AddTreeNodes(1)
		changes = append(changes, events.Change{Kind: events.Created, Path: clean})
	}
	obj.setPayload(payload)
	changes = append(changes, events.Change{Kind: events.Changed, Path: clean})
	fs.sink.Emit(changes...)

	logger.Trace().Str("path", clean).Int64("size", obj.size).Bool("created", !exists).Msg("Put object")
	return obj, nil
}

// Rename moves the node at oldPath to newPath, keeping the node itself (and
// an object's payload) intact. The target's parent must already exist.
func (fs *FileSystem) Rename(oldPath, newPath string, opts RenameOptions) error {
	logger := util.GetLogger("FS.Rename")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// an occupied target fails before the source is looked at
	if !opts.Overwrite {
		if target, _ := fs.resolveLocked("rename", newPath, true); target != nil {
			return &restfs.PathError{Op: "rename", Path: newPath, Err: restfs.ErrAlreadyExists}
		}
	}

	oldParent, oldName, err := fs.resolveParentLocked("rename", oldPath)
	if err != nil {
		return err
	}
	src, ok := oldParent.children.get(oldName)
	if !ok {
		return &restfs.PathError{Op: "rename", Path: oldPath, Err: restfs.ErrNotFound}
	}
	newParent, newName, err := fs.resolveParentLocked("rename", newPath)
	if err != nil {
		return err
	}

	cleanOld, cleanNew := CleanPath(oldPath), CleanPath(newPath)
	if cleanOld == cleanNew {
		// only reachable with Overwrite
		return nil
	}
	if src.IsContainer() && strings.HasPrefix(cleanNew, cleanOld+"/") {
		return &restfs.PathError{Op: "rename", Path: newPath, Err: restfs.ErrInvalidPath}
	}

	target, exists := newParent.children.get(newName)
	if exists {
		switch {
		case !opts.Overwrite:
			return &restfs.PathError{Op: "rename", Path: newPath, Err: restfs.ErrAlreadyExists}
		case target.IsContainer() && !src.IsContainer():
			return &restfs.PathError{Op: "rename", Path: newPath, Err: restfs.ErrIsADirectory}
		case !target.IsContainer() && src.IsContainer():
			return &restfs.PathError{Op: "rename", Path: newPath, Err: restfs.ErrNotADirectory}
		}
		metrics.AddTreeNodes(-countNodes(target))
	}

	oldParent.children.remove(oldName)
	oldParent.touch()
	src.name = newName
	newParent.children.put(src)
	newParent.touch()

	fs.sink.Emit(
		events.Change{Kind: events.Deleted, Path: cleanOld},
		events.Change{Kind: events.Created, Path: cleanNew},
	)
	logger.Debug().Str("from", cleanOld).Str("to", cleanNew).Bool("replaced", exists).Msg("Renamed node")
	return nil
}

// Delete removes the node at p together with anything beneath it
func (fs *FileSystem) Delete(p string) error {
	logger := util.GetLogger("FS.Delete")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, err := fs.resolveParentLocked("delete", p)
	if err != nil {
		return err
	}
	node, ok := parent.children.remove(name)
	if !ok {
		return &restfs.PathError{Op: "delete", Path: p, Err: restfs.ErrNotFound}
	}
	parent.touch()
	metrics.AddTreeNodes(-countNodes(node))

	clean := CleanPath(p)
	fs.sink.Emit(
		events.Change{Kind: events.Changed, Path: path.Dir(clean)},
		events.Change{Kind: events.Deleted, Path: clean},
	)
	logger.Debug().Str("path", clean).Msg("Deleted node")
	return nil
}
