package filesystem

import (
	"strings"

	"github.com/brettbedarf/restfs"
)

// splitPath returns the non-empty segments of p; leading, trailing and
// repeated separators are ignored.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// CleanPath normalizes p to its absolute, slash-delimited form
func CleanPath(p string) string {
	return joinPath(splitPath(p))
}

func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// splitParent breaks p into its directory component and final segment.
// The root has no final segment and is rejected.
func splitParent(op, p string) (dir string, name string, err error) {
	segs := splitPath(p)
	if len(segs) == 0 {
		return "", "", &restfs.PathError{Op: op, Path: p, Err: restfs.ErrInvalidPath}
	}
	name = segs[len(segs)-1]
	if name == "." || name == ".." {
		return "", "", &restfs.PathError{Op: op, Path: p, Err: restfs.ErrInvalidPath}
	}
	return joinPath(segs[:len(segs)-1]), name, nil
}

// Resolve walks from the root to the node at p. A missing segment fails with
// ErrNotFound unless permissive is set, in which case (nil, nil) is returned.
// The returned node is a live reference and may be changed by later mutations.
func (fs *FileSystem) Resolve(p string, permissive bool) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolveLocked("resolve", p, permissive)
}

// ResolveContainer resolves p and requires a container
func (fs *FileSystem) ResolveContainer(p string) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolveContainerLocked("resolve", p)
}

// ResolveObject resolves p and requires an object
func (fs *FileSystem) ResolveObject(p string) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolveObjectLocked("resolve", p)
}

// ResolveParent resolves the directory component of p as a container
func (fs *FileSystem) ResolveParent(p string) (*Node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	parent, _, err := fs.resolveParentLocked("resolve", p)
	return parent, err
}

func (fs *FileSystem) resolveLocked(op, p string, permissive bool) (*Node, error) {
	cur := fs.root
	for _, name := range splitPath(p) {
		if !cur.IsContainer() {
			return nil, &restfs.PathError{Op: op, Path: p, Err: restfs.ErrNotADirectory}
		}
		child, ok := cur.children.get(name)
		if !ok {
			if permissive {
				return nil, nil
			}
			return nil, &restfs.PathError{Op: op, Path: p, Err: restfs.ErrNotFound}
		}
		cur = child
	}
	return cur, nil
}

func (fs *FileSystem) resolveContainerLocked(op, p string) (*Node, error) {
	n, err := fs.resolveLocked(op, p, false)
	if err != nil {
		return nil, err
	}
	if !n.IsContainer() {
		return nil, &restfs.PathError{Op: op, Path: p, Err: restfs.ErrNotADirectory}
	}
	return n, nil
}

func (fs *FileSystem) resolveObjectLocked(op, p string) (*Node, error) {
	n, err := fs.resolveLocked(op, p, false)
	if err != nil {
		return nil, err
	}
	if n.IsContainer() {
		return nil, &restfs.PathError{Op: op, Path: p, Err: restfs.ErrIsADirectory}
	}
	return n, nil
}

func (fs *FileSystem) resolveParentLocked(op, p string) (parent *Node, name string, err error) {
	dir, name, err := splitParent(op, p)
	if err != nil {
		return nil, "", err
	}
	parent, err = fs.resolveContainerLocked(op, dir)
	if err != nil {
		return nil, "", err
	}
	return parent, name, nil
}
