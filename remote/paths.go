package remote

import (
	"fmt"
	"strings"

	"github.com/brettbedarf/restfs"
)

// PathMapper projects between the remote's fullPath values, tree paths and
// remote identifiers. The identifier is always derived, never stored.
type PathMapper struct {
	Suffix    string // appended to object names in the tree, e.g. ".tcl"
	Separator string // replaces "/" in identifiers, e.g. "~"
}

// DefaultMapper matches the management API's conventions
func DefaultMapper() PathMapper {
	return PathMapper{Suffix: ".tcl", Separator: "~"}
}

// IsRoot reports whether fullPath names the remote root container
func IsRoot(fullPath string) bool {
	return fullPath == "/"
}

// ContainerPath maps a container fullPath such as "/Common/app" to its tree path
func (m PathMapper) ContainerPath(fullPath string) (string, error) {
	segs, err := splitFullPath(fullPath)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(segs, "/"), nil
}

// ObjectPath maps an object fullPath such as "/Common/test" to "/Common/test.tcl"
func (m PathMapper) ObjectPath(fullPath string) (string, error) {
	p, err := m.ContainerPath(fullPath)
	if err != nil {
		return "", err
	}
	return p + m.Suffix, nil
}

// RemoteID projects a tree path to the identifier used in update calls:
// the suffix is stripped and separators substituted, so "/Common/test.tcl"
// becomes "~Common~test".
func (m PathMapper) RemoteID(treePath string) (string, error) {
	segs := strings.FieldsFunc(treePath, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: no remote identifier for %q", restfs.ErrInvalidPath, treePath)
	}
	p := "/" + strings.Join(segs, "/")
	if m.Suffix != "" {
		p = strings.TrimSuffix(p, m.Suffix)
	}
	return strings.ReplaceAll(p, "/", m.Separator), nil
}

// splitFullPath validates a remote fullPath: absolute, no empty, "." or ".."
// segments. A single trailing separator is tolerated.
func splitFullPath(fullPath string) ([]string, error) {
	if !strings.HasPrefix(fullPath, "/") {
		return nil, fmt.Errorf("%w: fullPath %q is not absolute", restfs.ErrInvalidPath, fullPath)
	}
	trimmed := strings.TrimSuffix(fullPath[1:], "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: fullPath %q names the root", restfs.ErrInvalidPath, fullPath)
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return nil, fmt.Errorf("%w: fullPath %q has an invalid segment", restfs.ErrInvalidPath, fullPath)
		}
	}
	return segs, nil
}
