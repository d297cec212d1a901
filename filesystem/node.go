package filesystem

import (
	"slices"
	"time"

	"github.com/brettbedarf/restfs"
)

// Node is either a container or an object; the kind never changes after
// construction. Nodes hold no parent reference, parents are re-resolved by
// path. All fields are protected by the owning FileSystem's lock.
type Node struct {
	name  string
	kind  restfs.NodeType
	ctime time.Time
	mtime time.Time

	// object only
	size    int64
	payload []byte // nil until populated

	children *children // container only
}

// NewContainer creates an empty container stamped with the current time
func NewContainer(name string) *Node {
	now := time.Now()
	return &Node{
		name:     name,
		kind:     restfs.ContainerType,
		ctime:    now,
		mtime:    now,
		children: newChildren(),
	}
}

// NewObject creates an object with no payload and size 0
func NewObject(name string) *Node {
	now := time.Now()
	return &Node{
		name:  name,
		kind:  restfs.ObjectType,
		ctime: now,
		mtime: now,
	}
}

func (n *Node) Name() string          { return n.name }
func (n *Node) Kind() restfs.NodeType { return n.kind }
func (n *Node) IsContainer() bool     { return n.kind == restfs.ContainerType }
func (n *Node) Mtime() time.Time      { return n.mtime }
func (n *Node) Ctime() time.Time      { return n.ctime }

// Size is the payload length for objects and the entry count for containers
func (n *Node) Size() int64 {
	if n.IsContainer() {
		return int64(n.children.len())
	}
	return n.size
}

// Payload returns the object content or nil when not yet populated
func (n *Node) Payload() []byte {
	return n.payload
}

// Info snapshots the node's metadata
func (n *Node) Info() restfs.FileInfo {
	return restfs.FileInfo{
		Name:  n.name,
		Type:  n.kind,
		Size:  n.Size(),
		Ctime: n.ctime,
		Mtime: n.mtime,
	}
}

// Child looks up a direct child by exact name
func (n *Node) Child(name string) (*Node, bool) {
	if !n.IsContainer() {
		return nil, false
	}
	return n.children.get(name)
}

// Children lists direct children in insertion order
func (n *Node) Children() []*Node {
	if !n.IsContainer() {
		return nil
	}
	return n.children.list()
}

func (n *Node) setPayload(payload []byte) {
	n.payload = slices.Clone(payload)
	if n.payload == nil {
		n.payload = []byte{}
	}
	n.size = int64(len(n.payload))
	n.touch()
}

func (n *Node) touch() {
	n.mtime = time.Now()
}

// children keeps container entries addressable by name while preserving the
// order they were added in.
type children struct {
	byName map[string]*Node
	order  []string
}

func newChildren() *children {
	return &children{byName: make(map[string]*Node)}
}

func (c *children) len() int { return len(c.order) }

func (c *children) get(name string) (*Node, bool) {
	n, ok := c.byName[name]
	return n, ok
}

// put inserts child, replacing a same-named entry in place. Reports whether
// an entry was replaced.
func (c *children) put(child *Node) bool {
	_, replaced := c.byName[child.name]
	c.byName[child.name] = child
	if !replaced {
		c.order = append(c.order, child.name)
	}
	return replaced
}

func (c *children) remove(name string) (*Node, bool) {
	child, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	delete(c.byName, name)
	if i := slices.Index(c.order, name); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return child, true
}

func (c *children) list() []*Node {
	out := make([]*Node, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

func (c *children) clear() {
	clear(c.byName)
	c.order = nil
}
