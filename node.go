package restfs

import "time"

// NodeType is fixed when a node is created
type NodeType int

const (
	ContainerType NodeType = iota + 1
	ObjectType
)

func (t NodeType) String() string {
	switch t {
	case ContainerType:
		return "container"
	case ObjectType:
		return "object"
	default:
		return "unknown"
	}
}

// FileInfo is a point-in-time copy of a node's metadata handed to consumers
// outside the tree lock.
type FileInfo struct {
	Name  string
	Type  NodeType
	Size  int64 // payload length for objects, entry count for containers
	Ctime time.Time
	Mtime time.Time
}

func (fi FileInfo) IsDir() bool {
	return fi.Type == ContainerType
}
