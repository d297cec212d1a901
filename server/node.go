package server

import (
	"context"
	"os"
	"path"
	"sync"
	"syscall"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/filesystem"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/brettbedarf/restfs/provider"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RENAME_NOREPLACE from renameat2(2)
const renameNoReplace = 0x1

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// node is the go-fuse view of one tree path. It holds no metadata of its
// own; every call reads the provider so refreshes show up once the kernel
// cache expires.
type node struct {
	fs.Inode
	p *provider.Provider
}

var (
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeSetattrer = (*node)(nil)
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeCreater   = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
	_ fs.NodeRenamer   = (*node)(nil)
)

func (n *node) treePath() string {
	return "/" + n.Path(nil)
}

func (n *node) childPath(name string) string {
	return path.Join(n.treePath(), name)
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := n.p.Stat(n.treePath())
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, info)
	if h, ok := f.(*handle); ok {
		out.Size = uint64(h.size())
	}
	return 0
}

func (n *node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if h, ok := f.(*handle); ok {
			h.truncate(int64(size))
		} else if errno := n.truncate(ctx, int64(size)); errno != 0 {
			return errno
		}
	}
	return n.Getattr(ctx, f, out)
}

// truncate handles truncate(2) on a path with no open handle
func (n *node) truncate(ctx context.Context, size int64) syscall.Errno {
	p := n.treePath()
	data, err := n.p.ReadFile(p)
	if err != nil {
		return toErrno(err)
	}
	data = resize(data, size)
	if err := n.p.WriteFile(p, data, filesystem.PutOptions{}); err != nil {
		return toErrno(err)
	}
	return toErrno(n.p.Save(ctx, p, data))
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	info, err := n.p.Stat(n.childPath(name))
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, info)

	mode := out.Mode & syscall.S_IFMT
	if ch := n.GetChild(name); ch != nil && ch.Mode() == mode {
		return ch, 0
	}
	return n.NewInode(ctx, &node{p: n.p}, fs.StableAttr{Mode: mode}), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	infos, err := n.p.ReadDirectory(n.treePath())
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fuse.DirEntry{Name: info.Name, Mode: modeOf(info)})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Node.Open")
	p := n.treePath()

	info, err := n.p.Stat(p)
	if err != nil {
		return nil, 0, toErrno(err)
	}
	if info.IsDir() {
		return nil, 0, syscall.EISDIR
	}

	h := &handle{node: n}
	if flags&syscall.O_TRUNC != 0 && flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		h.data = []byte{}
		h.dirty = true
	} else if h.data, err = n.p.ReadFile(p); err != nil {
		return nil, 0, toErrno(err)
	}
	logger.Debug().Str("path", p).Uint32("flags", flags).Msg("Opened object")

	return h, n.openFlags(), 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p := n.childPath(name)
	if err := n.p.WriteFile(p, nil, filesystem.PutOptions{Create: true}); err != nil {
		return nil, nil, 0, toErrno(err)
	}
	info, err := n.p.Stat(p)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	fillAttr(&out.Attr, info)

	child := &node{p: n.p}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG})
	h := &handle{node: child, data: []byte{}}

	logger := util.GetLogger("Node.Create")
	logger.Info().Str("path", p).Msg("Created object")
	return inode, h, n.openFlags(), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := n.childPath(name)
	if err := n.p.CreateDirectory(p); err != nil {
		return nil, toErrno(err)
	}
	info, err := n.p.Stat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, info)
	return n.NewInode(ctx, &node{p: n.p}, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	p := n.childPath(name)
	info, err := n.p.Stat(p)
	if err != nil {
		return toErrno(err)
	}
	if info.IsDir() {
		return syscall.EISDIR
	}
	return toErrno(n.p.Delete(p))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	p := n.childPath(name)
	info, err := n.p.Stat(p)
	if err != nil {
		return toErrno(err)
	}
	if !info.IsDir() {
		return syscall.ENOTDIR
	}
	if info.Size > 0 {
		return syscall.ENOTEMPTY
	}
	return toErrno(n.p.Delete(p))
}

func (n *node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	target, ok := newParent.(*node)
	if !ok {
		return syscall.EXDEV
	}
	if flags&^renameNoReplace != 0 {
		// RENAME_EXCHANGE and RENAME_WHITEOUT
		return syscall.ENOTSUP
	}
	opts := filesystem.RenameOptions{Overwrite: flags&renameNoReplace == 0}
	return toErrno(n.p.Rename(n.childPath(name), target.childPath(newName), opts))
}

func (n *node) openFlags() uint32 {
	if n.p.Config().DirectIO {
		return fuse.FOPEN_DIRECT_IO
	}
	return 0
}

// handle buffers one open object. Writes stay in the buffer until Flush,
// which updates the tree and then persists the content.
type handle struct {
	node *node

	mu    sync.Mutex
	data  []byte
	dirty bool
}

var (
	_ fs.FileReader   = (*handle)(nil)
	_ fs.FileWriter   = (*handle)(nil)
	_ fs.FileFlusher  = (*handle)(nil)
	_ fs.FileReleaser = (*handle)(nil)
)

func (h *handle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off >= int64(len(h.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(h.data)))
	return fuse.ReadResultData(h.data[off:end]), 0
}

func (h *handle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if end := off + int64(len(data)); end > int64(len(h.data)) {
		h.data = resize(h.data, end)
	}
	copy(h.data[off:], data)
	h.dirty = true
	return uint32(len(data)), 0
}

func (h *handle) Flush(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return 0
	}
	logger := util.GetLogger("Handle.Flush")
	p := h.node.treePath()

	if err := h.node.p.WriteFile(p, h.data, filesystem.PutOptions{}); err != nil {
		logger.Error().Err(err).Str("path", p).Msg("Failed to update tree")
		return toErrno(err)
	}
	if err := h.node.p.Save(ctx, p, h.data); err != nil {
		logger.Error().Err(err).Str("path", p).Msg("Failed to persist object")
		return syscall.EIO
	}
	h.dirty = false
	return 0
}

func (h *handle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = nil
	return 0
}

func (h *handle) size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(len(h.data))
}

func (h *handle) truncate(size int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = resize(h.data, size)
	h.dirty = true
}

// resize returns data grown with zeros or cut to size
func resize(data []byte, size int64) []byte {
	if size <= int64(len(data)) {
		return data[:size]
	}
	grown := make([]byte, size)
	copy(grown, data)
	return grown
}

func modeOf(info restfs.FileInfo) uint32 {
	if info.IsDir() {
		return syscall.S_IFDIR | dirPerm
	}
	return syscall.S_IFREG | filePerm
}

func fillAttr(out *fuse.Attr, info restfs.FileInfo) {
	out.Mode = modeOf(info)
	out.Size = uint64(info.Size)
	if info.IsDir() {
		out.Nlink = 2
	} else {
		out.Nlink = 1
	}
	out.Mtime = uint64(info.Mtime.Unix())
	out.Mtimensec = uint32(info.Mtime.Nanosecond())
	out.Atime = out.Mtime
	out.Atimensec = out.Mtimensec
	out.Ctime = uint64(info.Ctime.Unix())
	out.Ctimensec = uint32(info.Ctime.Nanosecond())
	out.Uid = uint32(os.Getuid())
	out.Gid = uint32(os.Getgid())
}
