package server

import (
	"errors"
	"syscall"

	"github.com/brettbedarf/restfs"
)

// toErrno maps tree and transport errors to the status the kernel expects
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, restfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, restfs.ErrAlreadyExists):
		return syscall.EEXIST
	case errors.Is(err, restfs.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, restfs.ErrIsADirectory):
		return syscall.EISDIR
	case errors.Is(err, restfs.ErrInvalidPath):
		return syscall.EINVAL
	case errors.Is(err, restfs.ErrNotConnected), errors.Is(err, restfs.ErrConnecting):
		return syscall.ENOTCONN
	default:
		return syscall.EIO
	}
}
