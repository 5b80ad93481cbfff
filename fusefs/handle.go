/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct 14 15:12:09 2026 mstenber
 * Last modified: Fri Oct 16 21:32:50 2026 mstenber
 * Edit time:     31 min
 *
 */

package fusefs

import (
	"context"
	"io"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/fingon/go-tinyfs/fs"
	"github.com/fingon/go-tinyfs/mlog"
)

// fileHandle is an open file; each has a Task of its own, so the
// per-process descriptor limit does not apply across handles.
type fileHandle struct {
	fs   *fs.Fs
	task *fs.Task
	fd   int
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileWriter = (*fileHandle)(nil)
var _ gofuse.FileFlusher = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)

func openHandle(fsys *fs.Fs, p string, flags int) (*fileHandle, error) {
	task := fsys.NewTask()
	fd, err := task.Open(p, flags)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("fusefs/handle", "openHandle %s -> %d", p, fd)
	return &fileHandle{fs: fsys, task: task, fd: fd}, nil
}

func (self *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	defer self.fs.Locked()()
	if _, err := self.task.Lseek(self.fd, off, io.SeekStart); err != nil {
		// beyond the end
		return fuse.ReadResultData(nil), 0
	}
	n := 0
	for n < len(dest) {
		got, err := self.task.Read(self.fd, dest[n:])
		n += got
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toErrno(err)
		}
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (self *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	defer self.fs.Locked()()
	if _, err := self.task.Lseek(self.fd, off, io.SeekStart); err != nil {
		// no holes
		return 0, syscall.EINVAL
	}
	n, err := self.task.Write(self.fd, data)
	if n > 0 {
		return uint32(n), 0
	}
	return 0, toErrno(err)
}

func (self *fileHandle) Flush(ctx context.Context) syscall.Errno {
	self.fs.Flush()
	return 0
}

func (self *fileHandle) Release(ctx context.Context) syscall.Errno {
	mlog.Printf2("fusefs/handle", "Release %d", self.fd)
	return toErrno(self.task.Close(self.fd))
}
