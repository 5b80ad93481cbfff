/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct 12 10:15:31 2026 mstenber
 * Last modified: Fri Oct 16 18:20:12 2026 mstenber
 * Edit time:     49 min
 *
 */

package fs

import (
	"io"
	"os"

	"github.com/fingon/go-tinyfs/mlog"
)

// Task is a process as far as the filesystem is concerned: a local
// descriptor table pointing at the global open file table, and a
// working directory. Descriptors 0, 1 and 2 are the standard streams.
//
// Task methods are the system calls; they are safe to call from
// several goroutines (and Tasks) at once.
type Task struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	fs      *Fs
	fdTable [MaxFilesOpenPerProc]int

	// cwd keeps the working directory open, so that it cannot be
	// removed from under the task
	cwd     *Dir
	cwdPath string
}

func newTask(fs *Fs) *Task {
	self := &Task{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		fs:      fs,
		cwd:     fs.part.Root(),
		cwdPath: "/",
	}
	for i := range self.fdTable {
		self.fdTable[i] = -1
	}
	for i := 0; i < StdStreams; i++ {
		self.fdTable[i] = i
	}
	return self
}

func (self *Task) abs(p string) string {
	return Abs(self.cwdPath, p)
}

// fdLocal2Global returns the global table index of a (non-standard)
// descriptor.
func (self *Task) fdLocal2Global(fd int) (int, error) {
	if fd < StdStreams || fd >= MaxFilesOpenPerProc || self.fdTable[fd] < 0 {
		return -1, ErrBadFd
	}
	return self.fdTable[fd], nil
}

func (self *Task) freeFd() int {
	for fd := StdStreams; fd < MaxFilesOpenPerProc; fd++ {
		if self.fdTable[fd] < 0 {
			return fd
		}
	}
	return -1
}

func (self *Task) installFd(gfd int) int {
	fd := self.freeFd()
	if fd < 0 {
		mlog.Warnf("out of process file descriptors")
		return -1
	}
	self.fdTable[fd] = gfd
	return fd
}

// Exit closes all descriptors the task still has open, and releases
// the working directory.
func (self *Task) Exit() {
	defer self.fs.lock.Locked()()
	for fd := StdStreams; fd < MaxFilesOpenPerProc; fd++ {
		if gfd := self.fdTable[fd]; gfd >= 0 {
			self.fs.fileClose(gfd)
			self.fdTable[fd] = -1
		}
	}
	self.fs.part.CloseDir(self.cwd)
	self.cwd = self.fs.part.Root()
	self.cwdPath = "/"
}
