/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sat Oct 10 09:02:45 2026 mstenber
 * Last modified: Fri Oct 16 16:30:02 2026 mstenber
 * Edit time:     88 min
 *
 */

// fs package implements a small Unix-like filesystem on top of a
// partition of a sector-addressed device: superblock, block and
// inode bitmaps, an inode table with 12 direct and one indirect
// block pointer per inode, and directories of fixed-size entries.
//
// Partition is the storage layer; Fs adds the global open file table
// and Task the per-process descriptor table and the system calls.
package fs

import (
	"time"

	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

const defaultFlushInterval = time.Second

type Fs struct {
	part  *Partition
	files [MaxFileOpen]fileHandle

	// lock serializes the system calls; it is reentrant so that
	// e.g. fusefs can hold it across several of them.
	lock util.RMutexLocked

	flushInterval time.Duration
	closing       chan chan struct{}
}

// NewFs wraps a mounted partition. The device is flushed
// periodically until Close.
func NewFs(part *Partition) *Fs {
	self := &Fs{part: part, flushInterval: defaultFlushInterval}
	self.closing = make(chan chan struct{})
	go func() {
		for {
			select {
			case done := <-self.closing:
				self.Flush()
				done <- struct{}{}
				return
			case <-time.After(self.flushInterval):
				self.Flush()
			}
		}
	}()
	return self
}

func (self *Fs) Partition() *Partition {
	return self.part
}

// Locked acquires the system call lock; call the result to release.
func (self *Fs) Locked() func() {
	return self.lock.Locked()
}

func (self *Fs) Flush() {
	defer self.lock.Locked()()
	mlog.Printf2("fs/fs", "fs.Flush")
	self.part.Flush()
}

func (self *Fs) Stats() Stats {
	defer self.lock.Locked()()
	return self.part.Stats()
}

// Close closes whatever files are still open and unmounts the
// partition. The device itself is left to the caller.
func (self *Fs) Close() {
	mlog.Printf2("fs/fs", "fs.Close")
	done := make(chan struct{})
	self.closing <- done
	<-done

	defer self.lock.Locked()()
	for gfd := range self.files {
		if self.files[gfd].inode != nil {
			mlog.Warnf("%s: file %d still open at close", self.part.Info.Name, self.files[gfd].inode.Ino)
			self.fileClose(gfd)
		}
	}
	self.part.Unmount()
	mlog.Printf2("fs/fs", " great success at closing Fs")
}

// NewTask creates a process context with the root directory as the
// working directory.
func (self *Fs) NewTask() *Task {
	return newTask(self)
}
