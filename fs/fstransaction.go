/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sun Oct 11 13:20:55 2026 mstenber
 * Last modified: Thu Oct 15 21:44:09 2026 mstenber
 * Edit time:     24 min
 *
 */

package fs

import (
	"log"

	"github.com/fingon/go-tinyfs/mlog"
)

// fsTransaction accumulates undo steps of a multi-step mutation. If
// Close is reached without Commit, the steps are run newest first.
//
//	tr := newFsTransaction("mkdir")
//	defer tr.Close()
//	ino, err := part.AllocInode()
//	...
//	tr.Undo(func() { part.FreeInode(ino) })
//	...
//	tr.Commit()
type fsTransaction struct {
	name      string
	undo      []func()
	committed bool
	closed    bool
}

func newFsTransaction(name string) *fsTransaction {
	return &fsTransaction{name: name}
}

func (self *fsTransaction) Undo(f func()) {
	if self.closed {
		log.Panicf("%s: adding undo to closed transaction", self.name)
	}
	self.undo = append(self.undo, f)
}

func (self *fsTransaction) Commit() {
	self.committed = true
}

func (self *fsTransaction) Close() {
	if self.closed {
		return
	}
	self.closed = true
	if self.committed {
		return
	}
	mlog.Printf2("fs/fstransaction", "%s: rolling back %d steps", self.name, len(self.undo))
	for i := len(self.undo) - 1; i >= 0; i-- {
		self.undo[i]()
	}
}
