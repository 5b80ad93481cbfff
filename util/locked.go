/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 10:02:11 2026 mstenber
 * Last modified: Tue Oct 13 16:40:27 2026 mstenber
 * Edit time:     34 min
 *
 */

package util

import (
	"sync"
	"sync/atomic"

	"github.com/fingon/go-tinyfs/util/gid"
)

// RMutexLocked is a recursive mutex; the goroutine holding it may
// Lock it again (filesystem calls nest, e.g. rmdir -> release). Use
// as defer x.Locked()().
type RMutexLocked struct {
	// mut is what non-owners wait on
	mut sync.Mutex

	owner uint64
	depth int32
}

func (self *RMutexLocked) Lock() {
	me := gid.GetGoroutineID()
	if atomic.LoadUint64(&self.owner) == me {
		// only the owner can observe itself as owner
		self.depth++
		return
	}
	self.mut.Lock()
	atomic.StoreUint64(&self.owner, me)
	self.depth = 1
}

func (self *RMutexLocked) Unlock() {
	self.depth--
	if self.depth > 0 {
		return
	}
	if self.depth < 0 {
		panic("RMutexLocked: unlock of unlocked mutex")
	}
	atomic.StoreUint64(&self.owner, 0)
	self.mut.Unlock()
}

// IsHeld returns true if the calling goroutine holds the lock.
func (self *RMutexLocked) IsHeld() bool {
	return atomic.LoadUint64(&self.owner) == gid.GetGoroutineID()
}

func (self *RMutexLocked) Locked() (unlock func()) {
	self.Lock()
	return self.Unlock
}

// MutexLocked is sync.Mutex with the Locked() convenience.
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return mut.Unlock
}
