/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct  9 15:40:18 2026 mstenber
 * Last modified: Fri Oct 16 14:30:55 2026 mstenber
 * Edit time:     88 min
 *
 */

package fs

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

var le = binary.LittleEndian

// Inode is the in-memory copy of an inode record. One instance per
// inode number is shared by everyone who has it open.
//
// On disk: ino, size, two zero words where the open count and write
// flag live in memory, the 13 sector slots and 8 reserved bytes.
type Inode struct {
	Ino     uint32
	Size    uint32
	Sectors [InodeSectorSlots]uint32

	refcnt util.AtomicInt

	// writing is set while some file handle has it open for
	// writing; Partition.inodeLock
	writing bool
}

func (self *Inode) String() string {
	return fmt.Sprintf("inode{%v size:%v rc:%v}", self.Ino, self.Size, self.refcnt.Get())
}

func (self *Inode) RefCount() int {
	return self.refcnt.GetInt()
}

// encode writes the on-disk record to b; memory-only state is
// written as zeros.
func (self *Inode) encode(b []byte) {
	le.PutUint32(b[0:], self.Ino)
	le.PutUint32(b[4:], self.Size)
	le.PutUint32(b[8:], 0)
	le.PutUint32(b[12:], 0)
	for i, s := range self.Sectors {
		le.PutUint32(b[16+i*4:], s)
	}
	for i := 16 + InodeSectorSlots*4; i < InodeRecordSize; i++ {
		b[i] = 0
	}
}

func decodeInode(b []byte) *Inode {
	inode := &Inode{Ino: le.Uint32(b[0:]), Size: le.Uint32(b[4:])}
	for i := range inode.Sectors {
		inode.Sectors[i] = le.Uint32(b[16+i*4:])
	}
	return inode
}

type inodePosition struct {
	lba    uint32
	offset int
	// sectors is 2 if the record crosses a sector boundary
	sectors int
}

func (self *Partition) locateInode(ino uint32) (pos inodePosition) {
	if ino >= self.Sb.InodeCnt {
		log.Panicf("%s: inode %d out of range", self.Info.Name, ino)
	}
	off := ino * InodeRecordSize
	pos.lba = self.Sb.InodeTableLBA + off/BlockSize
	pos.offset = int(off % BlockSize)
	pos.sectors = 1
	if pos.offset+InodeRecordSize > BlockSize {
		pos.sectors = 2
	}
	return
}

// OpenInode returns the shared in-memory inode, reading it from disk
// if nobody has it open yet. Pair with CloseInode.
func (self *Partition) OpenInode(ino uint32) *Inode {
	defer self.inodeLock.Locked()()
	if inode := self.openInodes[ino]; inode != nil {
		inode.refcnt.Add(1)
		mlog.Printf2("fs/inode", "OpenInode %v (cached)", inode)
		return inode
	}
	pos := self.locateInode(ino)
	buf := make([]byte, pos.sectors*BlockSize)
	self.readSectors(pos.lba, buf)
	inode := decodeInode(buf[pos.offset:])
	if inode.Ino != ino {
		// never written (or zeroed) slot
		mlog.Printf2("fs/inode", " slot %d claims to be %d", ino, inode.Ino)
		inode.Ino = ino
	}
	inode.refcnt.Set(1)
	self.openInodes[ino] = inode
	mlog.Printf2("fs/inode", "OpenInode %v", inode)
	return inode
}

// addOpenInode puts a freshly created inode in the cache with one
// reference.
func (self *Partition) addOpenInode(inode *Inode) {
	defer self.inodeLock.Locked()()
	if self.openInodes[inode.Ino] != nil {
		log.Panicf("%s: new inode %d already open", self.Info.Name, inode.Ino)
	}
	inode.refcnt.Set(1)
	self.openInodes[inode.Ino] = inode
}

// CloseInode drops a reference; the last one evicts the inode from
// the cache.
func (self *Partition) CloseInode(inode *Inode) {
	defer self.inodeLock.Locked()()
	rc := inode.refcnt.Add(-1)
	mlog.Printf2("fs/inode", "CloseInode %v", inode)
	switch {
	case rc == 0:
		delete(self.openInodes, inode.Ino)
	case rc < 0:
		log.Panicf("%s: inode %d closed too many times", self.Info.Name, inode.Ino)
	}
}

// acquireWrite is the test-and-set of the exclusive write flag.
func (self *Partition) acquireWrite(inode *Inode) bool {
	defer self.inodeLock.Locked()()
	if inode.writing {
		return false
	}
	inode.writing = true
	return true
}

func (self *Partition) releaseWrite(inode *Inode) {
	defer self.inodeLock.Locked()()
	inode.writing = false
}

// SyncInode writes the inode record back. Neighbouring records share
// the sector(s), so they are read first.
func (self *Partition) SyncInode(inode *Inode) {
	pos := self.locateInode(inode.Ino)
	mlog.Printf2("fs/inode", "SyncInode %v at %d+%d", inode, pos.lba, pos.offset)
	buf := make([]byte, pos.sectors*BlockSize)
	self.readSectors(pos.lba, buf)
	inode.encode(buf[pos.offset:])
	self.writeSectors(pos.lba, buf)
}

// ReleaseInode frees the data blocks (and the indirect block) of the
// inode, and then the inode itself. The data is not zeroed.
func (self *Partition) ReleaseInode(ino uint32) {
	mlog.Printf2("fs/inode", "ReleaseInode %d", ino)
	inode := self.OpenInode(ino)
	defer self.CloseInode(inode)
	for _, lba := range self.blockAddrs(inode) {
		if lba != 0 {
			self.FreeBlock(lba)
		}
	}
	if lba := inode.Sectors[IndirectSlot]; lba != 0 {
		self.FreeBlock(lba)
	}
	inode.Sectors = [InodeSectorSlots]uint32{}
	inode.Size = 0
	self.FreeInode(ino)
}

// newInode is a fresh, empty inode which is not yet in the cache.
func newInode(ino uint32) *Inode {
	return &Inode{Ino: ino}
}
