/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sat Oct 10 10:11:03 2026 mstenber
 * Last modified: Fri Oct 16 15:12:47 2026 mstenber
 * Edit time:     143 min
 *
 */

package fs

import (
	"bytes"
	"log"

	"github.com/pkg/errors"

	"github.com/fingon/go-tinyfs/mlog"
)

// Dentry is one directory entry. On disk it is DentryRecordSize
// bytes: inode number, type, and the NUL padded name. Type
// FT_UNKNOWN marks a free slot.
type Dentry struct {
	Name string
	Ino  uint32
	Type FileType
}

func (self Dentry) encode(b []byte) {
	le.PutUint32(b[0:], self.Ino)
	le.PutUint32(b[4:], uint32(self.Type))
	name := b[8:DentryRecordSize]
	for i := range name {
		name[i] = 0
	}
	copy(name, self.Name)
}

func decodeDentry(b []byte) (d Dentry) {
	d.Ino = le.Uint32(b[0:])
	d.Type = FileType(le.Uint32(b[4:]))
	name := b[8:DentryRecordSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	d.Name = string(name)
	return
}

func clearDentry(b []byte) {
	for i := 0; i < DentryRecordSize; i++ {
		b[i] = 0
	}
}

func isDotEntry(d *Dentry) bool {
	return d.Name == "." || d.Name == ".."
}

// Dir is an open directory: the inode, a read cursor in bytes of live
// entries, and a sector buffer for Read.
type Dir struct {
	Inode *Inode

	part   *Partition
	pos    uint32
	buf    [BlockSize]byte
	isRoot bool
}

func (self *Partition) OpenDir(ino uint32) *Dir {
	return &Dir{Inode: self.OpenInode(ino), part: self}
}

// CloseDir closes dir; the root directory stays open.
func (self *Partition) CloseDir(dir *Dir) {
	if dir == nil || dir.isRoot {
		return
	}
	self.CloseInode(dir.Inode)
}

// IsEmpty is true if only . and .. remain.
func (self *Dir) IsEmpty() bool {
	return self.Inode.Size == 2*DentryRecordSize
}

// Read returns the next live entry (including . and ..), or nil at
// the end.
func (self *Dir) Read() *Dentry {
	if self.pos >= self.Inode.Size {
		return nil
	}
	cur := uint32(0)
	for _, lba := range self.part.blockAddrs(self.Inode) {
		if lba == 0 {
			continue
		}
		self.part.readSectors(lba, self.buf[:])
		for i := 0; i < DentriesPerBlock; i++ {
			d := decodeDentry(self.buf[i*DentryRecordSize:])
			if d.Type == FT_UNKNOWN {
				continue
			}
			if cur < self.pos {
				cur += DentryRecordSize
				continue
			}
			self.pos += DentryRecordSize
			return &d
		}
	}
	return nil
}

func (self *Dir) Rewind() {
	self.pos = 0
}

// searchDentry finds name in dir.
func (self *Partition) searchDentry(dir *Dir, name string) (Dentry, bool) {
	buf := make([]byte, BlockSize)
	for _, lba := range self.blockAddrs(dir.Inode) {
		if lba == 0 {
			continue
		}
		self.readSectors(lba, buf)
		for i := 0; i < DentriesPerBlock; i++ {
			d := decodeDentry(buf[i*DentryRecordSize:])
			if d.Type != FT_UNKNOWN && d.Name == name {
				mlog.Printf2("fs/dir", "searchDentry %s in %d -> %d", name, dir.Inode.Ino, d.Ino)
				return d, true
			}
		}
	}
	mlog.Printf2("fs/dir", "searchDentry %s in %d -> not found", name, dir.Inode.Ino)
	return Dentry{}, false
}

// attachDirBlock allocates a data block for block index idx of the
// directory inode, building the indirect block if it is the first
// indirect one. Either everything is installed (bitmap bits synced,
// indirect block written) or nothing is.
func (self *Partition) attachDirBlock(inode *Inode, idx int) (uint32, error) {
	lba, err := self.AllocBlock()
	if err != nil {
		return 0, err
	}
	if idx < DirectBlocks {
		inode.Sectors[idx] = lba
		self.SyncBlock(lba)
		return lba, nil
	}
	var table [AddrsPerBlock]uint32
	index := inode.Sectors[IndirectSlot]
	if index == 0 {
		index, err = self.AllocBlock()
		if err != nil {
			self.FreeBlock(lba)
			return 0, err
		}
		self.SyncBlock(index)
	} else {
		table = self.readIndirect(index)
	}
	table[idx-DirectBlocks] = lba
	self.writeIndirect(index, &table)
	inode.Sectors[IndirectSlot] = index
	self.SyncBlock(lba)
	return lba, nil
}

// syncDentry stores d in the first free slot of parent, adding a
// block if all are full. The data block and bitmap are written here;
// the caller syncs the parent inode (whose size grew).
func (self *Partition) syncDentry(parent *Dir, d *Dentry) error {
	if len(d.Name) > MaxFileNameLen {
		return ErrNameTooLong
	}
	mlog.Printf2("fs/dir", "syncDentry %v in %d", *d, parent.Inode.Ino)
	addrs := self.blockAddrs(parent.Inode)
	buf := make([]byte, BlockSize)
	for _, lba := range addrs {
		if lba == 0 {
			continue
		}
		self.readSectors(lba, buf)
		for i := 0; i < DentriesPerBlock; i++ {
			slot := buf[i*DentryRecordSize:]
			if decodeDentry(slot).Type != FT_UNKNOWN {
				continue
			}
			d.encode(slot)
			self.writeSectors(lba, buf)
			parent.Inode.Size += DentryRecordSize
			mlog.Printf2("fs/dir", " slot %d of %d", i, lba)
			return nil
		}
	}
	for idx, lba := range addrs {
		if lba != 0 {
			continue
		}
		nlba, err := self.attachDirBlock(parent.Inode, idx)
		if err != nil {
			mlog.Warnf("%s: no block for directory %d: %v", self.Info.Name, parent.Inode.Ino, err)
			return err
		}
		for i := range buf {
			buf[i] = 0
		}
		d.encode(buf)
		self.writeSectors(nlba, buf)
		parent.Inode.Size += DentryRecordSize
		mlog.Printf2("fs/dir", " new block %d at %d", nlba, idx)
		return nil
	}
	mlog.Warnf("%s: directory %d is full", self.Info.Name, parent.Inode.Ino)
	return ErrDirFull
}

// detachDirBlock frees block idx of a directory, and the indirect
// block too if it becomes empty.
func (self *Partition) detachDirBlock(inode *Inode, idx int, lba uint32) {
	self.FreeBlock(lba)
	if idx < DirectBlocks {
		inode.Sectors[idx] = 0
		return
	}
	index := inode.Sectors[IndirectSlot]
	table := self.readIndirect(index)
	table[idx-DirectBlocks] = 0
	for _, v := range table {
		if v != 0 {
			self.writeIndirect(index, &table)
			return
		}
	}
	self.FreeBlock(index)
	inode.Sectors[IndirectSlot] = 0
}

// deleteDentry removes the entry for ino from parent. A block that
// held only that entry is freed, except for the first block which
// always keeps . and ..; the parent inode is synced.
func (self *Partition) deleteDentry(parent *Dir, ino uint32) error {
	mlog.Printf2("fs/dir", "deleteDentry %d from %d", ino, parent.Inode.Ino)
	buf := make([]byte, BlockSize)
	for idx, lba := range self.blockAddrs(parent.Inode) {
		if lba == 0 {
			continue
		}
		self.readSectors(lba, buf)
		live := 0
		found := -1
		for i := 0; i < DentriesPerBlock; i++ {
			d := decodeDentry(buf[i*DentryRecordSize:])
			if d.Type == FT_UNKNOWN || isDotEntry(&d) {
				continue
			}
			live++
			if d.Ino == ino && found < 0 {
				found = i
			}
		}
		if found < 0 {
			continue
		}
		if live == 1 && idx != 0 {
			mlog.Printf2("fs/dir", " freeing block %d (#%d)", lba, idx)
			self.detachDirBlock(parent.Inode, idx, lba)
		} else {
			clearDentry(buf[found*DentryRecordSize:])
			self.writeSectors(lba, buf)
		}
		parent.Inode.Size -= DentryRecordSize
		self.SyncInode(parent.Inode)
		return nil
	}
	return ErrNotFound
}

// dirRemove removes the (empty) directory child from parent and
// frees it.
func (self *Partition) dirRemove(parent, child *Dir) error {
	for i := 1; i < InodeSectorSlots; i++ {
		if child.Inode.Sectors[i] != 0 {
			log.Panicf("%s: removing directory %d with blocks beyond the first", self.Info.Name, child.Inode.Ino)
		}
	}
	if err := self.deleteDentry(parent, child.Inode.Ino); err != nil {
		return err
	}
	self.ReleaseInode(child.Inode.Ino)
	return nil
}

// parentIno returns the inode number in the .. entry of directory
// ino.
func (self *Partition) parentIno(ino uint32) (uint32, error) {
	dir := self.openDirOrRoot(ino)
	defer self.CloseDir(dir)
	d, ok := self.searchDentry(dir, "..")
	if !ok {
		mlog.Warnf("%s: directory %d has no ..", self.Info.Name, ino)
		return 0, errors.Wrapf(ErrNotFound, "no .. in %d", ino)
	}
	return d.Ino, nil
}

// childName finds the name under which childIno is in directory
// parentIno.
func (self *Partition) childName(parentIno, childIno uint32) (string, error) {
	dir := self.OpenDir(parentIno)
	defer self.CloseDir(dir)
	for d := dir.Read(); d != nil; d = dir.Read() {
		if d.Ino == childIno && !isDotEntry(d) {
			return d.Name, nil
		}
	}
	return "", ErrNotFound
}
