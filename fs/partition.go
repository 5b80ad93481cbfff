/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct  9 13:14:40 2026 mstenber
 * Last modified: Fri Oct 16 14:02:36 2026 mstenber
 * Edit time:     97 min
 *
 */

package fs

import (
	"log"

	"github.com/fingon/go-tinyfs/bitmap"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/disk"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

// Partition is a mounted filesystem: the superblock, both bitmaps
// (fully in memory) and the open inode cache.
type Partition struct {
	Info disk.PartitionInfo
	Sb   *Superblock

	dev device.Device

	// bitmapLock covers scan+set pairs
	bitmapLock  util.MutexLocked
	blockBitmap *bitmap.Bitmap
	inodeBitmap *bitmap.Bitmap

	// inodeLock covers openInodes and Inode.writing
	inodeLock  util.MutexLocked
	openInodes map[uint32]*Inode

	root *Dir
}

// Mount reads the superblock and bitmaps of a formatted partition.
func Mount(dev device.Device, info disk.PartitionInfo) (*Partition, error) {
	mlog.Printf2("fs/partition", "Mount %v", info)
	sb := readSuperblock(dev, info)
	if err := sb.validate(info); err != nil {
		mlog.Printf2("fs/partition", " %v", err)
		return nil, err
	}
	self := &Partition{
		Info:       info,
		Sb:         sb,
		dev:        dev,
		openInodes: make(map[uint32]*Inode),
	}

	bbm := make([]byte, sb.BlockBitmapSects*BlockSize)
	dev.ReadSectors(sb.BlockBitmapLBA, bbm)
	self.blockBitmap = bitmap.FromBytes(bbm)

	ibm := make([]byte, sb.InodeBitmapSects*BlockSize)
	dev.ReadSectors(sb.InodeBitmapLBA, ibm)
	self.inodeBitmap = bitmap.FromBytes(ibm)

	self.root = self.OpenDir(RootIno)
	self.root.isRoot = true
	mlog.Printf2("fs/partition", " mounted %s", info.Name)
	return self, nil
}

// MountByName mounts the named partition of d.
func MountByName(d *disk.Disk, name string) (*Partition, error) {
	info, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	return Mount(d.Dev, info)
}

// Root returns the root directory; it is never closed.
func (self *Partition) Root() *Dir {
	return self.root
}

// Unmount releases the root directory and flushes the device. Inodes
// still open are reported; their in-memory state is lost.
func (self *Partition) Unmount() {
	self.root.Inode.refcnt.Add(-1)
	func() {
		defer self.inodeLock.Locked()()
		delete(self.openInodes, RootIno)
		for ino, inode := range self.openInodes {
			mlog.Warnf("%s: inode %d still open (%d refs) at unmount", self.Info.Name, ino, inode.RefCount())
		}
	}()
	self.dev.Flush()
}

// Flush pushes everything written so far to stable storage.
func (self *Partition) Flush() {
	self.dev.Flush()
}

func (self *Partition) readSectors(lba uint32, buf []byte) {
	self.checkLBA(lba, len(buf))
	self.dev.ReadSectors(lba, buf)
}

func (self *Partition) writeSectors(lba uint32, buf []byte) {
	self.checkLBA(lba, len(buf))
	self.dev.WriteSectors(lba, buf)
}

func (self *Partition) checkLBA(lba uint32, n int) {
	end := uint64(self.Sb.LBABase) + uint64(self.Sb.SecCnt)
	if lba < self.Sb.LBABase || uint64(lba)+uint64(n/BlockSize) > end {
		log.Panicf("%s: sector %d outside partition", self.Info.Name, lba)
	}
}

// AllocBlock reserves a data block in memory and returns its LBA; the
// caller has to SyncBitmap it.
func (self *Partition) AllocBlock() (uint32, error) {
	defer self.bitmapLock.Locked()()
	bit := self.blockBitmap.Scan(1)
	if bit == bitmap.NotFound {
		return 0, ErrNoSpace
	}
	self.blockBitmap.Set(bit, true)
	return self.Sb.DataStart + uint32(bit), nil
}

// AllocInode reserves an inode number in memory; the caller has to
// SyncBitmap it.
func (self *Partition) AllocInode() (uint32, error) {
	defer self.bitmapLock.Locked()()
	bit := self.inodeBitmap.Scan(1)
	if bit == bitmap.NotFound {
		return 0, ErrNoInodes
	}
	self.inodeBitmap.Set(bit, true)
	return uint32(bit), nil
}

func (self *Partition) blockBit(lba uint32) uint32 {
	if lba < self.Sb.DataStart || lba-self.Sb.DataStart >= self.Sb.BlockCount {
		log.Panicf("%s: lba %d is not a data block", self.Info.Name, lba)
	}
	return lba - self.Sb.DataStart
}

// FreeBlock returns the block to the bitmap, durably.
func (self *Partition) FreeBlock(lba uint32) {
	bit := self.blockBit(lba)
	mlog.Printf2("fs/partition", "FreeBlock %d", lba)
	func() {
		defer self.bitmapLock.Locked()()
		self.blockBitmap.Set(int(bit), false)
	}()
	self.SyncBitmap(bit, BLOCK_BITMAP)
}

// FreeInode returns the inode number to the bitmap, durably.
func (self *Partition) FreeInode(ino uint32) {
	mlog.Printf2("fs/partition", "FreeInode %d", ino)
	func() {
		defer self.bitmapLock.Locked()()
		self.inodeBitmap.Set(int(ino), false)
	}()
	self.SyncBitmap(ino, INODE_BITMAP)
}

// SyncBlock persists the bitmap bit of a data block.
func (self *Partition) SyncBlock(lba uint32) {
	self.SyncBitmap(self.blockBit(lba), BLOCK_BITMAP)
}

// SyncBitmap writes the one bitmap sector that contains bit.
func (self *Partition) SyncBitmap(bit uint32, which BitmapType) {
	bm, base := self.blockBitmap, self.Sb.BlockBitmapLBA
	if which == INODE_BITMAP {
		bm, base = self.inodeBitmap, self.Sb.InodeBitmapLBA
	}
	buf := make([]byte, BlockSize)
	var sec int
	func() {
		defer self.bitmapLock.Locked()()
		var data []byte
		sec, data = bm.Sector(int(bit))
		copy(buf, data)
	}()
	self.writeSectors(base+uint32(sec), buf)
}

type Stats struct {
	Blocks, FreeBlocks uint32
	Inodes, FreeInodes uint32
	OpenInodes         int
}

func (self *Partition) Stats() (st Stats) {
	func() {
		defer self.bitmapLock.Locked()()
		// tail bits past the real counts are set too
		st.Blocks = self.Sb.BlockCount
		st.FreeBlocks = uint32(self.blockBitmap.Len() - self.blockBitmap.Count())
		st.Inodes = self.Sb.InodeCnt
		st.FreeInodes = uint32(self.inodeBitmap.Len() - self.inodeBitmap.Count())
	}()
	defer self.inodeLock.Locked()()
	st.OpenInodes = len(self.openInodes)
	return
}

func (self *Partition) readIndirect(lba uint32) (table [AddrsPerBlock]uint32) {
	buf := make([]byte, BlockSize)
	self.readSectors(lba, buf)
	for i := range table {
		table[i] = le.Uint32(buf[i*4:])
	}
	return
}

func (self *Partition) writeIndirect(lba uint32, table *[AddrsPerBlock]uint32) {
	buf := make([]byte, BlockSize)
	for i, v := range table {
		le.PutUint32(buf[i*4:], v)
	}
	self.writeSectors(lba, buf)
}

// blockAddrs returns all MaxFileBlocks block addresses of inode
// (zero where there is none).
func (self *Partition) blockAddrs(inode *Inode) []uint32 {
	addrs := make([]uint32, MaxFileBlocks)
	copy(addrs, inode.Sectors[:DirectBlocks])
	if lba := inode.Sectors[IndirectSlot]; lba != 0 {
		table := self.readIndirect(lba)
		copy(addrs[DirectBlocks:], table[:])
	}
	return addrs
}
