/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sun Oct 11 15:03:19 2026 mstenber
 * Last modified: Fri Oct 16 17:55:40 2026 mstenber
 * Edit time:     172 min
 *
 */

package fs

import (
	"io"

	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

// fileHandle is a slot in the global open file table.
type fileHandle struct {
	inode *Inode
	pos   uint32
	flags int
}

func (self *fileHandle) writable() bool {
	return self.flags&o_ACCMODE != O_RDONLY
}

func (self *fileHandle) readable() bool {
	return self.flags&o_ACCMODE != O_WRONLY
}

func (self *Fs) getFreeSlotInGlobal() (int, error) {
	for i := StdStreams; i < MaxFileOpen; i++ {
		if self.files[i].inode == nil {
			return i, nil
		}
	}
	mlog.Warnf("%s: too many open files", self.part.Info.Name)
	return -1, ErrTooManyOpen
}

func (self *Fs) handle(gfd int) *fileHandle {
	if gfd < StdStreams || gfd >= MaxFileOpen || self.files[gfd].inode == nil {
		return nil
	}
	return &self.files[gfd]
}

// isOpen is true if some handle in the global table refers to ino.
func (self *Fs) isOpen(ino uint32) bool {
	for i := range self.files {
		if inode := self.files[i].inode; inode != nil && inode.Ino == ino {
			return true
		}
	}
	return false
}

// fileOpen opens an existing inode. Opening for writing fails if
// someone else already has it open for writing.
func (self *Fs) fileOpen(ino uint32, flags int) (int, error) {
	mlog.Printf2("fs/fh", "fileOpen %d flags:%d", ino, flags)
	gfd, err := self.getFreeSlotInGlobal()
	if err != nil {
		return -1, err
	}
	part := self.part
	inode := part.OpenInode(ino)
	fh := fileHandle{inode: inode, flags: flags}
	if fh.writable() && !part.acquireWrite(inode) {
		part.CloseInode(inode)
		mlog.Warnf("file can't be written, try again")
		return -1, ErrWriteBusy
	}
	self.files[gfd] = fh
	return gfd, nil
}

// fileCreate creates a regular file name in parent and opens it.
// On failure, everything done so far is undone.
func (self *Fs) fileCreate(parent *Dir, name string, flags int) (int, error) {
	mlog.Printf2("fs/fh", "fileCreate %s in %d", name, parent.Inode.Ino)
	part := self.part
	tr := newFsTransaction("fileCreate")
	defer tr.Close()

	ino, err := part.AllocInode()
	if err != nil {
		mlog.Warnf("%s: out of inodes", part.Info.Name)
		return -1, err
	}
	tr.Undo(func() { part.FreeInode(ino) })

	gfd, err := self.getFreeSlotInGlobal()
	if err != nil {
		return -1, err
	}
	inode := newInode(ino)
	self.files[gfd] = fileHandle{inode: inode, flags: flags}
	tr.Undo(func() { self.files[gfd] = fileHandle{} })

	d := Dentry{Name: name, Ino: ino, Type: FT_REGULAR}
	if err := part.syncDentry(parent, &d); err != nil {
		return -1, err
	}
	part.SyncInode(parent.Inode)
	part.SyncInode(inode)
	part.SyncBitmap(ino, INODE_BITMAP)
	part.addOpenInode(inode)
	if self.files[gfd].writable() {
		part.acquireWrite(inode)
	}
	tr.Commit()
	return gfd, nil
}

func (self *Fs) fileClose(gfd int) {
	fh := &self.files[gfd]
	mlog.Printf2("fs/fh", "fileClose %d %v", gfd, fh.inode)
	if fh.writable() {
		self.part.releaseWrite(fh.inode)
	}
	self.part.CloseInode(fh.inode)
	*fh = fileHandle{}
}

// growFile gives inode blocks [have, need). It returns how many
// blocks the file has afterwards; if that is less than need, the
// error says why. The index block is only taken once the direct
// slots are full.
func (self *Partition) growFile(inode *Inode, have, need int) (int, error) {
	mlog.Printf2("fs/fh", "growFile %v %d -> %d", inode, have, need)
	var table [AddrsPerBlock]uint32
	index := inode.Sectors[IndirectSlot]
	newIndex := false
	if need > DirectBlocks && index != 0 {
		table = self.readIndirect(index)
	}
	got := have
	var err error
	for ; got < need; got++ {
		if got == DirectBlocks && index == 0 {
			lba, aerr := self.AllocBlock()
			if aerr != nil {
				mlog.Warnf("%s: no space for indirect block of %d", self.Info.Name, inode.Ino)
				err = aerr
				break
			}
			index = lba
			newIndex = true
		}
		lba, aerr := self.AllocBlock()
		if aerr != nil {
			mlog.Warnf("%s: out of space writing %d", self.Info.Name, inode.Ino)
			err = aerr
			break
		}
		if got < DirectBlocks {
			inode.Sectors[got] = lba
		} else {
			table[got-DirectBlocks] = lba
		}
		self.SyncBlock(lba)
	}
	switch {
	case got > util.IMax(have, DirectBlocks):
		self.writeIndirect(index, &table)
		if newIndex {
			inode.Sectors[IndirectSlot] = index
			self.SyncBlock(index)
		}
	case newIndex:
		mlog.Printf2("fs/fh", " indirect block %d unused", index)
		self.FreeBlock(index)
	}
	return got, err
}

// fileWrite writes buf at the handle position. Exceeding
// MaxFileSize fails without writing anything; running out of space
// writes what fits into the blocks obtained and returns ErrNoSpace.
func (self *Fs) fileWrite(gfd int, buf []byte) (int, error) {
	fh := &self.files[gfd]
	if !fh.writable() {
		mlog.Warnf("file %d not opened for writing", fh.inode.Ino)
		return 0, ErrNotWritable
	}
	inode := fh.inode
	mlog.Printf2("fs/fh", "fileWrite %v %d bytes @%d", inode, len(buf), fh.pos)
	if uint64(fh.pos)+uint64(len(buf)) > MaxFileSize {
		mlog.Warnf("file %d would exceed %d bytes", inode.Ino, MaxFileSize)
		return 0, ErrFileTooBig
	}
	if len(buf) == 0 {
		return 0, nil
	}
	part := self.part
	end := fh.pos + uint32(len(buf))
	have := int(util.CeilDiv(inode.Size, BlockSize))
	need := int(util.CeilDiv(end, BlockSize))
	var err error
	if need > have {
		var got int
		got, err = part.growFile(inode, have, need)
		if got < need {
			end = uint32(got * BlockSize)
			buf = buf[:end-fh.pos]
		}
	}

	addrs := part.blockAddrs(inode)
	block := make([]byte, BlockSize)
	n := 0
	pos := fh.pos
	for n < len(buf) {
		idx := int(pos / BlockSize)
		off := int(pos % BlockSize)
		chunk := util.IMin(BlockSize-off, len(buf)-n)
		if idx < have && chunk < BlockSize {
			part.readSectors(addrs[idx], block)
		} else {
			for i := range block {
				block[i] = 0
			}
		}
		copy(block[off:], buf[n:n+chunk])
		part.writeSectors(addrs[idx], block)
		n += chunk
		pos += uint32(chunk)
	}
	fh.pos = pos
	if pos > inode.Size {
		inode.Size = pos
	}
	part.SyncInode(inode)
	mlog.Printf2("fs/fh", " wrote %d, size now %d", n, inode.Size)
	return n, err
}

// fileRead reads from the handle position up to the end of file; at
// the end, it returns io.EOF.
func (self *Fs) fileRead(gfd int, buf []byte) (int, error) {
	fh := &self.files[gfd]
	if !fh.readable() {
		mlog.Warnf("file %d not opened for reading", fh.inode.Ino)
		return 0, ErrNotReadable
	}
	inode := fh.inode
	mlog.Printf2("fs/fh", "fileRead %v %d bytes @%d", inode, len(buf), fh.pos)
	if len(buf) == 0 {
		return 0, nil
	}
	if fh.pos >= inode.Size {
		return 0, io.EOF
	}
	part := self.part
	left := util.IMin(len(buf), int(inode.Size-fh.pos))
	addrs := part.blockAddrs(inode)
	block := make([]byte, BlockSize)
	n := 0
	for n < left {
		idx := int(fh.pos / BlockSize)
		off := int(fh.pos % BlockSize)
		chunk := util.IMin(BlockSize-off, left-n)
		part.readSectors(addrs[idx], block)
		copy(buf[n:], block[off:off+chunk])
		n += chunk
		fh.pos += uint32(chunk)
	}
	mlog.Printf2("fs/fh", " read %d", n)
	return n, nil
}
