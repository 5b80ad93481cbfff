/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct 13 11:30:02 2026 mstenber
 * Last modified: Thu Oct 15 20:14:55 2026 mstenber
 * Edit time:     26 min
 *
 */

package fs

import (
	"testing"

	"github.com/stvp/assert"
)

func TestInodeCache(t *testing.T) {
	t.Parallel()
	part := newTestPartition(t, testSectors, testInodes)
	a := part.OpenInode(5)
	b := part.OpenInode(5)
	assert.True(t, a == b)
	assert.Equal(t, a.RefCount(), 2)
	assert.Equal(t, part.Stats().OpenInodes, 2)

	part.CloseInode(a)
	assert.Equal(t, b.RefCount(), 1)
	part.CloseInode(b)
	assert.Equal(t, b.RefCount(), 0)
	assert.Equal(t, part.Stats().OpenInodes, 1)

	c := part.OpenInode(5)
	assert.True(t, c != a)
	part.CloseInode(c)

	defer func() {
		assert.NotNil(t, recover())
	}()
	part.CloseInode(c)
}

func TestInodeSync(t *testing.T) {
	t.Parallel()
	part := newTestPartition(t, testSectors, testInodes)
	// 6*76 = 456, so inode 6 straddles the first two sectors
	pos := part.locateInode(6)
	assert.Equal(t, pos.sectors, 2)
	assert.Equal(t, pos.lba, part.Sb.InodeTableLBA)
	assert.Equal(t, pos.offset, 456)

	for _, ino := range []uint32{5, 6, 7} {
		inode := newInode(ino)
		inode.Size = 100 * ino
		inode.Sectors[0] = 1000 + ino
		inode.Sectors[IndirectSlot] = 2000 + ino
		part.addOpenInode(inode)
		assert.True(t, part.acquireWrite(inode))
		assert.False(t, part.acquireWrite(inode))
		part.SyncInode(inode)
		part.CloseInode(inode)
	}

	buf := make([]byte, 2*BlockSize)
	part.readSectors(pos.lba, buf)
	raw := decodeInode(buf[pos.offset:])
	assert.Equal(t, raw.Ino, uint32(6))
	assert.Equal(t, raw.Size, uint32(600))
	// nothing memory-only ends up on disk
	assert.Equal(t, buf[pos.offset+8:pos.offset+16], make([]byte, 8))

	for _, ino := range []uint32{5, 6, 7} {
		inode := part.OpenInode(ino)
		assert.Equal(t, inode.Size, 100*ino)
		assert.Equal(t, inode.Sectors[0], 1000+ino)
		assert.Equal(t, inode.Sectors[IndirectSlot], 2000+ino)
		assert.Equal(t, inode.RefCount(), 1)
		assert.False(t, inode.writing)
		part.CloseInode(inode)
	}

	defer func() {
		assert.NotNil(t, recover())
	}()
	part.locateInode(testInodes)
}

func TestReleaseInode(t *testing.T) {
	t.Parallel()
	part := newTestPartition(t, testSectors, testInodes)
	free := part.Stats()

	ino, err := part.AllocInode()
	assert.Nil(t, err)
	part.SyncBitmap(ino, INODE_BITMAP)
	inode := newInode(ino)
	part.addOpenInode(inode)
	n, err := part.growFile(inode, 0, DirectBlocks+3)
	assert.Nil(t, err)
	assert.Equal(t, n, DirectBlocks+3)
	inode.Size = uint32(n * BlockSize)
	part.SyncInode(inode)
	part.CloseInode(inode)

	st := part.Stats()
	// data blocks and the indirect block
	assert.Equal(t, st.FreeBlocks, free.FreeBlocks-DirectBlocks-4)
	assert.Equal(t, st.FreeInodes, free.FreeInodes-1)

	part.ReleaseInode(ino)
	assert.Equal(t, part.Stats(), free)

	part = remount(t, part)
	st = part.Stats()
	assert.Equal(t, st.FreeBlocks, free.FreeBlocks)
	assert.Equal(t, st.FreeInodes, free.FreeInodes)
}
