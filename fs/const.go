/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct  9 09:01:44 2026 mstenber
 * Last modified: Fri Oct 16 13:30:12 2026 mstenber
 * Edit time:     26 min
 *
 */

package fs

import (
	"github.com/fingon/go-tinyfs/bitmap"
	"github.com/fingon/go-tinyfs/device"
)

const (
	// sectors are blocks
	BlockSize     = device.SectorSize
	BitsPerSector = bitmap.BitsPerSector

	SuperblockMagic = 0x544e5946
	MaxFilesPerPart = 4096
	MaxFileNameLen  = 16
	MaxPathLen      = 512

	DirectBlocks     = 12
	IndirectSlot     = DirectBlocks
	InodeSectorSlots = DirectBlocks + 1
	AddrsPerBlock    = BlockSize / 4
	MaxFileBlocks    = DirectBlocks + AddrsPerBlock
	MaxFileSize      = MaxFileBlocks * BlockSize

	// on-disk record sizes; recorded in the superblock
	InodeRecordSize  = 76
	DentryRecordSize = 24
	DentriesPerBlock = BlockSize / DentryRecordSize

	RootIno = 0

	// global open file table; the first StdStreams slots are never
	// handed out
	MaxFileOpen         = 32
	MaxFilesOpenPerProc = 8
	StdStreams          = 3
)

// Open flags
const (
	O_RDONLY = 0
	O_WRONLY = 1
	O_RDWR   = 2
	O_CREAT  = 4

	o_ACCMODE = O_WRONLY | O_RDWR
)

type FileType uint32

const (
	FT_UNKNOWN FileType = iota
	FT_REGULAR
	FT_DIRECTORY
)

func (self FileType) String() string {
	switch self {
	case FT_REGULAR:
		return "regular"
	case FT_DIRECTORY:
		return "directory"
	}
	return "unknown"
}

type BitmapType int

const (
	BLOCK_BITMAP BitmapType = iota
	INODE_BITMAP
)
