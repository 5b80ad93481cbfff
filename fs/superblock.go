/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct  9 10:02:57 2026 mstenber
 * Last modified: Fri Oct 16 13:41:20 2026 mstenber
 * Edit time:     84 min
 *
 */

package fs

import (
	"bytes"
	"encoding/binary"
	"log"

	"github.com/fingon/go-tinyfs/bitmap"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/disk"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Superblock describes the partition layout. It lives in the second
// sector of the partition (the first is left for a boot sector), and
// is padded to a full sector on disk. All LBAs are absolute.
type Superblock struct {
	Magic    uint32
	SecCnt   uint32
	InodeCnt uint32
	LBABase  uint32

	BlockBitmapLBA   uint32
	BlockBitmapSects uint32

	InodeBitmapLBA   uint32
	InodeBitmapSects uint32

	InodeTableLBA   uint32
	InodeTableSects uint32

	DataStart  uint32
	RootIno    uint32
	DentrySize uint32
	InodeSize  uint32

	// BlockCount is the number of valid block bitmap bits
	BlockCount uint32

	UUID uuid.UUID
}

func (self *Superblock) encode() []byte {
	var b bytes.Buffer
	if err := binary.Write(&b, binary.LittleEndian, self); err != nil {
		log.Panic(err)
	}
	buf := make([]byte, BlockSize)
	copy(buf, b.Bytes())
	return buf
}

func decodeSuperblock(buf []byte) *Superblock {
	sb := &Superblock{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, sb); err != nil {
		log.Panic(err)
	}
	return sb
}

func (self *Superblock) validate(info disk.PartitionInfo) error {
	switch {
	case self.Magic != SuperblockMagic:
		return errors.Wrapf(ErrBadSuperblock, "magic %x", self.Magic)
	case self.DentrySize != DentryRecordSize || self.InodeSize != InodeRecordSize:
		return errors.Wrapf(ErrBadSuperblock, "record sizes %d/%d", self.DentrySize, self.InodeSize)
	case self.LBABase != info.Start || self.SecCnt > info.Sectors:
		return errors.Wrapf(ErrBadSuperblock, "made for %d+%d", self.LBABase, self.SecCnt)
	case self.BlockBitmapLBA != self.LBABase+2,
		self.InodeBitmapLBA != self.BlockBitmapLBA+self.BlockBitmapSects,
		self.InodeTableLBA != self.InodeBitmapLBA+self.InodeBitmapSects,
		self.DataStart != self.InodeTableLBA+self.InodeTableSects,
		self.DataStart+self.BlockCount > self.LBABase+self.SecCnt,
		self.InodeBitmapSects*BitsPerSector < self.InodeCnt,
		self.BlockBitmapSects*BitsPerSector < self.BlockCount,
		self.InodeTableSects*BlockSize < self.InodeCnt*InodeRecordSize:
		return errors.Wrap(ErrBadSuperblock, "inconsistent layout")
	}
	return nil
}

// computeLayout fills in the superblock for a partition with the
// given number of inode slots.
func computeLayout(info disk.PartitionInfo, inodes uint32) (*Superblock, error) {
	sb := &Superblock{
		Magic:      SuperblockMagic,
		SecCnt:     info.Sectors,
		InodeCnt:   inodes,
		LBABase:    info.Start,
		RootIno:    RootIno,
		DentrySize: DentryRecordSize,
		InodeSize:  InodeRecordSize,
	}
	sb.InodeBitmapSects = util.CeilDiv(inodes, BitsPerSector)
	sb.InodeTableSects = util.CeilDiv(inodes*InodeRecordSize, BlockSize)
	used := 2 + sb.InodeBitmapSects + sb.InodeTableSects
	if info.Sectors <= used+1 {
		return nil, ErrPartitionTooSmall
	}
	free := info.Sectors - used
	sb.BlockCount = free - util.CeilDiv(free, BitsPerSector)
	sb.BlockBitmapSects = util.CeilDiv(sb.BlockCount, BitsPerSector)

	sb.BlockBitmapLBA = info.Start + 2
	sb.InodeBitmapLBA = sb.BlockBitmapLBA + sb.BlockBitmapSects
	sb.InodeTableLBA = sb.InodeBitmapLBA + sb.InodeBitmapSects
	sb.DataStart = sb.InodeTableLBA + sb.InodeTableSects
	return sb, nil
}

type FormatOptions struct {
	// Inodes is the number of inode slots; MaxFilesPerPart if zero.
	Inodes uint32

	// UUID of the volume; random if zero.
	UUID uuid.UUID
}

// newFormatBitmap returns a bitmap of sectors sectors with bit 0 (the
// root) and everything from valid onwards set.
func newFormatBitmap(sectors, valid uint32) *bitmap.Bitmap {
	bm := bitmap.New(int(sectors) * BlockSize)
	bm.Set(0, true)
	bm.SetRange(int(valid), bm.Len(), true)
	return bm
}

// Format writes an empty filesystem (with just the root directory) on
// the partition. Whatever was there is lost; see HasFilesystem.
func Format(dev device.Device, info disk.PartitionInfo, opts FormatOptions) (*Superblock, error) {
	inodes := opts.Inodes
	if inodes == 0 {
		inodes = MaxFilesPerPart
	}
	sb, err := computeLayout(info, inodes)
	if err != nil {
		return nil, err
	}
	if uint64(info.Start)+uint64(info.Sectors) > uint64(dev.SectorCount()) {
		return nil, errors.Wrapf(ErrPartitionTooSmall, "%s extends beyond device", info.Name)
	}
	sb.UUID = opts.UUID
	if sb.UUID == uuid.Nil {
		sb.UUID = uuid.New()
	}
	mlog.Printf2("fs/superblock", "Format %v", info)
	mlog.Printf2("fs/superblock", " block bitmap %d+%d", sb.BlockBitmapLBA, sb.BlockBitmapSects)
	mlog.Printf2("fs/superblock", " inode bitmap %d+%d", sb.InodeBitmapLBA, sb.InodeBitmapSects)
	mlog.Printf2("fs/superblock", " inode table %d+%d", sb.InodeTableLBA, sb.InodeTableSects)
	mlog.Printf2("fs/superblock", " data %d+%d", sb.DataStart, sb.BlockCount)

	dev.WriteSectors(info.Start+1, sb.encode())

	bbm := newFormatBitmap(sb.BlockBitmapSects, sb.BlockCount)
	dev.WriteSectors(sb.BlockBitmapLBA, bbm.Bytes())

	ibm := newFormatBitmap(sb.InodeBitmapSects, sb.InodeCnt)
	dev.WriteSectors(sb.InodeBitmapLBA, ibm.Bytes())

	root := Inode{Ino: RootIno, Size: 2 * DentryRecordSize}
	root.Sectors[0] = sb.DataStart
	table := make([]byte, sb.InodeTableSects*BlockSize)
	root.encode(table)
	dev.WriteSectors(sb.InodeTableLBA, table)

	block := make([]byte, BlockSize)
	Dentry{Name: ".", Ino: RootIno, Type: FT_DIRECTORY}.encode(block)
	Dentry{Name: "..", Ino: RootIno, Type: FT_DIRECTORY}.encode(block[DentryRecordSize:])
	dev.WriteSectors(sb.DataStart, block)
	dev.Flush()
	return sb, nil
}

func readSuperblock(dev device.Device, info disk.PartitionInfo) *Superblock {
	buf := make([]byte, BlockSize)
	dev.ReadSectors(info.Start+1, buf)
	return decodeSuperblock(buf)
}

// HasFilesystem tells if the partition carries our magic.
func HasFilesystem(dev device.Device, info disk.PartitionInfo) bool {
	if info.Sectors < 2 {
		return false
	}
	return readSuperblock(dev, info).Magic == SuperblockMagic
}

// InitDisk formats every partition of d that does not have a
// filesystem yet, and returns the names of the formatted ones.
func InitDisk(d *disk.Disk, opts FormatOptions) (formatted []string, err error) {
	for _, p := range d.Partitions {
		if HasFilesystem(d.Dev, p) {
			mlog.Printf2("fs/superblock", "%s has filesystem", p.Name)
			continue
		}
		mlog.Printf2("fs/superblock", "formatting %s's partition %s", d.Name, p.Name)
		popts := opts
		popts.UUID = uuid.Nil
		if _, err = Format(d.Dev, p, popts); err != nil {
			return
		}
		formatted = append(formatted, p.Name)
	}
	return
}
