/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 13:01:26 2026 mstenber
 * Last modified: Fri Oct 16 09:40:51 2026 mstenber
 * Edit time:     47 min
 *
 */

// device package is the sector-addressed block device layer the
// filesystem is built on. All I/O is synchronous and in whole
// SectorSize units; an I/O error is fatal (log.Panic), as there is
// nothing underneath to retry with.
package device

import (
	"log"

	"github.com/fingon/go-tinyfs/codec"
)

const SectorSize = 512

// Device is the block device. Implementations must be safe for
// concurrent use.
type Device interface {
	// SectorCount is the size of the device in sectors.
	SectorCount() uint32

	// ReadSectors fills buf (a multiple of SectorSize) starting at
	// lba. Never-written sectors read as zeros.
	ReadSectors(lba uint32, buf []byte)

	// WriteSectors writes buf (a multiple of SectorSize) starting
	// at lba.
	WriteSectors(lba uint32, buf []byte)

	// Flush pushes written data to stable storage.
	Flush()

	Close()
}

// Configuration is what backends are created with; not every
// backend uses every field.
type Configuration struct {
	// Path is the image file or the key-value store directory.
	Path string

	// Sectors is the size of a device that does not exist yet.
	Sectors uint32

	// Codec (if any) is applied to sectors by key-value backends.
	Codec codec.Codec
}

// CheckIO panics unless buf is whole sectors and [lba, lba+n) is on
// the device. It returns the number of sectors.
func CheckIO(dev Device, lba uint32, buf []byte) uint32 {
	if len(buf) == 0 || len(buf)%SectorSize != 0 {
		log.Panicf("device: buffer of %d bytes is not whole sectors", len(buf))
	}
	n := uint32(len(buf) / SectorSize)
	if uint64(lba)+uint64(n) > uint64(dev.SectorCount()) {
		log.Panicf("device: sectors [%d,%d) beyond end %d", lba, lba+n, dev.SectorCount())
	}
	return n
}
