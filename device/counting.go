/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 10:14:45 2026 mstenber
 * Last modified: Wed Oct 14 15:05:17 2026 mstenber
 * Edit time:     14 min
 *
 */

package device

import (
	"github.com/fingon/go-tinyfs/util"
)

// CountingDevice keeps track of the I/O passing through to Device.
type CountingDevice struct {
	Device
	Reads, Writes               util.AtomicInt
	SectorsRead, SectorsWritten util.AtomicInt

	// LastWrite is the lba of the most recent write.
	LastWrite util.AtomicInt
}

func (self *CountingDevice) ReadSectors(lba uint32, buf []byte) {
	self.Device.ReadSectors(lba, buf)
	self.Reads.Add(1)
	self.SectorsRead.AddInt(len(buf) / SectorSize)
}

func (self *CountingDevice) WriteSectors(lba uint32, buf []byte) {
	self.Device.WriteSectors(lba, buf)
	self.Writes.Add(1)
	self.SectorsWritten.AddInt(len(buf) / SectorSize)
	self.LastWrite.Set(int64(lba))
}

// Reset zeroes the counters.
func (self *CountingDevice) Reset() {
	self.Reads.Set(0)
	self.Writes.Set(0)
	self.SectorsRead.Set(0)
	self.SectorsWritten.Set(0)
}
