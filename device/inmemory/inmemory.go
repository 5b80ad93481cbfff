/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 14:02:11 2026 mstenber
 * Last modified: Wed Oct 14 15:11:46 2026 mstenber
 * Edit time:     18 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

// inMemoryDevice keeps written sectors in a map; everything else
// reads as zeros.
type inMemoryDevice struct {
	sectors  uint32
	lba2data map[uint32][]byte
	lock     util.MutexLocked
}

var _ device.Device = &inMemoryDevice{}

func NewInMemoryDevice(config device.Configuration) (device.Device, error) {
	if config.Sectors == 0 {
		return nil, device.ErrNoSize
	}
	self := &inMemoryDevice{sectors: config.Sectors,
		lba2data: make(map[uint32][]byte)}
	return self, nil
}

func (self *inMemoryDevice) SectorCount() uint32 {
	return self.sectors
}

func (self *inMemoryDevice) ReadSectors(lba uint32, buf []byte) {
	n := device.CheckIO(self, lba, buf)
	defer self.lock.Locked()()
	for i := uint32(0); i < n; i++ {
		dst := buf[i*device.SectorSize : (i+1)*device.SectorSize]
		data := self.lba2data[lba+i]
		if data == nil {
			for j := range dst {
				dst[j] = 0
			}
			continue
		}
		copy(dst, data)
	}
}

func (self *inMemoryDevice) WriteSectors(lba uint32, buf []byte) {
	n := device.CheckIO(self, lba, buf)
	mlog.Printf2("device/inmemory/inmemory", "im.WriteSectors %d+%d", lba, n)
	defer self.lock.Locked()()
	for i := uint32(0); i < n; i++ {
		data := make([]byte, device.SectorSize)
		copy(data, buf[i*device.SectorSize:])
		self.lba2data[lba+i] = data
	}
}

func (self *inMemoryDevice) Flush() {
}

func (self *inMemoryDevice) Close() {
}
