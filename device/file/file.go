/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 14:30:52 2026 mstenber
 * Last modified: Thu Oct 15 10:07:33 2026 mstenber
 * Edit time:     29 min
 *
 */

package file

import (
	"log"
	"os"

	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/pkg/errors"
)

// fileDevice is a raw disk image; sector n lives at byte offset
// n*SectorSize.
type fileDevice struct {
	f       *os.File
	sectors uint32
}

var _ device.Device = &fileDevice{}

// NewFileDevice opens the image at config.Path. A missing (or empty)
// image is created with config.Sectors sectors.
func NewFileDevice(config device.Configuration) (device.Device, error) {
	f, err := os.OpenFile(config.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat image")
	}
	size := fi.Size()
	if size == 0 {
		if config.Sectors == 0 {
			f.Close()
			os.Remove(config.Path)
			return nil, device.ErrNoSize
		}
		size = int64(config.Sectors) * device.SectorSize
		if err = f.Truncate(size); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "size image")
		}
	}
	self := &fileDevice{f: f, sectors: uint32(size / device.SectorSize)}
	mlog.Printf2("device/file/file", "NewFileDevice %s: %d sectors", config.Path, self.sectors)
	return self, nil
}

func (self *fileDevice) SectorCount() uint32 {
	return self.sectors
}

func (self *fileDevice) ReadSectors(lba uint32, buf []byte) {
	device.CheckIO(self, lba, buf)
	_, err := self.f.ReadAt(buf, int64(lba)*device.SectorSize)
	if err != nil {
		log.Panicf("%s read sector %d failed: %v", self.f.Name(), lba, err)
	}
}

func (self *fileDevice) WriteSectors(lba uint32, buf []byte) {
	device.CheckIO(self, lba, buf)
	mlog.Printf2("device/file/file", "f.WriteSectors %d+%d", lba, len(buf)/device.SectorSize)
	_, err := self.f.WriteAt(buf, int64(lba)*device.SectorSize)
	if err != nil {
		log.Panicf("%s write sector %d failed: %v", self.f.Name(), lba, err)
	}
}

func (self *fileDevice) Flush() {
	if err := self.f.Sync(); err != nil {
		log.Panicf("%s sync failed: %v", self.f.Name(), err)
	}
}

func (self *fileDevice) Close() {
	self.f.Close()
}
