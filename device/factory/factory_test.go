/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 11:02:39 2026 mstenber
 * Last modified: Fri Oct 16 11:25:04 2026 mstenber
 * Edit time:     27 min
 *
 */

package factory

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-tinyfs/device"
	"github.com/stvp/assert"
)

func TestList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, List(), []string{"badger", "bolt", "file", "inmemory"})
	assert.True(t, UsesCodec("bolt"))
	assert.False(t, UsesCodec("file"))
}

func TestUnknown(t *testing.T) {
	t.Parallel()
	_, err := New("floppy", "", 10)
	assert.NotNil(t, err)
}

func prodDevice(t *testing.T, dev device.Device) {
	assert.Equal(t, dev.SectorCount(), uint32(64))

	buf := make([]byte, 2*device.SectorSize)
	dev.ReadSectors(10, buf)
	assert.True(t, bytes.Equal(buf, make([]byte, len(buf))))

	for i := range buf {
		buf[i] = byte(i)
	}
	dev.WriteSectors(62, buf)
	dev.Flush()

	got := make([]byte, device.SectorSize)
	dev.ReadSectors(63, got)
	assert.True(t, bytes.Equal(got, buf[device.SectorSize:]))

	defer func() {
		assert.NotNil(t, recover())
	}()
	dev.ReadSectors(63, buf)
}

func TestBackends(t *testing.T) {
	t.Parallel()
	for _, name := range List() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := ioutil.TempDir("", "tinyfs-device")
			assert.Nil(t, err)
			defer os.RemoveAll(dir)
			path := dir
			if name == "file" {
				path = filepath.Join(dir, "disk.img")
			}
			config := CodecConfiguration{
				Configuration: device.Configuration{Path: path, Sectors: 64},
				BackendName:   name,
				Password:      "siikret",
				Iterations:    16,
			}
			dev, err := NewCodecDevice(config)
			assert.Nil(t, err)
			prodDevice(t, dev)
			dev.Close()

			if name == "inmemory" {
				return
			}
			// reopen without size: data and size must persist
			config.Sectors = 0
			dev, err = NewCodecDevice(config)
			assert.Nil(t, err)
			defer dev.Close()
			assert.Equal(t, dev.SectorCount(), uint32(64))
			got := make([]byte, device.SectorSize)
			dev.ReadSectors(62, got)
			assert.Equal(t, got[1], byte(1))
		})
	}
}

func TestWrongPassword(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "tinyfs-device")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	config := CodecConfiguration{
		Configuration: device.Configuration{Path: dir, Sectors: 8},
		BackendName:   "bolt",
		Password:      "a",
		Iterations:    16,
	}
	dev, err := NewCodecDevice(config)
	assert.Nil(t, err)
	dev.WriteSectors(1, make([]byte, device.SectorSize))
	dev.Close()

	config.Password = "b"
	dev, err = NewCodecDevice(config)
	assert.Nil(t, err)
	defer dev.Close()
	defer func() {
		assert.NotNil(t, recover())
	}()
	dev.ReadSectors(1, make([]byte, device.SectorSize))
}

func TestNoSize(t *testing.T) {
	t.Parallel()
	_, err := New("inmemory", "", 0)
	assert.Equal(t, err, device.ErrNoSize)
}
