/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct 16 16:10:02 2026 mstenber
 * Last modified: Sat Oct 17 13:21:55 2026 mstenber
 * Edit time:     24 min
 *
 */

package fstest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/device/factory"
	"github.com/fingon/go-tinyfs/disk"
	"github.com/fingon/go-tinyfs/fs"
	"github.com/stvp/assert"
)

const (
	testSectors = 4096
	testInodes  = 256
)

func openFs(t *testing.T, dev device.Device) *fs.Fs {
	d, err := disk.Open("sdb", dev)
	assert.Nil(t, err)
	part, err := fs.MountByName(d, "sdb2")
	assert.Nil(t, err)
	return fs.NewFs(part)
}

func TestFs(t *testing.T) {
	t.Parallel()
	for _, name := range factory.List() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := ioutil.TempDir("", "tinyfs-fstest")
			assert.Nil(t, err)
			defer os.RemoveAll(dir)
			config := factory.CodecConfiguration{
				Configuration: device.Configuration{Path: dir, Sectors: testSectors},
				BackendName:   name,
				Password:      "siikret",
				Iterations:    16,
				Compression:   "lz4",
			}
			if name == "file" {
				config.Path = filepath.Join(dir, "disk.img")
			}
			dev, err := factory.NewCodecDevice(config)
			assert.Nil(t, err)

			parts, err := disk.Plan("sdb", testSectors, []uint32{100, 0})
			assert.Nil(t, err)
			assert.Nil(t, disk.WritePartitionTable(dev, parts))
			d, err := disk.Open("sdb", dev)
			assert.Nil(t, err)
			formatted, err := fs.InitDisk(d, fs.FormatOptions{Inodes: testInodes})
			assert.Nil(t, err)
			assert.Equal(t, formatted, []string{"sdb1", "sdb2"})

			f := openFs(t, dev)
			ProdFs(t, f)
			f.Close()
			dev.Close()
			if name == "inmemory" {
				return
			}

			dev, err = factory.NewCodecDevice(config)
			assert.Nil(t, err)
			defer dev.Close()
			d, err = disk.Open("sdb", dev)
			assert.Nil(t, err)
			formatted, err = fs.InitDisk(d, fs.FormatOptions{Inodes: testInodes})
			assert.Nil(t, err)
			assert.Equal(t, len(formatted), 0)
			f = openFs(t, dev)
			defer f.Close()
			VerifyFs(t, f)
		})
	}
}
