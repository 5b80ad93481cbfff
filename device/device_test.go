/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 10:40:02 2026 mstenber
 * Last modified: Wed Oct 14 15:09:51 2026 mstenber
 * Edit time:     12 min
 *
 */

package device_test

import (
	"testing"

	"github.com/fingon/go-tinyfs/codec"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/device/inmemory"
	"github.com/stvp/assert"
)

func TestCountingDevice(t *testing.T) {
	t.Parallel()
	dev, err := inmemory.NewInMemoryDevice(device.Configuration{Sectors: 16})
	assert.Nil(t, err)
	cd := &device.CountingDevice{Device: dev}
	buf := make([]byte, 3*device.SectorSize)
	cd.WriteSectors(4, buf)
	cd.ReadSectors(4, buf[:device.SectorSize])
	assert.Equal(t, cd.Writes.GetInt(), 1)
	assert.Equal(t, cd.SectorsWritten.GetInt(), 3)
	assert.Equal(t, cd.Reads.GetInt(), 1)
	assert.Equal(t, cd.LastWrite.GetInt(), 4)
	cd.Reset()
	assert.Equal(t, cd.Writes.GetInt(), 0)
}

func TestCheckIO(t *testing.T) {
	t.Parallel()
	dev, err := inmemory.NewInMemoryDevice(device.Configuration{Sectors: 4})
	assert.Nil(t, err)
	assert.Equal(t, device.CheckIO(dev, 2, make([]byte, 2*device.SectorSize)), uint32(2))
	for _, n := range []int{0, 100} {
		func() {
			defer func() {
				assert.NotNil(t, recover())
			}()
			device.CheckIO(dev, 0, make([]byte, n))
		}()
	}
}

type mapStore map[string][]byte

func (self mapStore) Get(key []byte) []byte {
	return self[string(key)]
}

func (self mapStore) Set(key, value []byte) {
	self[string(key)] = value
}

func (self mapStore) Flush() {
}

func (self mapStore) Close() {
}

func TestKVDevice(t *testing.T) {
	t.Parallel()
	store := mapStore{}
	c := &codec.CompressingCodec{Algorithm: codec.CompressionType_LZ4}
	_, err := device.NewKVDevice(store, device.Configuration{})
	assert.Equal(t, err, device.ErrNoSize)

	dev, err := device.NewKVDevice(store, device.Configuration{Sectors: 8, Codec: c})
	assert.Nil(t, err)
	buf := make([]byte, device.SectorSize)
	buf[7] = 42
	dev.WriteSectors(3, buf)
	// zeros after the first byte compress well
	assert.True(t, len(store["s\x00\x00\x00\x03"]) < device.SectorSize)

	dev, err = device.NewKVDevice(store, device.Configuration{Codec: c})
	assert.Nil(t, err)
	assert.Equal(t, dev.SectorCount(), uint32(8))
	got := make([]byte, 2*device.SectorSize)
	got[device.SectorSize] = 1
	dev.ReadSectors(3, got)
	assert.Equal(t, got[7], byte(42))
	assert.Equal(t, got[device.SectorSize], byte(0))
}
