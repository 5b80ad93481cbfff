/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 15:22:08 2026 mstenber
 * Last modified: Fri Oct 16 09:41:20 2026 mstenber
 * Edit time:     52 min
 *
 */

package device

import (
	"encoding/binary"
	"log"

	"github.com/fingon/go-tinyfs/codec"
	"github.com/fingon/go-tinyfs/mlog"
)

// KVStore is what a key-value database has to provide to be used as
// a sector store. Get returns nil for missing keys. Errors are fatal
// and handled inside the store.
type KVStore interface {
	Get(key []byte) []byte
	Set(key, value []byte)
	Flush()
	Close()
}

var sectorCountKey = []byte("m:sectors")

// KVDevice stores each sector as its own value, keyed by 's' + big
// endian LBA. Values pass through the codec with the key as
// additional data, so sectors cannot be swapped around undetected.
type KVDevice struct {
	store   KVStore
	codec   codec.Codec
	sectors uint32
}

var _ Device = &KVDevice{}

// NewKVDevice wraps store. The sector count is persisted on first
// use; afterwards config.Sectors is ignored.
func NewKVDevice(store KVStore, config Configuration) (*KVDevice, error) {
	self := &KVDevice{store: store, codec: config.Codec}
	if self.codec == nil {
		self.codec = &codec.CodecChain{}
	}
	v := store.Get(sectorCountKey)
	switch {
	case v != nil:
		self.sectors = binary.BigEndian.Uint32(v)
	case config.Sectors > 0:
		self.sectors = config.Sectors
		nb := make([]byte, 4)
		binary.BigEndian.PutUint32(nb, self.sectors)
		store.Set(sectorCountKey, nb)
	default:
		store.Close()
		return nil, ErrNoSize
	}
	mlog.Printf2("device/kv", "NewKVDevice %d sectors", self.sectors)
	return self, nil
}

func sectorKey(lba uint32) []byte {
	k := make([]byte, 5)
	k[0] = 's'
	binary.BigEndian.PutUint32(k[1:], lba)
	return k
}

func (self *KVDevice) SectorCount() uint32 {
	return self.sectors
}

func (self *KVDevice) ReadSectors(lba uint32, buf []byte) {
	n := CheckIO(self, lba, buf)
	for i := uint32(0); i < n; i++ {
		dst := buf[i*SectorSize : (i+1)*SectorSize]
		k := sectorKey(lba + i)
		v := self.store.Get(k)
		if v == nil {
			for j := range dst {
				dst[j] = 0
			}
			continue
		}
		data, err := self.codec.DecodeBytes(v, k)
		if err != nil {
			log.Panicf("device: decoding sector %d: %v", lba+i, err)
		}
		if len(data) != SectorSize {
			log.Panicf("device: sector %d decoded to %d bytes", lba+i, len(data))
		}
		copy(dst, data)
	}
}

func (self *KVDevice) WriteSectors(lba uint32, buf []byte) {
	n := CheckIO(self, lba, buf)
	mlog.Printf2("device/kv", "WriteSectors %d+%d", lba, n)
	for i := uint32(0); i < n; i++ {
		k := sectorKey(lba + i)
		v, err := self.codec.EncodeBytes(buf[i*SectorSize:(i+1)*SectorSize], k)
		if err != nil {
			log.Panicf("device: encoding sector %d: %v", lba+i, err)
		}
		self.store.Set(k, v)
	}
}

func (self *KVDevice) Flush() {
	self.store.Flush()
}

func (self *KVDevice) Close() {
	self.store.Close()
}
