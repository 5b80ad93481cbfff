/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 13:11:50 2026 mstenber
 * Last modified: Wed Oct 14 09:55:12 2026 mstenber
 * Edit time:     41 min
 *
 */

// bitmap package provides the allocation bit vector used for both
// blocks and inodes. Bit i lives in byte i/8, least significant bit
// first; a set bit means the resource is in use.
//
// The whole vector is kept in memory; persisting it is the caller's
// job, one sector (BitsPerSector bits) at a time.
package bitmap

import (
	"log"

	"github.com/fingon/go-tinyfs/mlog"
)

const (
	BytesPerSector = 512
	BitsPerSector  = BytesPerSector * 8

	// NotFound is returned by Scan when no long enough run exists.
	NotFound = -1
)

type Bitmap struct {
	bits []byte
}

// New returns a zeroed bitmap of byteLength bytes.
func New(byteLength int) *Bitmap {
	return &Bitmap{bits: make([]byte, byteLength)}
}

// FromBytes wraps b; b is not copied.
func FromBytes(b []byte) *Bitmap {
	return &Bitmap{bits: b}
}

func (self *Bitmap) Bytes() []byte {
	return self.bits
}

// Len is the number of bits.
func (self *Bitmap) Len() int {
	return len(self.bits) * 8
}

func (self *Bitmap) check(i int) {
	if i < 0 || i >= self.Len() {
		log.Panicf("bitmap index %d out of range [0,%d)", i, self.Len())
	}
}

func (self *Bitmap) Test(i int) bool {
	self.check(i)
	return self.bits[i/8]&(1<<uint(i%8)) != 0
}

// Set changes one bit in memory only.
func (self *Bitmap) Set(i int, value bool) {
	self.check(i)
	mask := byte(1 << uint(i%8))
	if value {
		self.bits[i/8] |= mask
	} else {
		self.bits[i/8] &^= mask
	}
}

// SetRange sets bits [from, to) to value.
func (self *Bitmap) SetRange(from, to int, value bool) {
	for i := from; i < to; i++ {
		self.Set(i, value)
	}
}

// Scan returns the index of the first run of count clear bits, or
// NotFound. Fully used bytes are skipped before going bit by bit.
func (self *Bitmap) Scan(count int) int {
	if count <= 0 {
		return NotFound
	}
	idx := 0
	for idx < len(self.bits) && self.bits[idx] == 0xff {
		idx++
	}
	run := 0
	for i := idx * 8; i < self.Len(); i++ {
		if self.bits[i/8]&(1<<uint(i%8)) != 0 {
			run = 0
			continue
		}
		run++
		if run == count {
			start := i - count + 1
			mlog.Printf2("bitmap/bitmap", "Scan %d -> %d", count, start)
			return start
		}
	}
	mlog.Printf2("bitmap/bitmap", "Scan %d -> exhausted", count)
	return NotFound
}

// Count returns the number of set bits.
func (self *Bitmap) Count() (n int) {
	for _, b := range self.bits {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return
}

// Sector returns the index of the BytesPerSector chunk containing bit
// i, and the bytes of that chunk.
func (self *Bitmap) Sector(i int) (int, []byte) {
	self.check(i)
	sec := i / BitsPerSector
	start := sec * BytesPerSector
	end := start + BytesPerSector
	if end > len(self.bits) {
		end = len(self.bits)
	}
	return sec, self.bits[start:end]
}
