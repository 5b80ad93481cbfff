/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 13:52:16 2026 mstenber
 * Last modified: Wed Oct 14 09:58:40 2026 mstenber
 * Edit time:     19 min
 *
 */

package bitmap

import (
	"testing"

	"github.com/stvp/assert"
)

func TestSetTest(t *testing.T) {
	t.Parallel()
	b := New(2)
	assert.Equal(t, b.Len(), 16)
	b.Set(9, true)
	assert.True(t, b.Test(9))
	assert.Equal(t, b.Bytes()[1], byte(2))
	b.Set(9, false)
	assert.False(t, b.Test(9))
	assert.Equal(t, b.Count(), 0)
}

func TestScanNeverReturnsSetBit(t *testing.T) {
	t.Parallel()
	b := New(64)
	seen := map[int]bool{}
	for i := 0; i < b.Len(); i++ {
		idx := b.Scan(1)
		assert.True(t, idx != NotFound)
		assert.False(t, seen[idx])
		seen[idx] = true
		b.Set(idx, true)
	}
	assert.Equal(t, b.Scan(1), NotFound)
	assert.Equal(t, b.Count(), b.Len())

	b.Set(100, false)
	assert.Equal(t, b.Scan(1), 100)
	assert.Equal(t, b.Scan(2), NotFound)
}

func TestScanRun(t *testing.T) {
	t.Parallel()
	b := New(4)
	b.SetRange(0, 3, true)
	b.Set(5, true)
	assert.Equal(t, b.Scan(1), 3)
	assert.Equal(t, b.Scan(2), 3)
	assert.Equal(t, b.Scan(3), 6)
	assert.Equal(t, b.Scan(0), NotFound)
	assert.Equal(t, b.Scan(33), NotFound)
}

func TestSector(t *testing.T) {
	t.Parallel()
	b := New(2 * BytesPerSector)
	sec, data := b.Sector(BitsPerSector + 3)
	assert.Equal(t, sec, 1)
	assert.Equal(t, len(data), BytesPerSector)
	b.Set(BitsPerSector+3, true)
	assert.Equal(t, data[0], byte(8))
	sec, _ = b.Sector(BitsPerSector - 1)
	assert.Equal(t, sec, 0)
}

func BenchmarkScan(b *testing.B) {
	bm := New(BytesPerSector)
	bm.SetRange(0, bm.Len()-1, true)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bm.Scan(1)
	}
}
