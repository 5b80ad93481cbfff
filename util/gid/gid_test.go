/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 10:21:40 2026 mstenber
 * Last modified: Mon Oct  5 10:28:03 2026 mstenber
 * Edit time:     2 min
 *
 */

package gid

import (
	"testing"

	"github.com/stvp/assert"
)

func TestGetGoroutineID(t *testing.T) {
	me := GetGoroutineID()
	assert.NotEqual(t, me, uint64(0))
	assert.Equal(t, GetGoroutineID(), me)
	ch := make(chan uint64)
	go func() {
		ch <- GetGoroutineID()
	}()
	assert.NotEqual(t, <-ch, me)
}

func BenchmarkGetGoroutineID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GetGoroutineID()
	}
}
