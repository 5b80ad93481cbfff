/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 10:55:01 2026 mstenber
 * Last modified: Wed Oct 14 11:03:30 2026 mstenber
 * Edit time:     3 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestUtil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, IMin(3, 1, 2), 1)
	assert.Equal(t, IMax(3, 1, 2), 3)
	assert.Equal(t, CeilDiv(4097, 4096), uint32(2))
	assert.Equal(t, CeilDiv(4096, 4096), uint32(1))
	assert.Equal(t, CeilDiv(0, 512), uint32(0))
	assert.Equal(t, SOr("", "", "x"), "x")
	assert.Equal(t, SOr("y", "x"), "y")
}
