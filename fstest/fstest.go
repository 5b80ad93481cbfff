/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct 16 15:43:45 2026 mstenber
 * Last modified: Sat Oct 17 13:05:37 2026 mstenber
 * Edit time:     29 min
 *
 */

package fstest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fingon/go-tinyfs/fs"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

const manyFiles = 30

func content(name string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + len(name))
	}
	return b
}

var files = map[string]int{
	"/a/b/c/f": 3000,
	"/a/big":   fs.MaxFileSize,
	"/a/empty": 0,
}

// ProdFs exercises filesystem, trying to go for as high coverage as
// possible. It leaves behind the tree VerifyFs checks.
//
// NOTE: The filesystem HAS to be empty to start with.
func ProdFs(t *testing.T, f *fs.Fs) {
	u := NewFSUser(f)
	defer u.Exit()
	arr, err := u.ReadDir("/")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), 0)

	assert.Nil(t, u.MkdirAll("/a/b/c"))
	for name, size := range files {
		assert.Nil(t, u.WriteFile(name, content(name, size)))
	}
	assert.Nil(t, u.WriteFile("/a/small", []byte("hello")))
	assert.Nil(t, u.MkdirAll("/many"))
	for i := 0; i < manyFiles; i++ {
		assert.Nil(t, u.WriteFile(fmt.Sprintf("/many/%d", i), nil))
	}

	arr, err = u.ReadDir("/a")
	assert.Nil(t, err)
	names := []string{}
	for _, fi := range arr {
		names = append(names, fi.Name())
	}
	assert.Equal(t, names, []string{"b", "big", "empty", "small"})
	assert.True(t, arr[0].IsDir())
	assert.Equal(t, arr[1].Size(), int64(fs.MaxFileSize))

	err = u.WriteFile("/a/small", nil)
	assert.Equal(t, errors.Cause(err), fs.ErrExists)
	err = u.WriteFile("/nope/x", nil)
	assert.Equal(t, errors.Cause(err), fs.ErrMissingParent)
	assert.Equal(t, errors.Cause(u.Remove("/a/b")), fs.ErrNotEmpty)

	b, err := u.ReadFile("/a/small")
	assert.Nil(t, err)
	assert.Equal(t, string(b), "hello")
	assert.Nil(t, u.Remove("/a/small"))
	_, err = u.Stat("/a/small")
	assert.Equal(t, errors.Cause(err), fs.ErrNotFound)

	VerifyFs(t, f)
}

// VerifyFs checks the tree ProdFs left behind, typically after a
// remount.
func VerifyFs(t *testing.T, f *fs.Fs) {
	u := NewFSUser(f)
	defer u.Exit()
	for name, size := range files {
		b, err := u.ReadFile(name)
		assert.Nil(t, err)
		assert.True(t, bytes.Equal(b, content(name, size)))
	}
	arr, err := u.ReadDir("/many")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), manyFiles)
	fi, err := u.Stat("/a/b/c")
	assert.Nil(t, err)
	assert.True(t, fi.IsDir())
}
