/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sun Oct 11 10:31:48 2026 mstenber
 * Last modified: Thu Oct 15 22:10:37 2026 mstenber
 * Edit time:     19 min
 *
 */

package fs

import (
	"testing"

	"github.com/stvp/assert"
)

func TestPathDepth(t *testing.T) {
	t.Parallel()
	assert.Equal(t, PathDepth("/a/b/c"), 3)
	assert.Equal(t, PathDepth("///a/b//c"), 3)
	assert.Equal(t, PathDepth("/a/b/c/"), 3)
	assert.Equal(t, PathDepth("/"), 0)
	assert.Equal(t, PathDepth(""), 0)

	name, rest := parsePathSegment("//foo/bar")
	assert.Equal(t, name, "foo")
	assert.Equal(t, rest, "/bar")
	name, rest = parsePathSegment(rest)
	assert.Equal(t, name, "bar")
	assert.Equal(t, rest, "")
}

func TestAbs(t *testing.T) {
	t.Parallel()
	cases := []struct{ cwd, p, abs string }{
		{"/", "a", "/a"},
		{"/a", "b/../c", "/a/c"},
		{"/a", "/b//c/.", "/b/c"},
		{"/a/b", "..", "/a"},
		{"/", "../..", "/"},
		{"/a", "", "/a"},
	}
	for _, c := range cases {
		assert.Equal(t, Abs(c.cwd, c.p), c.abs)
	}
}

func TestSearchFile(t *testing.T) {
	t.Parallel()
	part := newTestPartition(t, testSectors, testInodes)
	fs := NewFs(part)
	defer fs.Close()
	task := fs.NewTask()
	assert.Nil(t, task.Mkdir("/a"))
	assert.Nil(t, task.Mkdir("/a/b"))
	fd, err := task.Open("/a/b/f", O_CREAT|O_RDWR)
	assert.Nil(t, err)
	assert.Nil(t, task.Close(fd))
	a, _ := part.searchDentry(part.Root(), "a")

	for _, p := range []string{"/", "/.", "/.."} {
		ino, found, rec := part.searchFile(p)
		assert.True(t, found)
		assert.Equal(t, ino, uint32(RootIno))
		assert.True(t, rec.parent == part.Root())
		assert.Equal(t, rec.ftype, FT_DIRECTORY)
	}

	ino, found, rec := part.searchFile("/a/b")
	assert.True(t, found)
	assert.Equal(t, rec.ftype, FT_DIRECTORY)
	assert.Equal(t, rec.parent.Inode.Ino, a.Ino)
	assert.Equal(t, rec.searchedPath, "/a/b")
	parent, err := part.parentIno(ino)
	assert.Nil(t, err)
	assert.Equal(t, parent, a.Ino)
	part.CloseDir(rec.parent)

	_, found, rec = part.searchFile("/a/b/f")
	assert.True(t, found)
	assert.Equal(t, rec.ftype, FT_REGULAR)
	parent, err = part.parentIno(rec.parent.Inode.Ino)
	assert.Nil(t, err)
	assert.Equal(t, parent, a.Ino)
	part.CloseDir(rec.parent)

	_, found, rec = part.searchFile("/a/x/y")
	assert.False(t, found)
	assert.Equal(t, rec.searchedPath, "/a/x")
	assert.Equal(t, rec.parent.Inode.Ino, a.Ino)
	assert.True(t, PathDepth("/a/x/y") != PathDepth(rec.searchedPath))
	part.CloseDir(rec.parent)

	// only the root stays open
	assert.Equal(t, part.Stats().OpenInodes, 1)
}
