/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Sun Oct 11 09:40:12 2026 mstenber
 * Last modified: Fri Oct 16 14:02:31 2026 mstenber
 * Edit time:     61 min
 *
 */

package fs

import (
	"path"
	"strings"

	"github.com/fingon/go-tinyfs/mlog"
)

// parsePathSegment skips leading slashes and returns the next path
// segment and what follows it ("" at the end).
func parsePathSegment(p string) (name, rest string) {
	p = strings.TrimLeft(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i:]
	}
	return p, ""
}

// PathDepth is the number of segments in p; repeated slashes do not
// produce empty segments.
func PathDepth(p string) (depth int) {
	name, rest := parsePathSegment(p)
	for name != "" {
		depth++
		name, rest = parsePathSegment(rest)
	}
	return
}

// Abs makes p absolute relative to cwd and collapses ., .. and
// repeated slashes.
func Abs(cwd, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = cwd + "/" + p
	}
	return path.Clean("/" + p)
}

func isRootPath(p string) bool {
	return p == "/" || p == "/." || p == "/.."
}

type pathSearchRecord struct {
	// searchedPath is the part of the path walked so far
	searchedPath string

	// parent is the open directory that holds (or would hold) the
	// last segment; close with CloseDir.
	parent *Dir

	ftype FileType
}

// searchFile resolves the absolute path p. The record is always
// returned, and its parent must be closed by the caller.
func (self *Partition) searchFile(p string) (ino uint32, found bool, rec *pathSearchRecord) {
	mlog.Printf2("fs/path", "searchFile %s", p)
	rec = &pathSearchRecord{parent: self.root, ftype: FT_DIRECTORY}
	if isRootPath(p) {
		rec.searchedPath = "/"
		return RootIno, true, rec
	}
	parentIno := uint32(RootIno)
	name, rest := parsePathSegment(p)
	for name != "" {
		rec.searchedPath += "/" + name
		d, ok := self.searchDentry(rec.parent, name)
		if !ok {
			rec.ftype = FT_UNKNOWN
			mlog.Printf2("fs/path", " %s missing", rec.searchedPath)
			return 0, false, rec
		}
		if d.Type == FT_REGULAR {
			rec.ftype = FT_REGULAR
			mlog.Printf2("fs/path", " file %d", d.Ino)
			return d.Ino, true, rec
		}
		parentIno = rec.parent.Inode.Ino
		self.CloseDir(rec.parent)
		rec.parent = self.OpenDir(d.Ino)
		ino = d.Ino
		name, rest = parsePathSegment(rest)
	}
	// the final segment was a directory; its parent is what callers
	// want
	self.CloseDir(rec.parent)
	rec.parent = self.openDirOrRoot(parentIno)
	mlog.Printf2("fs/path", " directory %d", ino)
	return ino, true, rec
}

func (self *Partition) openDirOrRoot(ino uint32) *Dir {
	if ino == RootIno {
		return self.root
	}
	return self.OpenDir(ino)
}
