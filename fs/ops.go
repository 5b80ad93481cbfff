/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct 12 11:02:50 2026 mstenber
 * Last modified: Sat Oct 17 09:41:26 2026 mstenber
 * Edit time:     214 min
 *
 */

package fs

import (
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/fingon/go-tinyfs/mlog"
)

type Stat struct {
	Ino  uint32
	Size uint32
	Type FileType
}

// lookup resolves p (relative to the working directory). The parent
// in the record has to be closed by the caller. missing is set if
// the path cannot even be walked up to its last segment.
func (self *Task) lookup(p string) (abs string, ino uint32, found, missing bool, rec *pathSearchRecord, err error) {
	abs = self.abs(p)
	if len(abs) > MaxPathLen {
		mlog.Warnf("path too long (%d bytes)", len(abs))
		return abs, 0, false, false, &pathSearchRecord{}, ErrNameTooLong
	}
	ino, found, rec = self.fs.part.searchFile(abs)
	missing = PathDepth(abs) != PathDepth(rec.searchedPath)
	return
}

// Open opens (or with O_CREAT creates) a regular file and returns a
// descriptor for it.
func (self *Task) Open(p string, flags int) (int, error) {
	defer self.fs.lock.Locked()()
	mlog.Printf2("fs/ops", "Open %s %d", p, flags)
	if flags&^(o_ACCMODE|O_CREAT) != 0 || flags&o_ACCMODE == o_ACCMODE {
		return -1, ErrInvalid
	}
	if strings.HasSuffix(p, "/") {
		mlog.Warnf("can't open a directory %s", p)
		return -1, ErrIsDir
	}
	if self.freeFd() < 0 {
		mlog.Warnf("out of process file descriptors")
		return -1, ErrProcessFdFull
	}
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return -1, err
	}
	switch {
	case found && rec.ftype == FT_DIRECTORY:
		mlog.Warnf("can't open a directory %s", abs)
		return -1, ErrIsDir
	case missing && found:
		return -1, ErrNotDir
	case missing:
		mlog.Warnf("cannot access %s: subpath %s does not exist", abs, rec.searchedPath)
		return -1, ErrMissingParent
	case !found && flags&O_CREAT == 0:
		mlog.Warnf("%s does not exist", abs)
		return -1, ErrNotFound
	case found && flags&O_CREAT != 0:
		mlog.Warnf("%s already exists", abs)
		return -1, ErrExists
	}
	var gfd int
	if found {
		gfd, err = self.fs.fileOpen(ino, flags)
	} else {
		name := path.Base(abs)
		if len(name) > MaxFileNameLen {
			return -1, ErrNameTooLong
		}
		gfd, err = self.fs.fileCreate(rec.parent, name, flags)
	}
	if err != nil {
		return -1, errors.Wrapf(err, "open %s", abs)
	}
	return self.installFd(gfd), nil
}

func (self *Task) Close(fd int) error {
	defer self.fs.lock.Locked()()
	gfd, err := self.fdLocal2Global(fd)
	if err != nil {
		return err
	}
	self.fs.fileClose(gfd)
	self.fdTable[fd] = -1
	return nil
}

// Read reads from the current position; at end of file it returns
// io.EOF.
func (self *Task) Read(fd int, buf []byte) (int, error) {
	switch fd {
	case 0:
		if self.Stdin == nil {
			return 0, ErrBadFd
		}
		return self.Stdin.Read(buf)
	case 1, 2:
		return 0, ErrNotReadable
	}
	defer self.fs.lock.Locked()()
	gfd, err := self.fdLocal2Global(fd)
	if err != nil {
		return 0, err
	}
	return self.fs.fileRead(gfd, buf)
}

// Write writes at the current position. Running out of space midway
// returns what was written along with ErrNoSpace.
func (self *Task) Write(fd int, buf []byte) (int, error) {
	var w io.Writer
	switch fd {
	case 0:
		return 0, ErrNotWritable
	case 1:
		w = self.Stdout
	case 2:
		w = self.Stderr
	}
	if fd < StdStreams {
		if w == nil {
			return 0, ErrBadFd
		}
		return w.Write(buf)
	}
	defer self.fs.lock.Locked()()
	gfd, err := self.fdLocal2Global(fd)
	if err != nil {
		return 0, err
	}
	return self.fs.fileWrite(gfd, buf)
}

// Lseek moves the position of fd; the result has to be within the
// file.
func (self *Task) Lseek(fd int, offset int64, whence int) (int64, error) {
	defer self.fs.lock.Locked()()
	gfd, err := self.fdLocal2Global(fd)
	if err != nil {
		return 0, err
	}
	fh := self.fs.handle(gfd)
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(fh.pos)
	case io.SeekEnd:
		base = int64(fh.inode.Size)
	default:
		return 0, ErrInvalid
	}
	pos := base + offset
	if pos < 0 || pos > int64(fh.inode.Size) {
		return 0, ErrInvalid
	}
	fh.pos = uint32(pos)
	return pos, nil
}

func (self *Task) Mkdir(p string) error {
	defer self.fs.lock.Locked()()
	mlog.Printf2("fs/ops", "Mkdir %s", p)
	part := self.fs.part
	abs, _, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return err
	}
	switch {
	case found && !missing:
		mlog.Warnf("%s already exists", abs)
		return ErrExists
	case missing:
		mlog.Warnf("cannot access %s: subpath %s does not exist", abs, rec.searchedPath)
		if found {
			return ErrNotDir
		}
		return ErrMissingParent
	}
	name := path.Base(abs)
	if len(name) > MaxFileNameLen {
		return ErrNameTooLong
	}

	tr := newFsTransaction("mkdir")
	defer tr.Close()
	ino, err := part.AllocInode()
	if err != nil {
		mlog.Warnf("%s: out of inodes", part.Info.Name)
		return err
	}
	tr.Undo(func() { part.FreeInode(ino) })
	lba, err := part.AllocBlock()
	if err != nil {
		mlog.Warnf("%s: out of space for %s", part.Info.Name, abs)
		return err
	}
	tr.Undo(func() { part.FreeBlock(lba) })

	inode := newInode(ino)
	inode.Sectors[0] = lba
	inode.Size = 2 * DentryRecordSize
	block := make([]byte, BlockSize)
	Dentry{Name: ".", Ino: ino, Type: FT_DIRECTORY}.encode(block)
	Dentry{Name: "..", Ino: rec.parent.Inode.Ino, Type: FT_DIRECTORY}.encode(block[DentryRecordSize:])
	part.writeSectors(lba, block)

	d := Dentry{Name: name, Ino: ino, Type: FT_DIRECTORY}
	if err := part.syncDentry(rec.parent, &d); err != nil {
		return errors.Wrapf(err, "mkdir %s", abs)
	}
	part.SyncInode(rec.parent.Inode)
	part.SyncInode(inode)
	part.SyncBitmap(ino, INODE_BITMAP)
	part.SyncBlock(lba)
	tr.Commit()
	return nil
}

func (self *Task) Rmdir(p string) error {
	defer self.fs.lock.Locked()()
	mlog.Printf2("fs/ops", "Rmdir %s", p)
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return err
	}
	switch {
	case isRootPath(abs):
		return ErrInvalid
	case !found:
		mlog.Warnf("%s does not exist", abs)
		return ErrNotFound
	case missing || rec.ftype != FT_DIRECTORY:
		mlog.Warnf("%s is not a directory", abs)
		return ErrNotDir
	}
	dir := part.OpenDir(ino)
	defer part.CloseDir(dir)
	if !dir.IsEmpty() {
		mlog.Warnf("%s is not empty", abs)
		return ErrNotEmpty
	}
	// open directories and working directories of tasks hold references
	if dir.Inode.RefCount() > 1 {
		mlog.Warnf("%s is in use", abs)
		return ErrBusy
	}
	return part.dirRemove(rec.parent, dir)
}

// Unlink removes a regular file that is not open.
func (self *Task) Unlink(p string) error {
	defer self.fs.lock.Locked()()
	mlog.Printf2("fs/ops", "Unlink %s", p)
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return err
	}
	switch {
	case !found:
		mlog.Warnf("%s does not exist", abs)
		return ErrNotFound
	case rec.ftype == FT_DIRECTORY:
		mlog.Warnf("%s is a directory", abs)
		return ErrIsDir
	case missing:
		return ErrNotDir
	case self.fs.isOpen(ino):
		mlog.Warnf("%s is in use", abs)
		return ErrBusy
	}
	if err := part.deleteDentry(rec.parent, ino); err != nil {
		return err
	}
	part.ReleaseInode(ino)
	return nil
}

func (self *Task) Chdir(p string) error {
	defer self.fs.lock.Locked()()
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return err
	}
	switch {
	case !found:
		mlog.Warnf("%s does not exist", abs)
		return ErrNotFound
	case missing || rec.ftype != FT_DIRECTORY:
		return ErrNotDir
	}
	cwd := part.openDirOrRoot(ino)
	part.CloseDir(self.cwd)
	self.cwd = cwd
	self.cwdPath = abs
	return nil
}

// Getcwd finds the working directory by walking up the .. entries.
func (self *Task) Getcwd() (string, error) {
	defer self.fs.lock.Locked()()
	part := self.fs.part
	var names []string
	for child := self.cwd.Inode.Ino; child != RootIno; {
		parent, err := part.parentIno(child)
		if err != nil {
			return "", errors.Wrapf(err, "getcwd at %d", child)
		}
		name, err := part.childName(parent, child)
		if err != nil {
			return "", errors.Wrapf(err, "getcwd at %d", child)
		}
		names = append(names, name)
		child = parent
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	cwd := "/" + strings.Join(names, "/")
	if len(cwd) > MaxPathLen {
		return "", ErrNameTooLong
	}
	return cwd, nil
}

func (self *Task) Stat(p string) (st Stat, err error) {
	defer self.fs.lock.Locked()()
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return st, err
	}
	if !found || missing {
		mlog.Warnf("%s does not exist", abs)
		return st, ErrNotFound
	}
	inode := part.OpenInode(ino)
	defer part.CloseInode(inode)
	return Stat{Ino: ino, Size: inode.Size, Type: rec.ftype}, nil
}

// OpenDir opens a directory for ReadDir; each one has its own
// cursor.
func (self *Task) OpenDir(p string) (*Dir, error) {
	defer self.fs.lock.Locked()()
	part := self.fs.part
	abs, ino, found, missing, rec, err := self.lookup(p)
	defer part.CloseDir(rec.parent)
	if err != nil {
		return nil, err
	}
	switch {
	case !found:
		mlog.Warnf("%s does not exist", abs)
		return nil, ErrNotFound
	case missing || rec.ftype != FT_DIRECTORY:
		return nil, ErrNotDir
	}
	return part.OpenDir(ino), nil
}

// ReadDir returns the next entry of dir, or nil at the end.
func (self *Task) ReadDir(dir *Dir) *Dentry {
	defer self.fs.lock.Locked()()
	return dir.Read()
}

func (self *Task) RewindDir(dir *Dir) {
	defer self.fs.lock.Locked()()
	dir.Rewind()
}

func (self *Task) CloseDir(dir *Dir) {
	defer self.fs.lock.Locked()()
	self.fs.part.CloseDir(dir)
}

// ListDir returns the names in directory p, without . and ..
func (self *Task) ListDir(p string) (ret []string, err error) {
	defer self.fs.lock.Locked()()
	dir, err := self.OpenDir(p)
	if err != nil {
		return nil, err
	}
	defer self.fs.part.CloseDir(dir)
	for d := dir.Read(); d != nil; d = dir.Read() {
		if !isDotEntry(d) {
			ret = append(ret, d.Name)
		}
	}
	return
}
