/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct 14 13:40:22 2026 mstenber
 * Last modified: Sat Oct 17 11:05:14 2026 mstenber
 * Edit time:     97 min
 *
 */

// fusefs package exposes a mounted filesystem over FUSE (go-fuse v2
// node API). Nodes are addressed by path; as there is no rename, the
// path of a node never changes.
package fusefs

import (
	"context"
	"path"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/pkg/errors"

	"github.com/fingon/go-tinyfs/fs"
	"github.com/fingon/go-tinyfs/mlog"
)

type Options struct {
	Debug      bool
	AllowOther bool
}

var errno = map[error]syscall.Errno{
	fs.ErrNotFound:      syscall.ENOENT,
	fs.ErrMissingParent: syscall.ENOENT,
	fs.ErrExists:        syscall.EEXIST,
	fs.ErrNotDir:        syscall.ENOTDIR,
	fs.ErrIsDir:         syscall.EISDIR,
	fs.ErrNotEmpty:      syscall.ENOTEMPTY,
	fs.ErrNameTooLong:   syscall.ENAMETOOLONG,
	fs.ErrInvalid:       syscall.EINVAL,
	fs.ErrBusy:          syscall.EBUSY,
	fs.ErrWriteBusy:     syscall.ETXTBSY,
	fs.ErrNoSpace:       syscall.ENOSPC,
	fs.ErrNoInodes:      syscall.ENOSPC,
	fs.ErrDirFull:       syscall.ENOSPC,
	fs.ErrTooManyOpen:   syscall.ENFILE,
	fs.ErrProcessFdFull: syscall.EMFILE,
	fs.ErrBadFd:         syscall.EBADF,
	fs.ErrNotWritable:   syscall.EBADF,
	fs.ErrNotReadable:   syscall.EBADF,
	fs.ErrFileTooBig:    syscall.EFBIG,
	fs.ErrBadSuperblock: syscall.EIO,
}

func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if e, ok := errno[errors.Cause(err)]; ok {
		return e
	}
	mlog.Printf2("fusefs/fusefs", "unmapped error %v", err)
	return syscall.EIO
}

// fuseIno maps filesystem inode numbers to FUSE ones; FUSE reserves
// 1 for the root, whereas our root is 0.
func fuseIno(ino uint32) uint64 {
	return uint64(ino) + 1
}

func fileMode(t fs.FileType) uint32 {
	if t == fs.FT_DIRECTORY {
		return syscall.S_IFDIR | 0755
	}
	return syscall.S_IFREG | 0644
}

func fillAttr(st fs.Stat, a *fuse.Attr) {
	a.Ino = fuseIno(st.Ino)
	a.Size = uint64(st.Size)
	a.Blocks = (a.Size + fs.BlockSize - 1) / fs.BlockSize
	a.Blksize = fs.BlockSize
	a.Mode = fileMode(st.Type)
	a.Nlink = 1
}

type node struct {
	gofuse.Inode
	fs   *fs.Fs
	task *fs.Task
	path string
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)

func (self *node) child(name string) string {
	return path.Join(self.path, name)
}

func (self *node) newChild(ctx context.Context, p string, st fs.Stat, out *fuse.EntryOut) *gofuse.Inode {
	fillAttr(st, &out.Attr)
	n := &node{fs: self.fs, task: self.task, path: p}
	return self.NewInode(ctx, n, gofuse.StableAttr{Mode: fileMode(st.Type) & syscall.S_IFMT, Ino: fuseIno(st.Ino)})
}

func (self *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := self.child(name)
	mlog.Printf2("fusefs/fusefs", "Lookup %s", p)
	st, err := self.task.Stat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	return self.newChild(ctx, p, st, out), 0
}

func (self *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := self.task.Stat(self.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(st, &out.Attr)
	return 0
}

// Setattr accepts only no-op changes; there are no permissions or
// times, and files cannot be truncated.
func (self *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	st, err := self.task.Stat(self.path)
	if err != nil {
		return toErrno(err)
	}
	if size, ok := in.GetSize(); ok && size != uint64(st.Size) {
		return syscall.ENOTSUP
	}
	fillAttr(st, &out.Attr)
	return 0
}

func (self *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	mlog.Printf2("fusefs/fusefs", "Readdir %s", self.path)
	dir, err := self.task.OpenDir(self.path)
	if err != nil {
		return nil, toErrno(err)
	}
	defer self.task.CloseDir(dir)
	var entries []fuse.DirEntry
	for d := self.task.ReadDir(dir); d != nil; d = self.task.ReadDir(dir) {
		if d.Name == "." || d.Name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Name: d.Name,
			Ino:  fuseIno(d.Ino),
			Mode: fileMode(d.Type) & syscall.S_IFMT,
		})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (self *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := self.child(name)
	if err := self.task.Mkdir(p); err != nil {
		return nil, toErrno(err)
	}
	st, err := self.task.Stat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	return self.newChild(ctx, p, st, out), 0
}

func (self *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return toErrno(self.task.Rmdir(self.child(name)))
}

func (self *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(self.task.Unlink(self.child(name)))
}

func (self *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	p := self.child(name)
	h, err := openHandle(self.fs, p, fs.O_CREAT|int(flags&syscall.O_ACCMODE))
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	st, err := self.task.Stat(p)
	if err != nil {
		h.Release(ctx)
		return nil, nil, 0, toErrno(err)
	}
	return self.newChild(ctx, p, st, out), h, 0, 0
}

func (self *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	h, err := openHandle(self.fs, self.path, int(flags&syscall.O_ACCMODE))
	if err != nil {
		return nil, 0, toErrno(err)
	}
	return h, 0, 0
}

func (self *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st := self.fs.Stats()
	out.Bsize = fs.BlockSize
	out.Frsize = fs.BlockSize
	out.Blocks = uint64(st.Blocks)
	out.Bfree = uint64(st.FreeBlocks)
	out.Bavail = uint64(st.FreeBlocks)
	out.Files = uint64(st.Inodes)
	out.Ffree = uint64(st.FreeInodes)
	out.NameLen = fs.MaxFileNameLen
	return 0
}

// Mount serves fsys at mountpoint until the returned server is
// unmounted.
func Mount(fsys *fs.Fs, mountpoint string, opts Options) (*fuse.Server, error) {
	root := &node{fs: fsys, task: fsys.NewTask(), path: "/"}
	timeout := time.Second
	server, err := gofuse.Mount(mountpoint, root, &gofuse.Options{
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
		MountOptions: fuse.MountOptions{
			FsName:     fsys.Partition().Info.Name,
			Name:       "tinyfs",
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "mounting %s", mountpoint)
	}
	mlog.Printf2("fusefs/fusefs", "mounted at %s", mountpoint)
	return server, nil
}
