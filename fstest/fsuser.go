/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct 16 14:39:36 2026 mstenber
 * Last modified: Sat Oct 17 12:48:42 2026 mstenber
 * Edit time:     38 min
 *
 */

// fstest provides whole-filesystem exercise code.
//
// Tests are mostly written with FSUser which provides ~os module
// functionality on top of a task of the filesystem, so the same
// scenario can be run against every device backend.
package fstest

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fingon/go-tinyfs/fs"
	"github.com/pkg/errors"
)

type FSUser struct {
	task *fs.Task
}

type fileInfo struct {
	name string
	st   fs.Stat
}

func (self *fileInfo) Name() string {
	return self.name
}

func (self *fileInfo) Size() int64 {
	return int64(self.st.Size)
}

func (self *fileInfo) Mode() os.FileMode {
	if self.st.Type == fs.FT_DIRECTORY {
		return os.ModeDir | 0755
	}
	return 0644
}

func (self *fileInfo) ModTime() time.Time {
	return time.Time{}
}

func (self *fileInfo) IsDir() bool {
	return self.Mode().IsDir()
}

func (self *fileInfo) Sys() interface{} {
	return &self.st
}

func NewFSUser(f *fs.Fs) *FSUser {
	return &FSUser{task: f.NewTask()}
}

func (self *FSUser) Task() *fs.Task {
	return self.task
}

func (self *FSUser) Exit() {
	self.task.Exit()
}

func (self *FSUser) Stat(p string) (os.FileInfo, error) {
	st, err := self.task.Stat(p)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: fs.Abs("/", p), st: st}, nil
}

// ReadDir returns the entries of p sorted by name, without the dot
// entries.
func (self *FSUser) ReadDir(p string) (ret []os.FileInfo, err error) {
	names, err := self.task.ListDir(p)
	if err != nil {
		return
	}
	sort.Strings(names)
	for _, name := range names {
		st, err := self.task.Stat(fs.Abs(p, name))
		if err != nil {
			return nil, err
		}
		ret = append(ret, &fileInfo{name: name, st: st})
	}
	return
}

func (self *FSUser) Mkdir(p string) error {
	return self.task.Mkdir(p)
}

// MkdirAll creates p and any missing parents.
func (self *FSUser) MkdirAll(p string) error {
	cur := "/"
	for _, seg := range strings.Split(fs.Abs("/", p), "/") {
		if seg == "" {
			continue
		}
		cur = fs.Abs(cur, seg)
		err := self.task.Mkdir(cur)
		if err != nil && errors.Cause(err) != fs.ErrExists {
			return err
		}
	}
	return nil
}

// Remove removes a file or an empty directory.
func (self *FSUser) Remove(p string) error {
	st, err := self.task.Stat(p)
	if err != nil {
		return err
	}
	if st.Type == fs.FT_DIRECTORY {
		return self.task.Rmdir(p)
	}
	return self.task.Unlink(p)
}

// WriteFile creates p with the given content.
func (self *FSUser) WriteFile(p string, data []byte) error {
	fd, err := self.task.Open(p, fs.O_CREAT|fs.O_WRONLY)
	if err != nil {
		return err
	}
	defer self.task.Close(fd)
	n, err := self.task.Write(fd, data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	return err
}

func (self *FSUser) ReadFile(p string) ([]byte, error) {
	fd, err := self.task.Open(p, fs.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer self.task.Close(fd)
	var out bytes.Buffer
	buf := make([]byte, fs.BlockSize)
	for {
		n, err := self.task.Read(fd, buf)
		out.Write(buf[:n])
		if err == io.EOF {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
