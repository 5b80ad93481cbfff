/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Fri Oct  9 09:20:31 2026 mstenber
 * Last modified: Thu Oct 15 16:02:09 2026 mstenber
 * Edit time:     11 min
 *
 */

package fs

import "github.com/pkg/errors"

var (
	ErrNotFound      = errors.New("no such file or directory")
	ErrExists        = errors.New("file or directory exists")
	ErrNotDir        = errors.New("not a directory")
	ErrIsDir         = errors.New("is a directory")
	ErrNotEmpty      = errors.New("directory not empty")
	ErrMissingParent = errors.New("intermediate directory does not exist")
	ErrNameTooLong   = errors.New("name too long")
	ErrInvalid       = errors.New("invalid argument")
	ErrBusy          = errors.New("file is in use")

	// resource exhaustion
	ErrNoSpace       = errors.New("no free blocks")
	ErrNoInodes      = errors.New("no free inodes")
	ErrDirFull       = errors.New("directory is full")
	ErrTooManyOpen   = errors.New("too many open files")
	ErrProcessFdFull = errors.New("too many open files in process")

	// descriptor misuse
	ErrBadFd       = errors.New("bad file descriptor")
	ErrWriteBusy   = errors.New("file can't be written, try again")
	ErrNotWritable = errors.New("file not opened for writing")
	ErrNotReadable = errors.New("file not opened for reading")
	ErrFileTooBig  = errors.New("file too big")

	ErrBadSuperblock     = errors.New("bad superblock")
	ErrPartitionTooSmall = errors.New("partition too small")
)
