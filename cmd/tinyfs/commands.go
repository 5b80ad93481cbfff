/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Thu Oct 15 12:02:11 2026 mstenber
 * Last modified: Sat Oct 17 12:20:37 2026 mstenber
 * Edit time:     71 min
 *
 */

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/fingon/go-tinyfs/config"
	"github.com/fingon/go-tinyfs/disk"
	"github.com/fingon/go-tinyfs/fs"
	"github.com/fingon/go-tinyfs/fusefs"
	"github.com/fingon/go-tinyfs/mlog"
)

// fdIO adapts a descriptor of a task to io.Reader and io.Writer.
type fdIO struct {
	task *fs.Task
	fd   int
}

func (self fdIO) Read(b []byte) (int, error) {
	return self.task.Read(self.fd, b)
}

func (self fdIO) Write(b []byte) (int, error) {
	return self.task.Write(self.fd, b)
}

func needArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: %d argument(s) required", c.Command.Name, n)
	}
	return nil
}

func eachArg(f func(task *fs.Task, p string) error) cli.ActionFunc {
	return withFs(func(fsys *fs.Fs, task *fs.Task, c *cli.Context) error {
		if err := needArgs(c, 1); err != nil {
			return err
		}
		for _, p := range c.Args().Slice() {
			if err := f(task, p); err != nil {
				return errors.Wrap(err, p)
			}
		}
		return nil
	})
}

func mkdisk(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("sectors") {
		conf.Sectors = uint32(c.Uint("sectors"))
	}
	var sizes []uint32
	for _, s := range c.IntSlice("parts") {
		if s < 0 {
			return fmt.Errorf("invalid partition size %d", s)
		}
		sizes = append(sizes, uint32(s))
	}
	if len(sizes) == 0 {
		sizes = []uint32{0}
	}
	parts, err := disk.Plan(conf.DiskName, conf.Sectors, sizes)
	if err != nil {
		return err
	}
	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	defer dev.Close()
	if err = disk.WritePartitionTable(dev, parts); err != nil {
		return err
	}
	dev.Flush()
	for _, p := range parts {
		fmt.Println(p)
	}
	return nil
}

func initDisk(d *disk.Disk, conf *config.Config, c *cli.Context) error {
	formatted, err := fs.InitDisk(d, fs.FormatOptions{Inodes: conf.Inodes})
	if err != nil {
		return err
	}
	for _, name := range formatted {
		fmt.Printf("formatted %s\n", name)
	}
	return nil
}

func format(d *disk.Disk, conf *config.Config, c *cli.Context) error {
	info, err := d.Lookup(conf.Partition)
	if err != nil {
		return errors.Wrap(err, conf.Partition)
	}
	if fs.HasFilesystem(d.Dev, info) && !c.Bool("force") {
		return fmt.Errorf("%s already has a filesystem (use --force)", info.Name)
	}
	sb, err := fs.Format(d.Dev, info, fs.FormatOptions{Inodes: conf.Inodes})
	if err != nil {
		return err
	}
	fmt.Printf("formatted %s uuid %v\n", info.Name, sb.UUID)
	return nil
}

func info(fsys *fs.Fs, task *fs.Task, c *cli.Context) error {
	part := fsys.Partition()
	sb := part.Sb
	fmt.Printf("%v\n", part.Info)
	fmt.Printf("uuid:         %v\n", sb.UUID)
	fmt.Printf("sectors:      %d\n", sb.SecCnt)
	fmt.Printf("inodes:       %d\n", sb.InodeCnt)
	fmt.Printf("block bitmap: %d+%d\n", sb.BlockBitmapLBA, sb.BlockBitmapSects)
	fmt.Printf("inode bitmap: %d+%d\n", sb.InodeBitmapLBA, sb.InodeBitmapSects)
	fmt.Printf("inode table:  %d+%d\n", sb.InodeTableLBA, sb.InodeTableSects)
	fmt.Printf("data:         %d+%d\n", sb.DataStart, sb.BlockCount)
	st := fsys.Stats()
	fmt.Printf("blocks used:  %d/%d\n", st.Blocks-st.FreeBlocks, st.Blocks)
	fmt.Printf("inodes used:  %d/%d\n", st.Inodes-st.FreeInodes, st.Inodes)
	return nil
}

func ls(fsys *fs.Fs, task *fs.Task, c *cli.Context) error {
	p := "/"
	if c.NArg() > 0 {
		p = c.Args().First()
	}
	names, err := task.ListDir(p)
	if err != nil {
		return errors.Wrap(err, p)
	}
	for _, name := range names {
		st, err := task.Stat(fs.Abs(p, name))
		if err != nil {
			return err
		}
		fmt.Printf("%-9v %6d %5d %s\n", st.Type, st.Size, st.Ino, name)
	}
	return nil
}

func stat(task *fs.Task, p string) error {
	st, err := task.Stat(p)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ino %d size %d type %v\n", p, st.Ino, st.Size, st.Type)
	return nil
}

func put(fsys *fs.Fs, task *fs.Task, c *cli.Context) error {
	if err := needArgs(c, 2); err != nil {
		return err
	}
	src, dst := c.Args().Get(0), c.Args().Get(1)
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	fd, err := task.Open(dst, fs.O_CREAT|fs.O_WRONLY)
	if err != nil {
		return err
	}
	defer task.Close(fd)
	n, err := io.Copy(fdIO{task, fd}, f)
	mlog.Printf2("cmd/tinyfs/commands", "put %s -> %s: %d bytes", src, dst, n)
	return err
}

func cat(task *fs.Task, p string) error {
	fd, err := task.Open(p, fs.O_RDONLY)
	if err != nil {
		return err
	}
	defer task.Close(fd)
	_, err = io.Copy(os.Stdout, fdIO{task, fd})
	return err
}

func mount(fsys *fs.Fs, task *fs.Task, c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	server, err := fusefs.Mount(fsys, c.Args().First(), fusefs.Options{
		Debug:      c.Bool("debug"),
		AllowOther: c.Bool("allow-other"),
	})
	if err != nil {
		return err
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		mlog.Printf2("cmd/tinyfs/commands", "signal; unmounting")
		if err := server.Unmount(); err != nil {
			mlog.Warnf("unmount failed: %v", err)
		}
	}()
	server.Wait()
	return nil
}

var commands = []*cli.Command{
	{
		Name:      "mkdisk",
		Usage:     "create a disk image and its partition table",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "sectors",
				Usage: "size of the disk in sectors",
			},
			&cli.IntSliceFlag{
				Name:  "parts",
				Usage: "partition sizes in sectors; 0 is the rest of the disk",
			},
		},
		Action: mkdisk,
	},
	{
		Name:   "init",
		Usage:  "format every partition without a filesystem",
		Action: withDisk(initDisk),
	},
	{
		Name:  "format",
		Usage: "format the partition",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "format even if there is a filesystem already",
			},
		},
		Action: withDisk(format),
	},
	{
		Name:   "info",
		Usage:  "show the superblock and usage of the partition",
		Action: withFs(info),
	},
	{
		Name:      "ls",
		Usage:     "list a directory",
		ArgsUsage: "[PATH]",
		Action:    withFs(ls),
	},
	{
		Name:      "mkdir",
		Usage:     "create directories",
		ArgsUsage: "PATH...",
		Action:    eachArg((*fs.Task).Mkdir),
	},
	{
		Name:      "rmdir",
		Usage:     "remove empty directories",
		ArgsUsage: "PATH...",
		Action:    eachArg((*fs.Task).Rmdir),
	},
	{
		Name:      "rm",
		Usage:     "remove files",
		ArgsUsage: "PATH...",
		Action:    eachArg((*fs.Task).Unlink),
	},
	{
		Name:      "stat",
		ArgsUsage: "PATH...",
		Action:    eachArg(stat),
	},
	{
		Name:      "put",
		Usage:     "copy a host file into the filesystem",
		ArgsUsage: "HOSTFILE PATH",
		Action:    withFs(put),
	},
	{
		Name:      "cat",
		Usage:     "print files",
		ArgsUsage: "PATH...",
		Action:    eachArg(cat),
	},
	{
		Name:      "mount",
		Usage:     "serve the partition over FUSE",
		ArgsUsage: "MOUNTPOINT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "FUSE debug output",
			},
			&cli.BoolFlag{
				Name:  "allow-other",
				Usage: "let other users access the mount",
			},
		},
		Action: withFs(mount),
	},
}
