/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Thu Oct 15 11:30:26 2026 mstenber
 * Last modified: Sat Oct 17 11:40:58 2026 mstenber
 * Edit time:     64 min
 *
 */

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fingon/go-tinyfs/config"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/device/factory"
	"github.com/fingon/go-tinyfs/disk"
	"github.com/fingon/go-tinyfs/fs"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/fingon/go-tinyfs/util"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "YAML configuration file",
		Value:   "tinyfs.yaml",
		EnvVars: []string{"TINYFS_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "backend",
		Usage: fmt.Sprintf("device backend (possible: %v)", factory.List()),
	},
	&cli.StringFlag{
		Name:  "path",
		Usage: "image file, or store directory of key-value backends",
	},
	&cli.StringFlag{
		Name:  "partition",
		Usage: "partition to use",
	},
	&cli.StringFlag{
		Name:  "password",
		Usage: "password for sector encryption (key-value backends)",
	},
	&cli.StringFlag{
		Name:  "mlog",
		Usage: "debug log pattern",
	},
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if p := c.String("mlog"); p != "" {
		mlog.SetPattern(p)
	}
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	conf.Backend = util.SOr(c.String("backend"), conf.Backend)
	conf.Path = util.SOr(c.String("path"), conf.Path)
	conf.Partition = util.SOr(c.String("partition"), conf.Partition)
	conf.Password = util.SOr(c.String("password"), conf.Password)
	return conf, conf.Validate()
}

func openDevice(conf *config.Config) (device.Device, error) {
	return factory.NewCodecDevice(conf.CodecConfiguration())
}

func withDisk(f func(d *disk.Disk, conf *config.Config, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		conf, err := loadConfig(c)
		if err != nil {
			return err
		}
		dev, err := openDevice(conf)
		if err != nil {
			return err
		}
		defer dev.Close()
		d, err := disk.Open(conf.DiskName, dev)
		if err != nil {
			return err
		}
		return f(d, conf, c)
	}
}

func withFs(f func(fsys *fs.Fs, task *fs.Task, c *cli.Context) error) cli.ActionFunc {
	return withDisk(func(d *disk.Disk, conf *config.Config, c *cli.Context) error {
		part, err := fs.MountByName(d, conf.Partition)
		if err != nil {
			return err
		}
		fsys := fs.NewFs(part)
		defer fsys.Close()
		task := fsys.NewTask()
		defer task.Exit()
		return f(fsys, task, c)
	})
}

func main() {
	app := cli.App{
		Name:     "tinyfs",
		Usage:    "small Unix-like filesystem on a partitioned block device",
		Flags:    globalFlags,
		Commands: commands,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
