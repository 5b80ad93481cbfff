/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Thu Oct 15 10:02:33 2026 mstenber
 * Last modified: Fri Oct 16 22:18:40 2026 mstenber
 * Edit time:     27 min
 *
 */

// config package loads the tinyfs configuration: defaults, then an
// optional YAML file, then TINYFS_* environment variables.
package config

import (
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fingon/go-tinyfs/codec"
	"github.com/fingon/go-tinyfs/device/factory"
)

const EnvPrefix = "TINYFS"

// Config fields are overridden by TINYFS_<FIELD> variables, e.g.
// TINYFS_BACKEND or TINYFS_DISKNAME.
type Config struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Sectors     uint32 `yaml:"sectors"`
	Partition   string `yaml:"partition"`
	DiskName    string `yaml:"disk"`
	Inodes      uint32 `yaml:"inodes"`
	Password    string `yaml:"password"`
	Salt        string `yaml:"salt"`
	Iterations  int    `yaml:"iterations"`
	Compression string `yaml:"compression"`
}

func Default() Config {
	return Config{
		Backend:     "file",
		Path:        "tinyfs.img",
		Sectors:     131072,
		Partition:   "sdb1",
		DiskName:    "sdb",
		Inodes:      4096,
		Salt:        factory.DefaultSalt,
		Iterations:  factory.DefaultIterations,
		Compression: factory.DefaultCompression,
	}
}

// Load reads the configuration; a missing file is not an error.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename != "" {
		data, err := ioutil.ReadFile(filename)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "reading config file")
		default:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return nil, errors.Wrapf(err, "parsing %s", filename)
			}
		}
	}
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, errors.Wrap(err, "parsing environment variables")
	}
	return &c, c.Validate()
}

func (self *Config) Validate() error {
	known := false
	for _, name := range factory.List() {
		known = known || name == self.Backend
	}
	if !known {
		return errors.Errorf("unknown backend %q", self.Backend)
	}
	if _, err := codec.ParseCompressionType(self.Compression); err != nil {
		return err
	}
	if self.Path == "" {
		return errors.New("path is required")
	}
	if self.Iterations <= 0 {
		return errors.Errorf("invalid iterations %d", self.Iterations)
	}
	return nil
}

// CodecConfiguration is the device configuration of the backend.
func (self *Config) CodecConfiguration() factory.CodecConfiguration {
	var cc factory.CodecConfiguration
	cc.BackendName = self.Backend
	cc.Path = self.Path
	cc.Sectors = self.Sectors
	cc.Password = self.Password
	cc.Salt = self.Salt
	cc.Iterations = self.Iterations
	cc.Compression = self.Compression
	return cc
}
